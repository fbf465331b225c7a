package backends

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectService(t *testing.T) {
	tests := []struct {
		name    string
		apiType APIType
		handler http.HandlerFunc
		want    bool
	}{
		{
			name:    "hydrus ok",
			apiType: APIHydrus,
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api_version" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.Write([]byte(`{"version":17}`))
			},
			want: true,
		},
		{
			name:    "legacy ok",
			apiType: APIDanbooruLegacy,
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/post/index.xml" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.Write([]byte(legacyFixture()))
			},
			want: true,
		},
		{
			name:    "not found",
			apiType: APIHydrus,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name:    "redirect is not followed",
			apiType: APIDanbooruLegacy,
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/login" {
					w.Write([]byte("login page"))
					return
				}
				http.Redirect(w, r, "/login", http.StatusFound)
			},
		},
		{
			name:    "no content is not detected",
			apiType: APIHydrus,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
		},
		{
			name:    "e621 cannot be probed",
			apiType: APIE621,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("ok"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			endpoint, ok := DetectService(context.Background(), NewHTTPTransport(), tt.apiType, server.URL+"/", time.Second)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, server.URL, endpoint)
			} else {
				assert.Empty(t, endpoint)
			}
		})
	}
}

func TestDetectService_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	_, ok := DetectService(context.Background(), NewHTTPTransport(), APIHydrus, endpoint, time.Second)
	assert.False(t, ok)
}

func TestDetectService_Timeout(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(done)

	start := time.Now()
	_, ok := DetectService(context.Background(), NewHTTPTransport(), APIHydrus, server.URL, 50*time.Millisecond)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDetectService_NoCacheHeaders(t *testing.T) {
	var cacheControl, pragma string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl = r.Header.Get("Cache-Control")
		pragma = r.Header.Get("Pragma")
	}))
	defer server.Close()

	DetectService(context.Background(), NewHTTPTransport(), APIHydrus, server.URL, time.Second)
	assert.Equal(t, "no-cache", cacheControl)
	assert.Equal(t, "no-cache", pragma)
}

func TestDetectAPIType_Order(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		// Answers 200 to everything, so the first probe wins.
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	apiType, endpoint, ok := DetectAPIType(context.Background(), NewHTTPTransport(), server.URL, time.Second)
	assert.True(t, ok)
	assert.Equal(t, APIHydrus, apiType)
	assert.Equal(t, server.URL, endpoint)
	assert.Equal(t, []string{"/api_version"}, paths)
}

func TestDetectAPIType_FallsThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/post/index.xml" {
			w.Write([]byte(legacyFixture()))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	apiType, _, ok := DetectAPIType(context.Background(), NewHTTPTransport(), server.URL, time.Second)
	assert.True(t, ok)
	assert.Equal(t, APIDanbooruLegacy, apiType)

	none := httptest.NewServer(http.NotFoundHandler())
	defer none.Close()
	_, _, ok = DetectAPIType(context.Background(), NewHTTPTransport(), none.URL, time.Second)
	assert.False(t, ok)
}
