package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nori/backends"
)

const postPage = `<!DOCTYPE html>
<html>
<head><title>Post #101 - cat cute</title></head>
<body>
  <div id="header"><a href="/">Home</a> <a href="/post">Posts</a></div>
  <article>
    <h2>Post #101</h2>
    <p>A cat sitting in the sun. This image was uploaded by a user who likes cats a lot,
    and the description is long enough for the content extractor to keep it around.</p>
    <p>Source: <a href="https://example.com/source">example.com</a>. Rating is safe and
    the score is twelve. More text follows to make the paragraph substantial enough.</p>
    <p>Tags: cat, cute, outdoors. The picture shows a calm afternoon in a garden with
    flowers, and the cat is looking straight at the camera with a curious expression.</p>
  </article>
  <div id="footer">Running on a Danbooru 1.x board</div>
</body>
</html>`

func TestFetchPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post/show/101" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(postPage))
	}))
	defer server.Close()

	page, err := fetchPost(context.Background(), backends.NewHTTPTransport(), server.URL+"/post/show/101", "", 5*time.Second)
	if err != nil {
		t.Fatalf("fetchPost failed: %v", err)
	}
	if !strings.HasPrefix(page, "# ") {
		t.Errorf("page should start with a title heading:\n%s", page)
	}
	if !strings.Contains(page, "A cat sitting in the sun") {
		t.Errorf("page should contain the article text:\n%s", page)
	}
	if strings.Contains(page, "<p>") {
		t.Errorf("page should be markdown, not HTML:\n%s", page)
	}
}

func TestFetchPost_Errors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	transport := backends.NewHTTPTransport()
	if _, err := fetchPost(context.Background(), transport, server.URL+"/post/show/1", "", time.Second); err == nil {
		t.Error("fetchPost should fail on 404")
	}
	if _, err := fetchPost(context.Background(), transport, "ftp://example.com/post", "", time.Second); err == nil {
		t.Error("fetchPost should reject non-http URLs")
	}
}
