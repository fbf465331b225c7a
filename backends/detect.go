package backends

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds a single detection probe.
const DefaultProbeTimeout = 10 * time.Second

// DetectionOrder is the order DetectAPIType tries dialects in.
var DetectionOrder = []APIType{APIHydrus, APIDanbooruLegacy}

// DetectService probes the marker path of one dialect. It returns the
// endpoint and true only when the probe answers exactly 200; every other
// outcome, including transport errors, is reported as undetected.
func DetectService(ctx context.Context, t Transport, apiType APIType, endpoint string, timeout time.Duration) (string, bool) {
	d, ok := dialectFor(apiType)
	if !ok || d.probePath == "" {
		return "", false
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	resp, err := t.Do(ctx, Request{
		URL:             endpoint + "/" + d.probePath,
		UserAgent:       UserAgent,
		Timeout:         timeout,
		FollowRedirects: false,
		Cacheable:       false,
	})
	if err != nil {
		return "", false
	}
	// Drain a little so the connection can be reused, then release it.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	return endpoint, true
}

// DetectAPIType tries every dialect in DetectionOrder and returns the first
// match.
func DetectAPIType(ctx context.Context, t Transport, endpoint string, timeout time.Duration) (APIType, string, bool) {
	for _, apiType := range DetectionOrder {
		if ctx.Err() != nil {
			break
		}
		if detected, ok := DetectService(ctx, t, apiType, endpoint, timeout); ok {
			return apiType, detected, true
		}
	}
	return 0, "", false
}
