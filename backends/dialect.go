package backends

import (
	"net/url"
	"strings"
	"time"
)

// pageRequest is everything a dialect needs to build and interpret one page.
type pageRequest struct {
	settings Settings
	tags     string
	page     int
	limit    int
}

// dialect bundles the per-backend pieces of the request pipeline. Backends
// that share behaviour reuse each other's functions rather than wrapping
// each other.
type dialect struct {
	// buildURL returns the search URL; it must be a pure function of req.
	buildURL func(req pageRequest) (string, error)
	// parse turns a response body into the page's images.
	parse func(d dialect, req pageRequest, body []byte) ([]Image, error)
	// parseDate normalizes the backend's created_at representation.
	parseDate func(s string) (time.Time, error)
	// webURL is the human-browsable page for an image id.
	webURL func(settings Settings, id string) string

	defaultQuery string
	auth         AuthenticationType
	// probePath is appended to the endpoint by service detection; empty
	// means the dialect cannot be detected by probing.
	probePath string
}

func dialectFor(t APIType) (dialect, bool) {
	switch t {
	case APIDanbooruLegacy:
		return danbooruLegacyDialect(), true
	case APIE621:
		return e621Dialect(), true
	case APIHydrus:
		return hydrusDialect(), true
	default:
		return dialect{}, false
	}
}

// postShowURL is the /post/show/<id> page used by Danbooru 1.x and E621.
func postShowURL(settings Settings, id string) string {
	return settings.Endpoint + "/post/show/" + id
}

// normalizeQuery collapses runs of whitespace so equivalent queries build
// identical URLs.
func normalizeQuery(tags string) string {
	return strings.Join(strings.Fields(tags), " ")
}

// NormalizeURL resolves a possibly relative or protocol-relative URL
// against the endpoint. Empty input stays empty.
func NormalizeURL(endpoint, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
