package backends

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Client implements SearchClient for every supported dialect. It only holds
// configuration fixed at construction and is safe for concurrent use.
type Client struct {
	settings  Settings
	dialect   dialect
	transport Transport
	executor  *Executor
	cache     *ResultCache
	timeout   time.Duration
	userAgent string
	logger    zerolog.Logger
}

var _ SearchClient = (*Client)(nil)

// Name returns the human-readable service name
func (c *Client) Name() string {
	return c.settings.Name
}

// Settings returns a copy of the settings the client was built from
func (c *Client) Settings() Settings {
	return c.settings
}

// DefaultQuery returns the backend's starting query
func (c *Client) DefaultQuery() string {
	return c.dialect.defaultQuery
}

// RequiresAuthentication reports the backend's credential requirement
func (c *Client) RequiresAuthentication() AuthenticationType {
	return c.dialect.auth
}

// IsAvailable reports whether the client has every credential it needs
func (c *Client) IsAvailable() bool {
	return isAvailable(c)
}

// Search returns page 0 for tags
func (c *Client) Search(ctx context.Context, tags string) (*SearchResult, error) {
	return c.SearchPage(ctx, tags, 0)
}

// SearchPage fetches and parses one zero-indexed page
func (c *Client) SearchPage(ctx context.Context, tags string, page int) (*SearchResult, error) {
	if page < 0 {
		return nil, c.wrapError(fmt.Errorf("invalid page %d", page), ErrKindConfig, 0)
	}
	if !c.IsAvailable() {
		return nil, c.wrapError(errors.New("credentials required but not configured"), ErrKindAuth, 0)
	}

	req := pageRequest{
		settings: c.settings,
		tags:     tags,
		page:     page,
		limit:    DefaultLimit,
	}

	key := cacheKey(c.settings, req.tags, page)
	if c.cache != nil {
		if cached, ok := c.cache.get(key); ok {
			c.logger.Debug().Str("tags", tags).Int("page", page).Msg("Result cache hit")
			return cached, nil
		}
	}

	searchURL, err := c.dialect.buildURL(req)
	if err != nil {
		return nil, c.wrapError(err, ErrKindConfig, 0)
	}

	body, err := c.fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	images, err := c.dialect.parse(c.dialect, req, body)
	if err != nil {
		c.logger.Warn().Err(err).Str("tags", tags).Int("page", page).Msg("Failed to parse response")
		return nil, c.wrapError(err, ErrKindParse, 0)
	}

	c.logger.Debug().
		Str("tags", tags).
		Int("page", page).
		Int("images", len(images)).
		Msg("Search complete")

	result := NewSearchResult(images, TagsFromString(tags, TagGeneral), page)
	if c.cache != nil {
		c.cache.put(key, result)
	}
	return result, nil
}

// SearchAsync submits SearchPage to the executor. cb may be nil when the
// caller only wants the returned Future.
func (c *Client) SearchAsync(ctx context.Context, tags string, page int, cb Callback) *Future {
	f := c.executor.submit(ctx, func(ctx context.Context) (*SearchResult, error) {
		return c.SearchPage(ctx, tags, page)
	}, c.normalizeError)
	if cb != nil {
		f.Then(cb)
	}
	return f
}

func (c *Client) fetch(ctx context.Context, searchURL string) ([]byte, error) {
	c.logger.Debug().Str("url", redactURL(searchURL)).Msg("Requesting search page")

	resp, err := c.transport.Do(ctx, Request{
		URL:             searchURL,
		UserAgent:       c.userAgent,
		Timeout:         c.timeout,
		FollowRedirects: true,
		Cacheable:       true,
	})
	if err != nil {
		return nil, c.wrapError(fmt.Errorf("request failed: %v", err), ErrKindTransport, 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, c.wrapError(fmt.Errorf("authentication failed: %s", string(snippet)), ErrKindAuth, resp.StatusCode)
		default:
			return nil, c.wrapError(fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(snippet)), ErrKindTransport, resp.StatusCode)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.wrapError(fmt.Errorf("failed to read response: %v", err), ErrKindTransport, resp.StatusCode)
	}
	return body, nil
}

func (c *Client) wrapError(err error, kind int, code int) *ClientError {
	return &ClientError{
		Client: c.settings.Name,
		Kind:   kind,
		Code:   code,
		Err:    err,
	}
}

// normalizeError makes sure errors produced outside SearchPage (context
// cancellation before the task ran, recovered panics, a closed executor)
// still reach Future and callback users as a ClientError.
func (c *Client) normalizeError(err error) error {
	var ce *ClientError
	if errors.As(err, &ce) {
		return err
	}
	return c.wrapError(err, ErrKindTransport, 0)
}

// redactURL hides credentials before a URL is logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has(hydrusAccessKeyParam) {
		q.Set(hydrusAccessKeyParam, "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
