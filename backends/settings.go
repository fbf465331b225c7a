package backends

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// APIType selects the dialect a client speaks
type APIType int

const (
	APIDanbooruLegacy APIType = iota + 1
	APIE621
	APIHydrus
)

var apiTypeNames = map[APIType]string{
	APIDanbooruLegacy: "danbooru_legacy",
	APIE621:           "e621",
	APIHydrus:         "hydrus",
}

func (t APIType) String() string {
	if name, ok := apiTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("APIType(%d)", int(t))
}

// ParseAPIType accepts the names produced by APIType.String.
func ParseAPIType(s string) (APIType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for t, name := range apiTypeNames {
		if name == normalized {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown api type: %q (available: %s)", s, strings.Join(APITypeNames(), ", "))
}

// APITypeNames lists the supported api type names in a stable order.
func APITypeNames() []string {
	return []string{APIDanbooruLegacy.String(), APIE621.String(), APIHydrus.String()}
}

func (t APIType) MarshalText() ([]byte, error) {
	if _, ok := apiTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown api type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *APIType) UnmarshalText(text []byte) error {
	parsed, err := ParseAPIType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Settings holds what is needed to rebuild a client. For Hydrus the
// Password field carries the client API access key.
type Settings struct {
	APIType  APIType `toml:"api_type" json:"api_type"`
	Name     string  `toml:"name" json:"name"`
	Endpoint string  `toml:"endpoint" json:"endpoint"`
	Username string  `toml:"username,omitempty" json:"username,omitempty"`
	Password string  `toml:"password,omitempty" json:"password,omitempty"`
}

// Validate checks that the settings describe a usable endpoint.
func (s Settings) Validate() error {
	if _, ok := apiTypeNames[s.APIType]; !ok {
		return fmt.Errorf("unknown api type %d", int(s.APIType))
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %v", s.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", s.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", s.Endpoint)
	}
	return nil
}

// Option configures a Client
type Option func(*Client)

// WithTransport sets the transport used for every request.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithExecutor sets the worker pool used by SearchAsync.
func WithExecutor(e *Executor) Option {
	return func(c *Client) { c.executor = e }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent overrides the User-Agent header sent with searches.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the parent logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithResultCache memoizes pages for the lifetime of the cache entries.
func WithResultCache(rc *ResultCache) Option {
	return func(c *Client) { c.cache = rc }
}

// NewClient creates the client matching settings.APIType.
func NewClient(settings Settings, opts ...Option) (*Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, &ClientError{
			Client: settings.Name,
			Kind:   ErrKindConfig,
			Err:    err,
		}
	}

	d, _ := dialectFor(settings.APIType)

	settings.Endpoint = strings.TrimRight(settings.Endpoint, "/")
	c := &Client{
		settings:  settings,
		dialect:   d,
		timeout:   defaultTimeout,
		userAgent: UserAgent,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport()
	}
	if c.executor == nil {
		c.executor = DefaultExecutor()
	}
	c.logger = c.logger.With().
		Str("component", "client").
		Str("service", settings.Name).
		Str("api", settings.APIType.String()).
		Logger()
	return c, nil
}
