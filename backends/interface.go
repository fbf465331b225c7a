package backends

import (
	"context"
	"errors"
	"fmt"
)

// DefaultLimit is the number of images requested per page by every backend.
const DefaultLimit = 100

// UserAgent is sent with every request made by a client.
const UserAgent = "nori/2.0"

// AuthenticationType describes whether a backend needs credentials
type AuthenticationType int

const (
	AuthNone AuthenticationType = iota
	AuthOptional
	AuthRequired
)

func (a AuthenticationType) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthOptional:
		return "optional"
	case AuthRequired:
		return "required"
	default:
		return fmt.Sprintf("AuthenticationType(%d)", int(a))
	}
}

// Callback receives the outcome of an asynchronous search. Exactly one of
// its methods is called, exactly once, on a worker goroutine.
type Callback interface {
	OnSuccess(result *SearchResult)
	OnFailure(err error)
}

// CallbackFuncs adapts two plain functions to Callback. Nil functions are skipped.
type CallbackFuncs struct {
	Success func(result *SearchResult)
	Failure func(err error)
}

func (c CallbackFuncs) OnSuccess(result *SearchResult) {
	if c.Success != nil {
		c.Success(result)
	}
}

func (c CallbackFuncs) OnFailure(err error) {
	if c.Failure != nil {
		c.Failure(err)
	}
}

// SearchClient is the interface that all image board backends implement
type SearchClient interface {
	// Search returns the first page of results for a whitespace-separated tag query
	Search(ctx context.Context, tags string) (*SearchResult, error)

	// SearchPage returns a zero-indexed page of results, blocking until done
	SearchPage(ctx context.Context, tags string, page int) (*SearchResult, error)

	// SearchAsync runs SearchPage on a worker and reports through cb.
	// It never blocks the caller.
	SearchAsync(ctx context.Context, tags string, page int, cb Callback) *Future

	// Settings returns enough state to rebuild an equivalent client with NewClient
	Settings() Settings

	// DefaultQuery is the query a UI should start with for this backend
	DefaultQuery() string

	// RequiresAuthentication reports whether credentials are needed
	RequiresAuthentication() AuthenticationType
}

// ErrIO is matched by every error a SearchClient returns, whatever its kind.
var ErrIO = errors.New("i/o error")

// ClientError represents an error from a specific client
type ClientError struct {
	Client string
	Kind   int
	Code   int // HTTP status code, 0 when no response was received
	Err    error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s client: %s error: %v", e.Client, kindName(e.Kind), e.Err)
}

// Unwrap returns the underlying error
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is reports every ClientError as ErrIO so callers never need to know
// which backend or stage failed.
func (e *ClientError) Is(target error) bool {
	return target == ErrIO
}

// Error kinds for client failures
const (
	ErrKindTransport = iota // Connection failure, timeout or non-2xx status
	ErrKindParse            // Malformed body or missing required field
	ErrKindAuth             // Credentials required but absent
	ErrKindConfig           // Malformed endpoint or settings
)

func kindName(kind int) string {
	switch kind {
	case ErrKindTransport:
		return "transport"
	case ErrKindParse:
		return "parse"
	case ErrKindAuth:
		return "authentication"
	case ErrKindConfig:
		return "configuration"
	default:
		return "unknown"
	}
}

// IsKind reports whether err is a ClientError of the given kind
func IsKind(err error, kind int) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Kind == kind
}
