package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"nori/backends"
)

// app holds everything a command needs to talk to the configured
// services. Clients share one transport, executor and result cache.
type app struct {
	config    *Config
	manager   *backends.Manager
	transport backends.Transport
	executor  *backends.Executor
	logger    zerolog.Logger
}

func newApp(cfg *Config, logger zerolog.Logger) (*app, error) {
	transport := backends.NewHTTPTransportWithClient(&http.Client{})
	executor := backends.NewExecutor(cfg.Workers, logger)

	var rc *backends.ResultCache
	if ttl := cfg.cacheTTL(); ttl > 0 {
		rc = backends.NewResultCache(0, ttl)
	}

	mgr := backends.NewManager()
	for _, settings := range cfg.Services {
		client, err := backends.NewClient(settings,
			backends.WithTransport(transport),
			backends.WithExecutor(executor),
			backends.WithTimeout(cfg.timeout()),
			backends.WithUserAgent(cfg.UserAgent),
			backends.WithLogger(logger),
			backends.WithResultCache(rc),
		)
		if err != nil {
			executor.Close()
			return nil, err
		}
		mgr.Register(client)
	}

	if cfg.Service != "" {
		if err := mgr.SetPrimary(cfg.Service); err != nil {
			executor.Close()
			return nil, err
		}
	}
	if err := mgr.SetFallbacks(cfg.FallbackServices); err != nil {
		executor.Close()
		return nil, err
	}

	return &app{
		config:    cfg,
		manager:   mgr,
		transport: transport,
		executor:  executor,
		logger:    logger.With().Str("component", "cli").Logger(),
	}, nil
}

func (a *app) Close() {
	a.executor.Close()
}

// session pages through the results of one query. Once a page is shown the
// next one is requested in the background so "n" rarely waits.
type session struct {
	app     *app
	service string // explicit service, empty to use primary + fallbacks
	tags    string

	page   int
	used   string
	result *backends.SearchResult

	prefetch     *backends.Future
	prefetchPage int
	prefetchKey  string
}

func newSession(a *app, service, tags string) *session {
	return &session{app: a, service: service, tags: tags}
}

// load fetches page and makes it current.
func (s *session) load(ctx context.Context, page int) error {
	if page < 0 {
		page = 0
	}

	var (
		result *backends.SearchResult
		err    error
	)
	f := s.prefetch
	s.prefetch = nil
	if f != nil && s.prefetchPage == page && s.prefetchKey == s.key() {
		result, err = f.Wait(ctx)
		if err != nil {
			s.app.logger.Debug().Err(err).Int("page", page).Msg("Prefetch failed, retrying")
			result, err = nil, nil
		}
	}

	used := s.used
	if result == nil {
		switch {
		case s.service != "":
			result, err = s.app.manager.SearchExplicit(ctx, s.service, s.tags, page)
			used = s.service
		case s.used != "" && page > 0:
			// Stay on the service that answered the first page.
			result, err = s.app.manager.SearchExplicit(ctx, s.used, s.tags, page)
		default:
			result, used, err = s.app.manager.Search(ctx, s.tags, page)
		}
		if err != nil {
			return err
		}
	}

	s.page = page
	s.used = used
	s.result = result
	s.startPrefetch(ctx)
	return nil
}

func (s *session) startPrefetch(ctx context.Context) {
	s.prefetch = nil
	if s.result == nil || s.result.Len() < backends.DefaultLimit {
		return
	}
	client, ok := s.app.manager.GetClient(s.used)
	if !ok {
		return
	}
	next, used := s.page+1, s.used
	s.prefetchPage = next
	s.prefetchKey = s.key()
	s.prefetch = client.SearchAsync(ctx, s.tags, next, backends.CallbackFuncs{
		Success: func(r *backends.SearchResult) {
			s.app.logger.Debug().Str("service", used).Int("page", next).Int("images", r.Len()).Msg("Prefetched page")
		},
	})
}

// key identifies the query a prefetched page belongs to.
func (s *session) key() string {
	return s.service + "\x00" + s.used + "\x00" + s.tags
}

func (s *session) image(index int) (backends.Image, error) {
	if s.result == nil {
		return backends.Image{}, fmt.Errorf("no results loaded")
	}
	images := s.result.Images()
	if index < 1 || index > len(images) {
		return backends.Image{}, fmt.Errorf("invalid index %d (1-%d)", index, len(images))
	}
	return images[index-1], nil
}
