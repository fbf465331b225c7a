package backends

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Manager coordinates search across configured services with fallback support
type Manager struct {
	primary   SearchClient
	fallbacks []SearchClient
	registry  map[string]SearchClient
}

// NewManager creates a new service manager
func NewManager() *Manager {
	return &Manager{
		registry: make(map[string]SearchClient),
	}
}

// Register adds a client to the registry under its settings name
func (m *Manager) Register(client SearchClient) {
	m.registry[client.Settings().Name] = client
}

// SetPrimary sets the primary service by name
func (m *Manager) SetPrimary(name string) error {
	client, ok := m.registry[name]
	if !ok {
		return fmt.Errorf("unknown service: %s (available: %s)", name, m.availableNames())
	}
	m.primary = client
	return nil
}

// Primary returns the primary client, or nil
func (m *Manager) Primary() SearchClient {
	return m.primary
}

// SetFallbacks sets the fallback services in order
func (m *Manager) SetFallbacks(names []string) error {
	m.fallbacks = nil
	for _, name := range names {
		client, ok := m.registry[name]
		if !ok {
			return fmt.Errorf("unknown fallback service: %s (available: %s)", name, m.availableNames())
		}
		m.fallbacks = append(m.fallbacks, client)
	}
	return nil
}

// Search queries the primary service, falling back to alternatives.
// Returns the page, the service name that succeeded, and any error
func (m *Manager) Search(ctx context.Context, tags string, page int) (*SearchResult, string, error) {
	if m.primary == nil {
		return nil, "", fmt.Errorf("no primary service configured")
	}

	result, err := m.primary.SearchPage(ctx, tags, page)
	if err == nil {
		return result, m.primary.Settings().Name, nil
	}

	errors := []string{err.Error()}

	for _, fb := range m.fallbacks {
		name := fb.Settings().Name
		if !isAvailable(fb) {
			errors = append(errors, fmt.Sprintf("%s: not configured", name))
			continue
		}

		result, fbErr := fb.SearchPage(ctx, tags, page)
		if fbErr == nil {
			return result, name, nil
		}
		errors = append(errors, fbErr.Error())
	}

	return nil, "", fmt.Errorf("all services failed:\n  %s", strings.Join(errors, "\n  "))
}

// SearchExplicit searches using a specific service by name (no fallback)
func (m *Manager) SearchExplicit(ctx context.Context, name, tags string, page int) (*SearchResult, error) {
	client, ok := m.registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown service: %s (available: %s)", name, m.availableNames())
	}
	if !isAvailable(client) {
		return nil, fmt.Errorf("service %s is not configured (missing access key?)", name)
	}
	return client.SearchPage(ctx, tags, page)
}

// GetClient returns a client by service name
func (m *Manager) GetClient(name string) (SearchClient, bool) {
	c, ok := m.registry[name]
	return c, ok
}

// AvailableServices returns the sorted names of all registered services
func (m *Manager) AvailableServices() []string {
	names := make([]string, 0, len(m.registry))
	for name := range m.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfiguredServices returns the sorted names of services that have the
// credentials they need
func (m *Manager) ConfiguredServices() []string {
	names := make([]string, 0, len(m.registry))
	for name, client := range m.registry {
		if isAvailable(client) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (m *Manager) availableNames() string {
	return strings.Join(m.AvailableServices(), ", ")
}

func isAvailable(c SearchClient) bool {
	return c.RequiresAuthentication() != AuthRequired || c.Settings().Password != ""
}
