package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"nori/backends"
)

type Config struct {
	Schema           string   `toml:"$schema,omitempty"`
	Service          string   `toml:"service"`
	FallbackServices []string `toml:"fallback_services,omitempty"`
	Timeout          float64  `toml:"timeout"`
	UserAgent        string   `toml:"user_agent,omitempty"`
	Workers          int      `toml:"workers"`
	CacheTTL         int      `toml:"cache_ttl"`
	Expand           bool     `toml:"expand"`
	NoColor          bool     `toml:"no_color"`
	Debug            bool     `toml:"debug"`
	LogFile          string   `toml:"log_file,omitempty"`
	HistoryEnabled   bool     `toml:"history_enabled"`
	MaxHistory       int      `toml:"max_history"`

	Services []backends.Settings `toml:"services"`
}

const (
	defaultService        = "konachan"
	defaultTimeout        = 30.0
	defaultWorkers        = backends.DefaultWorkers
	defaultCacheTTL       = 300
	defaultExpand         = false
	defaultNoColor        = false
	defaultDebug          = false
	defaultHistoryEnabled = true
	defaultMaxHistory     = 100
)

func defaultServices() []backends.Settings {
	return []backends.Settings{
		{APIType: backends.APIDanbooruLegacy, Name: "konachan", Endpoint: "https://konachan.net"},
		{APIType: backends.APIDanbooruLegacy, Name: "yandere", Endpoint: "https://yande.re"},
		{APIType: backends.APIE621, Name: "e621", Endpoint: "https://e621.net"},
		{APIType: backends.APIHydrus, Name: "hydrus", Endpoint: "http://127.0.0.1:45869"},
	}
}

func getConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "nori")
}

func getDefaultConfig() *Config {
	return &Config{
		Service:          defaultService,
		FallbackServices: []string{"yandere"},
		Timeout:          defaultTimeout,
		Workers:          defaultWorkers,
		CacheTTL:         defaultCacheTTL,
		Expand:           defaultExpand,
		NoColor:          defaultNoColor,
		Debug:            defaultDebug,
		HistoryEnabled:   defaultHistoryEnabled,
		MaxHistory:       defaultMaxHistory,
		Services:         defaultServices(),
	}
}

func loadConfig() (*Config, error) {
	return loadConfigFile(filepath.Join(getConfigDir(), "config.toml"))
}

func loadConfigFile(configFile string) (*Config, error) {
	config := getDefaultConfig()

	// If config file exists, load it
	if _, err := os.Stat(configFile); err == nil {
		// A file that lists its own services replaces the defaults entirely.
		config.Services = nil
		meta, err := toml.DecodeFile(configFile, config)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %v", err)
		}
		if len(config.Services) == 0 {
			config.Services = defaultServices()
		} else {
			// The default primary and fallbacks name built-in services.
			if !meta.IsDefined("service") {
				config.Service = config.Services[0].Name
			}
			if !meta.IsDefined("fallback_services") {
				config.FallbackServices = nil
			}
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %v", configFile, err)
	}
	return config, nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for i, s := range c.Services {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("services[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("services[%d]: duplicate service name %q", i, s.Name)
		}
		seen[s.Name] = true
		if err := s.Validate(); err != nil {
			return fmt.Errorf("service %s: %v", s.Name, err)
		}
	}
	if c.Service != "" && !seen[c.Service] {
		return fmt.Errorf("service %q is not defined in [[services]]", c.Service)
	}
	for _, name := range c.FallbackServices {
		if !seen[name] {
			return fmt.Errorf("fallback service %q is not defined in [[services]]", name)
		}
	}
	return nil
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return time.Duration(defaultTimeout * float64(time.Second))
	}
	return time.Duration(c.Timeout * float64(time.Second))
}

func (c *Config) cacheTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

func ensureConfig() error {
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.toml")

	// If config file doesn't exist, create it
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return createConfigFile(configDir, configFile)
	}

	return nil
}

func createConfigFile(configDir, configFile string) error {
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configFile)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(`# nori configuration file
#
# Each [[services]] table describes one image board. api_type is one of
# danbooru_legacy, e621 or hydrus. For hydrus, password holds the client
# API access key. Run "nori detect <url>" to generate a table for a new board.

`)
	if err != nil {
		return err
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(getDefaultConfig()); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Created config file: %s\n", configFile)
	return nil
}
