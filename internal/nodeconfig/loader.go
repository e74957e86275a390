package nodeconfig

import (
	"os"
	"strconv"
)

// EnvOverrides holds the four documented environment variables, applied
// with the highest precedence (after YAML/JSON load and default filling),
// matching the teacher's applyEnvironmentOverrides ordering.
type EnvOverrides struct {
	ConfigFile     string
	PrivateKeyFile string
	Host           string
	Port           int
}

// LoadEnvOverrides reads CONFIG_FILE, PRIVATE_KEY_FILE, HOST, PORT.
func LoadEnvOverrides() EnvOverrides {
	overrides := EnvOverrides{
		ConfigFile:     os.Getenv("CONFIG_FILE"),
		PrivateKeyFile: os.Getenv("PRIVATE_KEY_FILE"),
		Host:           os.Getenv("HOST"),
	}
	if p := os.Getenv("PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			overrides.Port = port
		}
	}
	return overrides
}

// Apply overlays non-empty env overrides onto cfg.
func (o EnvOverrides) Apply(cfg *Config) {
	if o.Host != "" {
		cfg.Host = o.Host
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
}

// Load loads configuration from the CONFIG_FILE env var (or the given
// fallback path if CONFIG_FILE is unset), then applies HOST/PORT overrides.
func Load(fallbackPath string) (*Config, error) {
	overrides := LoadEnvOverrides()

	path := overrides.ConfigFile
	if path == "" {
		path = fallbackPath
	}

	var cfg *Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadFromFile(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}
	if cfg == nil {
		cfg = Default()
	}

	overrides.Apply(cfg)
	return cfg, nil
}
