package client

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultServer is used when neither the config file nor a flag names one.
const DefaultServer = "http://localhost:8080"

// Config is the persisted client state: where the server is and who is logged in.
type Config struct {
	Server   string `yaml:"server"`
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
}

// DefaultConfigPath returns ~/.config/listctl/config.yaml, honouring XDG_CONFIG_HOME.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "listctl", "config.yaml"), nil
}

// LoadConfig reads the config at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Server: DefaultServer}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	return cfg, nil
}

// Save writes the config to path. The file holds a bearer token, so it is
// readable by the owner only.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Logout discards the stored session. There is no server-side revocation.
func (c *Config) Logout() {
	c.Token = ""
	c.Username = ""
}
