package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Mascot   MascotConfig   `toml:"mascot"`
	Search   SearchConfig   `toml:"search"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// MascotConfig locates the Mascot server and describes how submissions are built.
type MascotConfig struct {
	InstallURL     string `toml:"install_url"`
	SubmitPath     string `toml:"submit_path"`
	TemplatePath   string `toml:"template_path"`
	Boundary       string `toml:"boundary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SearchConfig contains the search parameters rendered into the submission form.
type SearchConfig struct {
	Title           string   `toml:"title"`
	UserName        string   `toml:"user_name"`
	UserEmail       string   `toml:"user_email"`
	Database        string   `toml:"database"`
	Taxonomy        string   `toml:"taxonomy"`
	Enzyme          string   `toml:"enzyme"`
	MissedCleavages int      `toml:"missed_cleavages"`
	FixedMods       []string `toml:"fixed_mods"`
	VariableMods    []string `toml:"variable_mods"`
	PeptideTol      float64  `toml:"peptide_tol"`
	PeptideTolUnit  string   `toml:"peptide_tol_unit"`
	MSMSTol         float64  `toml:"msms_tol"`
	MSMSTolUnit     string   `toml:"msms_tol_unit"`
	Charge          string   `toml:"charge"`
	Mass            string   `toml:"mass"`
	Instrument      string   `toml:"instrument"`
	Decoy           bool     `toml:"decoy"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP status server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for the status server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ParsedInstallURL returns the parsed Mascot install root with a trailing slash.
func (m MascotConfig) ParsedInstallURL() (*url.URL, error) {
	raw := strings.TrimSpace(m.InstallURL)
	if raw == "" {
		return nil, fmt.Errorf("%w: mascot.install_url is empty", ErrConfiguration)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: mascot.install_url: %v", ErrConfiguration, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: mascot.install_url must be http or https, got %q", ErrConfiguration, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: mascot.install_url has no host", ErrConfiguration)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// SubmitURL resolves submit_path against the install root.
func (m MascotConfig) SubmitURL() (string, error) {
	base, err := m.ParsedInstallURL()
	if err != nil {
		return "", err
	}
	if m.SubmitPath == "" {
		return "", fmt.Errorf("%w: mascot.submit_path is empty", ErrConfiguration)
	}

	ref, err := url.Parse(strings.TrimPrefix(m.SubmitPath, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: mascot.submit_path: %v", ErrConfiguration, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Timeout returns the configured request timeout; zero means none.
func (m MascotConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Validate checks the settings a search cannot run without.
func (c *Config) Validate() error {
	if _, err := c.Mascot.SubmitURL(); err != nil {
		return err
	}
	if c.Mascot.TemplatePath != "" {
		if _, err := os.Stat(c.Mascot.TemplatePath); err != nil {
			return fmt.Errorf("%w: mascot.template_path: %v", ErrConfiguration, err)
		}
	}
	if c.Search.Database == "" {
		return fmt.Errorf("%w: search.database is empty", ErrConfiguration)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
