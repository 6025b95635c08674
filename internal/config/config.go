package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "taskctl.yml"

// Config models taskctl.yml.
type Config struct {
	Credentials struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"credentials"`
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		// Certificate is a PEM bundle trusted for the service. Empty uses
		// the system roots.
		Certificate string        `yaml:"certificate"`
		Timeout     time.Duration `yaml:"timeout"`
		// Plaintext talks HTTP instead of HTTPS, for a local service
		// started without a certificate.
		Plaintext bool `yaml:"plaintext"`
	} `yaml:"server"`
	Schema  string `yaml:"schema"`
	Service struct {
		Addr      string        `yaml:"addr"`
		DB        string        `yaml:"db"`
		TLSCert   string        `yaml:"tls_cert"`
		TLSKey    string        `yaml:"tls_key"`
		JWTSecret string        `yaml:"jwt_secret"`
		Users     []ServiceUser `yaml:"users"`
	} `yaml:"service"`
}

// ServiceUser is an account seeded into the reference service.
type ServiceUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config.server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("config.server.timeout must not be negative")
	}
	if (c.Service.TLSCert == "") != (c.Service.TLSKey == "") {
		return fmt.Errorf("config.service.tls_cert and config.service.tls_key must be set together")
	}
	seen := map[string]bool{}
	for i, u := range c.Service.Users {
		if u.Email == "" {
			return fmt.Errorf("config.service.users[%d].email is required", i)
		}
		if _, err := mail.ParseAddress(u.Email); err != nil {
			return fmt.Errorf("config.service.users[%d].email %q is not an email address", i, u.Email)
		}
		if u.Password == "" {
			return fmt.Errorf("config.service.users[%d].password is required", i)
		}
		key := strings.ToLower(u.Email)
		if seen[key] {
			return fmt.Errorf("config.service.users has duplicate email %s", u.Email)
		}
		seen[key] = true
	}
	return nil
}

// ValidateClient checks what a create or complete call needs.
func (c *Config) ValidateClient() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Credentials.Username == "" {
		return fmt.Errorf("config.credentials.username is required")
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("config.credentials.password is required")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("config.server.host is required")
	}
	if c.Server.Port == 0 {
		return fmt.Errorf("config.server.port is required")
	}
	return nil
}

// BaseURL is the service endpoint derived from server.host and server.port.
func (c *Config) BaseURL() string {
	scheme := "https://"
	if c.Server.Plaintext {
		scheme = "http://"
	}
	return scheme + net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Path returns the config file path inside dir.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName)
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; write one with taskctl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ParseUser parses the email:password[:name] form of --user.
func ParseUser(s string) (ServiceUser, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ServiceUser{}, fmt.Errorf("user %q: want email:password[:name]", s)
	}
	u := ServiceUser{Email: parts[0], Password: parts[1]}
	if len(parts) == 3 {
		u.Name = parts[2]
	}
	return u, nil
}

// Keys overlaid by Resolve. Each is also read from TASKCTL_<KEY> with dots
// replaced by underscores.
var overlayKeys = []string{
	"credentials.username",
	"credentials.password",
	"server.host",
	"server.port",
	"server.certificate",
	"server.timeout",
	"server.plaintext",
	"schema",
	"service.addr",
	"service.db",
	"service.tls_cert",
	"service.tls_key",
	"service.jwt_secret",
}

// Resolve builds the effective config: the .env file named by "env-file"
// (default .env) is loaded into the environment, the YAML file named by
// "config" is read (a missing file is only an error when it was set
// explicitly), and every key set in v through flags or the environment
// replaces the file value.
func Resolve(v *viper.Viper) (*Config, error) {
	envFile := v.GetString("env-file")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	var (
		cfg *Config
		err error
	)
	if path := v.GetString("config"); path != "" {
		cfg, err = Load(path)
	} else {
		cfg, err = LoadOptional(Path(""))
	}
	if err != nil {
		return nil, err
	}

	for _, key := range overlayKeys {
		if !v.IsSet(key) {
			continue
		}
		if err := cfg.set(v, key); err != nil {
			return nil, err
		}
	}
	if users := v.GetStringSlice("service.users"); len(users) > 0 {
		for _, raw := range users {
			u, err := ParseUser(raw)
			if err != nil {
				return nil, err
			}
			cfg.Service.Users = append(cfg.Service.Users, u)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) set(v *viper.Viper, key string) error {
	switch key {
	case "credentials.username":
		c.Credentials.Username = v.GetString(key)
	case "credentials.password":
		c.Credentials.Password = v.GetString(key)
	case "server.host":
		c.Server.Host = v.GetString(key)
	case "server.port":
		port, err := strconv.Atoi(v.GetString(key))
		if err != nil {
			return fmt.Errorf("server.port: %w", err)
		}
		c.Server.Port = port
	case "server.certificate":
		c.Server.Certificate = v.GetString(key)
	case "server.timeout":
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return fmt.Errorf("server.timeout: %w", err)
		}
		c.Server.Timeout = d
	case "server.plaintext":
		c.Server.Plaintext = v.GetBool(key)
	case "schema":
		c.Schema = v.GetString(key)
	case "service.addr":
		c.Service.Addr = v.GetString(key)
	case "service.db":
		c.Service.DB = v.GetString(key)
	case "service.tls_cert":
		c.Service.TLSCert = v.GetString(key)
	case "service.tls_key":
		c.Service.TLSKey = v.GetString(key)
	case "service.jwt_secret":
		c.Service.JWTSecret = v.GetString(key)
	}
	return nil
}

// NewViper returns a viper instance reading TASKCTL_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TASKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

const defaultTemplate = `credentials:
  username: ""
  password: ""

server:
  host: localhost
  port: 8443
  certificate: ""
  timeout: 10s
  plaintext: false

schema: embed:task.schema.json

service:
  addr: ":8443"
  db: ""
  users: []
`
