// Package config loads the client configuration from defaults, an optional
// JSON config file, GOPHNOTES_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GOPHNOTES"

// Owner scopes accepted by notes.owner.
const (
	OwnerScopeMe = "me"
	OwnerScopeID = "id"
)

// Options holds the configuration values for the client.
type Options struct {
	// URL is the base URL of the notes API.
	URL string `mapstructure:"url"`

	// CA is an optional PEM bundle used to verify the API's certificate.
	CA string `mapstructure:"ca"`

	// Timeout bounds every HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`

	// TokenFile is where the session token cookie is kept.
	TokenFile string `mapstructure:"token_file"`

	// RevalidateInterval is the period of session revalidation in the shell.
	RevalidateInterval time.Duration `mapstructure:"revalidate_interval"`

	Notes NotesOptions `mapstructure:"notes"`

	// LogLevel is the zap level name.
	LogLevel string `mapstructure:"log_level"`

	// Config is the path of the config file that was read, if any.
	Config string `mapstructure:"-"`
}

// NotesOptions configures the notes store.
type NotesOptions struct {
	// Owner is "me" to list with owner=me or "id" to list by account id.
	Owner string `mapstructure:"owner"`

	// RefetchOnOpen reloads a note before an edit or delete dialog opens.
	RefetchOnOpen bool `mapstructure:"refetch_on_open"`
}

var defaults = map[string]any{
	"url":                   "https://localhost:8080",
	"ca":                    "",
	"timeout":               10 * time.Second,
	"token_file":            "token.json",
	"revalidate_interval":   10 * time.Minute,
	"notes.owner":           OwnerScopeMe,
	"notes.refetch_on_open": true,
	"log_level":             "info",
}

// flag name -> config key
var flagKeys = map[string]string{
	"url":                 "url",
	"ca":                  "ca",
	"timeout":             "timeout",
	"token-file":          "token_file",
	"revalidate-interval": "revalidate_interval",
	"owner":               "notes.owner",
	"log-level":           "log_level",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to config file (JSON)")
	fs.String("url", defaults["url"].(string), "server base URL")
	fs.String("ca", "", "path to CA cert bundle")
	fs.Duration("timeout", defaults["timeout"].(time.Duration), "HTTP request timeout")
	fs.String("token-file", defaults["token_file"].(string), "path to the token cookie file")
	fs.Duration("revalidate-interval", defaults["revalidate_interval"].(time.Duration), "session revalidation period")
	fs.String("owner", OwnerScopeMe, "notes owner scope: me | id")
	fs.String("log-level", defaults["log_level"].(string), "log level (debug, info, warn, error)")
}

// Load resolves the configuration. Precedence from highest: flags set on fs,
// environment, config file, defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Options, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
	}

	path := configPath(fs)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		} else {
			path = ""
		}
	}

	opts := &Options{}
	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	opts.Config = path

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks the resolved values.
func (o *Options) Validate() error {
	u, err := url.Parse(o.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: want http(s)://host[:port]", o.URL)
	}
	switch o.Notes.Owner {
	case OwnerScopeMe, OwnerScopeID:
	default:
		return fmt.Errorf("invalid notes.owner %q: want %q or %q", o.Notes.Owner, OwnerScopeMe, OwnerScopeID)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", o.Timeout)
	}
	if o.RevalidateInterval <= 0 {
		return fmt.Errorf("invalid revalidate_interval %s: must be positive", o.RevalidateInterval)
	}
	if o.TokenFile == "" {
		return errors.New("token_file is required")
	}
	return nil
}

// configPath returns the --config flag value, falling back to GOPHNOTES_CONFIG.
func configPath(fs *pflag.FlagSet) string {
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			return f.Value.String()
		}
	}
	return os.Getenv(EnvPrefix + "_CONFIG")
}
