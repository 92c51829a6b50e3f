// Package config builds the client settings from defaults, an optional YAML or
// JSON file, the environment and values stored with `glance config set`.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/glance/internal/guard"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GLANCE_"

// Layouts accepted by ui.layout.
const (
	LayoutWide    = "wide"
	LayoutCompact = "compact"
)

// Duration is a time.Duration written as "15s" in files and overrides.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type API struct {
	SearchURL  string   `json:"search_url" yaml:"search_url"`
	DetailURL  string   `json:"detail_url" yaml:"detail_url"`
	SimilarURL string   `json:"similar_url" yaml:"similar_url"`
	Client     string   `json:"client" yaml:"client"`
	Token      string   `json:"token" yaml:"token"`
	Timeout    Duration `json:"timeout" yaml:"timeout"`
	RateLimit  float64  `json:"rate_limit" yaml:"rate_limit"` // Requests per second, 0 is unlimited
}

type Search struct {
	PageSize int      `json:"page_size" yaml:"page_size"`
	Live     bool     `json:"live" yaml:"live"`
	Debounce Duration `json:"debounce" yaml:"debounce"`
}

type UI struct {
	Layout string `json:"layout" yaml:"layout"`
}

type Store struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Settings is the resolved client configuration.
type Settings struct {
	API    API    `json:"api" yaml:"api"`
	Search Search `json:"search" yaml:"search"`
	UI     UI     `json:"ui" yaml:"ui"`
	Store  Store  `json:"store" yaml:"store"`
}

// Default returns the built-in settings.
func Default() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		API: API{
			Client:  "web",
			Timeout: Duration(15 * time.Second),
		},
		Search: Search{
			PageSize: 20,
			Debounce: Duration(400 * time.Millisecond),
		},
		UI:    UI{Layout: LayoutWide},
		Store: Store{Dir: filepath.Join(home, ".glance")},
	}
}

// ValidationResult represents the outcome of a validation pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Options control where Load looks.
type Options struct {
	// File is an optional .yaml, .yml or .json settings file.
	File string
	// EnvFile is an optional dotenv file. Process variables win over it.
	EnvFile string
	// Overrides are stored key/value pairs applied last.
	Overrides map[string]string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves settings in order: defaults, file, dotenv, environment, overrides.
func Load(opts Options) (*Settings, error) {
	s := Default()

	if opts.File != "" {
		if err := s.readFile(opts.File); err != nil {
			return nil, err
		}
	}

	env := map[string]string{}
	if opts.EnvFile != "" {
		vars, err := godotenv.Read(opts.EnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range Keys() {
		name := EnvName(key)
		if v, ok := lookup(name); ok {
			env[name] = v
		}
	}
	for _, key := range Keys() {
		if v, ok := env[EnvName(key)]; ok {
			if err := s.Set(key, v); err != nil {
				return nil, fmt.Errorf("%s: %w", EnvName(key), err)
			}
		}
	}

	for _, key := range sortedKeys(opts.Overrides) {
		if _, ok := fields[key]; !ok {
			continue
		}
		if err := s.Set(key, opts.Overrides[key]); err != nil {
			return nil, fmt.Errorf("stored %s: %w", key, err)
		}
	}

	return &s, nil
}

func (s *Settings) readFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, s); err != nil {
			return fmt.Errorf("failed to unmarshal JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s (use .json or .yaml)", ext)
	}
	return nil
}

// Validate checks the settings for completeness and sanity.
func (s Settings) Validate() ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}
	fail := func(format string, args ...any) {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}

	if s.API.SearchURL == "" {
		fail("api.search_url is required")
	}
	for key, raw := range map[string]string{
		"api.search_url":  s.API.SearchURL,
		"api.detail_url":  s.API.DetailURL,
		"api.similar_url": s.API.SimilarURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fail("%s %q is not an http(s) URL", key, raw)
			continue
		}
		if u.Scheme == "http" && s.API.Token != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s sends the API token over plain http", key))
		}
	}
	if s.API.DetailURL == "" || s.API.SimilarURL == "" {
		res.Warnings = append(res.Warnings, "detail or similar endpoint not set; product detail is unavailable")
	}

	if s.API.Timeout <= 0 {
		fail("api.timeout must be positive")
	}
	if s.API.RateLimit < 0 {
		fail("api.rate_limit must not be negative")
	}

	if s.Search.PageSize < 1 || s.Search.PageSize > guard.DefaultPolicy.MaxPageSize {
		fail("search.page_size must be between 1 and %d", guard.DefaultPolicy.MaxPageSize)
	}
	if s.Search.Live && time.Duration(s.Search.Debounce) < 100*time.Millisecond {
		res.Warnings = append(res.Warnings, "search.debounce below 100ms sends a request for almost every keystroke")
	}

	if s.UI.Layout != LayoutWide && s.UI.Layout != LayoutCompact {
		fail("ui.layout must be %q or %q", LayoutWide, LayoutCompact)
	}

	sort.Strings(res.Errors)
	sort.Strings(res.Warnings)
	return res
}

// EnvName maps a settings key such as api.search_url to GLANCE_API_SEARCH_URL.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseBool(v string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(v))
}
