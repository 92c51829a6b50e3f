package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// field binds a dotted key to a settings value.
type field struct {
	get    func(*Settings) string
	set    func(*Settings, string) error
	secret bool
}

func stringField(p func(*Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *p(s) },
		set: func(s *Settings, v string) error {
			*p(s) = strings.TrimSpace(v)
			return nil
		},
	}
}

func durationField(p func(*Settings) *Duration) field {
	return field{
		get: func(s *Settings) string { return time.Duration(*p(s)).String() },
		set: func(s *Settings, v string) error { return p(s).UnmarshalText([]byte(v)) },
	}
}

var fields = map[string]field{
	"api.search_url":  stringField(func(s *Settings) *string { return &s.API.SearchURL }),
	"api.detail_url":  stringField(func(s *Settings) *string { return &s.API.DetailURL }),
	"api.similar_url": stringField(func(s *Settings) *string { return &s.API.SimilarURL }),
	"api.client":      stringField(func(s *Settings) *string { return &s.API.Client }),
	"api.token": func() field {
		f := stringField(func(s *Settings) *string { return &s.API.Token })
		f.secret = true
		return f
	}(),
	"api.timeout": durationField(func(s *Settings) *Duration { return &s.API.Timeout }),
	"api.rate_limit": {
		get: func(s *Settings) string { return strconv.FormatFloat(s.API.RateLimit, 'f', -1, 64) },
		set: func(s *Settings, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return err
			}
			s.API.RateLimit = f
			return nil
		},
	},
	"search.page_size": {
		get: func(s *Settings) string { return strconv.Itoa(s.Search.PageSize) },
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			s.Search.PageSize = n
			return nil
		},
	},
	"search.live": {
		get: func(s *Settings) string { return strconv.FormatBool(s.Search.Live) },
		set: func(s *Settings, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			s.Search.Live = b
			return nil
		},
	},
	"search.debounce": durationField(func(s *Settings) *Duration { return &s.Search.Debounce }),
	"ui.layout":       stringField(func(s *Settings) *string { return &s.UI.Layout }),
	"store.dir":       stringField(func(s *Settings) *string { return &s.Store.Dir }),
}

// Keys lists every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKey reports whether key names a setting.
func IsKey(key string) bool {
	_, ok := fields[key]
	return ok
}

// IsSecret reports whether key holds a credential that is stored encrypted.
func IsSecret(key string) bool {
	return fields[key].secret
}

// Set assigns a value by key.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := f.set(s, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// Get returns a value by key.
func (s *Settings) Get(key string) (string, bool) {
	f, ok := fields[key]
	if !ok {
		return "", false
	}
	return f.get(s), true
}
