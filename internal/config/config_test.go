package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(Options{LookupEnv: noEnv})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.API.Client != "web" {
		t.Errorf("Expected client 'web', got '%s'", s.API.Client)
	}
	if time.Duration(s.API.Timeout) != 15*time.Second {
		t.Errorf("Expected 15s timeout, got %v", time.Duration(s.API.Timeout))
	}
	if s.Search.PageSize != 20 || time.Duration(s.Search.Debounce) != 400*time.Millisecond {
		t.Errorf("Unexpected search defaults %+v", s.Search)
	}
	if s.UI.Layout != LayoutWide {
		t.Errorf("Expected wide layout, got '%s'", s.UI.Layout)
	}
}

func TestLoad_Files(t *testing.T) {
	tmpDir := t.TempDir()

	yamlPath := filepath.Join(tmpDir, "glance.yaml")
	os.WriteFile(yamlPath, []byte("api:\n  search_url: https://api.example.com/search\n  timeout: 5s\nsearch:\n  live: true\n"), 0600)

	jsonPath := filepath.Join(tmpDir, "glance.json")
	os.WriteFile(jsonPath, []byte(`{"api": {"search_url": "https://json.example.com/search", "rate_limit": 2.5}, "ui": {"layout": "compact"}}`), 0600)

	t.Run("YAML", func(t *testing.T) {
		s, err := Load(Options{File: yamlPath, LookupEnv: noEnv})
		if err != nil {
			t.Fatalf("Failed to load YAML: %v", err)
		}
		if s.API.SearchURL != "https://api.example.com/search" {
			t.Errorf("Unexpected search url '%s'", s.API.SearchURL)
		}
		if time.Duration(s.API.Timeout) != 5*time.Second {
			t.Errorf("Expected 5s, got %v", time.Duration(s.API.Timeout))
		}
		if !s.Search.Live {
			t.Error("Expected live search")
		}
		if s.API.Client != "web" {
			t.Error("File must not clear unrelated defaults")
		}
	})

	t.Run("JSON", func(t *testing.T) {
		s, err := Load(Options{File: jsonPath, LookupEnv: noEnv})
		if err != nil {
			t.Fatalf("Failed to load JSON: %v", err)
		}
		if s.API.RateLimit != 2.5 || s.UI.Layout != LayoutCompact {
			t.Errorf("Unexpected settings %+v", s)
		}
	})

	t.Run("Invalid Extension", func(t *testing.T) {
		txt := filepath.Join(tmpDir, "glance.txt")
		os.WriteFile(txt, []byte("x"), 0600)
		if _, err := Load(Options{File: txt, LookupEnv: noEnv}); err == nil {
			t.Error("Expected error for .txt extension")
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		if _, err := Load(Options{File: filepath.Join(tmpDir, "nope.yaml"), LookupEnv: noEnv}); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestLoad_Precedence(t *testing.T) {
	tmpDir := t.TempDir()

	file := filepath.Join(tmpDir, "glance.yaml")
	os.WriteFile(file, []byte("api:\n  search_url: https://file/search\n  detail_url: https://file/detail\n  similar_url: https://file/similar\n"), 0600)

	envFile := filepath.Join(tmpDir, ".env")
	os.WriteFile(envFile, []byte("GLANCE_API_DETAIL_URL=https://dotenv/detail\nGLANCE_API_SIMILAR_URL=https://dotenv/similar\nGLANCE_SEARCH_PAGE_SIZE=30\n"), 0600)

	env := map[string]string{"GLANCE_API_SIMILAR_URL": "https://env/similar"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	s, err := Load(Options{
		File:      file,
		EnvFile:   envFile,
		LookupEnv: lookup,
		Overrides: map[string]string{
			"search.page_size": "40",
			"unrelated.key":    "ignored",
		},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.API.SearchURL != "https://file/search" {
		t.Errorf("file value lost: %s", s.API.SearchURL)
	}
	if s.API.DetailURL != "https://dotenv/detail" {
		t.Errorf("dotenv should override the file: %s", s.API.DetailURL)
	}
	if s.API.SimilarURL != "https://env/similar" {
		t.Errorf("process env should override dotenv: %s", s.API.SimilarURL)
	}
	if s.Search.PageSize != 40 {
		t.Errorf("stored override should win, got %d", s.Search.PageSize)
	}
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	if _, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), ".env"), LookupEnv: noEnv}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoad_BadValue(t *testing.T) {
	env := func(k string) (string, bool) {
		if k == "GLANCE_API_TIMEOUT" {
			return "soon", true
		}
		return "", false
	}
	_, err := Load(Options{LookupEnv: env})
	if err == nil || !strings.Contains(err.Error(), "GLANCE_API_TIMEOUT") {
		t.Errorf("Expected error naming the variable, got %v", err)
	}
}

func TestSettings_SetGet(t *testing.T) {
	s := Default()

	if err := s.Set("api.timeout", "3s"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Get("api.timeout"); v != "3s" {
		t.Errorf("Expected '3s', got '%s'", v)
	}
	if err := s.Set("search.live", "yes"); err == nil {
		t.Error("Expected error for non-boolean")
	}
	if err := s.Set("nope", "1"); err == nil {
		t.Error("Expected error for unknown key")
	}
	if _, ok := s.Get("nope"); ok {
		t.Error("Unknown key should not be found")
	}

	if !IsSecret("api.token") || IsSecret("api.search_url") {
		t.Error("Only the token is secret")
	}
	if !IsKey("ui.layout") || IsKey("ui") {
		t.Error("IsKey mismatch")
	}
	if EnvName("api.search_url") != "GLANCE_API_SEARCH_URL" {
		t.Errorf("Unexpected env name %s", EnvName("api.search_url"))
	}
	for _, k := range Keys() {
		if _, ok := s.Get(k); !ok {
			t.Errorf("Key %s has no getter", k)
		}
	}
}

func TestSettings_Validate(t *testing.T) {
	valid := func() Settings {
		s := Default()
		s.API.SearchURL = "https://api.example.com/search"
		s.API.DetailURL = "https://api.example.com/detail"
		s.API.SimilarURL = "https://api.example.com/similar"
		return s
	}

	t.Run("Valid", func(t *testing.T) {
		res := valid().Validate()
		if !res.Valid {
			t.Errorf("Expected valid, got invalid: %v", res.Errors)
		}
		if len(res.Warnings) != 0 {
			t.Errorf("Expected no warnings, got %v", res.Warnings)
		}
	})

	t.Run("Missing Detail", func(t *testing.T) {
		s := valid()
		s.API.DetailURL = ""
		res := s.Validate()
		if !res.Valid || len(res.Warnings) == 0 {
			t.Errorf("Expected a warning only, got %+v", res)
		}
	})

	t.Run("Token Over HTTP", func(t *testing.T) {
		s := valid()
		s.API.SearchURL = "http://api.example.com/search"
		s.API.Token = "secret"
		res := s.Validate()
		if !res.Valid || len(res.Warnings) != 1 {
			t.Errorf("Expected one warning, got %+v", res)
		}
	})

	t.Run("Page Size Bounds", func(t *testing.T) {
		tests := []struct {
			size  int
			valid bool
		}{
			{0, false},
			{1, true},
			{100, true},
			{101, false},
		}
		for _, tt := range tests {
			s := valid()
			s.Search.PageSize = tt.size
			res := s.Validate()
			if res.Valid != tt.valid {
				t.Errorf("page_size %d: valid = %v, want %v (%v)", tt.size, res.Valid, tt.valid, res.Errors)
			}
		}
	})

	t.Run("Page Size From File", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "glance.yaml")
		content := "api:\n  search_url: https://api.example.com/search\nsearch:\n  page_size: 101\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		s, err := Load(Options{File: path, LookupEnv: noEnv})
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		res := s.Validate()
		if res.Valid {
			t.Fatal("Expected page_size 101 to be rejected")
		}
		if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "search.page_size") {
			t.Errorf("Expected a page_size error, got %v", res.Errors)
		}
	})

	t.Run("Broken", func(t *testing.T) {
		s := Default()
		s.API.DetailURL = "ftp://x"
		s.API.Timeout = 0
		s.API.RateLimit = -1
		s.Search.PageSize = 500
		s.UI.Layout = "grid"
		res := s.Validate()
		if res.Valid {
			t.Error("Expected invalid")
		}
		// search_url, detail_url, timeout, rate_limit, page_size, layout
		if len(res.Errors) != 6 {
			t.Errorf("Expected 6 errors, got %d: %v", len(res.Errors), res.Errors)
		}
	})
}
