package guard

import (
	"errors"
	"testing"
)

func TestGuard_CheckImage(t *testing.T) {
	g := New(DefaultPolicy)

	t.Run("Allowed", func(t *testing.T) {
		for _, name := range []string{"photo.jpg", "IMG_0001.JPEG", "/tmp/shots/look.png", "x.webp"} {
			if v := g.CheckImage(name, 1024); v != nil {
				t.Errorf("Unexpected violation for %s: %v", name, v.Message)
			}
		}
	})

	t.Run("Blocked type", func(t *testing.T) {
		v := g.CheckImage("notes.txt", 10)
		if v == nil {
			t.Fatal("Expected violation for .txt")
		}
		if v.Rule != "allowed_image_globs" {
			t.Errorf("Expected allowed_image_globs, got %s", v.Rule)
		}
	})

	t.Run("Too large", func(t *testing.T) {
		v := g.CheckImage("photo.jpg", DefaultPolicy.MaxImageBytes+1)
		if v == nil || v.Rule != "max_image_bytes" {
			t.Fatalf("Expected max_image_bytes violation, got %v", v)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if v := g.CheckImage("photo.jpg", 0); v == nil {
			t.Error("Expected violation for empty image")
		}
	})

	t.Run("No globs", func(t *testing.T) {
		open := New(Policy{})
		if v := open.CheckImage("anything.bin", 1); v != nil {
			t.Errorf("Unexpected violation: %v", v.Message)
		}
	})
}

func TestGuard_CheckPageSize(t *testing.T) {
	g := New(Policy{MaxPageSize: 50})

	tests := []struct {
		limit int
		want  bool
	}{
		{20, false},
		{50, false},
		{51, true},
		{0, true},
		{-1, true},
	}
	for _, tt := range tests {
		got := g.CheckPageSize(tt.limit) != nil
		if got != tt.want {
			t.Errorf("CheckPageSize(%d) violation = %v, want %v", tt.limit, got, tt.want)
		}
	}
}

func TestViolation_Error(t *testing.T) {
	var err error = &Violation{Rule: "max_page_size", Message: "too big"}
	if !errors.Is(err, ErrViolation) {
		t.Error("Expected violation to match ErrViolation")
	}
	if err.Error() != "max_page_size: too big" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestGuard_Policy(t *testing.T) {
	g := New(DefaultPolicy)
	if g.Policy().MaxPageSize != DefaultPolicy.MaxPageSize {
		t.Error("Policy() should return the configured policy")
	}
}
