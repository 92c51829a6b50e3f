package guard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrViolation is wrapped by every Violation.
var ErrViolation = errors.New("policy violation")

// Policy defines the limits applied to outgoing search requests.
type Policy struct {
	MaxPageSize       int      `json:"max_page_size" yaml:"max_page_size"`
	MaxImageBytes     int64    `json:"max_image_bytes" yaml:"max_image_bytes"`
	AllowedImageGlobs []string `json:"allowed_image_globs" yaml:"allowed_image_globs"`
}

// DefaultPolicy provides safe defaults.
var DefaultPolicy = Policy{
	MaxPageSize:       100,
	MaxImageBytes:     10 << 20,
	AllowedImageGlobs: []string{"*.{jpg,jpeg,png,webp,heic}"},
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Message)
}

func (v *Violation) Unwrap() error {
	return ErrViolation
}

// Guard enforces the policy.
type Guard struct {
	policy Policy
}

func New(p Policy) *Guard {
	return &Guard{policy: p}
}

// Policy returns the guard's current policy configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckImage verifies an upload by file name and size. Names are matched
// case-insensitively against the allowed globs; an empty glob list allows any name.
func (g *Guard) CheckImage(name string, size int64) *Violation {
	if size <= 0 {
		return &Violation{Rule: "image_size", Message: "image is empty"}
	}
	if g.policy.MaxImageBytes > 0 && size > g.policy.MaxImageBytes {
		return &Violation{
			Rule:    "max_image_bytes",
			Message: fmt.Sprintf("image is %d bytes, limit is %d", size, g.policy.MaxImageBytes),
		}
	}

	if len(g.policy.AllowedImageGlobs) == 0 {
		return nil
	}
	base := strings.ToLower(filepath.Base(name))
	for _, pattern := range g.policy.AllowedImageGlobs {
		match, err := doublestar.Match(strings.ToLower(pattern), base)
		if err == nil && match {
			return nil
		}
	}
	return &Violation{Rule: "allowed_image_globs", Message: "image type not allowed: " + name}
}

// CheckPageSize verifies a requested page size.
func (g *Guard) CheckPageSize(limit int) *Violation {
	if limit <= 0 {
		return &Violation{Rule: "page_size", Message: "page size must be positive"}
	}
	if g.policy.MaxPageSize > 0 && limit > g.policy.MaxPageSize {
		return &Violation{
			Rule:    "max_page_size",
			Message: fmt.Sprintf("page size %d exceeds %d", limit, g.policy.MaxPageSize),
		}
	}
	return nil
}
