// Package credential seals secrets such as the API token before they are
// written to the configuration store. Values are encrypted with AES-256-GCM
// under a key derived from the current machine and user.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// SealedPrefix marks a stored value as sealed.
const SealedPrefix = "sealed:v1:"

var (
	ErrOpenFailed    = errors.New("cannot open sealed value")
	ErrInvalidFormat = errors.New("invalid sealed value")
)

// ConfigStore is the part of the store that holds configuration values.
type ConfigStore interface {
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)
	ListConfig() (map[string]string, error)
}

// Vault seals and opens secrets.
type Vault struct {
	aead cipher.AEAD
}

// NewVault creates a vault keyed to this machine and user.
func NewVault() (*Vault, error) {
	return NewVaultWithKey(machineKey())
}

// NewVaultWithKey creates a vault from a 32-byte key.
func NewVaultWithKey(key []byte) (*Vault, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Seal encrypts a secret into a storable string. An empty secret stays empty.
func (v *Vault) Seal(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(secret), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Unsealed values are returned unchanged so
// plain entries written with `config set` keep working.
func (v *Vault) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	n := v.aead.NonceSize()
	if len(raw) < n {
		return "", ErrInvalidFormat
	}
	plain, err := v.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(plain), nil
}

// Put seals secret and stores it under key.
func (v *Vault) Put(st ConfigStore, key, secret string) error {
	sealed, err := v.Seal(secret)
	if err != nil {
		return err
	}
	return st.SetConfig(key, sealed)
}

// Get reads key and opens it if sealed.
func (v *Vault) Get(st ConfigStore, key string) (string, error) {
	stored, err := st.GetConfig(key)
	if err != nil {
		return "", err
	}
	return v.Open(stored)
}

// Reveal lists every stored configuration value with sealed ones opened.
func (v *Vault) Reveal(st ConfigStore) (map[string]string, error) {
	all, err := st.ListConfig()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(all))
	for key, stored := range all {
		plain, err := v.Open(stored)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = plain
	}
	return out, nil
}

func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// Mask hides all but the ends of a secret for display.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// machineKey hashes host and user identifiers into a stable 32-byte key.
func machineKey() []byte {
	var b strings.Builder

	hostname, _ := os.Hostname()
	b.WriteString(hostname)
	home, _ := os.UserHomeDir()
	b.WriteString(home)
	b.WriteString(runtime.GOOS)
	b.WriteString(runtime.GOARCH)
	b.WriteString("glance-vault-v1")
	if uid := os.Getuid(); uid != -1 {
		fmt.Fprintf(&b, "uid:%d", uid)
	}
	b.WriteString(os.Getenv("USER"))

	sum := sha256.Sum256([]byte(b.String()))
	return sum[:]
}
