package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"
)

const minSecretLength = 32

// Manager writes AES-GCM encrypted cookies. Each secret is hashed into an
// AES-256 key; decryption tries every key so secrets can be rotated.
type Manager struct {
	keys     []cipher.AEAD
	defaults Options
}

func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	keys := make([]cipher.AEAD, 0, len(secrets))
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		key := sha256.Sum256([]byte(s))
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		keys = append(keys, gcm)
	}

	return &Manager{
		keys: keys,
		defaults: applyOptions(Options{
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		}, opts),
	}, nil
}

// SetEncrypted writes value encrypted with the first secret.
// The cookie name is bound as additional data, so a value cannot be
// replayed under another cookie name.
func (m *Manager) SetEncrypted(w http.ResponseWriter, name, value string, opts ...Option) error {
	gcm := m.keys[0]
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(value), []byte(name))
	m.set(w, name, base64.RawURLEncoding.EncodeToString(sealed), applyOptions(m.defaults, opts))
	return nil
}

// GetEncrypted returns ErrCookieNotFound, ErrInvalidFormat or ErrDecryptionFailed
// when the cookie cannot be read.
func (m *Manager) GetEncrypted(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) {
		return "", ErrCookieNotFound
	}
	if err != nil {
		return "", err
	}

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return "", ErrInvalidFormat
	}
	for _, gcm := range m.keys {
		if len(raw) < gcm.NonceSize() {
			return "", ErrInvalidFormat
		}
		nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
		if plain, err := gcm.Open(nil, nonce, ciphertext, []byte(name)); err == nil {
			return string(plain), nil
		}
	}
	return "", ErrDecryptionFailed
}

// Delete expires the cookie using the manager's path and domain.
func (m *Manager) Delete(w http.ResponseWriter, name string) {
	opts := m.defaults
	opts.MaxAge = -1
	m.set(w, name, "", opts)
}

func (m *Manager) set(w http.ResponseWriter, name, value string, o Options) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   o.MaxAge,
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: o.SameSite,
	}
	if o.MaxAge < 0 {
		c.Expires = time.Unix(0, 0)
	}
	http.SetCookie(w, c)
}
