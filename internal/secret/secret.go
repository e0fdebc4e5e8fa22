// Package secret provides opaque key-value persistence for credentials.
//
// The Store interface is the host-supplied port; FileStore is the built-in
// implementation, sealing each secret with an AEAD under a master key kept
// in a 0600 file next to the secrets.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNotFound is returned when no secret exists for the given id.
var ErrNotFound = errors.New("secret not found")

// Store persists one opaque secret per id.
type Store interface {
	Set(id, value string) error
	Get(id string) (string, error)
	Delete(id string) error
}

// FileStore keeps sealed secrets as individual files under dir. The master
// key lives in dir/master.key and is created on first use.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) keyPath() string { return filepath.Join(f.dir, "master.key") }

func (f *FileStore) secretPath(id string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(id))+".secret")
}

func (f *FileStore) masterKey() ([]byte, error) {
	key, err := os.ReadFile(f.keyPath())
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("master key has invalid size %d", len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read master key: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secret directory: %w", err)
	}
	if err := os.WriteFile(f.keyPath(), key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write master key: %w", err)
	}
	return key, nil
}

func (f *FileStore) Set(id, value string) error {
	key, err := f.masterKey()
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(value), []byte(id))
	if err := os.WriteFile(f.secretPath(id), sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write secret: %w", err)
	}
	return nil
}

func (f *FileStore) Get(id string) (string, error) {
	sealed, err := os.ReadFile(f.secretPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	key, err := f.masterKey()
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", fmt.Errorf("secret for %q is truncated", id)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(id))
	if err != nil {
		return "", fmt.Errorf("failed to unseal secret: %w", err)
	}
	return string(plain), nil
}

func (f *FileStore) Delete(id string) error {
	if err := os.Remove(f.secretPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and embedding hosts that
// bring their own secure storage.
type MemoryStore struct {
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Set(id, value string) error {
	m.values[id] = value
	return nil
}

func (m *MemoryStore) Get(id string) (string, error) {
	v, ok := m.values[id]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Delete(id string) error {
	delete(m.values, id)
	return nil
}
