// Package credential stores the directory bind secret encrypted at rest.
package credential

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// Store keeps a single secret in one file, encrypted with age's
// scrypt-based passphrase encryption. The secret never touches disk in
// plaintext.
type Store struct {
	secretPath string
}

// NewStore creates a Store backed by the given file path.
func NewStore(secretPath string) *Store {
	return &Store{secretPath: secretPath}
}

// Set encrypts the secret with the passphrase and writes it to the store
// file, replacing any previous secret.
func (s *Store) Set(passphrase, secret string) error {
	if err := os.MkdirAll(filepath.Dir(s.secretPath), 0700); err != nil {
		return fmt.Errorf("creating secret directory: %w", err)
	}

	f, err := os.OpenFile(s.secretPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating secret file: %w", err)
	}
	defer f.Close()

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	w, err := age.Encrypt(f, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.WriteString(w, secret); err != nil {
		return fmt.Errorf("writing encrypted secret: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted secret: %w", err)
	}

	return nil
}

// Unlock decrypts the stored secret with the passphrase.
func (s *Store) Unlock(passphrase string) (string, error) {
	data, err := os.ReadFile(s.secretPath)
	if err != nil {
		return "", fmt.Errorf("reading secret file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting secret: %w", err)
	}

	secret, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted secret: %w", err)
	}

	return string(secret), nil
}

// IsConfigured returns true if a secret file exists.
func (s *Store) IsConfigured() bool {
	_, err := os.Stat(s.secretPath)
	return err == nil
}
