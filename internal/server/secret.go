package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	secretFileName = "auth.json"
	secretBytes    = 32
	filePerms      = 0600 // Owner read/write only
)

// secretFile is the structure of auth.json.
type secretFile struct {
	Version   int    `json:"version"`
	Secret    string `json:"secret"`
	CreatedAt string `json:"created_at"`
}

// LoadOrCreateSecret returns the credential signing secret kept in
// dataDir/auth.json, generating one on first use. Credentials issued by a
// previous run stay valid across restarts.
func LoadOrCreateSecret(dataDir string) ([]byte, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, secretFileName)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f secretFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", secretFileName, err)
		}
		secret, err := base64.StdEncoding.DecodeString(f.Secret)
		if err != nil || len(secret) < secretBytes {
			return nil, fmt.Errorf("%s: invalid secret", secretFileName)
		}
		return secret, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", secretFileName, err)
	}

	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	if err := saveSecret(path, secretFile{
		Version:   1,
		Secret:    base64.StdEncoding.EncodeToString(secret),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}
	return secret, nil
}

func saveSecret(path string, f secretFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePerms); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save auth file: %w", err)
	}
	return nil
}
