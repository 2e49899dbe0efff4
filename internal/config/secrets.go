package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const apiTokenAccount = "auth.api_token"

// secretStore holds values that must never land in config.json.
type secretStore interface {
	Get(account string) (string, error)
	Set(account, value string) error
}

// errSecretNotFound is returned by secretStore.Get for unknown accounts.
var errSecretNotFound = errors.New("secret not found")

// SecretsFilePath returns $XDG_DATA_HOME/folio/secrets.json.
func SecretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

// fileSecrets keeps secrets in a 0600 JSON file, grouped by service.
type fileSecrets struct {
	path    string
	service string
}

func newFileSecrets(path string) fileSecrets {
	return fileSecrets{path: path, service: appName}
}

func (f fileSecrets) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	if secrets == nil {
		secrets = map[string]map[string]string{}
	}
	return secrets, nil
}

func (f fileSecrets) Get(account string) (string, error) {
	secrets, err := f.read()
	if err != nil {
		return "", err
	}
	val, ok := secrets[f.service][account]
	if !ok || val == "" {
		return "", errSecretNotFound
	}
	return val, nil
}

func (f fileSecrets) Set(account, value string) error {
	secrets, err := f.read()
	if err != nil {
		return err
	}
	if secrets[f.service] == nil {
		secrets[f.service] = make(map[string]string)
	}
	secrets[f.service][account] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}

// GetAPIToken returns the admin bearer token shared by the server and the
// CLI. FOLIO_API_TOKEN wins; otherwise the token is read from the secrets
// file and generated on first use.
func GetAPIToken() (string, error) {
	return apiTokenFrom(newFileSecrets(SecretsFilePath()))
}

func apiTokenFrom(s secretStore) (string, error) {
	if tok := os.Getenv("FOLIO_API_TOKEN"); tok != "" {
		return tok, nil
	}
	tok, err := s.Get(apiTokenAccount)
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, errSecretNotFound) {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok = hex.EncodeToString(buf)
	if err := s.Set(apiTokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
