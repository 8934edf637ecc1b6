// Package secrets manages the application's .env credential file.
package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Store seeds and inspects a single key-value env file holding the
// application's API credential.
type Store struct {
	path     string
	key      string
	sentinel string
}

// New returns a Store for the env file at path. key is the credential's
// variable name and sentinel the placeholder written on first seed.
func New(path, key, sentinel string) *Store {
	return &Store{path: path, key: key, sentinel: sentinel}
}

// Path returns the env-file location.
func (s *Store) Path() string { return s.path }

// Seed creates the env file with the sentinel value if it does not exist.
// An existing file is never touched, whatever it contains. Returns true
// when a new file was written.
func (s *Store) Seed() (bool, error) {
	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", s.path, err)
	}

	content := fmt.Sprintf("%s=%s\n", s.key, s.sentinel)
	if err := os.WriteFile(s.path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("seeding %s: %w", s.path, err)
	}
	return true, nil
}

// IsPlaceholder reports whether the stored credential is still the sentinel
// (or empty). A missing file counts as a placeholder. Parse errors are
// returned so a corrupt env file is visible rather than silently treated as
// configured.
func (s *Store) IsPlaceholder() (bool, error) {
	values, err := godotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("parsing %s: %w", s.path, err)
	}

	value, ok := values[s.key]
	return !ok || value == "" || value == s.sentinel, nil
}
