package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmarquina/tienda-cli/internal/api"
)

const (
	tokenFileName   = "token.json"
	profileFileName = "user.json"
)

// tokenFile is the on-disk shape of the persisted bearer token.
type tokenFile struct {
	AccessToken string    `json:"access_token"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store persists the bearer token and the last-known profile under the
// config directory, one file each. The pair is written by login/register/
// refresh and cleared together on logout or invalidation. Readers must
// tolerate a partial pair: a token without a readable profile just means
// there is no cached profile.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) tokenPath() string   { return filepath.Join(s.dir, tokenFileName) }
func (s *Store) profilePath() string { return filepath.Join(s.dir, profileFileName) }

// SaveToken writes the bearer token.
func (s *Store) SaveToken(token string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(tokenFile{AccessToken: token, SavedAt: time.Now()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.tokenPath(), data, 0600)
}

// LoadToken returns the persisted token, or "" when none is stored or the
// file is unreadable.
func (s *Store) LoadToken() string {
	data, err := os.ReadFile(s.tokenPath())
	if err != nil {
		return ""
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return ""
	}
	return tf.AccessToken
}

// SaveProfile writes the cached profile.
func (s *Store) SaveProfile(profile *api.UserProfile) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.profilePath(), data, 0600)
}

// LoadProfile returns the cached profile, or nil when none is stored or the
// file does not parse.
func (s *Store) LoadProfile() *api.UserProfile {
	data, err := os.ReadFile(s.profilePath())
	if err != nil {
		return nil
	}
	var profile api.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil
	}
	if profile.ID == 0 && profile.Email == "" {
		return nil
	}
	return &profile
}

// Clear removes both files. Missing files are not errors.
func (s *Store) Clear() {
	_ = os.Remove(s.tokenPath())
	_ = os.Remove(s.profilePath())
}
