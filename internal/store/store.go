// Package store owns the on-disk credential file: a single JSON document
// keyed by username. Every mutation is a full read-modify-write over the
// whole document; the design assumes exactly one process touches the file
// at a time and provides no isolation beyond last-save-wins.
package store

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/termgate/termgate/internal/model"
)

const usersFile = "users.json"

// SeedUsername and SeedPassword identify the record seeded into a brand-new
// store so a fresh install can always be logged into.
const (
	SeedUsername = "admin"
	SeedPassword = "admin123"
)

// Store manages the credential file under a data directory.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a credential store rooted at dataDir. The directory is
// created if needed; the users file itself is only written by Init or the
// first mutation.
func New(dataDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   filepath.Join(dataDir, usersFile),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// HashPassword returns the hex-encoded SHA-256 digest of a password.
// Unsalted single-round SHA-256 is kept deliberately: it is the digest the
// legacy credential file carries, so an existing file verifies unchanged.
func HashPassword(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}

// Load reads the full credential document. A missing file yields the
// seeded default state (one admin record, not yet persisted); an
// unparseable file degrades to an empty map rather than failing the
// caller, with a warning so the data loss is at least visible.
func (s *Store) Load() (map[string]model.User, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.seeded(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}

	users := map[string]model.User{}
	if err := json.Unmarshal(data, &users); err != nil {
		s.logger.Warn("users file is not valid JSON, treating store as empty",
			"path", s.path, "error", err)
		return map[string]model.User{}, nil
	}
	return users, nil
}

// Save serializes the full mapping and replaces the backing file. The
// write goes to a temp file in the same directory which is fsynced and
// renamed over the target, so a crash mid-save leaves the previous
// document intact.
func (s *Store) Save(users map[string]model.User) error {
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".users-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod users file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close users file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

// Init persists the seeded state on first run. It does nothing when the
// users file already exists.
func (s *Store) Init() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat users file: %w", err)
	}
	s.logger.Info("initializing credential store", "path", s.path)
	return s.Save(s.seeded())
}

// Create inserts a new record with a null last-login and persists the
// store. The username must not be taken.
func (s *Store) Create(username, password string, role model.Role) error {
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	users, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := users[username]; ok {
		return ErrAlreadyExists
	}

	users[username] = model.User{
		PasswordHash: HashPassword(password),
		Created:      model.Now(s.now()),
		Level:        role,
		LastLogin:    nil,
	}
	return s.Save(users)
}

// Verify reports whether the password matches the stored hash for
// username. An unknown username verifies false, indistinguishable from a
// wrong password, so callers cannot enumerate accounts.
func (s *Store) Verify(users map[string]model.User, username, password string) (model.User, bool) {
	u, ok := users[username]
	if !ok {
		// Burn a hash anyway to keep timing comparable.
		HashPassword(password)
		return model.User{}, false
	}
	match := subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(HashPassword(password))) == 1
	return u, match
}

// UpdateLastLogin stamps the user's last-login time and persists. It is a
// deliberate no-op for an unknown username.
func (s *Store) UpdateLastLogin(username string) error {
	users, err := s.Load()
	if err != nil {
		return err
	}
	u, ok := users[username]
	if !ok {
		return nil
	}
	ts := model.Now(s.now())
	u.LastLogin = &ts
	users[username] = u
	return s.Save(users)
}

// Delete removes a user record and persists.
func (s *Store) Delete(username string) error {
	users, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := users[username]; !ok {
		return ErrNotFound
	}
	delete(users, username)
	return s.Save(users)
}

// ChangePassword replaces a user's hash after verifying the old password.
// The confirmation check runs first so nothing is persisted when the two
// new-password entries disagree.
func (s *Store) ChangePassword(username, oldPassword, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrMismatch
	}

	users, err := s.Load()
	if err != nil {
		return err
	}
	u, ok := s.Verify(users, username, oldPassword)
	if !ok {
		return ErrWrongPassword
	}

	u.PasswordHash = HashPassword(newPassword)
	users[username] = u
	return s.Save(users)
}

// Entry is a store listing row: everything about a user except the hash.
type Entry struct {
	Username  string
	Level     model.Role
	Created   string
	LastLogin *string
}

// List returns all users sorted by name.
func (s *Store) List() ([]Entry, error) {
	users, err := s.Load()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(users))
	for name, u := range users {
		entries = append(entries, Entry{
			Username:  name,
			Level:     u.Level,
			Created:   u.Created,
			LastLogin: u.LastLogin,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Username < entries[j].Username })
	return entries, nil
}

func (s *Store) seeded() map[string]model.User {
	return map[string]model.User{
		SeedUsername: {
			PasswordHash: HashPassword(SeedPassword),
			Created:      model.Now(s.now()),
			Level:        model.RoleAdmin,
			LastLogin:    nil,
		},
	}
}
