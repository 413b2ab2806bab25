package store

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/termgate/termgate/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestHashPasswordDeterministic(t *testing.T) {
	h1 := HashPassword("admin123")
	h2 := HashPassword("admin123")
	if h1 != h2 {
		t.Errorf("same input hashed differently: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
	if HashPassword("admin123") == HashPassword("admin124") {
		t.Error("different inputs produced the same digest")
	}
}

func TestLoadSeedsMissingFile(t *testing.T) {
	s := newTestStore(t)

	users, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d seeded users, want 1", len(users))
	}

	admin, ok := users[SeedUsername]
	if !ok {
		t.Fatal("seeded state is missing the admin record")
	}
	if admin.PasswordHash != HashPassword(SeedPassword) {
		t.Error("seeded admin hash does not verify the seed password")
	}
	if admin.Level != model.RoleAdmin {
		t.Errorf("seeded admin level = %q, want admin", admin.Level)
	}
	if admin.LastLogin != nil {
		t.Error("seeded admin should never have logged in")
	}

	// A pure read must not create the file.
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("Load created the backing file")
	}
}

func TestInitPersistsSeedOnce(t *testing.T) {
	s := newTestStore(t)

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("users file not written: %v", err)
	}

	// Second Init must not clobber mutations.
	if err := s.Create("bob", "pw1pw1pw1", model.RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	users, _ := s.Load()
	if _, ok := users["bob"]; !ok {
		t.Error("second Init dropped an existing record")
	}
}

func TestLoadCorruptFileReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	users, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("corrupt file should load as empty, got %d users", len(users))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	ts := model.Now(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC))
	in := map[string]model.User{
		"admin": {PasswordHash: HashPassword("admin123"), Created: ts, Level: model.RoleAdmin},
		"bob":   {PasswordHash: HashPassword("hunter22"), Created: ts, Level: model.RoleUser, LastLogin: &ts},
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d users, want %d", len(out), len(in))
	}
	for name, want := range in {
		got, ok := out[name]
		if !ok {
			t.Fatalf("user %q missing after round trip", name)
		}
		if got.PasswordHash != want.PasswordHash || got.Created != want.Created || got.Level != want.Level {
			t.Errorf("user %q changed across round trip: %+v != %+v", name, got, want)
		}
	}
	if out["bob"].LastLogin == nil || *out["bob"].LastLogin != ts {
		t.Error("last_login lost across round trip")
	}

	// No temp files left behind.
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".users-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestCreateDuplicateDoesNotMutate(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("bob", "pw1", model.RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("bob", "pw2", model.RoleUser)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	users, _ := s.Load()
	if users["bob"].PasswordHash != HashPassword("pw1") {
		t.Error("duplicate create mutated the stored hash")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("", "pw", model.RoleUser); err == nil {
		t.Error("expected error for empty username")
	}
	if err := s.Create("eve", "pw", model.Role("root")); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("bob", "pw1", model.RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete("bob"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateLastLogin(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	if err := s.Create("bob", "pw1", model.RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.UpdateLastLogin("bob"); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}

	users, _ := s.Load()
	if users["bob"].LastLogin == nil {
		t.Fatal("last_login not stamped")
	}
	if *users["bob"].LastLogin != "2024-03-01 12:30:00" {
		t.Errorf("last_login = %q, want 2024-03-01 12:30:00", *users["bob"].LastLogin)
	}

	// Unknown username is a non-failing no-op.
	if err := s.UpdateLastLogin("nobody"); err != nil {
		t.Errorf("UpdateLastLogin for unknown user: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("bob", "original", model.RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Wrong old password: hash unchanged.
	err := s.ChangePassword("bob", "wrongOld", "newpass", "newpass")
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	users, _ := s.Load()
	if users["bob"].PasswordHash != HashPassword("original") {
		t.Error("failed change mutated the stored hash")
	}

	// Mismatched confirmation fails before the file is read or written.
	err = s.ChangePassword("bob", "original", "newpass", "different")
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	users, _ = s.Load()
	if users["bob"].PasswordHash != HashPassword("original") {
		t.Error("mismatched change mutated the stored hash")
	}

	// Unknown user looks like a wrong password, not a missing account.
	err = s.ChangePassword("nobody", "x", "newpass", "newpass")
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword for unknown user, got %v", err)
	}

	if err := s.ChangePassword("bob", "original", "newpass", "newpass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	users, _ = s.Load()
	if users["bob"].PasswordHash != HashPassword("newpass") {
		t.Error("successful change did not update the hash")
	}
}

func TestVerify(t *testing.T) {
	s := newTestStore(t)
	users, _ := s.Load()

	if _, ok := s.Verify(users, SeedUsername, SeedPassword); !ok {
		t.Error("seeded credentials should verify")
	}
	if _, ok := s.Verify(users, SeedUsername, "wrong"); ok {
		t.Error("wrong password verified")
	}
	if _, ok := s.Verify(users, "ghost", SeedPassword); ok {
		t.Error("unknown username verified")
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Create("zoe", "pw1", model.RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create("bob", "pw2", model.RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Username)
	}
	want := []string{"admin", "bob", "zoe"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}
