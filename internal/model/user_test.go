package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRoleValid(t *testing.T) {
	if !RoleAdmin.Valid() || !RoleUser.Valid() {
		t.Error("known roles reported invalid")
	}
	if Role("root").Valid() || Role("").Valid() {
		t.Error("unknown role reported valid")
	}
}

func TestUserJSONFieldNames(t *testing.T) {
	// The field names are the on-disk compatibility surface; renaming any
	// of them breaks existing users.json files.
	login := "2024-03-01 12:30:00"
	u := User{
		PasswordHash: "abc",
		Created:      "2024-01-01 00:00:00",
		Level:        RoleAdmin,
		LastLogin:    &login,
	}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"password", "created", "level", "last_login"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing field %q in %s", key, data)
		}
	}
	if len(raw) != 4 {
		t.Errorf("unexpected extra fields in %s", data)
	}
}

func TestNowFormat(t *testing.T) {
	got := Now(time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC))
	if got != "2024-03-01 09:05:07" {
		t.Errorf("Now() = %q", got)
	}
}
