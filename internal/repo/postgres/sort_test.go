package postgres

import (
	"testing"

	"github.com/google/uuid"
)

func TestResolveSort(t *testing.T) {
	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		want      string
	}{
		{name: "valid pair", sortBy: "name", sortOrder: "asc", want: "name ASC"},
		{name: "valid pair desc", sortBy: "email", sortOrder: "desc", want: "email DESC"},
		{name: "order is case-insensitive", sortBy: "registration_time", sortOrder: "DESC", want: "registration_time DESC"},
		{name: "activity column", sortBy: "last_activity_time", sortOrder: "asc", want: "last_activity_time ASC"},
		{name: "unknown column", sortBy: "password_hash", sortOrder: "asc", want: "last_login_time DESC"},
		{name: "empty params", sortBy: "", sortOrder: "", want: "last_login_time DESC"},
		// a bogus sortOrder discards the valid sortBy too
		{name: "valid column bogus order", sortBy: "last_activity_time", sortOrder: "bogus", want: "last_login_time DESC"},
		{name: "injection attempt", sortBy: "name; DROP TABLE users", sortOrder: "asc", want: "last_login_time DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveSort(tt.sortBy, tt.sortOrder)

			if got != tt.want {
				t.Errorf("resolveSort(%q, %q) = %q, want %q", tt.sortBy, tt.sortOrder, got, tt.want)
			}
		})
	}
}

func TestValidIDs(t *testing.T) {
	good := uuid.NewString()

	got := validIDs([]string{good, "not-a-uuid", "", "123"})

	if len(got) != 1 || got[0] != good {
		t.Errorf("validIDs kept %v, want just %q", got, good)
	}
}
