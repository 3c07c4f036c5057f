package user

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// Status is persisted as text; the store's CHECK constraint guarantees
// nothing else ever lands in the column.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"` // never expose hash in JSON
	Status           Status    `json:"status"`
	RegistrationTime time.Time `json:"registrationTime"`
	LastLoginTime    time.Time `json:"lastLoginTime"`
	LastActivityTime time.Time `json:"lastActivityTime"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (u User) Blocked() bool {
	return u.Status == StatusBlocked
}

// DeletedUser is the identifying slice of a removed record returned by a
// bulk delete. The record itself is gone, so no status or timestamps.
type DeletedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListFilter carries the query parameters of the list endpoint. Zero values
// mean "no filtering": empty Search matches everything, empty/"all" Status
// skips the status condition.
type ListFilter struct {
	Search    string
	Status    string
	SortBy    string
	SortOrder string
}
