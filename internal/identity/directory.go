// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package identity is the file-backed user directory that authenticates
// logins and yields principals.
package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/idna"
	"gopkg.in/yaml.v3"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials is a login attempt.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User is one directory entry.
type User struct {
	ID              string    `yaml:"id" validate:"required"`
	Name            string    `yaml:"name" validate:"required"`
	Email           string    `yaml:"email" validate:"required,email"`
	Role            auth.Role `yaml:"role" validate:"required,oneof=student parent warden admin"`
	HostelName      string    `yaml:"hostelName,omitempty"`
	RoomNumber      string    `yaml:"roomNumber,omitempty"`
	LinkedStudentID string    `yaml:"studentId,omitempty"`
	PasswordHash    string    `yaml:"passwordHash" validate:"required"`
}

// Principal projects the user onto the acting identity.
func (u User) Principal() auth.Principal {
	return auth.Principal{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		HostelName:      u.HostelName,
		RoomNumber:      u.RoomNumber,
		LinkedStudentID: u.LinkedStudentID,
	}
}

type usersFile struct {
	Users []User `yaml:"users"`
}

// Directory authenticates users by email and password.
type Directory struct {
	byEmail map[string]User
	byID    map[string]User
	byChild map[string]User
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewDirectory indexes users. Ids and emails must be unique, every parent
// must link to a student in the same directory, and a student has at most one
// parent.
func NewDirectory(users []User) (*Directory, error) {
	d := &Directory{
		byEmail: make(map[string]User, len(users)),
		byID:    make(map[string]User, len(users)),
		byChild: make(map[string]User),
	}
	for i, u := range users {
		if err := validate.Struct(u); err != nil {
			return nil, fmt.Errorf("user %d (%s): %w", i, u.Email, err)
		}
		email := normalizeEmail(u.Email)
		if _, dup := d.byEmail[email]; dup {
			return nil, fmt.Errorf("duplicate user email %s", u.Email)
		}
		if _, dup := d.byID[u.ID]; dup {
			return nil, fmt.Errorf("duplicate user id %s", u.ID)
		}
		d.byEmail[email] = u
		d.byID[u.ID] = u
	}
	for _, u := range users {
		if u.Role != auth.RoleParent {
			continue
		}
		child, ok := d.byID[u.LinkedStudentID]
		if u.LinkedStudentID == "" || !ok || child.Role != auth.RoleStudent {
			return nil, fmt.Errorf("parent %s must link to a student", u.ID)
		}
		if prev, dup := d.byChild[u.LinkedStudentID]; dup {
			return nil, fmt.Errorf("student %s already has parent %s, cannot link parent %s", u.LinkedStudentID, prev.ID, u.ID)
		}
		d.byChild[u.LinkedStudentID] = u
	}
	return d, nil
}

// LoadDirectory reads a YAML users file. Unknown keys are rejected.
func LoadDirectory(path string) (*Directory, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var f usersFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	return NewDirectory(f.Users)
}

// Authenticate returns the principal for matching credentials. Unknown
// emails still pay for one bcrypt comparison.
func (d *Directory) Authenticate(_ context.Context, c Credentials) (auth.Principal, error) {
	u, ok := d.byEmail[normalizeEmail(c.Email)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(c.Password))
		return auth.Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)); err != nil {
		return auth.Principal{}, ErrInvalidCredentials
	}
	return u.Principal(), nil
}

// ParentOf returns the parent linked to studentID, if any.
func (d *Directory) ParentOf(studentID string) (User, bool) {
	u, ok := d.byChild[studentID]
	return u, ok
}

// Len is the number of users.
func (d *Directory) Len() int { return len(d.byID) }

// HashPassword returns a bcrypt hash suitable for the users file.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// normalizeEmail folds case and maps an internationalized domain to its
// ASCII (punycode) form, so "Priya@Hostel.EXAMPLE" and a Unicode spelling of
// the same domain index to one key. Domains idna rejects are only lowercased.
func normalizeEmail(e string) string {
	e = strings.TrimSpace(e)
	at := strings.LastIndexByte(e, '@')
	if at < 0 {
		return strings.ToLower(e)
	}
	local, domain := strings.ToLower(e[:at]), e[at+1:]
	if ascii, err := idna.Lookup.ToASCII(domain); err == nil {
		return local + "@" + ascii
	}
	return local + "@" + strings.ToLower(domain)
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("leavegate-dummy"), bcrypt.DefaultCost)
	})
	return dummy
}
