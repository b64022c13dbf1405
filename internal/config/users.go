package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// UserEntry is one user record of the users configuration file.
type UserEntry struct {
	Username     string `json:"username" yaml:"username"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty"`
	PasswordHash string `json:"password_hash,omitempty" yaml:"password_hash,omitempty"`
	BatchID      string `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	BatchFolder  string `json:"batch_folder,omitempty" yaml:"batch_folder,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty" yaml:"is_admin,omitempty"`
	Role         string `json:"role,omitempty" yaml:"role,omitempty"`
}

// UsersFile is the users configuration file as stored on disk.
type UsersFile struct {
	Users []UserEntry `json:"users" yaml:"users"`
}

// DefaultUsers is written when no users file exists yet.
func DefaultUsers() *UsersFile {
	return &UsersFile{Users: []UserEntry{
		{Username: "user1", Password: "user1", BatchID: "batch1", BatchFolder: "batch1"},
		{Username: "user2", Password: "user2", BatchID: "batch2", BatchFolder: "batch2"},
		{Username: "user3", Password: "user3", BatchID: "batch3", BatchFolder: "batch3"},
		{Username: "user4", Password: "user4", BatchID: "batch4", BatchFolder: "batch4"},
		{Username: "admin", Password: "admin", IsAdmin: true, Role: "admin"},
	}}
}

// LoadUsers reads the users file at path. When the file does not exist the
// default configuration is written there and returned; created reports that case.
func LoadUsers(path string) (uf *UsersFile, created bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		uf = DefaultUsers()
		if err := writeUsers(path, uf); err != nil {
			return nil, false, err
		}
		return uf, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read users file: %w", err)
	}

	uf = &UsersFile{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, uf)
	default:
		err = json.Unmarshal(b, uf)
	}
	if err != nil {
		return nil, false, fmt.Errorf("decode users file %s: %w", path, err)
	}
	if err := uf.normalize(); err != nil {
		return nil, false, err
	}
	return uf, false, nil
}

func writeUsers(path string, uf *UsersFile) error {
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(uf)
	default:
		b, err = json.MarshalIndent(uf, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir users file dir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	return nil
}

// normalize fills defaults and rejects entries the indexes cannot be built from.
func (uf *UsersFile) normalize() error {
	for i := range uf.Users {
		e := &uf.Users[i]
		e.Username = strings.TrimSpace(e.Username)
		if e.Username == "" {
			return fmt.Errorf("users[%d]: username is required", i)
		}
		if e.Password == "" && e.PasswordHash == "" {
			return fmt.Errorf("users[%d] %q: password or password_hash is required", i, e.Username)
		}
		if e.IsAdmin {
			continue
		}
		e.BatchID = strings.TrimSpace(e.BatchID)
		if e.BatchID == "" {
			return fmt.Errorf("users[%d] %q: batch_id is required", i, e.Username)
		}
		if e.BatchFolder == "" {
			e.BatchFolder = e.BatchID
		}
		if err := validateFolder(e.BatchFolder); err != nil {
			return fmt.Errorf("users[%d] %q: %w", i, e.Username, err)
		}
	}
	return nil
}

func validateFolder(folder string) error {
	if filepath.IsAbs(folder) {
		return fmt.Errorf("batch_folder %q must be relative to the images directory", folder)
	}
	clean := filepath.Clean(filepath.FromSlash(folder))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("batch_folder %q escapes the images directory", folder)
	}
	return nil
}

// Redacted returns a copy of the configuration without any password material.
func (uf *UsersFile) Redacted() *UsersFile {
	out := &UsersFile{Users: make([]UserEntry, len(uf.Users))}
	for i, e := range uf.Users {
		e.Password = ""
		e.PasswordHash = ""
		out.Users[i] = e
	}
	return out
}
