package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// UserList is the registered-user roster stored in users.json.
type UserList struct {
	Users []string `json:"users"`
}

// TutorialStatus tracks which users have already seen the Joy-Con
// tutorial. It is a volatile cache: the file is deleted on process
// exit, not authoritative data.
type TutorialStatus struct {
	UserTutorialSeen map[string]bool `json:"userTutorialSeen"`
}

func (s *Store) usersPath() string {
	return filepath.Join(s.dir, "users.json")
}

func (s *Store) tutorialPath() string {
	return filepath.Join(s.dir, "tutorial_seen.json")
}

// LoadUsers returns the registered user names, oldest first.
func (s *Store) LoadUsers() ([]string, error) {
	data, err := os.ReadFile(s.usersPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	var list UserList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse users: %w", err)
	}
	return list.Users, nil
}

// AddUser registers a user name if it is not already on the roster.
func (s *Store) AddUser(name string) error {
	users, err := s.LoadUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u == name {
			return nil
		}
	}
	users = append(users, name)
	return writeJSON(s.usersPath(), UserList{Users: users})
}

func (s *Store) loadTutorialStatus() (*TutorialStatus, error) {
	status := &TutorialStatus{UserTutorialSeen: map[string]bool{}}
	data, err := os.ReadFile(s.tutorialPath())
	if errors.Is(err, os.ErrNotExist) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tutorial status: %w", err)
	}
	if err := json.Unmarshal(data, status); err != nil {
		return nil, fmt.Errorf("parse tutorial status: %w", err)
	}
	if status.UserTutorialSeen == nil {
		status.UserTutorialSeen = map[string]bool{}
	}
	return status, nil
}

// HasSeenTutorial reports whether the user already completed the
// Joy-Con tutorial in some earlier session of this process lifetime.
func (s *Store) HasSeenTutorial(user string) (bool, error) {
	status, err := s.loadTutorialStatus()
	if err != nil {
		return false, err
	}
	return status.UserTutorialSeen[user], nil
}

// MarkTutorialSeen records that the user completed the tutorial.
func (s *Store) MarkTutorialSeen(user string) error {
	status, err := s.loadTutorialStatus()
	if err != nil {
		return err
	}
	status.UserTutorialSeen[user] = true
	return writeJSON(s.tutorialPath(), status)
}

// RemoveTutorialFlags deletes the tutorial cache file. Called on
// process exit so every run starts with a clean slate.
func (s *Store) RemoveTutorialFlags() error {
	err := os.Remove(s.tutorialPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
