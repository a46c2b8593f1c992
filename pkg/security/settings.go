// Package security holds the three-flag security configuration shared by the
// backend and the panel.
package security

import "sync"

// Settings is the set of simulated security measures.
type Settings struct {
	ACL             bool `json:"acl" yaml:"acl"`
	LoginValidation bool `json:"login_validation" yaml:"login_validation"`
	DosProtection   bool `json:"dos_protection" yaml:"dos_protection"`
}

// Update carries a partial change. Nil fields are left untouched.
type Update struct {
	ACL             *bool `json:"acl"`
	LoginValidation *bool `json:"login_validation"`
	DosProtection   *bool `json:"dos_protection"`
}

// Defaults returns the all-enabled settings used at startup.
func Defaults() Settings {
	return Settings{
		ACL:             true,
		LoginValidation: true,
		DosProtection:   true,
	}
}

// Store owns a Settings value and serializes access to it.
type Store struct {
	mu       sync.RWMutex
	settings Settings
}

// NewStore creates a store holding the given initial settings.
func NewStore(initial Settings) *Store {
	return &Store{settings: initial}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Set overwrites the settings wholesale.
func (s *Store) Set(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

// Apply merges a partial update and returns the resulting settings.
func (s *Store) Apply(u Update) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ACL != nil {
		s.settings.ACL = *u.ACL
	}
	if u.LoginValidation != nil {
		s.settings.LoginValidation = *u.LoginValidation
	}
	if u.DosProtection != nil {
		s.settings.DosProtection = *u.DosProtection
	}
	return s.settings
}
