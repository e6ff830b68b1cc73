package session

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot is the persisted form of a Session, written by the CLI between runs.
type Snapshot struct {
	AuthToken           string      `yaml:"auth_token,omitempty"`
	Username            string      `yaml:"username,omitempty"`
	UserID              int         `yaml:"user_id,omitempty"`
	Characters          []Character `yaml:"characters,omitempty"`
	SelectedCharacterID int         `yaml:"selected_character_id,omitempty"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		AuthToken:           s.authToken,
		Username:            s.username,
		UserID:              s.userID,
		SelectedCharacterID: s.selectedID,
	}
	if len(s.characters) > 0 {
		snap.Characters = make([]Character, len(s.characters))
		copy(snap.Characters, s.characters)
	}
	return snap
}

// Restore replaces the state with snap without publishing anything. The session is
// logged in only if the snapshot carries a token; the selection is restored only if
// the selected id is still in the snapshot's roster.
func (s *Session) Restore(snap Snapshot) {
	roster := make([]Character, len(snap.Characters))
	copy(roster, snap.Characters)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.authToken = snap.AuthToken
	s.username = snap.Username
	s.userID = max(snap.UserID, 0)
	s.loggedIn = snap.AuthToken != ""
	s.characters = roster
	s.selectedID = 0
	s.selected = NewCharacter()

	for _, c := range roster {
		if c.CharacterID == snap.SelectedCharacterID && c.CharacterID != 0 {
			s.selectedID = c.CharacterID
			s.selected = c
			break
		}
	}
}

// LoadSnapshot reads a snapshot file. A missing file yields an empty snapshot.
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse session file %s: %w", path, err)
	}
	return snap, nil
}

// SaveSnapshot writes snap to path, readable by the owner only since it holds a
// bearer token.
func SaveSnapshot(path string, snap Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
