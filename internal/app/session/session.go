/*
Package session holds the signed-in player's identity, bearer token and character roster.

A Session lives for the whole process. Only the gateway's success paths and an explicit
logout mutate it; everything else reads. Mutations are serialized and a reader never
observes a half-replaced roster. Notifications are published after the lock is released
so that subscribers can read the session from their handler.
*/
package session

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"mmoclient/internal/app/events"
	"mmoclient/internal/pkg/logx"
)

var (
	// ErrEmptyToken is returned by SetAuthData when the token is empty.
	ErrEmptyToken = errors.New("session: empty auth token")

	// ErrNotInRoster is returned by SelectCharacter when the id is not in the roster.
	ErrNotInRoster = errors.New("session: character not in roster")
)

const bearerPrefix = "Bearer "

// Session is the single process-lifetime record of the signed-in account.
type Session struct {
	mu sync.RWMutex

	authToken string
	username  string
	userID    int
	loggedIn  bool

	characters []Character

	selectedID int
	selected   Character

	publisher events.Publisher
	logger    zerolog.Logger
}

// New returns an empty, unauthenticated Session publishing to pub. A nil pub drops
// notifications.
func New(pub events.Publisher) *Session {
	if pub == nil {
		pub = events.Discard
	}

	return &Session{
		selected:  NewCharacter(),
		publisher: pub,
		logger:    logx.Component("session"),
	}
}

// SetAuthData stores the credentials of a successful login and publishes LoginSucceeded.
// The token format is not checked, but an empty token is refused since the session
// would claim to be logged in without anything to authenticate with.
// A negative userID is stored as 0, the unset value.
func (s *Session) SetAuthData(token, username string, userID int) error {
	if token == "" {
		s.logger.Warn().Str("username", username).Msg("Refusing to store empty auth token")
		return ErrEmptyToken
	}
	if userID < 0 {
		s.logger.Warn().Int("user_id", userID).Msg("Negative user id stored as unset")
		userID = 0
	}

	s.mu.Lock()
	s.authToken = token
	s.username = username
	s.userID = userID
	s.loggedIn = true
	s.mu.Unlock()

	s.logger.Info().Str("username", username).Int("user_id", userID).Msg("Auth data set")
	s.publisher.Publish(events.LoginSucceeded)

	return nil
}

// UpdateIdentity refreshes username and user id after a token verification without
// touching the token or publishing anything.
func (s *Session) UpdateIdentity(username string, userID int) {
	if userID < 0 {
		userID = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.username = username
	s.userID = userID
}

// ClearAuthData resets every field to its initial value. Calling it on an empty
// session is a no-op.
func (s *Session) ClearAuthData() {
	s.mu.Lock()
	s.authToken = ""
	s.username = ""
	s.userID = 0
	s.loggedIn = false
	s.characters = nil
	s.selectedID = 0
	s.selected = NewCharacter()
	s.mu.Unlock()

	s.logger.Info().Msg("Auth data cleared")
}

// IsAuthenticated reports whether the session is logged in with a non-empty token.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loggedIn && s.authToken != ""
}

// AuthHeaderValue returns the Authorization header value, or "" when there is no
// token. An empty result means the header must not be sent.
func (s *Session) AuthHeaderValue() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.authToken == "" {
		return ""
	}
	return bearerPrefix + s.authToken
}

// Token returns the raw bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authToken
}

// Username returns the signed-in account's display name.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// UserID returns the signed-in account's id, 0 when unset.
func (s *Session) UserID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// IsLoggedIn returns the raw login flag.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// SetCharacterList replaces the roster with a copy of list and publishes
// CharacterListReceived. The selection is kept as is even if the selected
// character is no longer listed.
func (s *Session) SetCharacterList(list []Character) {
	roster := make([]Character, len(list))
	copy(roster, list)

	s.mu.Lock()
	s.characters = roster
	s.mu.Unlock()

	s.logger.Info().Int("count", len(roster)).Msg("Character list updated")
	s.publisher.Publish(events.CharacterListReceived)
}

// Characters returns a copy of the roster in server order.
func (s *Session) Characters() []Character {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Character, len(s.characters))
	copy(out, s.characters)
	return out
}

// SelectCharacter selects the roster entry with the given id and caches a copy of it.
// When the id is not in the roster the previous selection is kept and ErrNotInRoster
// is returned.
func (s *Session) SelectCharacter(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.characters {
		if c.CharacterID == id {
			s.selectedID = id
			s.selected = c
			s.logger.Info().Int("character_id", id).Str("name", c.Name).Msg("Character selected")
			return nil
		}
	}

	s.logger.Warn().Int("character_id", id).Int("roster_size", len(s.characters)).Msg("Character not found in roster")
	return ErrNotInRoster
}

// SelectedCharacterID returns the id of the selected character, 0 when none.
func (s *Session) SelectedCharacterID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// SelectedCharacter returns the cached copy of the selected character, or a
// default Character when nothing was selected.
func (s *Session) SelectedCharacter() Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}
