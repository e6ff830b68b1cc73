package user

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	// ErrDuplicate is returned when a uniqueness rule is violated.
	ErrDuplicate = errors.New("user: duplicate record")

	// ErrNotFound is returned when a record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("user: record not found")
)

// CreateAccountParams holds the fields of a new account.
type CreateAccountParams struct {
	Username     string
	Email        string
	PasswordHash string
}

// CreateCharacterParams holds the fields of a new character.
type CreateCharacterParams struct {
	UserID int
	Name   string
	Class  string
}

// Store is an in-memory account and character store. The zero value is not usable;
// call NewStore.
type Store struct {
	mu         sync.RWMutex
	accounts   map[int]*Account
	characters map[int]*Character
	nextUser   int
	nextChar   int
	now        func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:   make(map[int]*Account),
		characters: make(map[int]*Character),
		now:        time.Now,
	}
}

// CreateAccount inserts an account. Username and email comparisons are case-insensitive.
func (s *Store) CreateAccount(_ context.Context, p CreateAccountParams) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Username, p.Username) || strings.EqualFold(a.Email, p.Email) {
			return Account{}, ErrDuplicate
		}
	}

	s.nextUser++
	a := &Account{
		ID:           s.nextUser,
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		CreatedAt:    s.now(),
	}
	s.accounts[a.ID] = a

	return *a, nil
}

// AccountByUsername looks an account up by exact username.
func (s *Store) AccountByUsername(_ context.Context, username string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Username == username {
			return *a, nil
		}
	}
	return Account{}, ErrNotFound
}

// AccountByID looks an account up by id.
func (s *Store) AccountByID(_ context.Context, id int) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *a, nil
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	now := s.now()
	a.LastLogin = &now
	return nil
}

// CreateCharacter inserts a character with the starting stats: level 1, origin
// position, 100 health and mana. Names are unique per account.
func (s *Store) CreateCharacter(_ context.Context, p CreateCharacterParams) (Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[p.UserID]; !ok {
		return Character{}, ErrNotFound
	}

	for _, c := range s.characters {
		if c.UserID == p.UserID && c.Name == p.Name {
			return Character{}, ErrDuplicate
		}
	}

	s.nextChar++
	c := &Character{
		ID:        s.nextChar,
		UserID:    p.UserID,
		Name:      p.Name,
		Class:     NormalizeClass(p.Class),
		Level:     1,
		Health:    100,
		Mana:      100,
		CreatedAt: s.now(),
	}
	s.characters[c.ID] = c

	return *c, nil
}

// ListCharacters returns the account's characters, newest first.
func (s *Store) ListCharacters(_ context.Context, userID int) ([]Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Character{}
	for _, c := range s.characters {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}

	slices.SortFunc(out, func(a, b Character) int {
		if cmp := b.CreatedAt.Compare(a.CreatedAt); cmp != 0 {
			return cmp
		}
		return b.ID - a.ID
	})
	return out, nil
}

// Character returns one character owned by userID.
func (s *Store) Character(_ context.Context, userID, id int) (Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.characters[id]
	if !ok || c.UserID != userID {
		return Character{}, ErrNotFound
	}
	return *c, nil
}

// UpdatePosition moves a character owned by userID.
func (s *Store) UpdatePosition(_ context.Context, userID, id int, x, y, z float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.characters[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	c.X, c.Y, c.Z = x, y, z
	return nil
}

// NormalizeClass lower-cases class and falls back to DefaultClass for unknown values.
func NormalizeClass(class string) string {
	lc := strings.ToLower(class)
	if slices.Contains(ValidClasses, lc) {
		return lc
	}
	return DefaultClass
}
