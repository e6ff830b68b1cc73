package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"mmoclient/internal/app/events"
	"mmoclient/internal/app/session"
	"mmoclient/internal/pkg/errs"
)

// Operation names, used as log fields and metric labels.
const (
	OpHealthCheck     = "health_check"
	OpRegister        = "register"
	OpLogin           = "login"
	OpVerifyToken     = "verify_token"
	OpListCharacters  = "list_characters"
	OpGetCharacter    = "get_character"
	OpCreateCharacter = "create_character"
	OpSavePosition    = "save_position"
)

// ErrInvalidArgument is returned, without a network call, for arguments no
// backend could accept.
var ErrInvalidArgument = errors.New("gateway: invalid argument")

var (
	healthEndpoint = endpoint{
		op: OpHealthCheck, method: http.MethodGet, path: "/health",
		auth: authNone, success: http.StatusOK,
	}
	registerEndpoint = endpoint{
		op: OpRegister, method: http.MethodPost, path: "/api/auth/register",
		auth: authNone, success: http.StatusCreated, conflict: "username or email exists",
	}
	loginEndpoint = endpoint{
		op: OpLogin, method: http.MethodPost, path: "/api/auth/login",
		auth: authNone, success: http.StatusOK,
	}
	verifyEndpoint = endpoint{
		op: OpVerifyToken, method: http.MethodGet, path: "/api/auth/verify",
		auth: authRequired, success: http.StatusOK,
	}
	listCharactersEndpoint = endpoint{
		op: OpListCharacters, method: http.MethodGet, path: "/api/characters",
		auth: authRequired, success: http.StatusOK,
	}
	createCharacterEndpoint = endpoint{
		op: OpCreateCharacter, method: http.MethodPost, path: "/api/characters",
		auth: authIfAvailable, success: http.StatusCreated, conflict: "name exists",
	}
)

func getCharacterEndpoint(id int) endpoint {
	return endpoint{
		op: OpGetCharacter, method: http.MethodGet, path: fmt.Sprintf("/api/characters/%d", id),
		auth: authRequired, success: http.StatusOK,
	}
}

func savePositionEndpoint(id int) endpoint {
	return endpoint{
		op: OpSavePosition, method: http.MethodPut, path: fmt.Sprintf("/api/characters/%d/position", id),
		auth: authIfAvailable, success: http.StatusOK,
	}
}

// Health is the backend's liveness answer.
type Health struct {
	Status    string
	Message   string
	Timestamp string
}

// RegisterInput is the account to create.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createCharacterInput struct {
	Name           string `json:"name"`
	CharacterClass string `json:"characterClass"`
}

type positionInput struct {
	CharacterID int     `json:"characterId"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
}

// LoginResult is what a successful login stored in the session.
type LoginResult struct {
	Username string
	UserID   int
	Warnings []*errs.CustomError
}

// Identity is the account behind the current token.
type Identity struct {
	Username string
	UserID   int
	Warnings []*errs.CustomError
}

// Roster is a decoded character list.
type Roster struct {
	Characters []session.Character
	Warnings   []*errs.CustomError
}

// CharacterResult is a single decoded character.
type CharacterResult struct {
	Character session.Character
	Warnings  []*errs.CustomError
}

func (g *Gateway) healthCall(ctx context.Context) *call {
	return g.newCall(ctx, healthEndpoint, nil)
}

func (g *Gateway) finishHealth(r result) (*Health, error) {
	err := r.check()
	g.record(r, err, 0)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(r.res.body)
	return &Health{
		Status:    root.Get("status").String(),
		Message:   root.Get("message").String(),
		Timestamp: root.Get("timestamp").String(),
	}, nil
}

// HealthCheck probes backend liveness.
func (g *Gateway) HealthCheck(ctx context.Context) (*Health, error) {
	return g.finishHealth(g.do(g.healthCall(ctx)))
}

func (g *Gateway) registerCall(ctx context.Context, in RegisterInput) *call {
	return g.newCall(ctx, registerEndpoint, in)
}

func (g *Gateway) finishRegister(r result) (struct{}, error) {
	err := r.check()
	g.record(r, err, 0)
	return struct{}{}, err
}

// Register creates an account. It does not log in.
func (g *Gateway) Register(ctx context.Context, in RegisterInput) error {
	_, err := g.finishRegister(g.do(g.registerCall(ctx, in)))
	return err
}

func (g *Gateway) loginCall(ctx context.Context, username, password string) *call {
	return g.newCall(ctx, loginEndpoint, loginInput{Username: username, Password: password})
}

// finishLogin stores the returned credentials in the session, which publishes
// LoginSucceeded. Any failure publishes LoginFailed instead.
func (g *Gateway) finishLogin(r result) (*LoginResult, error) {
	err := r.check()

	var (
		id identity
		d  = g.newDecoder(OpLogin)
	)
	if err == nil {
		id = d.decodeIdentity(r.res.body)
		if id.token == "" {
			err = errs.NewError(errs.ErrRequestFailed).WithResponse(r.res.status, string(r.res.body))
		}
	}
	g.record(r, err, len(d.warnings))

	if err != nil {
		g.publisher.Publish(events.LoginFailed)
		return nil, err
	}

	if err := g.session.SetAuthData(id.token, id.username, id.userID); err != nil {
		g.publisher.Publish(events.LoginFailed)
		return nil, err
	}

	return &LoginResult{Username: id.username, UserID: id.userID, Warnings: d.warnings}, nil
}

// Login authenticates and stores the token, username and user id in the session.
func (g *Gateway) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	return g.finishLogin(g.do(g.loginCall(ctx, username, password)))
}

// Logout forgets the credentials and the roster. The backend keeps no session.
func (g *Gateway) Logout() {
	g.session.ClearAuthData()
	g.logger.Info().Msg("Logged out")
}

func (g *Gateway) verifyCall(ctx context.Context) *call {
	return g.newCall(ctx, verifyEndpoint, nil)
}

func (g *Gateway) finishVerify(r result) (*Identity, error) {
	err := r.check()

	var (
		id identity
		d  = g.newDecoder(OpVerifyToken)
	)
	if err == nil {
		id = d.decodeIdentity(r.res.body)
	}
	g.record(r, err, len(d.warnings))

	if err != nil {
		return nil, err
	}

	g.session.UpdateIdentity(id.username, id.userID)
	return &Identity{Username: id.username, UserID: id.userID, Warnings: d.warnings}, nil
}

// VerifyToken asks the backend whether the stored token is still valid and
// refreshes the session's username and user id from its answer.
func (g *Gateway) VerifyToken(ctx context.Context) (*Identity, error) {
	return g.finishVerify(g.do(g.verifyCall(ctx)))
}

func (g *Gateway) listCharactersCall(ctx context.Context) *call {
	return g.newCall(ctx, listCharactersEndpoint, nil)
}

// finishListCharacters replaces the session roster, which publishes
// CharacterListReceived. A failed call leaves the roster alone.
func (g *Gateway) finishListCharacters(r result) (*Roster, error) {
	err := r.check()

	var (
		roster []session.Character
		d      = g.newDecoder(OpListCharacters)
	)
	if err == nil {
		roster = d.decodeRoster(r.res.body)
	}
	g.record(r, err, len(d.warnings))

	if err != nil {
		return nil, err
	}

	g.session.SetCharacterList(roster)
	return &Roster{Characters: roster, Warnings: d.warnings}, nil
}

// ListCharacters fetches the roster into the session. Without a token it fails
// with ErrUnauthenticated and sends nothing.
func (g *Gateway) ListCharacters(ctx context.Context) (*Roster, error) {
	return g.finishListCharacters(g.do(g.listCharactersCall(ctx)))
}

func (g *Gateway) getCharacterCall(ctx context.Context, id int) *call {
	e := getCharacterEndpoint(id)
	if id <= 0 {
		return &call{endpoint: e, err: fmt.Errorf("%w: character id %d", ErrInvalidArgument, id)}
	}
	return g.newCall(ctx, e, nil)
}

func (g *Gateway) finishCharacter(r result, op string) (*CharacterResult, error) {
	err := r.check()

	var (
		c  session.Character
		d  = g.newDecoder(op)
		ok bool
	)
	if err == nil {
		c, ok = d.decodeCharacter(gjson.GetBytes(r.res.body, "character"), "character")
		if !ok {
			c = session.NewCharacter()
		}
	}
	g.record(r, err, len(d.warnings))

	if err != nil {
		return nil, err
	}
	return &CharacterResult{Character: c, Warnings: d.warnings}, nil
}

func (g *Gateway) finishGetCharacter(r result) (*CharacterResult, error) {
	return g.finishCharacter(r, OpGetCharacter)
}

// GetCharacter fetches one character with its position and stats. The session
// is not changed.
func (g *Gateway) GetCharacter(ctx context.Context, id int) (*CharacterResult, error) {
	return g.finishGetCharacter(g.do(g.getCharacterCall(ctx, id)))
}

func (g *Gateway) createCharacterCall(ctx context.Context, name, characterClass string) *call {
	return g.newCall(ctx, createCharacterEndpoint, createCharacterInput{Name: name, CharacterClass: characterClass})
}

// finishCreateCharacter publishes CharacterCreated on success. The roster is
// not touched; callers refresh it with ListCharacters.
func (g *Gateway) finishCreateCharacter(r result) (*CharacterResult, error) {
	created, err := g.finishCharacter(r, OpCreateCharacter)
	if err != nil {
		return nil, err
	}

	g.publisher.Publish(events.CharacterCreated)
	return created, nil
}

// CreateCharacter creates a character. The token is attached when the session
// has one; otherwise the request is sent bare unless strict auth is on.
func (g *Gateway) CreateCharacter(ctx context.Context, name, characterClass string) (*CharacterResult, error) {
	return g.finishCreateCharacter(g.do(g.createCharacterCall(ctx, name, characterClass)))
}

func (g *Gateway) savePositionCall(ctx context.Context, characterID int, x, y, z float64) *call {
	e := savePositionEndpoint(characterID)
	switch {
	case characterID <= 0:
		return &call{endpoint: e, err: fmt.Errorf("%w: character id %d", ErrInvalidArgument, characterID)}
	case !finite(x) || !finite(y) || !finite(z):
		return &call{endpoint: e, err: fmt.Errorf("%w: position (%v, %v, %v)", ErrInvalidArgument, x, y, z)}
	}

	return g.newCall(ctx, e, positionInput{CharacterID: characterID, X: x, Y: y, Z: z})
}

func (g *Gateway) finishSavePosition(r result) (struct{}, error) {
	err := r.check()
	g.record(r, err, 0)
	return struct{}{}, err
}

// SavePosition stores a character's world position. Like CreateCharacter it
// sends the token only when there is one. The request is a PUT to the backend's
// position route rather than a POST.
func (g *Gateway) SavePosition(ctx context.Context, characterID int, x, y, z float64) error {
	_, err := g.finishSavePosition(g.do(g.savePositionCall(ctx, characterID, x, y, z)))
	return err
}
