package gateway

import (
	"context"
	"sync"

	"mmoclient/internal/app/loop"
)

// Async issues gateway operations without blocking the caller.
//
// Each method builds its request on the calling goroutine and returns at once.
// The HTTP exchange runs on its own goroutine, and the completion (status
// handling, decoding, session mutation, notifications, then done) is posted to
// the owner's loop so it runs wherever the owner drains it. Completions of
// operations issued back to back may arrive in any order.
type Async struct {
	gateway *Gateway
	loop    *loop.Loop

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAsync returns an Async front end posting completions to l.
func NewAsync(g *Gateway, l *loop.Loop) *Async {
	ctx, cancel := context.WithCancel(context.Background())
	return &Async{gateway: g, loop: l, ctx: ctx, cancel: cancel}
}

// Wait blocks until every in-flight exchange has posted its completion.
func (a *Async) Wait() {
	a.wg.Wait()
}

// Close aborts in-flight exchanges and waits for them. Their completions still
// post, reporting ErrTransportFailure.
func (a *Async) Close() {
	a.cancel()
	a.wg.Wait()
}

// dispatch sends c in the background and posts finish and done to the loop. A
// call refused while preparing never reaches the network; its completion is
// posted straight away.
func dispatch[T any](a *Async, c *call, finish func(result) (T, error), done func(T, error)) {
	complete := func(r result) {
		err := a.loop.Post(func() {
			v, err := finish(r)
			if done != nil {
				done(v, err)
			}
		})
		if err != nil {
			a.gateway.logger.Error().Err(err).Str("operation", r.endpoint.op).Msg("Completion dropped")
		}
	}

	if c.err != nil {
		complete(result{endpoint: c.endpoint, err: c.err})
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		complete(a.gateway.do(c))
	}()
}

// HealthCheck probes backend liveness.
func (a *Async) HealthCheck(done func(*Health, error)) {
	dispatch(a, a.gateway.healthCall(a.ctx), a.gateway.finishHealth, done)
}

// Register creates an account.
func (a *Async) Register(in RegisterInput, done func(error)) {
	dispatch(a, a.gateway.registerCall(a.ctx, in), a.gateway.finishRegister, ignoreValue(done))
}

// Login authenticates and fills the session.
func (a *Async) Login(username, password string, done func(*LoginResult, error)) {
	dispatch(a, a.gateway.loginCall(a.ctx, username, password), a.gateway.finishLogin, done)
}

// VerifyToken checks the stored token.
func (a *Async) VerifyToken(done func(*Identity, error)) {
	dispatch(a, a.gateway.verifyCall(a.ctx), a.gateway.finishVerify, done)
}

// ListCharacters fetches the roster into the session.
func (a *Async) ListCharacters(done func(*Roster, error)) {
	dispatch(a, a.gateway.listCharactersCall(a.ctx), a.gateway.finishListCharacters, done)
}

// GetCharacter fetches one character.
func (a *Async) GetCharacter(id int, done func(*CharacterResult, error)) {
	dispatch(a, a.gateway.getCharacterCall(a.ctx, id), a.gateway.finishGetCharacter, done)
}

// CreateCharacter creates a character.
func (a *Async) CreateCharacter(name, characterClass string, done func(*CharacterResult, error)) {
	dispatch(a, a.gateway.createCharacterCall(a.ctx, name, characterClass), a.gateway.finishCreateCharacter, done)
}

// SavePosition stores a character's position.
func (a *Async) SavePosition(characterID int, x, y, z float64, done func(error)) {
	dispatch(a, a.gateway.savePositionCall(a.ctx, characterID, x, y, z), a.gateway.finishSavePosition, ignoreValue(done))
}

func ignoreValue(done func(error)) func(struct{}, error) {
	if done == nil {
		return nil
	}
	return func(_ struct{}, err error) { done(err) }
}
