package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"mmoclient/internal/app/events"
	"mmoclient/internal/app/session"
)

const messyRoster = `{"characters":[
	{"character_id":1,"name":"Aria","class":"mage","level":3,"x":"1.50","y":2,"z":-3,"health":90,"mana":120},
	{"character_id":2,"name":"Brom"},
	{"name":"Nameless","level":2},
	{"character_id":"3","name":"Cid","class":7,"level":"abc"},
	{"character_id":1,"name":"Dup"},
	"junk"
]}`

func TestListCharacters_TolerantDecoding(t *testing.T) {
	srv := stub(t, http.StatusOK, messyRoster)
	f := newFixture(t, Options{BaseURL: srv.URL})
	require.NoError(t, f.session.SetAuthData("tok", "sabri", 7))

	roster, err := f.gateway.ListCharacters(context.Background())
	require.NoError(t, err)

	want := []session.Character{
		{CharacterID: 1, Name: "Aria", CharacterClass: "mage", Level: 3, X: 1.5, Y: 2, Z: -3, Health: 90, Mana: 120},
		{CharacterID: 2, Name: "Brom", CharacterClass: "warrior", Level: 1, Health: 100, Mana: 100},
		{CharacterID: 3, Name: "Cid", CharacterClass: "warrior", Level: 1, Health: 100, Mana: 100},
	}
	assert.Equal(t, want, roster.Characters)
	assert.Equal(t, want, f.session.Characters())

	var fields []string
	for _, w := range roster.Warnings {
		fields = append(fields, w.Detail)
	}
	assert.Equal(t, []string{
		"characters.1.class",
		"characters.1.level",
		"characters.2.character_id",
		"characters.3.class",
		"characters.3.level",
		"characters.4.character_id",
		"characters.5",
	}, fields)

	assert.Equal(t, 7.0, testutil.ToFloat64(f.metrics.decodeWarnings.WithLabelValues(OpListCharacters)))
	assert.Equal(t, 1, f.events.count(events.CharacterListReceived))
}

func TestListCharacters_MissingArrayYieldsEmptyRoster(t *testing.T) {
	srv := stub(t, http.StatusOK, `{"message":"Characters retrieved successfully"}`)
	f := newFixture(t, Options{BaseURL: srv.URL})
	require.NoError(t, f.session.SetAuthData("tok", "sabri", 7))
	f.session.SetCharacterList([]session.Character{{CharacterID: 1}})

	roster, err := f.gateway.ListCharacters(context.Background())
	require.NoError(t, err)

	assert.Empty(t, roster.Characters)
	assert.NotNil(t, roster.Characters)
	require.Len(t, roster.Warnings, 1)
	assert.Equal(t, "characters", roster.Warnings[0].Detail)
	assert.Empty(t, f.session.Characters())
}

func TestDecodeIdentity(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     identity
		warnings int
	}{
		{
			name: "top level",
			body: `{"token":"abc123","username":"sabri","user_id":7}`,
			want: identity{token: "abc123", username: "sabri", userID: 7},
		},
		{
			name: "nested user",
			body: `{"token":"t","user":{"user_id":9,"username":"nested"}}`,
			want: identity{token: "t", username: "nested", userID: 9},
		},
		{
			name:     "empty username",
			body:     `{"token":"t","username":"","user_id":1}`,
			want:     identity{token: "t", username: PlaceholderUsername, userID: 1},
			warnings: 1,
		},
		{
			name:     "negative user id",
			body:     `{"token":"t","username":"u","user_id":-4}`,
			want:     identity{token: "t", username: "u"},
			warnings: 1,
		},
		{
			name: "null top-level username falls through to user",
			body: `{"token":"t","username":null,"user_id":null,"user":{"username":"bob","user_id":3}}`,
			want: identity{token: "t", username: "bob", userID: 3},
		},
		{
			name:     "null username without nested user",
			body:     `{"token":"t","username":null,"user_id":2}`,
			want:     identity{token: "t", username: PlaceholderUsername, userID: 2},
			warnings: 1,
		},
		{
			name:     "not json",
			body:     `<html>oops</html>`,
			want:     identity{username: PlaceholderUsername},
			warnings: 2,
		},
		{
			name:     "token of the wrong type",
			body:     `{"token":12,"username":"u","user_id":1.5}`,
			want:     identity{username: "u"},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{BaseURL: "http://game.invalid"})
			d := f.gateway.newDecoder(OpLogin)

			got := d.decodeIdentity([]byte(tt.body))

			assert.Equal(t, tt.want, got)
			assert.Len(t, d.warnings, tt.warnings)
		})
	}
}

func TestDecodeCharacter_NumericStringsAndNulls(t *testing.T) {
	f := newFixture(t, Options{BaseURL: "http://game.invalid"})
	d := f.gateway.newDecoder(OpGetCharacter)

	c, ok := d.decodeCharacter(gjson.Parse(`{"character_id":5,"name":"Eve","class":"healer","level":"4","x":null,"y":"north","z":"0.00","health":"75","mana":12.5}`), "character")

	require.True(t, ok)
	assert.Equal(t, 5, c.CharacterID)
	assert.Equal(t, 4, c.Level)
	assert.Zero(t, c.X)
	assert.Zero(t, c.Y)
	assert.Zero(t, c.Z)
	assert.Equal(t, 75, c.Health)
	assert.Equal(t, session.DefaultMana, c.Mana)

	var fields []string
	for _, w := range d.warnings {
		fields = append(fields, w.Detail)
	}
	assert.Equal(t, []string{"character.y", "character.mana"}, fields)
}

func TestDecodeCharacter_LevelBelowOne(t *testing.T) {
	f := newFixture(t, Options{BaseURL: "http://game.invalid"})
	d := f.gateway.newDecoder(OpGetCharacter)

	c, ok := d.decodeCharacter(gjson.Parse(`{"character_id":5,"name":"Eve","class":"healer","level":0}`), "character")

	require.True(t, ok)
	assert.Equal(t, session.DefaultLevel, c.Level)
	assert.Len(t, d.warnings, 1)
}
