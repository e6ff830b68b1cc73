package gateway

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"mmoclient/internal/app/session"
	"mmoclient/internal/pkg/errs"
)

// PlaceholderUsername stands in for a login response that names no user.
const PlaceholderUsername = "Player"

// decoder reads response fields one at a time. A missing or malformed field is
// replaced with its default and recorded as an ErrDecodeWarning instead of failing
// the whole response.
type decoder struct {
	op       string
	logger   zerolog.Logger
	metrics  *Metrics
	warnings []*errs.CustomError
}

func (g *Gateway) newDecoder(op string) *decoder {
	return &decoder{op: op, logger: g.logger, metrics: g.metrics}
}

func (d *decoder) warn(field string, raw gjson.Result) {
	warning := errs.NewError(errs.ErrDecodeWarning, field)
	d.warnings = append(d.warnings, warning)
	d.metrics.countDecodeWarning(d.op)

	event := d.logger.Warn().Str("operation", d.op).Str("field", field)
	if raw.Exists() {
		event = event.Str("raw", raw.Raw)
	}
	event.Msg("Response field missing or malformed, using default")
}

// str returns the string at field, or def when it is absent, null or not a string.
func (d *decoder) str(obj gjson.Result, field, path, def string) string {
	v := obj.Get(field)
	if v.Type != gjson.String {
		d.warn(path, v)
		return def
	}
	return v.Str
}

// integer returns the integer at field. Whole numbers and numeric strings are
// accepted. An absent field yields def, with a warning only if warnMissing is set.
func (d *decoder) integer(obj gjson.Result, field, path string, def int, warnMissing bool) int {
	v := obj.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		if warnMissing {
			d.warn(path, v)
		}
		return def
	}

	n, ok := asInt(v)
	if !ok {
		d.warn(path, v)
		return def
	}
	return n
}

// number returns the float at field. Numeric strings are accepted since decimal
// columns commonly serialize as strings. An absent field silently yields def.
func (d *decoder) number(obj gjson.Result, field, path string, def float64) float64 {
	v := obj.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return def
	}

	switch v.Type {
	case gjson.Number:
		return v.Num
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil && finite(f) {
			return f
		}
	}

	d.warn(path, v)
	return def
}

func asInt(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		if v.Num != float64(int(v.Num)) {
			return 0, false
		}
		return int(v.Num), true
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		return n, err == nil
	default:
		return 0, false
	}
}

// identity is what a login or verify response says about the user.
type identity struct {
	token    string
	username string
	userID   int
}

// lookup finds field at the top level first, then under "user". A top-level value
// that is null or not a scalar falls through to the nested one when that exists.
func lookup(body gjson.Result, field string) (gjson.Result, string) {
	top := body.Get(field)
	if top.Type == gjson.String || top.Type == gjson.Number {
		return top, field
	}

	nested := body.Get("user." + field)
	if top.Exists() && !nested.Exists() {
		return top, field
	}
	return nested, "user." + field
}

// decodeIdentity reads token, username and user_id. The token is returned as
// found; callers decide whether an empty one is fatal.
func (d *decoder) decodeIdentity(body []byte) identity {
	root := gjson.ParseBytes(body)

	var id identity
	if v := root.Get("token"); v.Type == gjson.String {
		id.token = v.Str
	}

	nameValue, namePath := lookup(root, "username")
	if nameValue.Type == gjson.String && nameValue.Str != "" {
		id.username = nameValue.Str
	} else {
		d.warn(namePath, nameValue)
		id.username = PlaceholderUsername
	}

	idValue, idPath := lookup(root, "user_id")
	if n, ok := asInt(idValue); ok && n >= 0 {
		id.userID = n
	} else {
		d.warn(idPath, idValue)
	}

	return id
}

// decodeCharacter reads one character object. ok is false when the entry has no
// usable character_id and must be dropped.
func (d *decoder) decodeCharacter(obj gjson.Result, prefix string) (session.Character, bool) {
	if !obj.IsObject() {
		d.warn(prefix, obj)
		return session.Character{}, false
	}

	c := session.NewCharacter()

	idValue := obj.Get("character_id")
	id, ok := asInt(idValue)
	if !ok || id <= 0 {
		d.warn(prefix+".character_id", idValue)
		return session.Character{}, false
	}
	c.CharacterID = id

	c.Name = d.str(obj, "name", prefix+".name", "")
	c.CharacterClass = d.str(obj, "class", prefix+".class", session.DefaultCharacterClass)

	c.Level = d.integer(obj, "level", prefix+".level", session.DefaultLevel, true)
	if c.Level < 1 {
		d.warn(prefix+".level", obj.Get("level"))
		c.Level = session.DefaultLevel
	}

	c.X = d.number(obj, "x", prefix+".x", 0)
	c.Y = d.number(obj, "y", prefix+".y", 0)
	c.Z = d.number(obj, "z", prefix+".z", 0)
	c.Health = d.integer(obj, "health", prefix+".health", session.DefaultHealth, false)
	c.Mana = d.integer(obj, "mana", prefix+".mana", session.DefaultMana, false)

	return c, true
}

// decodeRoster reads the "characters" array. Entries without a usable id, and
// repeated ids, are dropped so the roster keeps unique ids.
func (d *decoder) decodeRoster(body []byte) []session.Character {
	list := gjson.GetBytes(body, "characters")
	if !list.IsArray() {
		d.warn("characters", list)
		return []session.Character{}
	}

	entries := list.Array()
	roster := make([]session.Character, 0, len(entries))
	seen := make(map[int]struct{}, len(entries))

	for i, entry := range entries {
		prefix := "characters." + strconv.Itoa(i)

		if id, ok := asInt(entry.Get("character_id")); ok {
			if _, dup := seen[id]; dup {
				d.warn(prefix+".character_id", entry.Get("character_id"))
				continue
			}
		}

		c, ok := d.decodeCharacter(entry, prefix)
		if !ok {
			continue
		}

		seen[c.CharacterID] = struct{}{}
		roster = append(roster, c)
	}

	return roster
}
