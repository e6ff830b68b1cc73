package session

// Defaults applied when a character record omits a field.
const (
	DefaultCharacterClass = "warrior"
	DefaultLevel          = 1
	DefaultHealth         = 100
	DefaultMana           = 100
)

// Character is one entry of the roster. It is a value: a refreshed roster replaces
// every entry rather than updating them in place.
type Character struct {
	CharacterID    int     `json:"character_id" yaml:"character_id"`
	Name           string  `json:"name" yaml:"name"`
	CharacterClass string  `json:"class" yaml:"class"`
	Level          int     `json:"level" yaml:"level"`
	X              float64 `json:"x" yaml:"x"`
	Y              float64 `json:"y" yaml:"y"`
	Z              float64 `json:"z" yaml:"z"`
	Health         int     `json:"health" yaml:"health"`
	Mana           int     `json:"mana" yaml:"mana"`
}

// NewCharacter returns a Character carrying the defaults of a freshly created one.
func NewCharacter() Character {
	return Character{
		CharacterClass: DefaultCharacterClass,
		Level:          DefaultLevel,
		Health:         DefaultHealth,
		Mana:           DefaultMana,
	}
}
