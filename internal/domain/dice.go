package domain

// DiceType is the face count of a supported polyhedron.
type DiceType int

// SupportedDiceTypes lists the six polyhedra the table can render,
// in ascending order. The order matters: nearest-type resolution for
// nonstandard dice breaks ties toward the earlier entry.
var SupportedDiceTypes = []DiceType{4, 6, 8, 10, 12, 20}

// IsSupported reports whether d is one of the renderable polyhedra.
func (d DiceType) IsSupported() bool {
	for _, s := range SupportedDiceTypes {
		if d == s {
			return true
		}
	}
	return false
}

// Vec3 is a 3D coordinate on the table.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DiceStatus tracks a die through its cross-reference lifecycle.
type DiceStatus string

const (
	DiceActive      DiceStatus = "active"
	DiceSettled     DiceStatus = "settled"
	DiceHighlighted DiceStatus = "highlighted"
)

// CanvasDice is one die instance on the shared table. A virtual die is a
// single token summarizing many (or nonstandard) rolled dice.
type CanvasDice struct {
	ID           string   `json:"canvasId"`
	Type         DiceType `json:"diceType"`
	Position     Vec3     `json:"position"`
	IsVirtual    bool     `json:"isVirtual"`
	VirtualRolls []int    `json:"virtualRolls,omitempty"`
	Result       int      `json:"result"`
}
