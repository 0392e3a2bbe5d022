package sim

import (
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world/block"
)

// IntentKind - вид намерения игрока
type IntentKind string

const (
	IntentMove   IntentKind = "move"
	IntentMine   IntentKind = "mine"
	IntentPlace  IntentKind = "place"
	IntentSelect IntentKind = "select"
)

// Intent - дискретное намерение, потребляемое следующим тиком
type Intent interface {
	Kind() IntentKind
}

// MoveIntent - ввод движения на один тик
type MoveIntent struct {
	Direction vec.Vec3Float `json:"direction"`
}

func (MoveIntent) Kind() IntentKind { return IntentMove }

// MineIntent - добыть блок по направлению взгляда.
// Origin nil - от глаз игрока.
type MineIntent struct {
	Origin *vec.Vec3Float `json:"origin,omitempty"`
	Aim    vec.Vec3Float  `json:"aim"`
}

func (MineIntent) Kind() IntentKind { return IntentMine }

// PlaceIntent - поставить блок. Block nil - выбранный у игрока.
type PlaceIntent struct {
	Origin *vec.Vec3Float   `json:"origin,omitempty"`
	Aim    vec.Vec3Float    `json:"aim"`
	Block  *block.BlockType `json:"block,omitempty"`
}

func (PlaceIntent) Kind() IntentKind { return IntentPlace }

// SelectIntent - выбор блока по слоту хотбара (1..9)
type SelectIntent struct {
	Slot int `json:"slot"`
}

func (SelectIntent) Kind() IntentKind { return IntentSelect }
