package entity

import (
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world/block"
)

// PlayerParams - параметры игрока
type PlayerParams struct {
	Speed         float64
	EyeHeight     float64
	HasPickaxe    bool
	SelectedBlock block.BlockType
}

// DefaultPlayerParams возвращает параметры по умолчанию
func DefaultPlayerParams() PlayerParams {
	return PlayerParams{
		Speed:         5.0,
		EyeHeight:     0.7,
		HasPickaxe:    true,
		SelectedBlock: block.Dirt,
	}
}

// Player - тело игрока
type Player struct {
	Position      vec.Vec3Float
	Velocity      vec.Vec3Float
	Grounded      bool
	HasPickaxe    bool
	SelectedBlock block.BlockType
	Speed         float64
	EyeHeight     float64
}

// NewPlayer создаёт игрока в точке появления
func NewPlayer(pos vec.Vec3Float, params PlayerParams) *Player {
	return &Player{
		Position:      pos,
		HasPickaxe:    params.HasPickaxe,
		SelectedBlock: params.SelectedBlock,
		Speed:         params.Speed,
		EyeHeight:     params.EyeHeight,
	}
}

// Move смещает игрока по направлению без проверки столкновений.
// Ненулевое направление нормализуется, вертикаль допускается.
func (p *Player) Move(direction vec.Vec3Float, dt float64) {
	dir := direction.Normalized()
	if dir.IsZero() {
		return
	}
	p.Position = p.Position.Add(dir.Mul(p.Speed * dt))
}

// Eye возвращает точку глаз, из которой идут лучи взаимодействия
func (p *Player) Eye() vec.Vec3Float {
	return p.Position.Add(vec.Vec3Float{Y: p.EyeHeight})
}

// SelectSlot выбирает блок по слоту хотбара 1..9. Неверный слот игнорируется.
func (p *Player) SelectSlot(slot int) bool {
	t, ok := block.HotbarSlot(slot)
	if !ok {
		return false
	}
	p.SelectedBlock = t
	return true
}

// SelectBlock выбирает блок по типу
func (p *Player) SelectBlock(t block.BlockType) bool {
	if !t.IsValid() {
		return false
	}
	p.SelectedBlock = t
	return true
}
