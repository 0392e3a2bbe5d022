package sim

import (
	"github.com/annel0/crimcraft/internal/entity"
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world/block"
)

// PlayerView - отладочные сведения об игроке
type PlayerView struct {
	Position      vec.Vec3Float   `json:"position"`
	Velocity      vec.Vec3Float   `json:"velocity"`
	Grounded      bool            `json:"grounded"`
	HasPickaxe    bool            `json:"has_pickaxe"`
	SelectedBlock block.BlockType `json:"selected_block"`
}

// AgentView - отладочные сведения о Криме
type AgentView struct {
	Position      vec.Vec3Float    `json:"position"`
	Facing        vec.Vec3Float    `json:"facing"`
	State         entity.StateKind `json:"state"`
	ChaseTimer    float64          `json:"chase_timer"`
	SpottedPlayer bool             `json:"spotted_player"`
}

// Snapshot - согласованный срез состояния между тиками
type Snapshot struct {
	Tick           uint64     `json:"tick"`
	Seed           int64      `json:"seed"`
	Blocks         int        `json:"blocks"`
	PendingIntents int        `json:"pending_intents"`
	Player         PlayerView `json:"player"`
	Agent          AgentView  `json:"agent"`
}

// Snapshot возвращает срез состояния. Безопасен из любых горутин.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Tick:           s.tick,
		Seed:           s.seed,
		Blocks:         s.grid.Len(),
		PendingIntents: s.PendingIntents(),
		Player: PlayerView{
			Position:      s.player.Position,
			Velocity:      s.player.Velocity,
			Grounded:      s.player.Grounded,
			HasPickaxe:    s.player.HasPickaxe,
			SelectedBlock: s.player.SelectedBlock,
		},
		Agent: AgentView{
			Position:      s.crim.Position,
			Facing:        s.crim.Facing(),
			State:         s.crim.State(),
			ChaseTimer:    s.crim.ChaseTimer,
			SpottedPlayer: s.crim.SpottedPlayer,
		},
	}
}
