package sim

import (
	"context"
	"time"
)

// Runner выполняет тики с фиксированным шагом до отмены контекста
type Runner struct {
	sim      *Simulation
	interval time.Duration
	dt       float64
}

// NewRunner создаёт цикл тиков с частотой из sim.tick_rate.
// dt считается от частоты, а не от интервала: time.Second/60 не равен 1/60 с.
func NewRunner(sim *Simulation) *Runner {
	return &Runner{
		sim:      sim,
		interval: sim.cfg.Sim.TickInterval(),
		dt:       1.0 / float64(sim.cfg.Sim.TickRate),
	}
}

// Run блокирует до отмены ctx. Шаг симуляции фиксирован и не зависит
// от фактической задержки тикера.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sim.logger.Info("▶️ Цикл симуляции запущен: %d тиков/с (интервал %s)", r.sim.cfg.Sim.TickRate, r.interval)
	for {
		select {
		case <-ctx.Done():
			r.sim.logger.Info("⏹️ Цикл симуляции остановлен на тике %d", r.sim.Snapshot().Tick)
			return ctx.Err()
		case <-ticker.C:
			r.sim.Step(ctx, r.dt)
		}
	}
}
