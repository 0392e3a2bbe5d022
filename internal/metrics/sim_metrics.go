package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SimMetrics - метрики симуляции. Методы безопасны для nil-получателя,
// поэтому симуляция может работать без метрик.
type SimMetrics struct {
	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	events        *prometheus.CounterVec
	intents       *prometheus.CounterVec
	publishErrors prometheus.Counter
	blocks        prometheus.Gauge
	agentState    *prometheus.GaugeVec
	generated     *prometheus.GaugeVec
}

// AgentStates - все значения метки state у crimcraft_agent_state
var AgentStates = []string{"idle", "chasing", "lingering"}

// NewSimMetrics создаёт метрики и регистрирует их в reg
func NewSimMetrics(reg prometheus.Registerer) *SimMetrics {
	m := &SimMetrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crimcraft",
			Name:      "ticks_total",
			Help:      "Число выполненных тиков симуляции.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crimcraft",
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного тика.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0167, 0.033, 0.1},
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crimcraft",
			Name:      "events_total",
			Help:      "События ядра по типам.",
		}, []string{"type"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crimcraft",
			Name:      "intents_total",
			Help:      "Обработанные намерения игрока.",
		}, []string{"kind", "result"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crimcraft",
			Name:      "event_publish_errors_total",
			Help:      "Ошибки публикации событий в шину.",
		}),
		blocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crimcraft",
			Name:      "grid_blocks",
			Help:      "Количество занятых ячеек сетки.",
		}),
		agentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crimcraft",
			Name:      "agent_state",
			Help:      "Текущее состояние Крима (1 у активного).",
		}, []string{"state"}),
		generated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crimcraft",
			Name:      "generated_total",
			Help:      "Итоги генерации мира.",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.ticks, m.tickDuration, m.events, m.intents,
		m.publishErrors, m.blocks, m.agentState, m.generated)
	return m
}

// ObserveTick фиксирует завершённый тик
func (m *SimMetrics) ObserveTick(d time.Duration, blocks int, state string) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.blocks.Set(float64(blocks))
	for _, s := range AgentStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.agentState.WithLabelValues(s).Set(v)
	}
}

// EventEmitted учитывает событие ядра
func (m *SimMetrics) EventEmitted(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// Intent учитывает обработанное намерение
func (m *SimMetrics) Intent(kind string, applied bool) {
	if m == nil {
		return
	}
	result := "noop"
	if applied {
		result = "applied"
	}
	m.intents.WithLabelValues(kind, result).Inc()
}

// PublishFailed учитывает ошибку публикации
func (m *SimMetrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}

// Generated записывает итоги генерации
func (m *SimMetrics) Generated(counts map[string]int) {
	if m == nil {
		return
	}
	for kind, n := range counts {
		m.generated.WithLabelValues(kind).Set(float64(n))
	}
}
