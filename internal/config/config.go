package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/crimcraft/internal/logging"
	"github.com/annel0/crimcraft/internal/world"
	"github.com/annel0/crimcraft/internal/world/block"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Player    PlayerConfig    `yaml:"player"`
	Agent     AgentConfig     `yaml:"agent"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Sim       SimConfig       `yaml:"sim"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Point - точка в мировых координатах
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type WorldConfig struct {
	Size              int    `yaml:"size"`   // Полуширина мира
	Height            int    `yaml:"height"` // Базовая высота (точки появления)
	Seed              int64  `yaml:"seed"`   // 0 - сид от текущего времени
	StructureAttempts int    `yaml:"structure_attempts"`
	Terrain           string `yaml:"terrain"` // random | perlin | simplex
}

type PlayerConfig struct {
	Speed         float64 `yaml:"speed"`
	EyeHeight     float64 `yaml:"eye_height"`
	Reach         float64 `yaml:"reach"`
	HasPickaxe    bool    `yaml:"has_pickaxe"`
	SelectedBlock string  `yaml:"selected_block"`
	Spawn         *Point  `yaml:"spawn"` // nil - (0, height+1, 0)
}

type AgentConfig struct {
	Speed             float64 `yaml:"speed"`
	SightRange        float64 `yaml:"sight_range"`
	FaceRange         float64 `yaml:"face_range"`
	LingerSeconds     float64 `yaml:"linger_seconds"`
	LingerSpeedFactor float64 `yaml:"linger_speed_factor"`
	TurnRate          float64 `yaml:"turn_rate"`
	VisionStep        float64 `yaml:"vision_step"`
	Spawn             *Point  `yaml:"spawn"` // nil - (10, height+1, 10)
}

type PhysicsConfig struct {
	Gravity        float64 `yaml:"gravity"`
	GravityEnabled bool    `yaml:"gravity_enabled"`
	PlacementStep  float64 `yaml:"placement_step"`
	MiningConeCos  float64 `yaml:"mining_cone_cos"`
}

type SimConfig struct {
	TickRate int `yaml:"tick_rate"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // Пусто - шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Compress  bool   `yaml:"compress"` // zstd для payload
	Buffer    int    `yaml:"buffer"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"` // Писать ли logs/<компонент>_<время>.log
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Size:              20,
			Height:            10,
			StructureAttempts: world.DefaultStructureAttempts,
			Terrain:           string(world.TerrainRandom),
		},
		Player: PlayerConfig{
			Speed:         5.0,
			EyeHeight:     0.7,
			Reach:         5.0,
			HasPickaxe:    true,
			SelectedBlock: block.Dirt.String(),
		},
		Agent: AgentConfig{
			Speed:             3.5,
			SightRange:        15.0,
			FaceRange:         20.0,
			LingerSeconds:     3.0,
			LingerSpeedFactor: 0.7,
			TurnRate:          2.0,
			VisionStep:        0.5,
		},
		Physics: PhysicsConfig{
			Gravity:        -9.8,
			GravityEnabled: true,
			PlacementStep:  0.1,
			MiningConeCos:  0.7,
		},
		Sim: SimConfig{
			TickRate: 60,
		},
		EventBus: EventBusConfig{
			Stream:    "EVENTS",
			Retention: 24,
			Buffer:    256,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "crimcraft",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// PlayerSpawn возвращает точку появления игрока
func (c *Config) PlayerSpawn() Point {
	if c.Player.Spawn != nil {
		return *c.Player.Spawn
	}
	return Point{X: 0, Y: float64(c.World.Height + 1), Z: 0}
}

// AgentSpawn возвращает точку появления Крима
func (c *Config) AgentSpawn() Point {
	if c.Agent.Spawn != nil {
		return *c.Agent.Spawn
	}
	return Point{X: 10, Y: float64(c.World.Height + 1), Z: 10}
}

// ResolveSeed возвращает сид генерации, подставляя время при seed == 0
func (w *WorldConfig) ResolveSeed() int64 {
	if w.Seed != 0 {
		return w.Seed
	}
	return time.Now().UnixNano()
}

// TickInterval возвращает длительность одного тика
func (s *SimConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}

// Validate проверяет конфигурацию. Ошибка здесь - фатальная при старте.
func (c *Config) Validate() error {
	var errs []error

	if c.World.Size <= 0 {
		errs = append(errs, fmt.Errorf("world.size должен быть > 0, получено %d", c.World.Size))
	}
	if c.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world.height должен быть > 0, получено %d", c.World.Height))
	}
	if c.World.StructureAttempts < 0 {
		errs = append(errs, fmt.Errorf("world.structure_attempts не может быть отрицательным"))
	}
	if _, err := world.ParseTerrainMode(c.World.Terrain); err != nil {
		errs = append(errs, fmt.Errorf("world.terrain: %w", err))
	}
	if _, err := block.Parse(c.Player.SelectedBlock); err != nil {
		errs = append(errs, fmt.Errorf("player.selected_block: %w", err))
	}
	if c.Player.Reach <= 0 {
		errs = append(errs, fmt.Errorf("player.reach должен быть > 0"))
	}
	if c.Player.Speed < 0 || c.Agent.Speed < 0 {
		errs = append(errs, fmt.Errorf("скорость не может быть отрицательной"))
	}
	if c.Agent.VisionStep <= 0 || c.Physics.PlacementStep <= 0 {
		errs = append(errs, fmt.Errorf("шаг луча должен быть > 0"))
	}
	if c.Sim.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("sim.tick_rate должен быть > 0, получено %d", c.Sim.TickRate))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "GAME_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берёт путь из ENV GAME_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	return cfg, nil
}
