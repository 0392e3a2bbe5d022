package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.World.Size)
	assert.Equal(t, 10, cfg.World.Height)
	assert.Equal(t, Point{X: 0, Y: 11, Z: 0}, cfg.PlayerSpawn())
	assert.Equal(t, Point{X: 10, Y: 11, Z: 10}, cfg.AgentSpawn())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
world:
  size: 8
  seed: 42
  terrain: simplex
agent:
  sight_range: 9.5
  spawn: {x: 1, y: 2, z: 3}
physics:
  gravity_enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8, cfg.World.Size)
	assert.Equal(t, 10, cfg.World.Height, "незаданные поля остаются по умолчанию")
	assert.Equal(t, int64(42), cfg.World.ResolveSeed())
	assert.Equal(t, "simplex", cfg.World.Terrain)
	assert.Equal(t, 9.5, cfg.Agent.SightRange)
	assert.Equal(t, 3.5, cfg.Agent.Speed)
	assert.Equal(t, Point{X: 1, Y: 2, Z: 3}, cfg.AgentSpawn())
	assert.False(t, cfg.Physics.GravityEnabled)
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("GAME_CONFIG", writeConfig(t, "world:\n  size: 5\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.World.Size)

	t.Setenv("GAME_CONFIG", "")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "world: [не, объект]"))
	assert.Error(t, err)
}

func TestValidate_RejectsMisconfiguration(t *testing.T) {
	cases := map[string]func(*Config){
		"size":      func(c *Config) { c.World.Size = 0 },
		"height":    func(c *Config) { c.World.Height = -1 },
		"terrain":   func(c *Config) { c.World.Terrain = "fractal" },
		"block":     func(c *Config) { c.Player.SelectedBlock = "lava" },
		"reach":     func(c *Config) { c.Player.Reach = 0 },
		"tick_rate": func(c *Config) { c.Sim.TickRate = 0 },
		"step":      func(c *Config) { c.Agent.VisionStep = 0 },
		"log_level": func(c *Config) { c.Logging.Level = "loud" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPorts_EnvFallback(t *testing.T) {
	var s ServerConfig
	t.Setenv("GAME_REST_PORT", "")
	assert.Equal(t, 8088, s.GetRESTPort())

	t.Setenv("GAME_REST_PORT", "9000")
	assert.Equal(t, 9000, s.GetRESTPort())

	s.RESTPort = 7000
	assert.Equal(t, 7000, s.GetRESTPort(), "значение из конфига важнее окружения")

	t.Setenv("GAME_METRICS_PORT", "abc")
	assert.Equal(t, 2112, s.GetMetricsPort())
}

func TestTickInterval(t *testing.T) {
	s := SimConfig{TickRate: 50}
	assert.Equal(t, int64(20_000_000), s.TickInterval().Nanoseconds())
}
