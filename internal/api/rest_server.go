package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/crimcraft/internal/logging"
	"github.com/annel0/crimcraft/internal/metrics"
	"github.com/annel0/crimcraft/internal/middleware"
	"github.com/annel0/crimcraft/internal/sim"
	"github.com/annel0/crimcraft/internal/vec"
	"github.com/annel0/crimcraft/internal/world"
	"github.com/annel0/crimcraft/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version - версия сервера в /api/server
const Version = "v0.1.0"

// MaxQueryVolume - предел числа ячеек в запросе /api/blocks
const MaxQueryVolume = 64 * 64 * 64

// Game - то, что REST API видит у симуляции
type Game interface {
	Snapshot() sim.Snapshot
	Submit(intent sim.Intent)
	GenerationStats() world.GenerationStats
	Grid() *world.Grid
}

// RestServer представляет REST API сервер
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	game    Game
	process *metrics.ProcessStats
	logger  *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string               // порт для запуска сервера, ":8088"
	Game     Game                 // симуляция
	Registry *prometheus.Registry // регистр метрик для /metrics
	Service  string               // имя сервиса для otelgin и метрик
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Service == "" {
		config.Service = "rest_api"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	logger := logging.GetAPILogger()

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.Service))
	router.Use(middleware.NewRequestLogger(logger).Handler())

	promMw := middleware.NewPrometheusMiddleware(config.Service, config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Registry)

	rs := &RestServer{
		router:  router,
		game:    config.Game,
		process: metrics.NewProcessStats(),
		logger:  logger,
	}
	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// Handler возвращает http.Handler (для тестов)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/state", rs.handleState)
		api.GET("/server", rs.handleServerInfo)
		api.GET("/blocks", rs.handleQueryBlocks)
		api.GET("/blocks/:x/:y/:z", rs.handleGetBlock)
	}

	intents := api.Group("/intents")
	{
		intents.POST("/move", rs.handleMove)
		intents.POST("/mine", rs.handleMine)
		intents.POST("/place", rs.handlePlace)
		intents.POST("/select", rs.handleSelect)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BlockView - блок в ответах API
type BlockView struct {
	Position vec.Vec3        `json:"position"`
	Type     block.BlockType `json:"type"`
}

// MoveRequest - запрос на движение игрока
type MoveRequest struct {
	Direction vec.Vec3Float `json:"direction"`
}

// AimRequest - запрос добычи. Origin не задан - от глаз игрока.
type AimRequest struct {
	Origin *vec.Vec3Float `json:"origin"`
	Aim    vec.Vec3Float  `json:"aim"`
}

// PlaceRequest - запрос установки. Block не задан - выбранный у игрока.
type PlaceRequest struct {
	AimRequest
	Block string `json:"block"`
}

// SelectRequest - выбор слота хотбара
type SelectRequest struct {
	Slot int `json:"slot" binding:"required,min=1,max=9"`
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: message})
}

func (rs *RestServer) accepted(c *gin.Context, intent sim.Intent) {
	rs.game.Submit(intent)
	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Намерение принято и будет выполнено в следующем тике",
		Data:    gin.H{"kind": intent.Kind()},
	})
}

// handleHealth отвечает на проверку живости
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleState возвращает отладочный срез симуляции
func (rs *RestServer) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние симуляции",
		Data:    rs.game.Snapshot(),
	})
}

// handleServerInfo возвращает сведения о процессе и генерации
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data: gin.H{
			"version":    Version,
			"name":       "Crimcraft Server",
			"status":     "running",
			"process":    rs.process.Snapshot(),
			"generation": rs.game.GenerationStats(),
		},
	})
}

// handleGetBlock возвращает блок в ячейке
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	var coords [3]int
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil {
			badRequest(c, fmt.Sprintf("Неверная координата %s: %q", name, c.Param(name)))
			return
		}
		coords[i] = v
	}

	pos := vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}
	t, ok := rs.game.Grid().Get(pos)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Ячейка пуста"})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок найден",
		Data:    BlockView{Position: pos, Type: t},
	})
}

// parseCoord разбирает "x,y,z"
func parseCoord(s string) (vec.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("ожидается x,y,z, получено %q", s)
	}

	var coords [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("координата %q: %w", p, err)
		}
		coords[i] = v
	}
	return vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

// axisLength возвращает длину стороны [lo, hi] без переполнения.
// hi >= lo, поэтому разность по модулю 2^64 точна.
func axisLength(lo, hi int) (uint64, bool) {
	d := uint64(hi) - uint64(lo)
	if d >= MaxQueryVolume {
		return 0, false
	}
	return d + 1, true
}

// queryVolume считает объём параллелепипеда, если он не больше MaxQueryVolume.
// Каждая сторона проверяется до умножения.
func queryVolume(min, max vec.Vec3) (uint64, bool) {
	volume := uint64(1)
	for _, side := range [][2]int{{min.X, max.X}, {min.Y, max.Y}, {min.Z, max.Z}} {
		n, ok := axisLength(side[0], side[1])
		if !ok {
			return 0, false
		}
		volume *= n
		if volume > MaxQueryVolume {
			return 0, false
		}
	}
	return volume, true
}

// handleQueryBlocks возвращает блоки в ограниченном параллелепипеде
func (rs *RestServer) handleQueryBlocks(c *gin.Context) {
	min, err := parseCoord(c.Query("min"))
	if err != nil {
		badRequest(c, "min: "+err.Error())
		return
	}
	max, err := parseCoord(c.Query("max"))
	if err != nil {
		badRequest(c, "max: "+err.Error())
		return
	}
	if max.X < min.X || max.Y < min.Y || max.Z < min.Z {
		badRequest(c, "max должен быть не меньше min по каждой оси")
		return
	}

	if _, ok := queryVolume(min, max); !ok {
		badRequest(c, fmt.Sprintf("Слишком большой объём: больше %d ячеек", MaxQueryVolume))
		return
	}

	found := rs.game.Grid().QueryBox(min, max)
	blocks := make([]BlockView, 0, len(found))
	for pos, t := range found {
		blocks = append(blocks, BlockView{Position: pos, Type: t})
	}
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i].Position, blocks[j].Position
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Найдено блоков: %d", len(blocks)),
		Data:    blocks,
	})
}

func (rs *RestServer) handleMove(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	rs.accepted(c, sim.MoveIntent{Direction: req.Direction})
}

func (rs *RestServer) handleMine(c *gin.Context) {
	var req AimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.Aim.IsZero() {
		badRequest(c, "aim не может быть нулевым")
		return
	}
	rs.accepted(c, sim.MineIntent{Origin: req.Origin, Aim: req.Aim})
}

func (rs *RestServer) handlePlace(c *gin.Context) {
	var req PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.Aim.IsZero() {
		badRequest(c, "aim не может быть нулевым")
		return
	}

	intent := sim.PlaceIntent{Origin: req.Origin, Aim: req.Aim}
	if req.Block != "" {
		t, err := block.Parse(req.Block)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		intent.Block = &t
	}
	rs.accepted(c, intent)
}

func (rs *RestServer) handleSelect(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Слот должен быть от 1 до 9")
		return
	}
	rs.accepted(c, sim.SelectIntent{Slot: req.Slot})
}

// Start запускает REST сервер и блокирует до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rest api: %w", err)
	}
	return nil
}

// Stop останавливает REST сервер, дожидаясь текущих запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
