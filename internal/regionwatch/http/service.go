package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/internal/event"
	"github.com/sjzar/regionwatch/internal/model"
)

type Config interface {
	GetHTTPAddr() string
}

// Backend is the command surface exposed to the frontend.
type Backend interface {
	Load() model.LoadResult
	State() model.Snapshot
	CheckUpdate() error
	InstallUpdate(ctx context.Context) error
	Settings() model.Settings
	SaveSettings(s model.Settings) error
}

// Events 事件流来源
type Events interface {
	Subscribe(buffer int) (<-chan event.Event, func())
}

type Service struct {
	conf    Config
	backend Backend
	events  Events
	metrics http.Handler

	router *gin.Engine
	server *http.Server
	addr   string

	mcpServer           *server.MCPServer
	mcpSSEServer        *server.SSEServer
	mcpStreamableServer *server.StreamableHTTPServer
}

func NewService(conf Config, backend Backend, events Events, metrics http.Handler) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Handle error from SetTrustedProxies
	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("Failed to set trusted proxies")
	}

	// Middleware
	router.Use(
		errors.RecoveryMiddleware(),
		errors.ErrorHandlerMiddleware(),
		gin.LoggerWithWriter(log.Logger, "/health", "/metrics"),
		corsMiddleware(),
	)

	s := &Service{
		conf:    conf,
		backend: backend,
		events:  events,
		metrics: metrics,
		router:  router,
	}

	s.initMCPServer()
	s.initRouter()
	return s
}

// Start listens synchronously so a busy port is reported to the caller,
// then serves in the background.
func (s *Service) Start() error {
	ln, err := net.Listen("tcp", s.conf.GetHTTPAddr())
	if err != nil {
		return errors.HTTP("listen failed", err)
	}
	s.addr = ln.Addr().String()
	s.server = &http.Server{
		Handler: s.router,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("Failed to start HTTP server")
		}
	}()

	log.Info().Msg("Starting HTTP server on " + s.addr)

	return nil
}

func (s *Service) ListenAndServe() error {

	s.server = &http.Server{
		Addr:    s.conf.GetHTTPAddr(),
		Handler: s.router,
	}

	log.Info().Msg("Starting HTTP server on " + s.conf.GetHTTPAddr())
	return s.server.ListenAndServe()
}

func (s *Service) Stop() error {

	if s.server == nil {
		return nil
	}

	// 使用超时上下文优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shutdown HTTP server")
		return nil
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}

// Addr returns the address the server is bound to once started.
func (s *Service) Addr() string {
	return s.addr
}

func (s *Service) GetRouter() *gin.Engine {
	return s.router
}
