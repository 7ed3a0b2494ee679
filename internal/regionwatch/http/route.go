package http

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/internal/model"
)

// eventBuffer 每个 SSE 连接的事件缓冲
const eventBuffer = 64

func (s *Service) initRouter() {
	s.initBaseRouter()
	s.initAPIRouter()
	s.initMCPRouter()
}

func (s *Service) initBaseRouter() {
	s.router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	s.router.NoRoute(s.NoRoute)
}

func (s *Service) initAPIRouter() {
	api := s.router.Group("/api/v1")
	{
		api.POST("/load", s.handleLoad)
		api.GET("/state", s.handleState)
		api.GET("/events", s.handleEvents)
		api.GET("/settings", s.handleGetSettings)
		api.PUT("/settings", s.handleSaveSettings)
		api.POST("/update/check", s.handleCheckUpdate)
		api.POST("/update/install", s.handleInstallUpdate)
	}
}

func (s *Service) initMCPRouter() {
	s.router.Any("/mcp", func(c *gin.Context) {
		s.mcpStreamableServer.ServeHTTP(c.Writer, c.Request)
	})
	s.router.Any("/sse", func(c *gin.Context) {
		s.mcpSSEServer.ServeHTTP(c.Writer, c.Request)
	})
	s.router.Any("/message", func(c *gin.Context) {
		s.mcpSSEServer.ServeHTTP(c.Writer, c.Request)
	})
}

// NoRoute handles 404 Not Found errors.
func (s *Service) NoRoute(c *gin.Context) {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, "/api"):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		c.String(http.StatusNotFound, "404 page not found")
	}
}

// handleLoad 前端加载完成的握手
func (s *Service) handleLoad(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.Load())
}

func (s *Service) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.State())
}

// handleEvents streams every bus event as a server-sent event named after it.
func (s *Service) handleEvents(c *gin.Context) {
	ch, cancel := s.events.Subscribe(eventBuffer)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(e.Name, e)
			return true
		}
	})
}

func (s *Service) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.Settings())
}

type SettingsRequest struct {
	ProcessName   string `json:"process_name" binding:"required"`
	Port          int    `json:"port" binding:"required,min=1,max=65535"`
	CheckInterval string `json:"check_interval" binding:"required"`
	RegionSource  string `json:"region_source" binding:"required,oneof=aws static"`
	UpdateEnabled bool   `json:"update_enabled"`
}

func (s *Service) handleSaveSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.Err(c, errors.InvalidParam("settings", err.Error()))
		return
	}

	interval, err := time.ParseDuration(req.CheckInterval)
	if err != nil || interval <= 0 {
		errors.Err(c, errors.InvalidParam("check_interval", "must be a positive duration"))
		return
	}

	settings := model.Settings{
		ProcessName:   req.ProcessName,
		Port:          req.Port,
		CheckInterval: interval,
		RegionSource:  req.RegionSource,
		UpdateEnabled: req.UpdateEnabled,
	}
	if err := s.backend.SaveSettings(settings); err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// handleCheckUpdate 手动触发检查，结果通过 updater 事件返回
func (s *Service) handleCheckUpdate(c *gin.Context) {
	if err := s.backend.CheckUpdate(); err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Service) handleInstallUpdate(c *gin.Context) {
	if err := s.backend.InstallUpdate(c.Request.Context()); err != nil {
		errors.Err(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "restarting"})
}
