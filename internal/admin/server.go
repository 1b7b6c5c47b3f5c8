// Package admin serves the operator HTTP surface of the daemon.
package admin

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/scmictl/internal/auth"
	"github.com/danmuck/scmictl/internal/observability"
	"github.com/danmuck/scmictl/internal/platform"
	"github.com/danmuck/scmictl/internal/scmi"
)

const Version = "0.1.0"

var (
	ErrBadAgent   = errors.New("admin: bad agent id")
	ErrBadPayload = errors.New("admin: bad payload")
)

// Views exposes what each agent can see.
type Views interface {
	Agents() []platform.AgentView
	Agent(agentID uint32) (platform.AgentView, bool)
}

// Injector runs one message through an agent's channel.
type Injector interface {
	Inject(agentID uint32, h scmi.Header, payload []byte) ([]byte, error)
}

type Config struct {
	ID          string
	Addr        string
	Token       string
	CORSOrigins []string
}

type Server struct {
	cfg       Config
	views     Views
	injector  Injector
	validator auth.Validator
	router    *gin.Engine
	started   time.Time
	ready     func() bool
}

// New builds the router and registers every route. ready may be nil.
func New(cfg Config, views Views, injector Injector, ready func() bool) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CORSOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{observability.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if ready == nil {
		ready = func() bool { return true }
	}
	s := &Server{
		cfg:       cfg,
		views:     views,
		injector:  injector,
		validator: auth.StaticToken{Token: cfg.Token},
		router:    r,
		started:   time.Now(),
		ready:     ready,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on cfg.Addr until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": s.cfg.ID,
			"version": Version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		ready := s.ready()
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.started).String(),
			"service": s.cfg.ID,
			"version": Version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/agents", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"agents": s.views.Agents()})
	})

	s.router.GET("/agents/:agent", func(c *gin.Context) {
		id, err := parseAgent(c.Param("agent"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		view, ok := s.views.Agent(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	s.router.POST("/agents/:agent/messages", s.requireToken(), s.injectMessage)
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if err := s.validator.Validate(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// MessageRequest is the body of POST /agents/:agent/messages. Payload is
// a list of little endian words.
type MessageRequest struct {
	Protocol uint8    `json:"protocol"`
	Message  uint8    `json:"message"`
	Token    uint16   `json:"token"`
	Payload  []uint32 `json:"payload"`
}

type MessageResponse struct {
	RequestID  string   `json:"request_id"`
	Agent      uint32   `json:"agent"`
	Protocol   string   `json:"protocol"`
	Message    uint8    `json:"message"`
	Status     string   `json:"status"`
	StatusCode int32    `json:"status_code"`
	Words      []uint32 `json:"words"`
	Raw        string   `json:"raw"`
}

func (s *Server) injectMessage(c *gin.Context) {
	id, err := parseAgent(c.Param("agent"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := make([]byte, 4*len(req.Payload))
	for i, w := range req.Payload {
		binary.LittleEndian.PutUint32(payload[i*4:], w)
	}
	h := scmi.Header{
		ProtocolID: scmi.ProtocolID(req.Protocol),
		MessageID:  req.Message,
		Token:      req.Token,
	}
	resp, err := s.injector.Inject(id, h, payload)
	if err != nil {
		log.Warn().
			Str("request_id", observability.RequestIDFrom(c)).
			Uint32("agent", id).
			Err(err).
			Msg("message injection failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if len(resp) < 4 {
		c.JSON(http.StatusBadGateway, gin.H{"error": ErrBadPayload.Error()})
		return
	}

	st := scmi.Status(int32(binary.LittleEndian.Uint32(resp)))
	words := make([]uint32, 0, (len(resp)-4)/4)
	for off := 4; off+4 <= len(resp); off += 4 {
		words = append(words, binary.LittleEndian.Uint32(resp[off:]))
	}
	c.JSON(http.StatusOK, MessageResponse{
		RequestID:  observability.RequestIDFrom(c),
		Agent:      id,
		Protocol:   h.ProtocolID.String(),
		Message:    req.Message,
		Status:     st.String(),
		StatusCode: int32(st),
		Words:      words,
		Raw:        hex.EncodeToString(resp),
	})
}

func parseAgent(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, ErrBadAgent
	}
	return uint32(id), nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
