package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chat-gateway/internal/config"
	"chat-gateway/internal/gateway"
	"chat-gateway/internal/translator"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

//go:embed web/index.html
var indexHTML []byte

// Server exposes the chat page and the chat API over HTTP.
type Server struct {
	cfg     config.Config
	gateway *gateway.Gateway
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, gw *gateway.Gateway) (*Server, error) {
	if gw == nil {
		return nil, errors.New("gateway must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	// Every origin, method and header is allowed. An empty AllowHeaders
	// echoes whatever the preflight asks for.
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'",
	}))

	srv := &Server{
		cfg:     cfg,
		gateway: gw,
		app:     e,
		address: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg)
	slog.Info("starting server", "addr", s.address, "provider", s.cfg.Provider.Kind, "model", s.cfg.Provider.Model)

	// No write timeout: a chat turn lasts as long as the provider takes.
	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/", s.handleIndex)
	s.app.GET("/api/health", s.handleHealth)
	s.app.POST("/api/chat", s.handleChat)
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(c echo.Context) error {
	var req translator.ChatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	if limit := s.cfg.Chat.MaxHistory; limit > 0 && len(req.History) > limit {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("history has %d turns, the limit is %d", len(req.History), limit),
			Type:    "invalid_request_error",
			Code:    "history_too_long",
		}
	}

	// A turn runs to completion even if the caller disconnects.
	ctx := context.WithoutCancel(c.Request().Context())
	reply := s.gateway.Reply(ctx, req.Message, req.HistoryMessages())

	return c.JSON(http.StatusOK, translator.ChatResponse{Response: reply})
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		case errors.As(err, &tooLarge):
			return requestError{
				Status:  http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				Type:    "invalid_request_error",
			}
		case errors.Is(err, translator.ErrInvalidRequest):
			return requestError{
				Status:  http.StatusBadRequest,
				Message: err.Error(),
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, http.StatusText(he.Code), "invalid_request_error", "")
		return
	}

	slog.Error("unhandled error", "uri", c.Request().RequestURI, "err", err)
	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

func printStartupBanner(cfg config.Config) {
	host := cfg.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	fmt.Println()
	fmt.Println("chat-gateway ready")
	fmt.Printf("Listening on http://%s:%d (provider %s, model %s)\n", host, cfg.Server.Port, cfg.Provider.Kind, cfg.Provider.Model)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /")
	fmt.Println("  GET  /api/health")
	fmt.Println("  POST /api/chat")
	fmt.Printf("Example:\n  curl http://%s:%d/api/chat -H 'Content-Type: application/json' -d '{\"message\":\"hello\",\"history\":[]}'\n\n", host, cfg.Server.Port)
}
