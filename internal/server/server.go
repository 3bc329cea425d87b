// Package server provides the request-logging endpoint: it accepts any
// request, logs it with opaque values truncated, and answers "hello".
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gookit/slog"

	"github.com/jonathan/teams-newsbot/internal/logging"
)

// Config holds server configuration
type Config struct {
	Port int
	// Debug switches gin into debug mode.
	Debug bool
	// Log receives every line; nil means logging.Log.
	Log *slog.Logger
	// SpecialLog receives ChatAI request lines; nil means Log.
	SpecialLog *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	counter    *RequestCounter
	log        *slog.Logger
	specialLog *slog.Logger
}

// New creates a new server instance
func New(cfg Config) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		counter:    &RequestCounter{},
		log:        cfg.Log,
		specialLog: cfg.SpecialLog,
	}
	if s.log == nil {
		s.log = logging.Log
	}
	if s.specialLog == nil {
		s.specialLog = s.log
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.NoRoute(s.handleAny)
	s.engine = r

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errs := make(chan error, 1)
	go func() {
		logging.InfoWithFields("server starting", logging.Fields{"addr": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	logging.Log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleAny(c *gin.Context) {
	requestID := s.counter.Next()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.log.Errorf("[ERROR] %s - failed to read request body: %v", requestID, err)
		c.String(http.StatusInternalServerError, "Error: %v", err)
		return
	}

	client := ClientAppName(c.ContentType(), body, c.GetHeader("Referer"))
	confidential := s.logRequest(requestID, c.Request, body, client)

	if ok, msg := validateRequest(c.Request, c.Request.URL.Path); !ok {
		payload, _ := json.Marshal(map[string]string{"content": msg})
		s.logResponse(requestID, http.StatusBadRequest, c.Writer.Header(), payload, confidential)
		c.Data(http.StatusBadRequest, "application/json", payload)
		return
	}

	payload := []byte("hello")
	c.Header("Content-Type", "text/plain; charset=utf-8")
	s.logResponse(requestID, http.StatusOK, c.Writer.Header(), payload, confidential)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", payload)
}

// logRequest writes the request line and reports whether the body asked
// for confidential handling.
func (s *Server) logRequest(requestID string, r *http.Request, body []byte, client string) bool {
	truncated, confidential := ParseAndTruncateBody(body, false)

	logger := s.log
	if client == ClientChatAI {
		logger = s.specialLog
	}
	logger.Infof("[REQ_%s] %s - %s %s HEADER:%v BODY:%s",
		logTag(client), requestID, r.Method, requestURL(r), map[string][]string(r.Header), truncated)
	return confidential
}

func (s *Server) logResponse(requestID string, status int, header http.Header, body []byte, confidential bool) {
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		s.log.Infof("[RESP] %s - %d HEADER:%v BODY: Non-JSON response", requestID, status, map[string][]string(header))
		return
	}
	truncated, _ := ParseAndTruncateBody(body, confidential)
	s.log.Infof("[RESP] %s - %d HEADER:%v BODY:%s", requestID, status, map[string][]string(header), truncated)
}

// validateRequest is the hook for rejecting requests. Everything is accepted.
func validateRequest(_ *http.Request, _ string) (bool, string) {
	return true, ""
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.RequestURI())
}
