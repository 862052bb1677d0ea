// Package devproxy implements the local development server: it serves the
// built console from disk and forwards /api calls to the ZMQ backend, so
// the browser and the CLI can use one origin during development.
package devproxy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"ZMQ_utils/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the id used to correlate proxy logs with backend logs.
const RequestIDHeader = "X-Request-ID"

// Server is the dev server. Create it with New.
type Server struct {
	cfg    config.DevServer
	log    log.FieldLogger
	target *url.URL
	proxy  *httputil.ReverseProxy
	engine *gin.Engine
}

// New builds a dev server for cfg. It does not listen until Run is called.
func New(cfg config.DevServer, logger log.FieldLogger) (*Server, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	target, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("proxy target must use http or https scheme, got: %q", target.Scheme)
	}

	s := &Server{
		cfg:    cfg,
		log:    logger.WithField("component", "devproxy"),
		target: target,
	}
	s.proxy = s.newReverseProxy()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Any("/api/*path", s.handleAPI)
	engine.NoRoute(s.handleStatic)
	s.engine = engine

	return s, nil
}

func (s *Server) newReverseProxy() *httputil.ReverseProxy {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !s.cfg.Secure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(s.target)
			r.SetXForwarded()
			if !s.cfg.ChangeOrigin {
				r.Out.Host = r.In.Host
			}
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.log.WithFields(log.Fields{
				"path":       r.URL.Path,
				"request_id": r.Header.Get(RequestIDHeader),
			}).WithError(err).Warn("proxy error")
			writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("proxy error: %v", err))
		},
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured port until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(log.Fields{
			"addr":   srv.Addr,
			"target": s.target.String(),
		}).Info("dev server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error running dev server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down dev server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleAPI(c *gin.Context) {
	start := time.Now()

	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		c.Request.Header.Set(RequestIDHeader, requestID)
	}
	c.Header(RequestIDHeader, requestID)

	s.proxy.ServeHTTP(c.Writer, c.Request)

	s.log.WithFields(log.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     c.Writer.Status(),
		"duration":   time.Since(start).String(),
		"request_id": requestID,
	}).Info("proxied")
}

func (s *Server) handleStatic(c *gin.Context) {
	root := s.cfg.OutDir
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		writeJSONError(c.Writer, http.StatusNotFound, "not found")
		return
	}

	clean := path.Clean("/" + c.Request.URL.Path)
	if !s.cfg.Sourcemap && strings.HasSuffix(clean, ".map") {
		writeJSONError(c.Writer, http.StatusNotFound, "not found")
		return
	}

	name := filepath.Join(root, filepath.FromSlash(clean))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		c.File(name)
		return
	}

	index := filepath.Join(root, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeJSONError(c.Writer, http.StatusNotFound, "not found")
		return
	}
	c.File(index)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
