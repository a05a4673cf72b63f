// Package server exposes a session over HTTP: the browser client is served
// from embedded assets and talks to the session over a websocket at /sktk.
// A new websocket connection pre-empts the previous one.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/session"
	"github.com/tailored-agentic-units/sktalk/transport"
)

//go:embed assets
var assets embed.FS

// Server event types.
const (
	EventStart   observability.EventType = "server.start"
	EventStop    observability.EventType = "server.stop"
	EventRequest observability.EventType = "server.request"
	EventUpgrade observability.EventType = "server.upgrade"
)

const shutdownTimeout = 5 * time.Second

var templateVar = regexp.MustCompile(`{{([^{}]+)}}`)

// Option configures a Server.
type Option func(*Server)

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithListener serves on an existing listener instead of Host:Port.
func WithListener(l net.Listener) Option {
	return func(s *Server) { s.listener = l }
}

// Server serves one session.
type Server struct {
	cfg      Config
	session  *session.Session
	observer observability.Observer
	router   chi.Router
	upgrader websocket.Upgrader
	listener net.Listener
	index    []byte
}

// New creates a Server for sess.
func New(cfg *Config, sess *session.Session, opts ...Option) (*Server, error) {
	page, err := assets.ReadFile("assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read index page: %w", err)
	}

	s := &Server{
		cfg:      *cfg,
		session:  sess,
		observer: observability.NewSlogObserver(slog.Default()),
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.index = s.render(page)
	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.logging)

	r.Get("/", s.handleIndex)
	r.Get("/status", s.handleStatus)
	r.Get("/sktk", s.handleSocket)

	static, _ := fs.Sub(assets, "assets")
	files := http.FileServer(http.FS(static))
	r.Handle("/scripts/*", files)
	r.Handle("/style/*", files)

	return r
}

func (s *Server) render(page []byte) []byte {
	values := map[string]string{"title": s.cfg.Title}
	return templateVar.ReplaceAllFunc(page, func(m []byte) []byte {
		key := string(templateVar.FindSubmatch(m)[1])
		if v, ok := values[key]; ok {
			return []byte(v)
		}
		return []byte("!!" + key)
	})
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.observer.OnEvent(r.Context(), observability.NewEvent(EventRequest, observability.LevelVerbose, "server.logging", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.index)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	conn := transport.NewConn(ws, transport.WithObserver(s.observer))
	s.observer.OnEvent(r.Context(), observability.NewEvent(EventUpgrade, observability.LevelInfo, "server.handleSocket", map[string]any{
		"conn":   conn.ID(),
		"remote": r.RemoteAddr,
	}))

	if err := s.session.Bind(conn); err != nil {
		conn.Close()
		return
	}
	defer s.session.Unbind(conn)

	conn.Serve(r.Context(), func(ctx context.Context, c *transport.Conn, frame []byte) {
		if !s.session.Bound(c) {
			s.session.Preempted(c)
			c.Close()
			return
		}
		s.session.Recv(ctx, frame)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Listen binds the configured address unless a listener was provided.
func (s *Server) Listen() (net.Listener, error) {
	if s.listener != nil {
		return s.listener, nil
	}
	l, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = l
	return l, nil
}

// URL returns the address clients should open. Valid after Listen.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + "/"
}

// Run serves until ctx ends, then shuts down gracefully. Websocket
// connections are closed through their request contexts, which derive
// from ctx.
func (s *Server) Run(ctx context.Context) error {
	l, err := s.Listen()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	s.observer.OnEvent(ctx, observability.NewEvent(EventStart, observability.LevelInfo, "server.Run", map[string]any{
		"url": s.URL(),
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	s.observer.OnEvent(context.Background(), observability.NewEvent(EventStop, observability.LevelInfo, "server.Run", nil))
	return err
}
