package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
	errs "youcube/errors"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const notAWebSocketClient = "You cannot access a WebSocket server directly. You need a WebSocket client."

// ServerConfig tunes the transport. Fast enables compression negotiation and
// pooled write buffers.
type ServerConfig struct {
	TrustedProxies []string
	NoColor        bool
	Fast           bool
	MaxMessageSize int64
	WriteTimeout   time.Duration
}

// Server upgrades requests on "/" and runs one Session per connection.
type Server struct {
	log        *slog.Logger
	dispatcher Dispatcher
	config     ServerConfig
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, dispatcher Dispatcher, config ServerConfig) *Server {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 8192,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	if config.Fast {
		upgrader.EnableCompression = true
		upgrader.WriteBufferPool = &sync.Pool{}
	}
	return &Server{
		log:        log,
		dispatcher: dispatcher,
		config:     config,
		upgrader:   upgrader,
	}
}

func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleWebSocket).Methods(http.MethodGet)
	return router
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, notAWebSocketClient, http.StatusUpgradeRequired)
		return
	}

	clientIP, err := ResolveClientIP(r, s.config.TrustedProxies)
	if errors.Is(err, errs.ErrUntrustedProxy) {
		s.log.Error(err.Error(), "peer", r.RemoteAddr)
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		s.log.Warn("Websocket upgrade failed", "client", clientIP, "error", err)
		return
	}
	if s.config.MaxMessageSize > 0 {
		conn.SetReadLimit(s.config.MaxMessageSize)
	}

	log := s.log.With("client", s.prefix(clientIP), "session_id", uuid.NewString())
	log.Info("Connected!")
	log.Debug("My headers are", "headers", r.Header)

	NewSession(conn, log, s.dispatcher, s.config.WriteTimeout).Serve(r.Context())
}

func (s *Server) prefix(clientIP string) string {
	prefix := fmt.Sprintf("[%s]", clientIP)
	if s.config.NoColor {
		return prefix
	}
	return color.Blue.Sprint(prefix)
}
