package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"youcube/contract"
	"youcube/domain"
	"youcube/services"

	"github.com/gorilla/websocket"
)

// Dispatcher is the action table a session routes messages through.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg services.Message, progress contract.ProgressSink) (domain.Response, bool)
}

var _ contract.ProgressSink = (*Session)(nil)

// Session serves one websocket connection.
// Messages are handled strictly one after the other and each dispatched
// message gets at most one response, in request order.
// Reading happens on its own goroutine so control frames and disconnects are
// observed while a handler waits on a background download.
type Session struct {
	conn         *websocket.Conn
	log          *slog.Logger
	dispatcher   Dispatcher
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

func NewSession(conn *websocket.Conn, log *slog.Logger, dispatcher Dispatcher, writeTimeout time.Duration) *Session {
	return &Session{
		conn:         conn,
		log:          log,
		dispatcher:   dispatcher,
		writeTimeout: writeTimeout,
	}
}

// Serve blocks until the peer disconnects or ctx is canceled.
func (s *Session) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()

	inbound := make(chan []byte)
	go s.readPump(ctx, cancel, inbound)

	for {
		select {
		case <-ctx.Done():
			s.closeGracefully()
			return
		case data, ok := <-inbound:
			if !ok {
				return
			}
			s.handle(ctx, data)
		}
	}
}

// readPump hands over one message at a time, it blocks until the previous
// one has been taken by the serving loop.
func (s *Session) readPump(ctx context.Context, cancel context.CancelFunc, inbound chan<- []byte) {
	defer close(inbound)
	defer cancel()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Connection lost", "error", err)
			} else {
				s.log.Info("Disconnected")
			}
			return
		}
		select {
		case inbound <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) handle(ctx context.Context, data []byte) {
	s.log.Debug("Message", "message", string(data))

	msg, err := services.DecodeMessage(data)
	if err != nil {
		s.log.Debug(domain.MsgParseFailed, "error", err)
		s.send(domain.NewErrorResponse(domain.MsgParseFailed))
		return
	}

	resp, ok := s.dispatcher.Dispatch(ctx, msg, s)
	if !ok {
		return
	}
	s.send(resp)
}

// Notify pushes a progress message of a running download.
func (s *Session) Notify(message string) {
	s.send(domain.NewStatusResponse(message))
}

func (s *Session) send(resp domain.Response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteJSON(resp); err != nil {
		s.log.Warn("Failed to send response", "action", resp.ActionName(), "error", err)
	}
}

func (s *Session) closeGracefully() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
