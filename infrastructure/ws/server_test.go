package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"youcube/contract"
	"youcube/domain"
	"youcube/mocks"
	"youcube/services"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestServer(t *testing.T, runner contract.ITaskRunner, config ServerConfig) *httptest.Server {
	ctrl := gomock.NewController(t)
	logger := logs.GetLoggerFromLevel(slog.LevelDebug)
	dispatcher := services.NewDispatcher(logger, mocks.NewMockIChunkStore(ctrl), runner)
	server := httptest.NewServer(NewServer(logger, dispatcher, config).Routes())
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var payload map[string]any
	require.NoError(t, conn.ReadJSON(&payload))
	return payload
}

func TestServer_Handshake(t *testing.T) {
	req := require.New(t)
	conn := dial(t, newTestServer(t, nil, ServerConfig{NoColor: true}), nil)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"handshake"}`)))
	payload := readJSON(t, conn)

	req.Equal("handshake", payload["action"])
	req.Equal(map[string]any{"video": []any{"32vid"}, "audio": []any{"dfpwm"}}, payload["capabilities"])
}

func TestServer_InvalidJSONKeepsConnectionOpen(t *testing.T) {
	req := require.New(t)
	conn := dial(t, newTestServer(t, nil, ServerConfig{NoColor: true}), nil)

	// Given a message that is not JSON
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// Then exactly one error is returned
	payload := readJSON(t, conn)
	req.Equal(map[string]any{"action": "error", "message": domain.MsgParseFailed}, payload)

	// And the next valid message is still processed
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"handshake"}`)))
	req.Equal("handshake", readJSON(t, conn)["action"])
}

func TestServer_UnknownActionHasNoResponse(t *testing.T) {
	req := require.New(t)
	conn := dial(t, newTestServer(t, nil, ServerConfig{NoColor: true}), nil)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"unknown"}`)))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"handshake"}`)))

	// The first response received belongs to the second message
	req.Equal("handshake", readJSON(t, conn)["action"])
}

func TestServer_ValidationError(t *testing.T) {
	req := require.New(t)
	conn := dial(t, newTestServer(t, nil, ServerConfig{NoColor: true}), nil)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"get_chunk","chunkindex":1}`)))
	req.Equal(map[string]any{"action": "error", "message": "id must be a str"}, readJSON(t, conn))
}

func TestServer_RequestMediaStreamsProgressThenResult(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockITaskRunner(ctrl)

	runner.EXPECT().Submit(gomock.Any(), domain.DownloadRequest{URL: "https://a"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.DownloadRequest, progress contract.ProgressSink) (domain.DownloadResult, error) {
			progress.Notify("Downloading ...")
			return domain.DownloadResult{ID: "abc", Title: "A"}, nil
		})

	conn := dial(t, newTestServer(t, runner, ServerConfig{NoColor: true}), nil)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"request_media","url":"https://a"}`)))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"handshake"}`)))

	req.Equal(map[string]any{"action": "status", "message": "Downloading ..."}, readJSON(t, conn))
	media := readJSON(t, conn)
	req.Equal("media", media["action"])
	req.Equal("abc", media["id"])
	req.Equal("handshake", readJSON(t, conn)["action"])
}

func TestServer_PlainHTTPRequest(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil, ServerConfig{})

	resp, err := http.Get(server.URL + "/")
	req.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)

	req.Equal(http.StatusUpgradeRequired, resp.StatusCode)
	req.Contains(string(body), notAWebSocketClient)
}

func TestServer_UntrustedProxyIsRejected(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil, ServerConfig{TrustedProxies: []string{"203.0.113.9"}})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	header := http.Header{}
	header.Set("X-Forwarded-For", "1.2.3.4")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	// The server keeps accepting other clients
	conn := dial(t, server, nil)
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"handshake"}`)))
	req.Equal("handshake", readJSON(t, conn)["action"])
}

func TestServer_ResponsesAreJSONObjects(t *testing.T) {
	req := require.New(t)
	conn := dial(t, newTestServer(t, nil, ServerConfig{NoColor: true}), nil)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"handshake"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	messageType, data, err := conn.ReadMessage()
	req.NoError(err)
	req.Equal(websocket.TextMessage, messageType)
	req.True(json.Valid(data))
}

// blockingSubmit parks Submit until its context ends and reports that context.
func blockingSubmit(started chan<- struct{}, ended chan<- error) func(context.Context, domain.DownloadRequest, contract.ProgressSink) (domain.DownloadResult, error) {
	return func(ctx context.Context, _ domain.DownloadRequest, _ contract.ProgressSink) (domain.DownloadResult, error) {
		close(started)
		<-ctx.Done()
		ended <- ctx.Err()
		return domain.DownloadResult{}, ctx.Err()
	}
}

func TestServer_PingAnsweredWhileDownloadPending(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockITaskRunner(ctrl)
	started := make(chan struct{})
	ended := make(chan error, 1)

	runner.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(blockingSubmit(started, ended))

	conn := dial(t, newTestServer(t, runner, ServerConfig{NoColor: true}), nil)
	pongs := make(chan string, 1)
	conn.SetPongHandler(func(appData string) error {
		pongs <- appData
		return nil
	})
	// Control frames are only processed while reading
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Given a download that does not complete
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"request_media","url":"https://slow"}`)))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("download was not submitted")
	}

	// When the client pings
	req.NoError(conn.WriteControl(websocket.PingMessage, []byte("keep-alive"), time.Now().Add(time.Second)))

	// Then the pong arrives while the download is still pending
	select {
	case appData := <-pongs:
		req.Equal("keep-alive", appData)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong while download pending")
	}
	req.Empty(ended)
}

func TestServer_DisconnectCancelsPendingDownload(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockITaskRunner(ctrl)
	started := make(chan struct{})
	ended := make(chan error, 1)

	runner.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(blockingSubmit(started, ended))

	conn := dial(t, newTestServer(t, runner, ServerConfig{NoColor: true}), nil)

	// Given a pending download
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"request_media","url":"https://slow"}`)))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("download was not submitted")
	}

	// When the client goes away
	req.NoError(conn.Close())

	// Then the wait is canceled
	select {
	case err := <-ended:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect did not cancel the pending download")
	}
}
