package wsstt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/voiceloop/speech"
)

// echoServer 收到二进制帧后按固定文本回发一条 final 结果
type echoServer struct {
	mu       sync.Mutex
	query    string
	auth     string
	received [][]byte
}

func (e *echoServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.query = r.URL.RawQuery
		e.auth = r.Header.Get("Authorization")
		e.mu.Unlock()

		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}
			e.mu.Lock()
			e.received = append(e.received, data)
			e.mu.Unlock()

			reply, _ := json.Marshal(transcriptMessage{Text: "hello world", Final: true, Confidence: 0.92})
			if err := conn.Write(ctx, websocket.MessageText, reply); err != nil {
				return
			}
		}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartStream_PushAndReceive(t *testing.T) {
	es := &echoServer{}
	srv := httptest.NewServer(es.handler(t))
	defer srv.Close()

	p := New(Config{URL: wsURL(srv), APIKey: "secret"}, nil)
	s, err := p.StartStream(context.Background(), 16000)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Push(speech.Frame{PCM: []byte{1, 2, 3, 4}, SampleRate: 16000}))

	select {
	case tr, ok := <-s.Results():
		require.True(t, ok)
		assert.Equal(t, "hello world", tr.Text)
		assert.True(t, tr.Final)
		assert.InDelta(t, 0.92, tr.Confidence, 0.001)
		assert.False(t, tr.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript received")
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	assert.Contains(t, es.query, "sample_rate=16000")
	assert.Equal(t, "Token secret", es.auth)
	require.Len(t, es.received, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, es.received[0])
}

func TestPush_EmptyFrameIsSkipped(t *testing.T) {
	es := &echoServer{}
	srv := httptest.NewServer(es.handler(t))
	defer srv.Close()

	p := New(Config{URL: wsURL(srv)}, nil)
	s, err := p.StartStream(context.Background(), 16000)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Push(speech.Frame{}))

	es.mu.Lock()
	defer es.mu.Unlock()
	assert.Empty(t, es.received)
}

func TestClose_ClosesResultsChannel(t *testing.T) {
	srv := httptest.NewServer((&echoServer{}).handler(t))
	defer srv.Close()

	p := New(Config{URL: wsURL(srv)}, nil)
	s, err := p.StartStream(context.Background(), 16000)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case _, ok := <-s.Results():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("results channel not closed")
	}
}

func TestServerDisconnect_ClosesResultsChannel(t *testing.T) {
	srv := httptest.NewServer(func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			require.NoError(t, err)
			conn.Close(websocket.StatusGoingAway, "shutting down")
		}
	}())
	defer srv.Close()

	p := New(Config{URL: wsURL(srv)}, nil)
	s, err := p.StartStream(context.Background(), 16000)
	require.NoError(t, err)
	defer s.Close()

	select {
	case _, ok := <-s.Results():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("results channel not closed after disconnect")
	}
}

func TestStartStream_DialFailure(t *testing.T) {
	p := New(Config{URL: "ws://127.0.0.1:1"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := p.StartStream(ctx, 16000)
	require.Error(t, err)
}
