package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/voiceloop/types"
)

func TestSynthesize_StreamsChunks(t *testing.T) {
	var gotReq synthesizeRequest
	audio := bytes.Repeat([]byte{0xAB}, 7000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write(audio)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL, Voice: "alto", ChunkSize: 3200}, nil)
	ch, err := p.Synthesize(context.Background(), "hello there")
	require.NoError(t, err)

	var total []byte
	var last bool
	for c := range ch {
		total = append(total, c.PCM...)
		last = c.Final
		assert.Equal(t, 16000, c.SampleRate)
	}

	assert.Equal(t, audio, total)
	assert.True(t, last, "final chunk flagged")
	assert.Equal(t, "hello there", gotReq.Text)
	assert.Equal(t, "alto", gotReq.Voice)
	assert.Equal(t, 16000, gotReq.SampleRate)
}

func TestSynthesize_CancelStopsStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{1}, 3200))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	p := New(Config{URL: srv.URL, ChunkSize: 3200}, nil)
	ch, err := p.Synthesize(ctx, "long sentence")
	require.NoError(t, err)

	select {
	case _, ok := <-ch:
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no first chunk")
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// 残留的缓冲块允许读到，通道必须随后关闭
			_, ok = <-ch
			assert.False(t, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSynthesize_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, nil)
	_, err := p.Synthesize(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderTransient, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
	assert.Contains(t, err.Error(), "overloaded")
}

func TestSynthesize_BadRequestIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, nil)
	_, err := p.Synthesize(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderFatal, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}

func TestSynthesize_EmptyBodyClosesChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, nil)
	ch, err := p.Synthesize(context.Background(), "hi")
	require.NoError(t, err)

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{URL: "http://localhost"}, nil)
	assert.Equal(t, "default", p.cfg.Voice)
	assert.Equal(t, 16000, p.cfg.SampleRate)
	assert.Equal(t, 3200, p.cfg.ChunkSize)
	assert.Equal(t, 30*time.Second, p.cfg.Timeout)
}
