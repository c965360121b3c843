package bridge_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/llmbridge/pkg/bridge"
)

// fakeOllama serves the three endpoints the bridge uses.
func fakeOllama(t *testing.T, models []string, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"version":"0.1.0"}`)
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		var list struct {
			Models []model `json:"models"`
		}
		for _, m := range models {
			list.Models = append(list.Models, model{Name: m})
		}
		_ = json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type pipeOpener struct {
	conns chan net.Conn
}

func (p *pipeOpener) Open(ctx context.Context) (bridge.Transport, error) {
	select {
	case c := <-p.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeOpener) Name() string { return "pipe" }

type recorder struct {
	mu   sync.Mutex
	sent []string
}

func (r *recorder) Forward(ctx context.Context, raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, raw)
	return nil
}

func (r *recorder) frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

type peer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func (p *peer) send(s string) {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := p.conn.Write([]byte(s))
	require.NoError(p.t, err)
}

func (p *peer) recv() map[string]any {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := p.r.ReadBytes('\n')
	require.NoError(p.t, err)
	var v map[string]any
	require.NoError(p.t, json.Unmarshal(line, &v), "line %q", line)
	return v
}

func testConfig(backendURL string) bridge.Config {
	cfg := bridge.DefaultConfig()
	cfg.Transport = "stdio"
	cfg.BackendURL = backendURL
	cfg.Forward = "none"
	return cfg
}

func newPeer(t *testing.T) (*pipeOpener, *peer) {
	bridgeSide, deviceSide := net.Pipe()
	t.Cleanup(func() { deviceSide.Close() })
	opener := &pipeOpener{conns: make(chan net.Conn, 1)}
	opener.conns <- bridgeSide
	return opener, &peer{t: t, conn: deviceSide, r: bufio.NewReader(deviceSide)}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := bridge.DefaultConfig()
	cfg.Transport = "carrier-pigeon"

	_, err := bridge.New(cfg)

	assert.ErrorIs(t, err, bridge.ErrInvalidConfig)
}

func TestBridge_Lifecycle(t *testing.T) {
	srv := fakeOllama(t, nil, "")
	opener, _ := newPeer(t)

	var mu sync.Mutex
	var seen []bridge.State
	b, err := bridge.New(testConfig(srv.URL),
		bridge.WithTransport(opener),
		bridge.WithStateHandler(func(_, current bridge.State, _ string) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, current)
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, bridge.StateStopped, b.Status())
	assert.ErrorIs(t, b.Stop(), bridge.ErrNotRunning)

	require.NoError(t, b.Start(context.Background()))
	assert.ErrorIs(t, b.Start(context.Background()), bridge.ErrAlreadyRunning)
	require.Eventually(t, func() bool { return b.Status() == bridge.StateRunning }, time.Second, time.Millisecond)

	require.NoError(t, b.Stop())
	assert.Equal(t, bridge.StateStopped, b.Status())
	assert.NoError(t, b.Wait())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bridge.State{
		bridge.StateStarting, bridge.StateRunning, bridge.StateStopping, bridge.StateStopped,
	}, seen)
}

func TestBridge_SetupAndStream(t *testing.T) {
	srv := fakeOllama(t, []string{"llama3"},
		`{"response":"Hel","done":false}`+"\n"+
			`{"response":"lo","done":false}`+"\n"+
			`{"response":"","done":true}`+"\n")
	opener, dev := newPeer(t)
	fwd := &recorder{}

	now := time.UnixMilli(1_700_000_054_321)
	b, err := bridge.New(testConfig(srv.URL),
		bridge.WithTransport(opener),
		bridge.WithForwarder(fwd),
		bridge.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Stop() })

	setup := `{"work_id":"llm","action":"setup","request_id":"s1","object":"llm.setup","data":{"model":"llama3"}}`
	dev.send(setup)

	reply := dev.recv()
	assert.Equal(t, "s1", reply["request_id"])
	assert.Equal(t, "llm_54321", reply["work_id"])
	assert.Equal(t, "llm.setup", reply["object"])
	assert.Equal(t, []string{setup}, fwd.frames())

	dev.send(`{"work_id":"llm_54321","action":"inference","request_id":"llm_inference","object":"llm.utf-8.stream","data":{"delta":"hi","index":0,"finish":true}}`)

	var deltas []string
	for {
		env := dev.recv()
		assert.Equal(t, "llm_inference", env["request_id"])
		assert.Equal(t, "llm.utf-8.stream", env["object"])
		data := env["data"].(map[string]any)
		if data["finish"] == true {
			assert.Equal(t, float64(2), data["index"])
			break
		}
		deltas = append(deltas, data["delta"].(string))
	}
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
}

func TestBridge_UnknownModel(t *testing.T) {
	srv := fakeOllama(t, []string{"mistral"}, "")
	opener, dev := newPeer(t)

	b, err := bridge.New(testConfig(srv.URL), bridge.WithTransport(opener))
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Stop() })

	dev.send(`{"work_id":"llm","action":"setup","request_id":"s2","data":{"model":"llama3"}}`)

	reply := dev.recv()
	assert.Equal(t, map[string]any{"code": float64(2), "message": "Model not found"}, reply["error"])
}

func TestBridge_InjectReachesDevice(t *testing.T) {
	srv := fakeOllama(t, nil, "")
	opener, dev := newPeer(t)

	b, err := bridge.New(testConfig(srv.URL), bridge.WithTransport(opener))
	require.NoError(t, err)
	assert.ErrorIs(t, b.Inject(context.Background(), []byte("{}")), bridge.ErrNotRunning)

	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Stop() })
	require.Eventually(t, func() bool {
		return b.Inject(context.Background(), []byte(`{"work_id":"sys","action":"ping","request_id":"i"}`)) == nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "i", dev.recv()["request_id"])
}
