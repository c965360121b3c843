package forward

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/bft-labs/llmbridge/pkg/log"
)

const setupFrame = `{"work_id":"llm","action":"setup","request_id":"s","data":"llama3"}`

func TestHTTP_Forward(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		got <- string(body)
	}))
	defer srv.Close()

	if err := NewHTTP(srv.URL+"/from-serial", srv.Client()).Forward(context.Background(), setupFrame); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if body := <-got; body != setupFrame {
		t.Errorf("body = %q", body)
	}
}

func TestHTTP_ForwardNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewHTTP(srv.URL, nil).Forward(context.Background(), setupFrame); err == nil {
		t.Error("expected error for 502")
	}
}

func TestLog_Forward(t *testing.T) {
	if err := NewLog(log.NewNoopLogger()).Forward(context.Background(), setupFrame); err != nil {
		t.Errorf("Forward() error = %v", err)
	}
}

func startNATS(t *testing.T) *natsserver.Server {
	t.Helper()

	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   natsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("create nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("nats server failed to start")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func TestNATS_Forward(t *testing.T) {
	ns := startNATS(t)

	sub, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("bridge.test", msgs); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	sink, err := DialNATS(ns.ClientURL(), "bridge.test", log.NewNoopLogger())
	if err != nil {
		t.Fatalf("DialNATS() error = %v", err)
	}
	defer sink.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sink.Forward(ctx, setupFrame); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	select {
	case msg := <-msgs:
		if string(msg.Data) != setupFrame {
			t.Errorf("data = %q", msg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestNATS_DefaultSubject(t *testing.T) {
	if n := NewNATS(nil, ""); n.subject != DefaultSubject {
		t.Errorf("subject = %q, want %q", n.subject, DefaultSubject)
	}
}
