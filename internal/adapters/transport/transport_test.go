package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/bft-labs/llmbridge/internal/domain"
)

func TestTCP_OpenReadWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	opener := NewTCP(ln.Addr().String())
	if opener.Name() != "tcp:"+ln.Addr().String() {
		t.Errorf("Name() = %q", opener.Name())
	}

	conn, err := opener.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	var peer net.Conn
	select {
	case peer = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
	}
	defer peer.Close()

	if _, err := peer.Write([]byte(`{"a":1}`)); err != nil {
		t.Fatalf("peer write: %v", err)
	}
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if err != nil || string(buf[:n]) != `{"a":1}` {
		t.Errorf("Read() = %q, %v", buf[:n], err)
	}
}

func TestTCP_OpenRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := NewTCP(addr).Open(context.Background()); err == nil {
		t.Error("expected dial error")
	}
}

func TestStdio(t *testing.T) {
	var out bytes.Buffer
	s := &Stdio{in: strings.NewReader("in"), out: &out}

	conn, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 8)
	n, _ := conn.Read(buf)
	if string(buf[:n]) != "in" {
		t.Errorf("Read() = %q", buf[:n])
	}
	if _, err := conn.Write([]byte("out\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.String() != "out\n" {
		t.Errorf("out = %q", out.String())
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Open(canceled) = %v", err)
	}
}

func TestStdio_EOFClosesInput(t *testing.T) {
	s := &Stdio{in: strings.NewReader("{}"), out: io.Discard}

	conn, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 8)
	if n, err := conn.Read(buf); n != 2 || err != nil {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	if _, err := conn.Read(buf); !errors.Is(err, domain.ErrInputClosed) {
		t.Errorf("Read at EOF = %v, want ErrInputClosed", err)
	}
	if _, err := s.Open(context.Background()); !errors.Is(err, domain.ErrInputClosed) {
		t.Errorf("Open after EOF = %v, want ErrInputClosed", err)
	}
}

func TestSerial_OpenError(t *testing.T) {
	s := NewSerial("/dev/ttyNOPE", 0)
	if s.BaudRate != DefaultBaudRate {
		t.Errorf("BaudRate = %d, want %d", s.BaudRate, DefaultBaudRate)
	}
	var gotMode *serial.Mode
	s.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		gotMode = mode
		return nil, &serial.PortError{}
	}

	_, err := s.Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "/dev/ttyNOPE") {
		t.Errorf("Open() = %v", err)
	}
	if gotMode == nil || gotMode.BaudRate != DefaultBaudRate || gotMode.DataBits != 8 {
		t.Errorf("mode = %+v", gotMode)
	}
	if s.Name() != "serial:/dev/ttyNOPE" {
		t.Errorf("Name() = %q", s.Name())
	}
}

var _ io.ReadWriteCloser = (*stdioConn)(nil)
