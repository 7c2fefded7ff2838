package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"crystalmaster.io/internal/protocol"
	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/session"
	"crystalmaster.io/internal/sim/tuning"
	"crystalmaster.io/internal/sim/world"
)

func startServer(t *testing.T) (*session.Session, string) {
	t.Helper()
	sess, err := session.New(session.Config{
		World:    world.Config{Seed: 31337, Tuning: tuning.Defaults()},
		Registry: catalogs.Defaults(),
		RunID:    "ws-run",
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sess.Run(ctx)
		close(done)
	}()
	srv := httptest.NewServer(NewServer(sess, 4, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return sess, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil returns the first message of the given type.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type == typ {
			return b
		}
	}
}

func hello(name string, controller bool) protocol.HelloMsg {
	return protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ObserverName: name, Controller: controller}
}

func TestHandshakeAndFrames(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	send(t, conn, hello("viewer", true))

	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeWelcome), &welcome); err != nil {
		t.Fatal(err)
	}
	if !welcome.Controller || welcome.RunID != "ws-run" || welcome.World.Seed != 31337 || welcome.SessionID == "" {
		t.Fatalf("welcome %+v", welcome)
	}

	var f1, f2 protocol.FrameMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeFrame), &f1); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeFrame), &f2); err != nil {
		t.Fatal(err)
	}
	if f2.Tick <= f1.Tick || len(f1.Rows) == 0 || len(f1.Digest) != 64 {
		t.Fatalf("frames %d then %d rows=%d", f1.Tick, f2.Tick, len(f1.Rows))
	}

	send(t, conn, protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version, MoveH: 2})
	var e protocol.ErrorMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeError), &e); err != nil {
		t.Fatal(err)
	}
	if e.Code != protocol.ErrBadRequest {
		t.Fatalf("code=%s", e.Code)
	}
}

func TestSecondControllerIsDenied(t *testing.T) {
	_, url := startServer(t)
	first := dial(t, url)
	send(t, first, hello("one", true))
	readUntil(t, first, protocol.TypeWelcome)

	second := dial(t, url)
	send(t, second, hello("two", true))
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readUntil(t, second, protocol.TypeWelcome), &welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Controller {
		t.Fatalf("second observer got control")
	}

	send(t, second, protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version, Drill: true})
	var e protocol.ErrorMsg
	if err := json.Unmarshal(readUntil(t, second, protocol.TypeError), &e); err != nil {
		t.Fatal(err)
	}
	if e.Code != protocol.ErrInputDenied {
		t.Fatalf("code=%s", e.Code)
	}
}

func TestHandshakeRejections(t *testing.T) {
	_, url := startServer(t)

	conn := dial(t, url)
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1"})
	var e protocol.ErrorMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeError), &e); err != nil {
		t.Fatal(err)
	}
	if e.Code != protocol.ErrProtoVersion {
		t.Fatalf("code=%s", e.Code)
	}

	conn2 := dial(t, url)
	send(t, conn2, protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version})
	if err := json.Unmarshal(readUntil(t, conn2, protocol.TypeError), &e); err != nil {
		t.Fatal(err)
	}
	if e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("code=%s", e.Code)
	}
}

func TestJoinAfterStop(t *testing.T) {
	sess, url := startServer(t)
	sess.Stop()
	conn := dial(t, url)
	send(t, conn, hello("late", false))
	var e protocol.ErrorMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeError), &e); err != nil {
		t.Fatal(err)
	}
	if e.Code != protocol.ErrSessionOver {
		t.Fatalf("code=%s", e.Code)
	}
}

func TestDecodeInput(t *testing.T) {
	in, code, _ := decodeInput([]byte(`{"type":"INPUT","protocol_version":"1.0","move_h":-1,"drill":true,"break":{"x":3,"y":4}}`))
	if code != "" || in.MoveH != -1 || !in.Drill || in.Break == nil || in.Break.Y != 4 {
		t.Fatalf("in=%+v code=%s", in, code)
	}
	if _, code, _ := decodeInput([]byte(`{`)); code != protocol.ErrProtoBadRequest {
		t.Fatalf("code=%s", code)
	}
	if _, code, _ := decodeInput([]byte(`{"type":"INPUT","protocol_version":"2.0"}`)); code != protocol.ErrProtoVersion {
		t.Fatalf("code=%s", code)
	}
}
