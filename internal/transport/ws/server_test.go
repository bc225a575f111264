package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chunkfield.dev/internal/protocol"
	"chunkfield.dev/internal/sim/tuning"
	"chunkfield.dev/internal/sim/world"
)

func startServer(t *testing.T) string {
	return startServerWithLimits(t, tuning.Limits{})
}

func startServerWithLimits(t *testing.T, limits tuning.Limits) string {
	t.Helper()
	w, err := world.New(world.Config{ChunkSize: 16, Seed: 1337}, nil, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	srv := httptest.NewServer(NewServer(w, limits, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
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
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var v T
	if err := json.Unmarshal(msg, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return v
}

func TestHandshakeAndCommandRoundTrip(t *testing.T) {
	url := startServer(t)
	conn := dial(t, url)

	send(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "bot1",
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	})
	welcome := recv[protocol.WelcomeMsg](t, conn)
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID == "" {
		t.Fatalf("welcome: %+v", welcome)
	}
	if welcome.GridParams.ChunkSize != 16 || welcome.GridParams.Seed != 1337 {
		t.Fatalf("grid params: %+v", welcome.GridParams)
	}

	v := uint16(16)
	send(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "c1",
		Op:              protocol.OpSet,
		Pos:             &[2]int{16, 16},
		Value:           &v,
	})
	setRes := recv[protocol.ResultMsg](t, conn)
	if setRes.ID != "c1" || !setRes.OK {
		t.Fatalf("set result: %+v", setRes)
	}

	send(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "c2",
		Op:              protocol.OpGet,
		Pos:             &[2]int{16, 16},
	})
	getRes := recv[protocol.ResultMsg](t, conn)
	if getRes.ID != "c2" || !getRes.OK || getRes.Value == nil || *getRes.Value != 16 {
		t.Fatalf("get result: %+v", getRes)
	}
}

func handshake(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "bot1",
	})
	return recv[protocol.WelcomeMsg](t, conn)
}

func TestReader_AnswersMalformedFramesWithProtoBadRequest(t *testing.T) {
	url := startServer(t)
	conn := dial(t, url)
	handshake(t, conn)

	// Valid JSON that is not a command object.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`[1,2,3]`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := recv[protocol.ResultMsg](t, conn)
	if res.OK || res.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("garbage frame: ok=%v code=%s", res.OK, res.Code)
	}

	// Well-formed command on the wrong protocol version.
	send(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: "0.1",
		ID:              "c9",
		Op:              protocol.OpClear,
	})
	res = recv[protocol.ResultMsg](t, conn)
	if res.OK || res.Code != protocol.ErrProtoBadRequest || res.ID != "c9" {
		t.Fatalf("mis-versioned frame: %+v", res)
	}

	// The session survives the rejections.
	send(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "c10",
		Op:              protocol.OpClear,
	})
	res = recv[protocol.ResultMsg](t, conn)
	if !res.OK || res.ID != "c10" {
		t.Fatalf("clear after rejections: %+v", res)
	}
}

func TestReadLimit_ClosesOversizedSenders(t *testing.T) {
	url := startServerWithLimits(t, tuning.Limits{MaxCmdBytes: 256})
	conn := dial(t, url)
	handshake(t, conn)

	big := protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              strings.Repeat("x", 2048),
		Op:              protocol.OpClear,
	}
	send(t, conn, big)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close after exceeding read limit")
	}
}

func TestHandshake_RejectsNonHello(t *testing.T) {
	url := startServer(t)
	conn := dial(t, url)

	send(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "c1",
		Op:              protocol.OpClear,
	})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close for missing HELLO")
	}
}

func TestHandshake_RejectsVersionMismatch(t *testing.T) {
	url := startServer(t)
	conn := dial(t, url)

	send(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: "0.1",
		ClientName:      "bot1",
	})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close for bad protocol_version")
	}
}
