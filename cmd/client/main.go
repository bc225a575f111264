package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"chunkfield.dev/internal/protocol"
)

// A thin CLI client: one command per invocation.
//
//	client -op set -pos 16,16 -value 16
//	client -op view_rect -pos 15,15 -w 4 -h 4
func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "cli", "client name")
		op    = flag.String("op", "get", "grid operation")
		pos   = flag.String("pos", "", "world coordinate x,y")
		chunk = flag.String("chunk", "", "chunk coordinate cx,cy")
		value = flag.Int("value", -1, "cell value for set")
		w     = flag.Int("w", 0, "view_rect width")
		h     = flag.Int("h", 0, "view_rect height")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[client] ", log.LstdFlags)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	logger.Printf("session %s, chunk_size %d", welcome.SessionID, welcome.GridParams.ChunkSize)

	cmd := protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "c1",
		Op:              *op,
		W:               *w,
		H:               *h,
	}
	if *pos != "" {
		cmd.Pos = parsePair(logger, "pos", *pos)
	}
	if *chunk != "" {
		cmd.Chunk = parsePair(logger, "chunk", *chunk)
	}
	if *value >= 0 {
		v := uint16(*value)
		cmd.Value = &v
	}

	if err := conn.WriteJSON(cmd); err != nil {
		logger.Fatalf("send CMD: %v", err)
	}
	var res protocol.ResultMsg
	if err := conn.ReadJSON(&res); err != nil {
		logger.Fatalf("read RESULT: %v", err)
	}
	if !res.OK {
		logger.Fatalf("%s failed: %s %s", res.Op, res.Code, res.Message)
	}
	switch {
	case res.Value != nil:
		fmt.Println(*res.Value)
	case res.Removed != nil:
		fmt.Println(*res.Removed)
	case res.Chunk != nil:
		fmt.Printf("chunk %v local %v\n", *res.Chunk, *res.Local)
	case res.Context != nil:
		fmt.Printf("biome %s noise %d\n", res.Context.Biome, res.Context.Noise)
	case res.View != nil:
		fmt.Printf("view origin %v %dx%d %s %s\n", res.View.Origin, res.View.W, res.View.H, res.View.Encoding, res.View.Data)
	default:
		fmt.Println("ok")
	}
}

func parsePair(logger *log.Logger, flagName, s string) *[2]int {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		logger.Fatalf("-%s wants x,y got %q", flagName, s)
	}
	a, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		logger.Fatalf("-%s wants integers, got %q", flagName, s)
	}
	return &[2]int{a, b}
}
