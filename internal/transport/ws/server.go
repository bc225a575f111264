package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"chunkfield.dev/internal/protocol"
	"chunkfield.dev/internal/sim/tuning"
	"chunkfield.dev/internal/sim/world"
)

type Server struct {
	world  *world.World
	log    *log.Logger
	limits tuning.Limits

	nextSession atomic.Uint64
	upgrader    websocket.Upgrader
}

// NewServer wires a world behind a websocket endpoint. Zero fields in limits
// fall back to the tuning defaults.
func NewServer(w *world.World, limits tuning.Limits, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	def := tuning.Default().Limits
	if limits.MaxQueue <= 0 {
		limits.MaxQueue = def.MaxQueue
	}
	if limits.MaxCmdBytes <= 0 {
		limits.MaxCmdBytes = def.MaxCmdBytes
	}
	if limits.ReadTimeoutS <= 0 {
		limits.ReadTimeoutS = def.ReadTimeoutS
	}
	if limits.WriteTimeoutS <= 0 {
		limits.WriteTimeoutS = def.WriteTimeoutS
	}
	s := &Server{
		world:  w,
		log:    logger,
		limits: limits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) readTimeout() time.Duration {
	return time.Duration(s.limits.ReadTimeoutS) * time.Second
}

func (s *Server) writeTimeout() time.Duration {
	return time.Duration(s.limits.WriteTimeoutS) * time.Second
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.SetReadLimit(int64(s.limits.MaxCmdBytes))

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout()))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.reject(out, "", "malformed message")
				continue
			}
			if base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				s.reject(out, "", "malformed CMD")
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				s.reject(out, cmd.ID, "unsupported protocol_version")
				continue
			}
			s.world.Inbox() <- world.CmdEnvelope{SessionID: sessionID, Cmd: cmd, Out: out}
		}
	}
}

// reject answers an unparseable or mis-versioned frame with a failed RESULT
// instead of dropping it on the floor. Best effort: a full queue wins.
func (s *Server) reject(out chan []byte, id, msg string) {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              id,
		OK:              false,
		Code:            protocol.ErrProtoBadRequest,
		Message:         msg,
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.closeViolation(conn, protocol.ErrProtoBadRequest+": expected HELLO")
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.closeViolation(conn, protocol.ErrProtoBadRequest+": malformed HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		s.closeViolation(conn, protocol.ErrProtoBadRequest+": bad protocol_version")
		return "", nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > s.limits.MaxQueue {
		maxQ = s.limits.MaxQueue
	}
	out = make(chan []byte, maxQ)

	sessionID = fmt.Sprintf("S%d", s.nextSession.Add(1))
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		GridParams:      s.world.Params(),
	}
	if err := s.writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	return sessionID, out
}

func (s *Server) closeViolation(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
	return conn.WriteMessage(websocket.TextMessage, b)
}
