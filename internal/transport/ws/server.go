package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/logging"
	"crystalmaster.io/internal/protocol"
	"crystalmaster.io/internal/sim/session"
	"crystalmaster.io/internal/sim/world"
)

type Server struct {
	sess  *session.Session
	log   logrus.FieldLogger
	queue int

	upgrader websocket.Upgrader
}

// NewServer serves observers of sess. queue bounds each observer's pending
// frames.
func NewServer(sess *session.Session, queue int, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	if queue <= 0 {
		queue = 1
	}
	if queue > 64 {
		queue = 64
	}
	return &Server{
		sess:  sess,
		log:   logger,
		queue: queue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		resp, out := s.handshake(r.Context(), conn)
		if resp.ObserverID == "" {
			return
		}
		log := s.log.WithField("observer", resp.ObserverID)
		defer s.sess.Leave(resp.ObserverID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errs := make(chan []byte, 4)

		// Writer goroutine. It is the only writer after the handshake.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case b = <-errs:
				case b = <-out:
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					_ = conn.Close()
					return
				}
			}
		}()

		sendErr := func(code, msg string) {
			b, _ := json.Marshal(protocol.NewError(code, msg))
			select {
			case errs <- b:
			default:
			}
		}

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			in, code, detail := decodeInput(msg)
			if code != "" {
				sendErr(code, detail)
				continue
			}
			if !resp.Controller {
				sendErr(protocol.ErrInputDenied, "observer does not hold control")
				continue
			}
			if !s.sess.Submit(resp.ObserverID, in) {
				sendErr(protocol.ErrRateLimit, "input queue full")
			}
		}
		log.Debug("observer disconnected")
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (session.JoinResponse, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return session.JoinResponse{}, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "expected HELLO"))
		return session.JoinResponse{}, nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "bad HELLO"))
		return session.JoinResponse{}, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoVersion, "bad protocol_version"))
		return session.JoinResponse{}, nil
	}
	if hello.ObserverName == "" {
		hello.ObserverName = "observer"
	}

	out := make(chan []byte, s.queue)
	jctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := s.sess.Join(jctx, hello.ObserverName, hello.Controller, out)
	if err != nil {
		code := protocol.ErrInternal
		if errors.Is(err, session.ErrStopped) {
			code = protocol.ErrSessionOver
		}
		_ = writeJSON(conn, protocol.NewError(code, err.Error()))
		return session.JoinResponse{}, nil
	}
	if err := writeRaw(conn, resp.Welcome); err != nil {
		s.sess.Leave(resp.ObserverID)
		return session.JoinResponse{}, nil
	}
	return resp, out
}

// decodeInput validates an INPUT message. A non-empty code reports why it
// was rejected.
func decodeInput(msg []byte) (world.Input, string, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return world.Input{}, protocol.ErrProtoBadRequest, "invalid json"
	}
	if base.Type != protocol.TypeInput {
		return world.Input{}, protocol.ErrProtoBadRequest, "unexpected message type " + base.Type
	}
	var m protocol.InputMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return world.Input{}, protocol.ErrProtoBadRequest, "bad INPUT"
	}
	if m.ProtocolVersion != protocol.Version {
		return world.Input{}, protocol.ErrProtoVersion, "bad protocol_version"
	}
	if m.MoveH < -1 || m.MoveH > 1 {
		return world.Input{}, protocol.ErrBadRequest, "move_h must be -1, 0 or 1"
	}
	in := world.Input{MoveH: m.MoveH, Jump: m.Jump, Up: m.Up, Drill: m.Drill, Fire: m.Fire}
	if m.Break != nil {
		in.Break = &world.Point{X: m.Break.X, Y: m.Break.Y}
	}
	return in, "", ""
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(conn, b)
}

func writeRaw(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
