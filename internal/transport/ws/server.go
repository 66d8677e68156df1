package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tealeaf.ai/internal/protocol"
	"tealeaf.ai/internal/sim/world"
)

// Router is the part of the world the transport talks to.
type Router interface {
	Join() chan<- world.JoinRequest
	Inbox() chan<- world.InteractEnvelope
	Views() chan<- world.ViewRequest
}

type Server struct {
	world     Router
	validator *protocol.Validator
	log       *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w Router, v *protocol.Validator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[ws] ", log.LstdFlags)
	}
	return &Server{
		world:     w,
		validator: v,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
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

		actorID, maxQ := s.handshake(conn)
		if actorID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan any, maxQ)
		results := make(chan protocol.ResultMsg, maxQ)
		vessels := make(chan protocol.VesselMsg, maxQ)

		// Writer goroutine.
		go func() {
			for {
				var v any
				select {
				case <-ctx.Done():
					return
				case v = <-out:
				case v = <-results:
				case v = <-vessels:
				}
				if err := writeJSON(conn, v); err != nil {
					cancel()
					return
				}
			}
		}()

		send := func(v any) {
			select {
			case out <- v:
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
			base, err := s.validator.Validate(msg)
			if err != nil {
				send(errorMsg("", protocol.ErrProtoBadRequest, err.Error()))
				continue
			}
			if base.ProtocolVersion != protocol.Version {
				send(errorMsg("", protocol.ErrProtoBadRequest, "bad protocol_version"))
				continue
			}
			switch base.Type {
			case protocol.TypeInteract:
				var m protocol.InteractMsg
				if err := json.Unmarshal(msg, &m); err != nil {
					send(errorMsg("", protocol.ErrProtoBadRequest, err.Error()))
					continue
				}
				select {
				case s.world.Inbox() <- world.InteractEnvelope{ActorID: actorID, Msg: m, Resp: results}:
				default:
					send(errorMsg(m.RequestID, protocol.ErrWorldBusy, "world inbox full"))
				}
			case protocol.TypeView:
				var m protocol.ViewMsg
				if err := json.Unmarshal(msg, &m); err != nil {
					send(errorMsg("", protocol.ErrProtoBadRequest, err.Error()))
					continue
				}
				select {
				case s.world.Views() <- world.ViewRequest{Msg: m, Resp: vessels}:
				default:
					send(errorMsg(m.RequestID, protocol.ErrWorldBusy, "world view queue full"))
				}
			default:
				send(errorMsg("", protocol.ErrProtoBadRequest, "unexpected message type "+base.Type))
			}
		}
		s.log.Printf("actor %s disconnected", actorID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (actorID string, maxQ int) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", 0
	}

	base, err := s.validator.Validate(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", 0
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", 0
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", 0
	}
	if hello.ActorName == "" {
		hello.ActorName = "actor"
	}

	maxQ = hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}

	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{Name: hello.ActorName, Resp: respCh}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", 0
	}
	s.log.Printf("actor %s joined as %q", resp.Welcome.ActorID, hello.ActorName)
	return resp.Welcome.ActorID, maxQ
}

func errorMsg(requestID, code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		Code:            code,
		Message:         message,
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
