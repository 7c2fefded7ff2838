package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/logging"
	"crystalmaster.io/internal/protocol"
	"crystalmaster.io/internal/sim/encoding"
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "observer name")
		ctl  = flag.Bool("control", true, "ask to drive the player")
	)
	flag.Parse()

	logging.Init()
	logger := logging.For("bot")
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.WithError(err).Fatal("dial")
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ObserverName:    *name,
		Controller:      *ctl,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.WithError(err).Fatal("send HELLO")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{log: logger}
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			b.width = w.World.WidthTiles
			b.tile = w.World.TileSize
			b.control = w.Controller
			logger.WithFields(logrus.Fields{
				"session_id": w.SessionID,
				"run_id":     w.RunID,
				"seed":       w.World.Seed,
				"controller": w.Controller,
			}).Info("WELCOME")

		case protocol.TypeFrame:
			var f protocol.FrameMsg
			if err := json.Unmarshal(msg, &f); err != nil {
				continue
			}
			if in, ok := b.handleFrame(&f); ok {
				_ = conn.WriteJSON(in)
			}
			if f.State != "PLAYING" {
				logger.WithFields(logrus.Fields{"tick": f.Tick, "state": f.State}).Info("run over")
				return
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err == nil {
				logger.WithFields(logrus.Fields{"code": e.Code, "message": e.Message}).Warn("server error")
			}
		}
	}
}

type bot struct {
	log     logrus.FieldLogger
	width   int
	tile    int
	control bool

	dir    int
	lastIn protocol.InputMsg
	sent   bool
}

// handleFrame picks the next held input. It reports false when the input
// is unchanged and need not be sent.
func (b *bot) handleFrame(f *protocol.FrameMsg) (protocol.InputMsg, bool) {
	if f.Tick%120 == 0 {
		b.logFrame(f)
	}
	if !b.control || f.Player == nil || b.tile <= 0 {
		return protocol.InputMsg{}, false
	}
	if b.dir == 0 {
		b.dir = 1
	}
	px := int(f.Player.X) / b.tile
	if px <= 1 {
		b.dir = 1
	} else if b.width > 0 && px >= b.width-2 {
		b.dir = -1
	}
	in := protocol.InputMsg{
		Type:            protocol.TypeInput,
		ProtocolVersion: protocol.Version,
		Drill:           true,
		Fire:            f.Player.Bombs > 0 && f.Tick%400 < 40,
	}
	if f.Tick%200 < 60 {
		in.MoveH = b.dir
		in.Jump = f.Tick%200 == 30
	}
	if b.sent && in == b.lastIn {
		return in, false
	}
	b.lastIn, b.sent = in, true
	return in, true
}

func (b *bot) logFrame(f *protocol.FrameMsg) {
	solid := 0
	for _, r := range f.Rows {
		row, err := encoding.DecodeRow(r.FG, b.width)
		if err != nil {
			continue
		}
		for _, t := range row {
			if t != 0 {
				solid++
			}
		}
	}
	fields := logrus.Fields{"tick": f.Tick, "rows": len(f.Rows), "solid": solid, "top_row": f.TopRow}
	if p := f.Player; p != nil {
		fields["hp"] = p.HP
		fields["gold"] = p.Gold
		fields["crystals"] = p.Crystals
		fields["bombs"] = p.Bombs
	}
	b.log.WithFields(fields).Info("frame")
}
