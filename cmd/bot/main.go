package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tealeaf.ai/internal/protocol"
)

// The bot loops over one station: fill it to the brim, look at it, then draw it empty again.
func main() {
	var (
		url         = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name        = flag.String("name", "bot", "actor name")
		pos         = flag.String("pos", "0,64,0", "station position x,y,z")
		ingredients = flag.String("ingredients", "MINT,ROSE,CHAMOMILE", "comma separated ingredient ids to pour")
		every       = flag.Duration("every", 500*time.Millisecond, "delay between interactions")
		rounds      = flag.Int("rounds", 0, "stop after this many fill/drain rounds (0 = forever)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	var target [3]int
	if _, err := fmt.Sscanf(*pos, "%d,%d,%d", &target[0], &target[1], &target[2]); err != nil {
		logger.Fatalf("bad -pos %q: %v", *pos, err)
	}
	ids := strings.Split(*ingredients, ",")

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ActorName: *name, MaxQueue: 8}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	msgs := make(chan []byte, 16)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{conn: conn, log: logger, pos: target, ids: ids, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			b.handle(msg)
			if *rounds > 0 && b.rounds >= *rounds {
				return
			}
		case <-ticker.C:
			if b.ready {
				b.act()
			}
		}
	}
}

type bot struct {
	conn *websocket.Conn
	log  *log.Logger
	pos  [3]int
	ids  []string
	rng  *rand.Rand

	ready    bool
	maxLevel int
	level    int
	draining bool
	seq      int
	rounds   int
}

func (b *bot) handle(msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return
		}
		b.ready, b.maxLevel = true, w.MaxLevel
		b.log.Printf("WELCOME actor_id=%s world=%s tick=%d max_level=%d", w.ActorID, w.WorldID, w.Tick, w.MaxLevel)

	case protocol.TypeResult:
		var r protocol.ResultMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			return
		}
		b.level = r.Level
		held := ""
		if r.Held != nil {
			held = r.Held.Item
		}
		b.log.Printf("RESULT %s %s level=%d code=%s held=%s", r.RequestID, r.Result, r.Level, r.Code, held)
		switch {
		case !b.draining && (r.Level >= b.maxLevel || r.Code == protocol.ErrFull):
			b.draining = true
			b.view()
		case b.draining && r.Level == 0:
			b.draining = false
			b.rounds++
		}

	case protocol.TypeVessel:
		var v protocol.VesselMsg
		if err := json.Unmarshal(msg, &v); err != nil {
			return
		}
		b.log.Printf("VESSEL %s level=%d label=%q flair=%q colour=%s", v.State, v.Level, v.Label, v.Flair, v.Colour)

	case protocol.TypeError:
		var e protocol.ErrorMsg
		_ = json.Unmarshal(msg, &e)
		b.log.Printf("ERROR %s: %s", e.Code, e.Message)
	}
}

func (b *bot) act() {
	b.seq++
	m := protocol.InteractMsg{
		Type:            protocol.TypeInteract,
		ProtocolVersion: protocol.Version,
		RequestID:       fmt.Sprintf("R%d", b.seq),
		Pos:             b.pos,
	}
	if b.draining {
		m.Held = protocol.ItemStack{Item: "GLASS_BOTTLE"}
	} else {
		strength := 1 + b.rng.Intn(6)
		m.Held = protocol.ItemStack{Item: "TEA_BOTTLE", Payload: &protocol.IngredientPayload{
			ID:       b.ids[b.rng.Intn(len(b.ids))],
			Strength: &strength,
		}}
	}
	if err := b.conn.WriteJSON(m); err != nil {
		b.log.Printf("send INTERACT: %v", err)
	}
}

func (b *bot) view() {
	b.seq++
	v := protocol.ViewMsg{Type: protocol.TypeView, ProtocolVersion: protocol.Version, RequestID: fmt.Sprintf("V%d", b.seq), Pos: b.pos}
	if err := b.conn.WriteJSON(v); err != nil {
		b.log.Printf("send VIEW: %v", err)
	}
}
