package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"areastate.ai/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://127.0.0.1:8095/v1/feed", "feed ws url")
		name   = flag.String("name", "hostsim", "host name")
		token  = flag.String("token", "", "feed token")
		rateHz = flag.Int("rate", 10, "OBS frames per second")
		frames = flag.Int("frames", 200, "frames to send before exiting (0 = forever)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[hostsim] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		HostName:        *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 32, Events: true},
	}
	if *token != "" {
		hello.Auth = &protocol.HelloAuth{Token: *token}
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	done := make(chan struct{})
	go readLoop(conn, logger, done)

	start := protocol.ControlMsg{Type: protocol.TypeControl, ProtocolVersion: protocol.Version, Action: protocol.ControlStart}
	if err := conn.WriteJSON(start); err != nil {
		logger.Fatalf("send START: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	if *rateHz <= 0 {
		*rateHz = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(*rateHz))
	defer ticker.Stop()

	sc := newScript()
	for i := 0; *frames == 0 || i < *frames; i++ {
		select {
		case <-stop:
			return
		case <-done:
			return
		case <-ticker.C:
		}
		for _, c := range sc.controls(sc.seq) {
			if err := conn.WriteJSON(c); err != nil {
				logger.Printf("send CONTROL %s: %v", c.Action, err)
				return
			}
		}
		obs := sc.next()
		if err := conn.WriteJSON(obs); err != nil {
			logger.Printf("send OBS: %v", err)
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func readLoop(conn *websocket.Conn, logger *log.Logger, done chan struct{}) {
	defer close(done)
	for {
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
			logger.Printf("WELCOME session=%s tick_rate=%d areas=%d", w.SessionID, w.TickRateHz, len(w.KnownAreas))
		case protocol.TypeEvent:
			var ev protocol.EventMsg
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			logger.Printf("EVENT %s instance=0x%X area=%s %s", ev.Kind, ev.Instance, ev.AreaID, ev.Record)
		case protocol.TypeTravelPlan:
			var p protocol.TravelPlanMsg
			if err := json.Unmarshal(msg, &p); err != nil {
				continue
			}
			logger.Printf("TRAVEL_PLAN area=%s new_instance=%v", p.AreaID, p.NewInstance)
		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s %s", e.Code, e.Message)
		}
	}
}
