package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"areastate.ai/internal/areas"
	"areastate.ai/internal/areastate"
	"areastate.ai/internal/blacklist"
	"areastate.ai/internal/feed"
	"areastate.ai/internal/geom"
	"areastate.ai/internal/notify"
	"areastate.ai/internal/protocol"
	"areastate.ai/internal/tuning"
)

type recordingController struct {
	mu      sync.Mutex
	actions []string
}

func (c *recordingController) add(a string) {
	c.mu.Lock()
	c.actions = append(c.actions, a)
	c.mu.Unlock()
}

func (c *recordingController) Start()         { c.add("start") }
func (c *recordingController) Stop()          { c.add("stop") }
func (c *recordingController) RefreshFilter() { c.add("refresh") }
func (c *recordingController) SetLootVisible(on bool) {
	if on {
		c.add("visible:on")
	} else {
		c.add("visible:off")
	}
}

// Travel asks for a fresh instance only for map areas.
func (c *recordingController) Travel(areaID string, def bool) bool {
	c.add("travel:" + areaID)
	return def || strings.HasPrefix(areaID, "MapAtlas")
}

func (c *recordingController) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.actions...)
}

type fixture struct {
	srv   *Server
	world *feed.ObsWorld
	hub   *notify.Hub
	ctrl  *recordingController
	bl    *blacklist.Blacklist
	url   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	w, err := feed.NewObsWorld(areas.Default(), tuning.Defaults().WalkableCache, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	t.Cleanup(w.Close)
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	bl, err := blacklist.New(16, time.Minute)
	if err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	f := &fixture{world: w, hub: notify.NewHub(), ctrl: &recordingController{}, bl: bl}
	f.srv, err = NewServer(Options{World: w, Hub: f.hub, Controller: f.ctrl, Blacklist: bl, Validator: v, TickRateHz: 20})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)
	f.url = "ws" + strings.TrimPrefix(ts.URL, "http")
	return f
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) (protocol.BaseMessage, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return base, b
}

func hello(events bool) protocol.HelloMsg {
	return protocol.HelloMsg{
		Type: protocol.TypeHello, ProtocolVersion: protocol.Version, HostName: "bridge-test",
		Capabilities: protocol.HelloCapabilities{MaxQueue: 8, Events: events},
	}
}

func connect(t *testing.T, f *fixture, events bool) (*websocket.Conn, protocol.WelcomeMsg) {
	t.Helper()
	conn := f.dial(t)
	send(t, conn, hello(events))
	base, b := readFrame(t, conn)
	if base.Type != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %s: %s", base.Type, b)
	}
	var w protocol.WelcomeMsg
	if err := json.Unmarshal(b, &w); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	return conn, w
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_HandshakeAndObs(t *testing.T) {
	f := newFixture(t)
	conn, welcome := connect(t, f, false)
	if welcome.SessionID == "" || welcome.TickRateHz != 20 || len(welcome.KnownAreas) == 0 {
		t.Fatalf("welcome: %+v", welcome)
	}

	send(t, conn, protocol.ObsMsg{
		Type: protocol.TypeObs, ProtocolVersion: protocol.Version, Seq: 1, InGame: true,
		Instance: 7, AreaID: "1_1_town", Self: protocol.SelfObs{Pos: [2]int{1, 2}},
		Objects: []protocol.ObjectObs{{ID: 11, Kind: "STASH", Name: "Stash", Pos: [2]int{248, 502}}},
	})
	waitFor(t, "obs applied", func() bool { return f.world.Seq() == 1 })
	if _, ok := f.world.ObjectByName("Stash"); !ok {
		t.Fatalf("stash not visible through the world")
	}
}

func TestServer_ControlFrames(t *testing.T) {
	f := newFixture(t)
	conn, _ := connect(t, f, false)
	for _, c := range []protocol.ControlMsg{
		{Action: protocol.ControlStart},
		{Action: protocol.ControlLootVisible, Enabled: true},
		{Action: protocol.ControlRefreshFilter},
		{Action: protocol.ControlStop},
	} {
		c.Type, c.ProtocolVersion = protocol.TypeControl, protocol.Version
		send(t, conn, c)
	}
	want := []string{"start", "visible:on", "refresh", "stop"}
	waitFor(t, "controls", func() bool { return len(f.ctrl.snapshot()) == len(want) })
	for i, a := range f.ctrl.snapshot() {
		if a != want[i] {
			t.Fatalf("controls: got %v want %v", f.ctrl.snapshot(), want)
		}
	}
}

func TestServer_BlacklistControl(t *testing.T) {
	f := newFixture(t)
	conn, _ := connect(t, f, false)
	send(t, conn, protocol.ControlMsg{
		Type: protocol.TypeControl, ProtocolVersion: protocol.Version,
		Action: protocol.ControlBlacklist, ObjectID: 42, DurationMs: 60000, Reason: "unreachable",
	})
	waitFor(t, "blacklisted", func() bool { return f.bl.Contains(42) })
	if reason, _ := f.bl.Reason(42); reason != "unreachable" {
		t.Fatalf("reason: %q", reason)
	}

	send(t, conn, protocol.ControlMsg{
		Type: protocol.TypeControl, ProtocolVersion: protocol.Version,
		Action: protocol.ControlUnblacklist, ObjectID: 42,
	})
	waitFor(t, "unblacklisted", func() bool { return !f.bl.Contains(42) })
	if len(f.ctrl.snapshot()) != 0 {
		t.Fatalf("blacklist frames reached the controller: %v", f.ctrl.snapshot())
	}
}

func TestServer_TravelRepliesWithPlan(t *testing.T) {
	f := newFixture(t)
	conn, _ := connect(t, f, false)
	for _, area := range []string{"MapAtlasStrand", "1_1_town"} {
		send(t, conn, protocol.ControlMsg{
			Type: protocol.TypeControl, ProtocolVersion: protocol.Version,
			Action: protocol.ControlTravel, AreaID: area,
		})
		base, b := readFrame(t, conn)
		if base.Type != protocol.TypeTravelPlan {
			t.Fatalf("expected TRAVEL_PLAN, got %s", b)
		}
		var plan protocol.TravelPlanMsg
		if err := json.Unmarshal(b, &plan); err != nil {
			t.Fatalf("plan: %v", err)
		}
		if plan.AreaID != area || plan.NewInstance != (area == "MapAtlasStrand") {
			t.Fatalf("plan for %s: %+v", area, plan)
		}
	}
}

func TestServer_RejectsBadFrames(t *testing.T) {
	f := newFixture(t)
	conn, _ := connect(t, f, false)

	send(t, conn, map[string]any{"type": "OBS", "protocol_version": "0.9", "seq": 1})
	base, b := readFrame(t, conn)
	var e protocol.ErrorMsg
	_ = json.Unmarshal(b, &e)
	if base.Type != protocol.TypeError || e.Code != protocol.ErrBadVersion {
		t.Fatalf("expected bad version, got %s", b)
	}

	send(t, conn, map[string]any{"type": "CONTROL", "protocol_version": "1.0", "action": "EXPLODE"})
	_, b = readFrame(t, conn)
	_ = json.Unmarshal(b, &e)
	if e.Code != protocol.ErrBadFrame {
		t.Fatalf("expected schema rejection, got %s", b)
	}
}

func TestServer_UnknownAreaWarnsOnce(t *testing.T) {
	f := newFixture(t)
	conn, _ := connect(t, f, false)
	for seq := uint64(1); seq <= 2; seq++ {
		send(t, conn, protocol.ObsMsg{
			Type: protocol.TypeObs, ProtocolVersion: protocol.Version, Seq: seq, InGame: true,
			Instance: 3, AreaID: "9_9_nowhere", Objects: []protocol.ObjectObs{},
		})
	}
	_, b := readFrame(t, conn)
	var e protocol.ErrorMsg
	_ = json.Unmarshal(b, &e)
	if e.Code != protocol.ErrUnknownArea || e.Message != "9_9_nowhere" {
		t.Fatalf("expected unknown area warning, got %s", b)
	}
	waitFor(t, "both frames applied", func() bool { return f.world.Seq() == 2 })
	if f.srv.Frames() != 2 {
		t.Fatalf("frames: %d", f.srv.Frames())
	}
}

func TestServer_StreamsEvents(t *testing.T) {
	f := newFixture(t)
	conn, _ := connect(t, f, true)
	waitFor(t, "subscription", func() bool { return f.hub.Subscribers() == 1 })

	f.hub.Notify(areastate.Event{
		Kind: areastate.EventLocationAdded, Instance: 7, AreaID: "1_1_town", At: time.UnixMilli(1234),
		Location: &areastate.Location{ID: 11, Name: "Stash", Position: geom.Pt(248, 502)},
	})
	base, b := readFrame(t, conn)
	if base.Type != protocol.TypeEvent {
		t.Fatalf("expected EVENT, got %s", b)
	}
	var ev protocol.EventMsg
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	var loc areastate.Location
	if err := json.Unmarshal(ev.Record, &loc); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ev.Kind != "LOCATION_ADDED" || ev.Instance != 7 || ev.AtUnixMs != 1234 || loc.Name != "Stash" {
		t.Fatalf("event frame: %+v record=%+v", ev, loc)
	}
}

func TestServer_SecondHostIsBusy(t *testing.T) {
	f := newFixture(t)
	connect(t, f, false)

	other := f.dial(t)
	base, b := readFrame(t, other)
	var e protocol.ErrorMsg
	_ = json.Unmarshal(b, &e)
	if base.Type != protocol.TypeError || e.Code != protocol.ErrFeedBusy {
		t.Fatalf("expected busy, got %s", b)
	}
}

func TestServer_HelloRequired(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	send(t, conn, map[string]any{"type": "OBS", "protocol_version": "1.0"})
	_, b := readFrame(t, conn)
	var e protocol.ErrorMsg
	_ = json.Unmarshal(b, &e)
	if e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected bad request, got %s", b)
	}
}

func TestEventFrame_RequiresRecord(t *testing.T) {
	if _, err := EventFrame(areastate.Event{Kind: areastate.EventContainerAdded}); err == nil {
		t.Fatalf("expected error")
	}
}
