package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"areastate.ai/internal/areas"
	"areastate.ai/internal/areastate"
	"areastate.ai/internal/feed"
	"areastate.ai/internal/notify"
	"areastate.ai/internal/protocol"
)

// Controller receives the host's CONTROL frames. Implementations must not block.
type Controller interface {
	Start()
	Stop()
	RefreshFilter()
	SetLootVisible(on bool)
	// Travel announces that the host is leaving for areaID and reports whether
	// the new area should be a fresh instance. def is the host's own preference.
	Travel(areaID string, def bool) (newInstance bool)
}

// Blacklister takes the host's BLACKLIST and UNBLACKLIST frames.
type Blacklister interface {
	Add(id int, d time.Duration, reason string)
	Remove(id int)
}

type Options struct {
	World      *feed.ObsWorld
	Hub        *notify.Hub
	Controller Controller
	Blacklist  Blacklister
	Areas      *areas.Catalog
	// Validator is optional; nil skips schema checks.
	Validator  *protocol.Validator
	TickRateHz int
	MaxQueue   int
	Token      string
	Logger     *log.Logger
}

// Server accepts one host bridge at a time. The bridge streams OBS frames in
// and receives discovery EVENT frames back.
type Server struct {
	world     *feed.ObsWorld
	hub       *notify.Hub
	ctrl      Controller
	blacklist Blacklister
	catalog   *areas.Catalog
	validator *protocol.Validator
	tickRate  int
	maxQueue  int
	token     string
	log       *log.Logger

	upgrader websocket.Upgrader
	busy     atomic.Bool
	frames   atomic.Uint64
}

func NewServer(opts Options) (*Server, error) {
	if opts.World == nil {
		return nil, errors.New("ws: world is required")
	}
	if opts.Hub == nil {
		opts.Hub = notify.NewHub()
	}
	if opts.Areas == nil {
		opts.Areas = areas.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.MaxQueue <= 0 {
		opts.MaxQueue = 16
	}
	s := &Server{
		world:     opts.World,
		hub:       opts.Hub,
		ctrl:      opts.Controller,
		blacklist: opts.Blacklist,
		catalog:   opts.Areas,
		validator: opts.Validator,
		tickRate:  opts.TickRateHz,
		maxQueue:  opts.MaxQueue,
		token:     strings.TrimSpace(opts.Token),
		log:       opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s, nil
}

// Frames counts OBS frames applied since start.
func (s *Server) Frames() uint64 { return s.frames.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.busy.CompareAndSwap(false, true) {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrFeedBusy, "another host is connected"))
			closeWith(conn, websocket.ClosePolicyViolation, "busy")
			return
		}
		defer s.busy.Store(false)

		sessionID, out, events := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
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
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		if events {
			ch, unsubscribe := s.hub.Subscribe(s.maxQueue)
			defer unsubscribe()
			go s.forwardEvents(ctx, ch, out)
		}

		s.log.Printf("[ws] session %s connected from %s", sessionID, r.RemoteAddr)
		s.readLoop(ctx, conn, out)
		cancel()
		s.log.Printf("[ws] session %s closed", sessionID)
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, out chan []byte) {
	warned := map[string]bool{}
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			s.sendError(out, protocol.ErrBadFrame, "invalid json")
			continue
		}
		if base.ProtocolVersion != protocol.Version {
			s.sendError(out, protocol.ErrBadVersion, fmt.Sprintf("protocol_version %q", base.ProtocolVersion))
			continue
		}
		if s.validator != nil {
			if err := s.validator.Validate(base.Type, msg); err != nil {
				s.sendError(out, protocol.ErrBadFrame, err.Error())
				continue
			}
		}

		switch base.Type {
		case protocol.TypeObs:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(msg, &obs); err != nil {
				s.sendError(out, protocol.ErrBadFrame, err.Error())
				continue
			}
			if err := s.world.Apply(obs); err != nil {
				s.sendError(out, protocol.ErrBadFrame, err.Error())
				continue
			}
			s.frames.Add(1)
			if obs.AreaID != "" && !warned[obs.AreaID] {
				if _, ok := s.catalog.Lookup(obs.AreaID); !ok {
					warned[obs.AreaID] = true
					s.sendError(out, protocol.ErrUnknownArea, obs.AreaID)
				}
			}
		case protocol.TypeControl:
			var c protocol.ControlMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				s.sendError(out, protocol.ErrBadFrame, err.Error())
				continue
			}
			if err := s.control(c, out); err != nil {
				s.sendError(out, protocol.ErrBadControl, err.Error())
			}
		default:
			s.sendError(out, protocol.ErrProtoBadRequest, "unexpected type "+base.Type)
		}
	}
}

func (s *Server) control(c protocol.ControlMsg, out chan []byte) error {
	switch c.Action {
	case protocol.ControlBlacklist, protocol.ControlUnblacklist:
		if s.blacklist == nil {
			return errors.New("no blacklist attached")
		}
		if c.Action == protocol.ControlUnblacklist {
			s.blacklist.Remove(c.ObjectID)
			s.log.Printf("[ws] unblacklisted %d", c.ObjectID)
			return nil
		}
		d := time.Duration(c.DurationMs) * time.Millisecond
		s.blacklist.Add(c.ObjectID, d, c.Reason)
		s.log.Printf("[ws] blacklisted %d for %s: %s", c.ObjectID, d, c.Reason)
		return nil
	}
	if s.ctrl == nil {
		return errors.New("no controller attached")
	}
	switch c.Action {
	case protocol.ControlTravel:
		plan := protocol.TravelPlanMsg{
			Type:            protocol.TypeTravelPlan,
			ProtocolVersion: protocol.Version,
			AreaID:          c.AreaID,
			NewInstance:     s.ctrl.Travel(c.AreaID, c.Enabled),
		}
		s.send(out, plan)
	case protocol.ControlStart:
		s.ctrl.Start()
	case protocol.ControlStop:
		s.ctrl.Stop()
	case protocol.ControlRefreshFilter:
		s.ctrl.RefreshFilter()
	case protocol.ControlLootVisible:
		s.ctrl.SetLootVisible(c.Enabled)
	default:
		return fmt.Errorf("unknown action %q", c.Action)
	}
	return nil
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte, events bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "expected HELLO"))
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return "", nil, false
	}
	if base.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrBadVersion, "bad protocol_version"))
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return "", nil, false
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrBadFrame, err.Error()))
			closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
			return "", nil, false
		}
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil, false
	}
	if s.token != "" && (hello.Auth == nil || strings.TrimSpace(hello.Auth.Token) != s.token) {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "bad token"))
		closeWith(conn, websocket.ClosePolicyViolation, "bad token")
		return "", nil, false
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = s.maxQueue
	}
	if maxQ > 256 {
		maxQ = 256
	}
	out = make(chan []byte, maxQ)

	sessionID = uuid.NewString()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		TickRateHz:      s.tickRate,
		KnownAreas:      s.catalog.IDs(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil, false
	}
	s.log.Printf("[ws] HELLO from %q (events=%v max_queue=%d)", hello.HostName, hello.Capabilities.Events, maxQ)
	return sessionID, out, hello.Capabilities.Events
}

func (s *Server) forwardEvents(ctx context.Context, ch <-chan areastate.Event, out chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			msg, err := EventFrame(ev)
			if err != nil {
				s.log.Printf("[ws] encode event: %v", err)
				continue
			}
			b, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			default:
				s.log.Printf("[ws] outbound queue full, dropped %s", ev.Kind)
			}
		}
	}
}

// EventFrame renders a discovery event as an EVENT frame.
func EventFrame(ev areastate.Event) (protocol.EventMsg, error) {
	var record any
	switch {
	case ev.Location != nil:
		record = ev.Location
	case ev.Container != nil:
		record = ev.Container
	default:
		return protocol.EventMsg{}, fmt.Errorf("event %s has no record", ev.Kind)
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return protocol.EventMsg{}, err
	}
	return protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Kind:            string(ev.Kind),
		Instance:        uint32(ev.Instance),
		AreaID:          ev.AreaID,
		AtUnixMs:        ev.At.UnixMilli(),
		Record:          raw,
	}, nil
}

func (s *Server) sendError(out chan []byte, code, msg string) {
	s.send(out, protocol.NewError(code, msg))
}

func (s *Server) send(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		s.log.Printf("[ws] outbound queue full, dropped reply")
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
