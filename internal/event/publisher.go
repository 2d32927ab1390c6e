package event

import (
	"sync"
	"time"

	"veristream/internal/model"
)

// Stream is one session's ordered event feed. Publishing assigns the
// next sequence number, appends to the bounded replay log, and offers
// the event to every live subscriber. A subscriber that cannot keep up
// loses events rather than blocking the pipeline; its drop count is
// visible so the consumer knows to resync from the replay log.
type Stream struct {
	sessionID string
	replayMax int
	subBuffer int

	mu      sync.Mutex
	seq     uint64
	replay  []Event
	subs    map[int]*subscriber
	nextSub int
	closed  bool
}

type subscriber struct {
	ch      chan Event
	dropped uint64
}

func newStream(sessionID string, cfg model.EventsConfig) *Stream {
	replayMax := cfg.ReplayBuffer
	if replayMax <= 0 {
		replayMax = 1024
	}
	subBuffer := cfg.SubscriberBuffer
	if subBuffer <= 0 {
		subBuffer = 256
	}
	return &Stream{
		sessionID: sessionID,
		replayMax: replayMax,
		subBuffer: subBuffer,
		subs:      make(map[int]*subscriber),
	}
}

// Publish appends an event of the given type and fans it out. It
// returns the published event, or a zero event after Close.
func (s *Stream) Publish(t Type, payload any) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Event{}
	}

	s.seq++
	ev := Event{
		Seq:       s.seq,
		SessionID: s.sessionID,
		Type:      t,
		At:        time.Now().UTC(),
		Payload:   payload,
	}

	s.replay = append(s.replay, ev)
	if len(s.replay) > s.replayMax {
		s.replay = s.replay[len(s.replay)-s.replayMax:]
	}

	for _, sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped++
		}
	}

	return ev
}

// Subscribe attaches a consumer to the stream. Retained events with
// Seq > fromSeq are delivered first (fromSeq 0 replays everything still
// buffered), then live events follow on the same channel. The returned
// cancel function detaches the subscriber and closes its channel; the
// channel is also closed when the stream closes.
func (s *Stream) Subscribe(fromSeq uint64) (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backlog := make([]Event, 0)
	for _, ev := range s.replay {
		if ev.Seq > fromSeq {
			backlog = append(backlog, ev)
		}
	}

	ch := make(chan Event, s.subBuffer+len(backlog))
	for _, ev := range backlog {
		ch <- ev
	}

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscriber{ch: ch}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// LastSeq returns the sequence number of the most recent event.
func (s *Stream) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close seals the stream after its terminal event. Subscriber channels
// are closed once any buffered events drain naturally; further Publish
// calls are no-ops.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
}

// Publisher hands out per-session streams.
type Publisher struct {
	cfg model.EventsConfig

	mu      sync.Mutex
	streams map[string]*Stream
}

// NewPublisher creates a publisher.
func NewPublisher(cfg model.EventsConfig) *Publisher {
	return &Publisher{
		cfg:     cfg,
		streams: make(map[string]*Stream),
	}
}

// Stream returns the session's stream, creating it on first use.
func (p *Publisher) Stream(sessionID string) *Stream {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.streams[sessionID]; ok {
		return s
	}
	s := newStream(sessionID, p.cfg)
	p.streams[sessionID] = s
	return s
}

// Lookup returns the session's stream without creating one.
func (p *Publisher) Lookup(sessionID string) (*Stream, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.streams[sessionID]
	return s, ok
}

// Remove closes and forgets the session's stream.
func (p *Publisher) Remove(sessionID string) {
	p.mu.Lock()
	s, ok := p.streams[sessionID]
	delete(p.streams, sessionID)
	p.mu.Unlock()

	if ok {
		s.Close()
	}
}
