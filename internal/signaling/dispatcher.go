package signaling

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Config is the configuration surface the core consumes at construction
// (§6): bounds on clients, rooms, idle timeout, and ingress capacity. Port
// is owned entirely by the I/O layer and does not appear here.
type Config struct {
	MaxClients           int
	MaxRooms             int
	ClientIdleTimeout    time.Duration
	IngressQueueCapacity int

	// ServiceInterval is the dispatcher's wake cadence; defaults to 50ms,
	// the service interval the source loop used (§4.6).
	ServiceInterval time.Duration
	// ReapInterval is the minimum spacing between reaper passes; defaults
	// to 10s (§4.6).
	ReapInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.ServiceInterval <= 0 {
		c.ServiceInterval = 50 * time.Millisecond
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = 10 * time.Second
	}
	if c.IngressQueueCapacity <= 0 {
		c.IngressQueueCapacity = 1024
	}
}

// Stats is a point-in-time snapshot of dispatcher state, safe to read from
// any goroutine. It is the "single-consumer snapshot" the design notes
// recommend in place of exposing the live registries across goroutines
// (§9, "Cross-thread hazards").
type Stats struct {
	ActiveClients int
	ActiveRooms   int
	QueueDepth    int
	ErrorCount    uint64
	Running       bool
}

// Dispatcher is the single-threaded consumer that owns every registry
// mutation in the core. The WebSocket I/O layer is the only other
// participant, restricted to three callbacks — OnAccept, OnReceived,
// OnClosed — which only ever push to the ingress queue; the dispatcher
// goroutine is the sole mutator of client and room state (§5).
type Dispatcher struct {
	cfg Config

	clients *ClientRegistry
	rooms   *RoomRegistry
	queue   *IngressQueue

	errorCount atomic.Uint64
	running    atomic.Bool
	stats      atomic.Pointer[Stats]

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewDispatcher preallocates the client and room registries and the
// ingress queue per cfg, applying the documented defaults for any
// unset interval.
func NewDispatcher(cfg Config) *Dispatcher {
	cfg.applyDefaults()
	d := &Dispatcher{
		cfg:       cfg,
		clients:   NewClientRegistry(cfg.MaxClients),
		rooms:     NewRoomRegistry(cfg.MaxRooms),
		queue:     NewIngressQueue(cfg.IngressQueueCapacity),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	d.publishStats()
	return d
}

// OnAccept is invoked by the transport layer when a new connection is
// established. It enqueues an accept entry rather than mutating the
// client registry directly — on this Go port, the accept callback
// naturally runs on a goroutine other than the dispatcher, so it is
// folded into the same single ingress queue as messages and closes
// instead of being handled synchronously, keeping the dispatcher as the
// sole mutator (§5 adaptation, documented in DESIGN.md).
func (d *Dispatcher) OnAccept(handle ConnHandle) {
	d.enqueue(ingressEntry{kind: entryAccept, handle: handle, enqueuedAtMs: nowMs()}, "accept")
}

// OnReceived is invoked by the transport layer with a raw text frame. The
// frame is parsed into an Envelope before queuing — a malformed frame is
// counted and dropped here rather than carried into the queue (§7).
func (d *Dispatcher) OnReceived(handle ConnHandle, raw []byte) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		d.errorCount.Add(1)
		recordIngressDrop("malformed_envelope")
		return
	}
	d.enqueue(ingressEntry{kind: entryMessage, handle: handle, envelope: env, enqueuedAtMs: nowMs()}, "message")
}

// OnClosed is invoked by the transport layer when a connection ends,
// whether by clean close or transport-level error.
func (d *Dispatcher) OnClosed(handle ConnHandle) {
	d.enqueue(ingressEntry{kind: entryClose, handle: handle, enqueuedAtMs: nowMs()}, "close")
}

func (d *Dispatcher) enqueue(e ingressEntry, label string) {
	if !d.queue.push(e) {
		d.errorCount.Add(1)
		recordIngressDrop("queue_full")
		slog.Warn("ingress queue full, dropping entry", "kind", label)
	}
}

// Run drives the dispatcher loop until ctx is cancelled or Stop is called.
// Each wake: drain the ingress queue fully, then run the reaper if the
// configured interval has elapsed (§4.6). The loop wakes on whichever
// comes first: the service-interval ticker, or a queue push notification,
// giving lower latency than pure polling without needing a blocking pop.
func (d *Dispatcher) Run(ctx context.Context) {
	d.running.Store(true)
	defer func() {
		d.running.Store(false)
		d.publishStats()
	}()

	ticker := time.NewTicker(d.cfg.ServiceInterval)
	defer ticker.Stop()

	lastReap := time.Now()
	for {
		select {
		case <-ctx.Done():
			close(d.stoppedCh)
			return
		case <-d.stopCh:
			close(d.stoppedCh)
			return
		case <-ticker.C:
		case <-d.queue.Notify():
		}

		d.drain()

		if time.Since(lastReap) >= d.cfg.ReapInterval {
			d.reap()
			lastReap = time.Now()
		}
		d.publishStats()
	}
}

// Stop signals the loop to exit and blocks until it has. Safe to call at
// most once.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	<-d.stoppedCh
}

// drain pops and processes every currently queued entry (§4.6 step 2).
func (d *Dispatcher) drain() {
	for {
		e, ok := d.queue.pop()
		if !ok {
			return
		}
		d.process(e)
	}
}

func (d *Dispatcher) process(e ingressEntry) {
	now := nowSeconds()
	switch e.kind {
	case entryAccept:
		d.handleAccept(e.handle, now)
	case entryMessage:
		d.handleMessage(e.handle, e.envelope, now)
	case entryClose:
		d.handleClosed(e.handle, now)
	}
}

// reap evicts idle clients and empty rooms (§4.6 step 3, §9 S6). Eviction
// of a timed-out client is indistinguishable from a reported close:
// implicit leave, broadcast to remaining members, slot freed.
func (d *Dispatcher) reap() {
	start := time.Now()
	defer recordReapDuration(start)

	now := nowSeconds()
	timeoutSeconds := int64(d.cfg.ClientIdleTimeout / time.Second)

	var timedOut []*Client
	d.clients.ForEachLive(func(c *Client) {
		if now-c.LastActivity > timeoutSeconds {
			timedOut = append(timedOut, c)
		}
	})
	for _, c := range timedOut {
		d.disconnectClient(c, now)
	}

	d.rooms.ReapEmpty()
}

func (d *Dispatcher) publishStats() {
	s := &Stats{
		ActiveClients: d.clients.ActiveCount(),
		ActiveRooms:   d.rooms.ActiveCount(),
		QueueDepth:    d.queue.Len(),
		ErrorCount:    d.errorCount.Load(),
		Running:       d.running.Load(),
	}
	d.stats.Store(s)
	publishRegistryGauges(s.ActiveClients, s.ActiveRooms, s.QueueDepth)
}

// Stats returns the most recently published snapshot. Safe for concurrent
// use from the health and metrics HTTP handlers.
func (d *Dispatcher) Stats() Stats {
	if s := d.stats.Load(); s != nil {
		return *s
	}
	return Stats{}
}

func nowSeconds() int64 { return time.Now().Unix() }
func nowMs() int64      { return time.Now().UnixMilli() }
