package monitor

import (
	"context"
	"sync"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/logger"
)

// StateObserver is notified whenever a device's published state changes.
// Calls are made from the Bus goroutine, one at a time.
type StateObserver interface {
	OnDeviceChanged(ctx context.Context, snapshot device.Snapshot)
}

// AlarmObserver is an optional extension for observers that also render alarms.
type AlarmObserver interface {
	OnAlarm(ctx context.Context, event *alarm.Event)
}

// AlarmSink receives at most one notification per entry into DROWNING.
type AlarmSink interface {
	Notify(ctx context.Context, event *alarm.Event) error
}

// Publisher receives changes from devices while their lock is held.
// Implementations must not block for long.
type Publisher interface {
	PublishChange(snapshot device.Snapshot)
	PublishAlarm(event *alarm.Event)
}

// Bus fans published events out to observers and alarm sinks.
//
// Publishing never blocks: alarms are queued without limit, while state
// changes are coalesced per device so only the latest pending snapshot of
// each device is delivered. A slow observer therefore delays mirrors of the
// state, never telemetry, watchdogs or alarms.
type Bus struct {
	// wake has capacity one and signals Run that work is pending.
	wake chan struct{}

	// qmu protects the pending queues and closed.
	qmu       sync.Mutex
	alarms    []*alarm.Event
	changes   map[string]device.Snapshot
	order     []string
	coalesced int
	// closed is set once Run has drained; later publishes are dropped.
	closed bool

	// mu protects observers, nextID and sinks.
	mu        sync.RWMutex
	observers map[int]StateObserver
	nextID    int
	sinks     []AlarmSink
}

// NewBus creates a bus. buffer presizes the pending queues.
func NewBus(buffer int, sinks ...AlarmSink) *Bus {
	if buffer < 0 {
		buffer = 0
	}

	return &Bus{
		wake:      make(chan struct{}, 1),
		changes:   make(map[string]device.Snapshot, buffer),
		order:     make([]string, 0, buffer),
		observers: make(map[int]StateObserver),
		sinks:     sinks,
	}
}

// Subscribe registers an observer and returns a function removing it.
func (b *Bus) Subscribe(o StateObserver) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers[id] = o
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

// AddSink registers an additional alarm sink.
func (b *Bus) AddSink(s AlarmSink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// PublishChange queues a state change, replacing one still pending for the
// same device.
func (b *Bus) PublishChange(snapshot device.Snapshot) {
	b.qmu.Lock()

	if b.closed {
		b.qmu.Unlock()

		return
	}

	if _, pending := b.changes[snapshot.ID]; pending {
		b.coalesced++
	} else {
		b.order = append(b.order, snapshot.ID)
	}

	b.changes[snapshot.ID] = snapshot
	b.qmu.Unlock()

	b.signal()
}

// PublishAlarm queues a drowning alarm. Alarms are never dropped while Run
// is active.
func (b *Bus) PublishAlarm(event *alarm.Event) {
	b.qmu.Lock()

	if b.closed {
		b.qmu.Unlock()

		return
	}

	b.alarms = append(b.alarms, event.Clone())
	b.qmu.Unlock()

	b.signal()
}

func (b *Bus) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// batch is everything pending at one moment.
type batch struct {
	alarms    []*alarm.Event
	changes   []device.Snapshot
	coalesced int
}

func (bt batch) empty() bool {
	return len(bt.alarms) == 0 && len(bt.changes) == 0
}

// take empties the pending queues. With closing set, the bus stops
// accepting new events in the same critical section.
func (b *Bus) take(closing bool) batch {
	b.qmu.Lock()
	defer b.qmu.Unlock()

	bt := batch{
		alarms:    b.alarms,
		changes:   make([]device.Snapshot, 0, len(b.order)),
		coalesced: b.coalesced,
	}

	for _, id := range b.order {
		bt.changes = append(bt.changes, b.changes[id])
	}

	b.alarms = nil
	b.order = b.order[:0]
	b.coalesced = 0
	clear(b.changes)

	if closing {
		b.closed = true
	}

	return bt
}

// Run delivers events until ctx is canceled, then drains what is queued.
func (b *Bus) Run(ctx context.Context) {
	ctx = logger.WithName(ctx, "bus")

	for {
		select {
		case <-b.wake:
			b.deliver(ctx, b.take(false))
		case <-ctx.Done():
			// Sinks may use ctx for I/O; give them a live one during drain.
			b.deliver(context.WithoutCancel(ctx), b.take(true))

			return
		}
	}
}

// deliver hands alarms to sinks first, then state changes to observers.
func (b *Bus) deliver(ctx context.Context, bt batch) {
	if bt.empty() {
		return
	}

	if bt.coalesced > 0 {
		logger.DebugKV(ctx, "Superseded state changes dropped", "count", bt.coalesced)
	}

	b.mu.RLock()
	observers := make([]StateObserver, 0, len(b.observers))
	for _, o := range b.observers {
		observers = append(observers, o)
	}

	sinks := append([]AlarmSink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, ev := range bt.alarms {
		b.dispatchAlarm(ctx, ev, sinks, observers)
	}

	for _, snapshot := range bt.changes {
		for _, o := range observers {
			safeCall(ctx, "observer", func() { o.OnDeviceChanged(ctx, snapshot) })
		}
	}
}

// dispatchAlarm delivers one alarm to every sink and alarm observer.
func (b *Bus) dispatchAlarm(ctx context.Context, ev *alarm.Event, sinks []AlarmSink, observers []StateObserver) {
	for _, s := range sinks {
		safeCall(ctx, "alarm sink", func() {
			if err := s.Notify(ctx, ev); err != nil {
				logger.ErrorKV(ctx, "Alarm sink failed", "device_id", ev.Device.ID, "error", err)
			}
		})
	}

	for _, o := range observers {
		if ao, ok := o.(AlarmObserver); ok {
			safeCall(ctx, "alarm observer", func() { ao.OnAlarm(ctx, ev) })
		}
	}
}

// safeCall runs fn and logs a recovered panic instead of stopping the bus.
func safeCall(ctx context.Context, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Recovered panic in "+what, "panic", r)
		}
	}()

	fn()
}

// noopPublisher discards every event.
type noopPublisher struct{}

func (noopPublisher) PublishChange(device.Snapshot) {}
func (noopPublisher) PublishAlarm(*alarm.Event)     {}
