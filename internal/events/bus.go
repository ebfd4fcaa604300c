// Package events is a small in-process pub/sub bus. The engine
// publishes scan lifecycle and alert events; the API streams them to
// websocket clients without coupling either side to the other.
package events

import (
	"sync"
	"time"
)

// Type classifies an event
type Type string

const (
	TypeAlertDetected Type = "ALERT_DETECTED"
	TypeScanStarted   Type = "SCAN_STARTED"
	TypeScanCompleted Type = "SCAN_COMPLETED"
	TypeCandleClosed  Type = "CANDLE_CLOSED"
	TypeError         Type = "ERROR"
)

// Event is one bus message
type Event struct {
	Type      Type                   `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

type subscription struct {
	types map[Type]bool // nil means all types
	ch    chan Event
}

// Bus fans events out to subscribers. Publishing never blocks; a
// subscriber that falls behind loses events rather than stalling the
// publisher.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe registers interest in the given types (all types when none
// are named). The returned cancel function releases the subscription
// and must be called exactly once.
func (b *Bus) Subscribe(buffer int, types ...Type) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	var filter map[Type]bool
	if len(types) > 0 {
		filter = make(map[Type]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	sub := subscription{types: filter, ch: make(chan Event, buffer)}
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching subscriber
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.types != nil && !sub.types[e.Type] {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// PublishAlert publishes a detection event
func (b *Bus) PublishAlert(instrument, timeframe, pattern, bias string, confidence int, price float64) {
	b.Publish(Event{
		Type: TypeAlertDetected,
		Data: map[string]interface{}{
			"instrument": instrument,
			"timeframe":  timeframe,
			"pattern":    pattern,
			"bias":       bias,
			"confidence": confidence,
			"price":      price,
		},
	})
}

// PublishScanStarted publishes the beginning of a scan cycle
func (b *Bus) PublishScanStarted(scanID string, units int) {
	b.Publish(Event{
		Type: TypeScanStarted,
		Data: map[string]interface{}{
			"scan_id": scanID,
			"units":   units,
		},
	})
}

// PublishScanCompleted publishes a scan cycle summary
func (b *Bus) PublishScanCompleted(scanID string, units, alerts int, duration time.Duration) {
	b.Publish(Event{
		Type: TypeScanCompleted,
		Data: map[string]interface{}{
			"scan_id":     scanID,
			"units":       units,
			"alerts":      alerts,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

// PublishCandleClosed publishes a closed candle from the live feed
func (b *Bus) PublishCandleClosed(instrument, timeframe string, close float64) {
	b.Publish(Event{
		Type: TypeCandleClosed,
		Data: map[string]interface{}{
			"instrument": instrument,
			"timeframe":  timeframe,
			"close":      close,
		},
	})
}

// PublishError publishes a component failure worth surfacing to
// dashboards.
func (b *Bus) PublishError(component string, err error) {
	b.Publish(Event{
		Type: TypeError,
		Data: map[string]interface{}{
			"component": component,
			"error":     err.Error(),
		},
	})
}
