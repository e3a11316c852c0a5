package v10nflow

import (
	"sync"

	"github.com/kadisoka/iam-verify/pkg/iam"
)

// Event is implemented by everything published on a Bus.
type Event interface {
	EventName() string
}

// CooldownTicked carries the seconds left before a resend is allowed.
type CooldownTicked struct {
	Remaining int
}

// ResendAvailable is published when the cooldown reaches zero.
type ResendAvailable struct{}

type BusyChanged struct {
	Busy bool
}

type ResendingChanged struct {
	Resending bool
}

type CodeChanged struct {
	Code string
}

// CodeResent is published when the server accepted a resend request.
type CodeResent struct{}

// NoticeRaised asks the screen to show a transient message.
type NoticeRaised struct {
	Message string
	Kind    iam.ErrorKind
}

type VerificationSucceeded struct{}

type VerificationFailed struct {
	Kind iam.ErrorKind
	Err  error
}

func (CooldownTicked) EventName() string        { return "cooldown_ticked" }
func (ResendAvailable) EventName() string       { return "resend_available" }
func (BusyChanged) EventName() string           { return "busy_changed" }
func (ResendingChanged) EventName() string      { return "resending_changed" }
func (CodeChanged) EventName() string           { return "code_changed" }
func (CodeResent) EventName() string            { return "code_resent" }
func (NoticeRaised) EventName() string          { return "notice_raised" }
func (VerificationSucceeded) EventName() string { return "verification_succeeded" }
func (VerificationFailed) EventName() string    { return "verification_failed" }

// Bus delivers events to subscribers. Every subscriber gets the events
// in publish order on its own goroutine, so a slow or re-entrant
// handler never holds up the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: map[uint64]*Subscription{}}
}

// Subscribe registers handler. Subscribing to a closed bus returns an
// already ended subscription.
func (bus *Bus) Subscribe(handler func(Event)) *Subscription {
	if handler == nil {
		panic("handler must not be nil")
	}
	sub := &Subscription{
		bus:     bus,
		handler: handler,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		sub.end()
		return sub
	}
	bus.nextID++
	sub.id = bus.nextID
	bus.subs[sub.id] = sub
	go sub.deliver()
	return sub
}

func (bus *Bus) Publish(ev Event) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		return
	}
	for _, sub := range bus.subs {
		sub.enqueue(ev)
	}
}

// Close ends all subscriptions. Events still queued are dropped.
func (bus *Bus) Close() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		return
	}
	bus.closed = true
	for id, sub := range bus.subs {
		sub.end()
		delete(bus.subs, id)
	}
}

func (bus *Bus) SubscriberCount() int {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return len(bus.subs)
}

func (bus *Bus) remove(id uint64) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.subs, id)
}

type Subscription struct {
	bus     *Bus
	id      uint64
	handler func(Event)

	mu      sync.Mutex
	queue   []Event
	signal  chan struct{}
	done    chan struct{}
	endOnce sync.Once
}

// Unsubscribe stops the delivery. A handler call already in progress
// completes; nothing is delivered after that.
func (sub *Subscription) Unsubscribe() {
	sub.bus.remove(sub.id)
	sub.end()
}

// Done is closed when the subscription ends.
func (sub *Subscription) Done() <-chan struct{} { return sub.done }

func (sub *Subscription) end() {
	sub.endOnce.Do(func() { close(sub.done) })
}

func (sub *Subscription) enqueue(ev Event) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, ev)
	sub.mu.Unlock()
	select {
	case sub.signal <- struct{}{}:
	default:
	}
}

func (sub *Subscription) deliver() {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.signal:
		}
		for {
			sub.mu.Lock()
			if len(sub.queue) == 0 {
				sub.mu.Unlock()
				break
			}
			ev := sub.queue[0]
			sub.queue[0] = nil
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()

			select {
			case <-sub.done:
				return
			default:
			}
			sub.handler(ev)
		}
	}
}
