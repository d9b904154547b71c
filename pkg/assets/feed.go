package assets

import "sync"

// Subscription receives an [Event] for every Put made after it was created.
// Events are queued without bound, so a subscriber may itself call Put
// without deadlocking.
type Subscription struct {
	// C delivers events in Put order. It is closed after [Subscription.Close]
	// once every queued event has been delivered.
	C <-chan Event

	ch    chan Event
	feed  *feed
	mu    sync.Mutex
	cond  *sync.Cond
	queue []Event
	done  bool
}

func newSubscription(f *feed) *Subscription {
	ch := make(chan Event)
	s := &Subscription{C: ch, ch: ch, feed: f}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

func (s *Subscription) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.done {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			close(s.ch)
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.ch <- ev
	}
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.queue = append(s.queue, ev)
	s.cond.Signal()
}

// Close stops delivery of new events. Events already queued are still
// delivered before C is closed, so callers must keep reading C.
func (s *Subscription) Close() {
	s.feed.remove(s)
	s.finish()
}

func (s *Subscription) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		s.cond.Signal()
	}
}

// Pending returns the number of queued, undelivered events.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

type feed struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func (f *feed) subscribe() *Subscription {
	s := newSubscription(f)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		s.finish()
		return s
	}
	if f.subs == nil {
		f.subs = make(map[*Subscription]struct{})
	}
	f.subs[s] = struct{}{}
	return s
}

func (f *feed) publish(a *Asset, existing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subs {
		s.push(Event{Asset: a.clone(), Existing: existing})
	}
}

func (f *feed) remove(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, s)
}

func (f *feed) close() {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.closed = true
	f.mu.Unlock()

	for s := range subs {
		s.finish()
	}
}
