package writer

import "sync"

// sequencer hands out append turns in chunk-index order. Chunks prepare
// their payloads concurrently, then wait for their turn before touching the
// sink. Every index must call done at least once, success or not, so that
// successors never block on a failed chunk. done may be called before the
// index's turn (a chunk that gave up early); the turn is then skipped.
type sequencer struct {
	cond     *sync.Cond
	finished map[int]bool
	mu       sync.Mutex
	next     int
}

func newSequencer() *sequencer {
	s := &sequencer{finished: make(map[int]bool)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *sequencer) wait(i int) {
	s.mu.Lock()
	for s.next != i {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

func (s *sequencer) done(i int) {
	s.mu.Lock()
	s.finished[i] = true
	for s.finished[s.next] {
		delete(s.finished, s.next)
		s.next++
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

// holdback parks the payloads of chunks whose turn came after a failed
// chunk. Once blocked, no further chunk appends during the concurrent phase;
// held payloads are flushed in index order after the failed chunk is retried.
type holdback struct {
	payloads map[int][]byte
	mu       sync.Mutex
	blocked  bool
}

func newHoldback() *holdback {
	return &holdback{payloads: make(map[int][]byte)}
}

func (h *holdback) block() {
	h.mu.Lock()
	h.blocked = true
	h.mu.Unlock()
}

// hold keeps payload for chunk i when appends are blocked and reports
// whether it did
func (h *holdback) hold(i int, payload []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.blocked {
		return false
	}
	h.payloads[i] = payload
	return true
}

// take removes and returns the held payload for chunk i
func (h *holdback) take(i int) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.payloads[i]
	delete(h.payloads, i)
	return p, ok
}

func (h *holdback) held(i int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.payloads[i]
	return ok
}
