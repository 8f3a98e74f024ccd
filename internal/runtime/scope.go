package runtime

import "sync"

// evalScope owns the trees, cursors and parsers a script creates during one
// evaluation. Risor has no destructors, so everything is released when the
// evaluation returns. Values handed in by the host are never tracked.
type evalScope struct {
	mu      sync.Mutex
	closers []func()
	done    bool
}

func newEvalScope() *evalScope {
	return &evalScope{}
}

// track registers fn to run when the scope is released. If the scope has
// already been released, fn runs immediately.
func (s *evalScope) track(fn func()) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		fn()
		return
	}
	s.closers = append(s.closers, fn)
	s.mu.Unlock()
}

// release runs the registered closers, newest first.
func (s *evalScope) release() {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.done = true
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
