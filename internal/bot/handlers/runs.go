package handlers

import "sync"

// RunGuard allows one background analysis at a time and lets shutdown wait
// for it.
type RunGuard struct {
	mu     sync.Mutex
	active bool
	wg     sync.WaitGroup
}

// NewRunGuard creates an idle RunGuard.
func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// Start claims the guard. It returns false while another run holds it;
// otherwise the caller must call done when its run ends.
func (g *RunGuard) Start() (done func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return nil, false
	}
	g.active = true
	g.wg.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.active = false
			g.mu.Unlock()
			g.wg.Done()
		})
	}, true
}

// Wait blocks until the current run, if any, has finished.
func (g *RunGuard) Wait() {
	g.wg.Wait()
}
