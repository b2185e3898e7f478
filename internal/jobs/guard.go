package jobs

import "sync"

// prGuard serializes review runs per pull request. Without it two rapid-fire
// triggers on the same PR can race to submit two reviews; whether that is
// acceptable is a deployment choice, so the guard sits behind a config flag.
type prGuard struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newPRGuard() *prGuard {
	return &prGuard{locks: make(map[string]*entry)}
}

func (g *prGuard) lock(key string) {
	g.mu.Lock()
	e, ok := g.locks[key]
	if !ok {
		e = &entry{}
		g.locks[key] = e
	}
	e.refs++
	g.mu.Unlock()

	e.mu.Lock()
}

func (g *prGuard) unlock(key string) {
	g.mu.Lock()
	e := g.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(g.locks, key)
	}
	g.mu.Unlock()

	e.mu.Unlock()
}
