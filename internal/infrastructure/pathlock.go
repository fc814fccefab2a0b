package infrastructure

import "sync"

// transferLocks serializes writers of the same destination path. The
// orchestrator serializes repeat downloads of the same object, but distinct
// URLs can still resolve to the same filename (header fallbacks), so the
// strategies also lock on the final path once they have resolved it.
var transferLocks = newPathLocks()

type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// acquire blocks until the path is free and returns the release func.
// An entry is dropped once its last holder releases.
func (p *pathLocks) acquire(path string) func() {
	p.mu.Lock()
	l, ok := p.locks[path]
	if !ok {
		l = &pathLock{}
		p.locks[path] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, path)
		}
		p.mu.Unlock()
	}
}
