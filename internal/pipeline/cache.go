package pipeline

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/doclab/doclab/internal/options"
)

// SessionCache memoizes built Sessions keyed by options fingerprint.
// Concurrent callers asking for the same key share one in-flight build;
// build errors are not cached, so the next caller retries.
type SessionCache struct {
	configurator *Configurator

	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
	inflight map[string]*buildCall
}

type buildCall struct {
	done chan struct{}
	sess *Session
	err  error
}

// NewSessionCache creates a cache holding at most size sessions.
func NewSessionCache(configurator *Configurator, size int) (*SessionCache, error) {
	sessions, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, err
	}
	return &SessionCache{
		configurator: configurator,
		sessions:     sessions,
		inflight:     make(map[string]*buildCall),
	}, nil
}

// Get returns the session for opts, building it at most once per key.
func (c *SessionCache) Get(ctx context.Context, opts options.ProcessingOptions) (*Session, error) {
	key := opts.Fingerprint()

	c.mu.Lock()
	if sess, ok := c.sessions.Get(key); ok {
		c.mu.Unlock()
		return sess, nil
	}
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.sess, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &buildCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	sess, err := c.configurator.Build(ctx, opts)
	call.sess, call.err = sess, err

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		c.sessions.Add(key, sess)
	}
	c.mu.Unlock()
	close(call.done)

	return sess, err
}

// Reset drops all cached sessions.
func (c *SessionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions.Purge()
}

// Len returns the number of cached sessions.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions.Len()
}
