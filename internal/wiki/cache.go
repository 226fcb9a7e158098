package wiki

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a single document fetch.
const DefaultFetchTimeout = 8 * time.Second

// Gateway persists the single wiki document. Fetch bootstraps and returns an
// empty document when none exists; Replace overwrites it wholesale.
type Gateway interface {
	Fetch(ctx context.Context) (Document, error)
	Replace(ctx context.Context, doc Document) error
}

// Stater is implemented by gateways that track when the document was last
// replaced.
type Stater interface {
	UpdatedAt(ctx context.Context) (time.Time, error)
}

// Cache owns the loaded copy of the document. Concurrent loads share one
// fetch, every fetch is bounded by a timeout, and every write through the
// cache invalidates it.
type Cache struct {
	gateway Gateway
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	doc      *Document
	loadedAt time.Time
	gen      uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTTL expires a cached document after d. Zero keeps it until the next
// write or Invalidate.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = d }
}

// WithCacheClock replaces time.Now.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache wraps g.
func NewCache(g Gateway, opts ...CacheOption) *Cache {
	c := &Cache{gateway: g, timeout: DefaultFetchTimeout, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gateway returns the wrapped gateway.
func (c *Cache) Gateway() Gateway {
	return c.gateway
}

// Load returns a private copy of the document, fetching it when the cache is
// empty or expired.
func (c *Cache) Load(ctx context.Context) (Document, error) {
	c.mu.Lock()
	if c.doc != nil && (c.ttl <= 0 || c.now().Sub(c.loadedAt) < c.ttl) {
		doc := c.doc.Clone()
		c.mu.Unlock()
		return doc, nil
	}
	gen := c.gen
	c.mu.Unlock()

	// Keyed by generation so a load after Invalidate never joins an older fetch.
	v, err, _ := c.group.Do("document:"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return c.fetch(ctx, gen)
	})
	if err != nil {
		return Document{}, err
	}
	doc, ok := v.(Document)
	if !ok {
		return Document{}, &TransientError{Op: "fetch document", Err: errors.New("unexpected load result")}
	}
	return doc.Clone(), nil
}

// Refresh drops the cached copy and loads a new one.
func (c *Cache) Refresh(ctx context.Context) (Document, error) {
	c.Invalidate()
	return c.Load(ctx)
}

// Invalidate drops the cached copy. A fetch already in flight will not
// repopulate the cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.doc = nil
	c.gen++
	c.mu.Unlock()
}

// Replace writes doc through the gateway and invalidates the cache whether or
// not the write succeeded.
func (c *Cache) Replace(ctx context.Context, doc Document) error {
	defer c.Invalidate()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.gateway.Replace(ctx, doc); err != nil {
		return classify("replace document", err)
	}
	return nil
}

func (c *Cache) fetch(ctx context.Context, gen uint64) (Document, error) {
	// The fetch is shared by every waiting caller, so one caller going away
	// must not cancel it for the rest.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	doc, err := c.gateway.Fetch(ctx)
	if err != nil {
		return Document{}, classify("fetch document", err)
	}
	if doc.Menus == nil {
		doc.Menus = []MenuNode{}
	}
	if doc.Pages == nil {
		doc.Pages = []Page{}
	}

	c.mu.Lock()
	if c.gen == gen {
		stored := doc.Clone()
		c.doc = &stored
		c.loadedAt = c.now()
	}
	c.mu.Unlock()
	return doc, nil
}

func classify(op string, err error) error {
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrInvalid) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrCorrupt) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}
