package triage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"wellnessconnect/internal/logger"
	"wellnessconnect/internal/redis"
)

const (
	rosterKey         = "triage:roster"
	generationKey     = "triage:generation"
	invalidateChannel = "triage:invalidate"

	defaultRosterTTL = 30 * time.Second
)

// sharedRoster is the redis copy of a board with the generation it was built at.
type sharedRoster struct {
	Generation string `json:"generation"`
	Board      *Board `json:"board"`
}

type invalidateMessage struct {
	Origin string `json:"origin"`
	Reason string `json:"reason"`
}

// rosterCache keeps the last built board in process and, when redis is
// configured, in redis so sibling instances can share it.
type rosterCache struct {
	client *redis.Client
	ttl    time.Duration
	origin string
	log    *logger.Logger

	mu      sync.RWMutex
	board   *Board
	expires time.Time
	gen     uint64 // bumped on every invalidation, local or peer
}

// generation identifies the cache state a board build started from. A build
// may only be stored if no invalidation happened since.
type generation struct {
	local  uint64
	remote string
}

func newRosterCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *rosterCache {
	if ttl <= 0 {
		ttl = defaultRosterTTL
	}
	return &rosterCache{
		client: client,
		ttl:    ttl,
		origin: uuid.NewString(),
		log:    logger.OrNop(log),
	}
}

func (c *rosterCache) get(ctx context.Context) (*Board, bool) {
	c.mu.RLock()
	b, exp, gen := c.board, c.expires, c.gen
	c.mu.RUnlock()
	if b != nil && time.Now().Before(exp) {
		return b, true
	}
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, rosterKey)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.log.Warn("triage roster redis read failed", "error", err)
		}
		return nil, false
	}
	var entry sharedRoster
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Board == nil {
		c.log.Warn("triage roster decode failed", "error", err)
		return nil, false
	}
	// a copy written after a later invalidation is stale
	if entry.Generation != c.remoteGeneration(ctx) {
		return nil, false
	}
	c.storeLocal(entry.Board, gen)
	return entry.Board, true
}

// snapshot returns the current generation. Read it before loading students.
func (c *rosterCache) snapshot(ctx context.Context) generation {
	c.mu.RLock()
	g := generation{local: c.gen}
	c.mu.RUnlock()
	g.remote = c.remoteGeneration(ctx)
	return g
}

func (c *rosterCache) remoteGeneration(ctx context.Context) string {
	if c.client == nil {
		return ""
	}
	v, err := c.client.Get(ctx, generationKey)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.log.Warn("triage generation read failed", "error", err)
		}
		return ""
	}
	return v
}

// put stores board unless an invalidation happened after g was taken. The
// redis copy carries g.remote so readers can reject it once it is outdated.
func (c *rosterCache) put(ctx context.Context, board *Board, g generation) {
	if !c.storeLocal(board, g.local) {
		return
	}
	if c.client == nil {
		return
	}
	if c.remoteGeneration(ctx) != g.remote {
		c.dropLocal()
		return
	}
	data, err := json.Marshal(sharedRoster{Generation: g.remote, Board: board})
	if err != nil {
		c.log.Warn("triage roster encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, rosterKey, data, c.ttl); err != nil {
		c.log.Warn("triage roster redis write failed", "error", err)
	}
}

func (c *rosterCache) storeLocal(board *Board, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.board = board
	c.expires = time.Now().Add(c.ttl)
	return true
}

func (c *rosterCache) dropLocal() {
	c.mu.Lock()
	c.board = nil
	c.expires = time.Time{}
	c.gen++
	c.mu.Unlock()
}

// invalidate drops every copy and tells the other instances to drop theirs.
func (c *rosterCache) invalidate(ctx context.Context, reason string) {
	c.dropLocal()
	if c.client == nil {
		return
	}
	if _, err := c.client.Incr(ctx, generationKey); err != nil {
		c.log.Warn("triage generation bump failed", "error", err)
	}
	if err := c.client.Del(ctx, rosterKey); err != nil {
		c.log.Warn("triage roster redis delete failed", "error", err)
	}
	payload, err := json.Marshal(invalidateMessage{Origin: c.origin, Reason: reason})
	if err != nil {
		return
	}
	if err := c.client.Publish(ctx, invalidateChannel, payload); err != nil {
		c.log.Warn("triage invalidation publish failed", "error", err)
	}
}

// listen drops the local copy whenever another instance invalidates.
func (c *rosterCache) listen(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Subscribe(ctx, invalidateChannel, func(payload string) {
		var msg invalidateMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			c.log.Warn("triage invalidation decode failed", "error", err)
			return
		}
		if msg.Origin == c.origin {
			return
		}
		c.dropLocal()
		c.log.Debug("triage roster invalidated by peer", "origin", msg.Origin, "reason", msg.Reason)
	})
}
