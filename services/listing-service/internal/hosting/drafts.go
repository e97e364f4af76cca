package hosting

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DraftStore keeps one Builder per host and listing between requests.
type DraftStore interface {
	// Load returns the stored builder, or a fresh one when none exists.
	Load(ctx context.Context, key string) (*Builder, error)
	Save(ctx context.Context, key string, b *Builder) error
	Delete(ctx context.Context, key string) error
}

func DraftKey(hostID, listingID string) string {
	return hostID + ":" + listingID
}

// RedisDraftStore stores drafts as JSON with a sliding TTL so abandoned
// publish flows expire on their own.
type RedisDraftStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	loc    *time.Location
}

func NewRedisDraftStore(rdb *redis.Client, ttl time.Duration, prefix string, loc *time.Location) *RedisDraftStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "draft"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RedisDraftStore{rdb: rdb, ttl: ttl, prefix: prefix, loc: loc}
}

func (s *RedisDraftStore) Load(ctx context.Context, key string) (*Builder, error) {
	data, err := s.rdb.Get(ctx, s.prefix+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewBuilder(), nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeDraft(data, s.loc)
}

func (s *RedisDraftStore) Save(ctx context.Context, key string, b *Builder) error {
	data, err := EncodeDraft(b)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+":"+key, data, s.ttl).Err()
}

func (s *RedisDraftStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+":"+key).Err()
}

// MemoryDraftStore is a process-local DraftStore for single-instance
// deployments and tests. Drafts are stored encoded so callers never share a
// Builder, and expire ttl after their last save like RedisDraftStore.
type MemoryDraftStore struct {
	loc    *time.Location
	ttl    time.Duration
	now    func() time.Time
	mu     sync.Mutex
	drafts map[string]memoryDraft
}

type memoryDraft struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryDraftStore(ttl time.Duration, loc *time.Location) *MemoryDraftStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryDraftStore{loc: loc, ttl: ttl, now: time.Now, drafts: map[string]memoryDraft{}}
}

func (s *MemoryDraftStore) Load(_ context.Context, key string) (*Builder, error) {
	s.mu.Lock()
	d, ok := s.drafts[key]
	if ok && !s.now().Before(d.expiresAt) {
		delete(s.drafts, key)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return NewBuilder(), nil
	}
	return DecodeDraft(d.data, s.loc)
}

// Save stores b and drops every expired draft.
func (s *MemoryDraftStore) Save(_ context.Context, key string, b *Builder) error {
	data, err := EncodeDraft(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, d := range s.drafts {
		if !now.Before(d.expiresAt) {
			delete(s.drafts, k)
		}
	}
	s.drafts[key] = memoryDraft{data: data, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}

// Len reports how many drafts are held, expired ones included until the
// next Save.
func (s *MemoryDraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}
