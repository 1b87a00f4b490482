package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/attendance"
)

// DraftScope identifies one editor's unsaved edits for one grid.
type DraftScope struct {
	UserID  uint
	Kind    string
	BatchID *uint
}

func (s DraftScope) key() string {
	batch := uint(0)
	if s.BatchID != nil {
		batch = *s.BatchID
	}
	return fmt.Sprintf("attendance:draft:%d:%s:%d", s.UserID, s.Kind, batch)
}

// DraftStore keeps unsaved grid edits between requests. Fields are cell keys
// ("personId|YYYY-MM-DD") and values are statuses.
type DraftStore interface {
	Load(ctx context.Context, scope DraftScope) (map[string]attendance.Status, error)
	Apply(ctx context.Context, scope DraftScope, set map[string]attendance.Status, remove []string) error
	Clear(ctx context.Context, scope DraftScope) error
}

// NewDraftStore returns a Redis-backed store, or an in-process one when no client is configured.
func NewDraftStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) DraftStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if client == nil {
		return &memoryDraftStore{ttl: ttl, now: time.Now, drafts: make(map[string]memoryDraft)}
	}
	return &redisDraftStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "draft_store").Logger(),
	}
}

type redisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func (s *redisDraftStore) Load(ctx context.Context, scope DraftScope) (map[string]attendance.Status, error) {
	values, err := s.client.HGetAll(ctx, scope.key()).Result()
	if err != nil {
		return nil, err
	}
	draft := make(map[string]attendance.Status, len(values))
	for field, value := range values {
		status, err := attendance.ParseStatus(value)
		if err != nil || status == attendance.StatusNone {
			s.logger.Warn().Str("field", field).Str("value", value).Msg("dropping unreadable draft cell")
			continue
		}
		draft[field] = status
	}
	return draft, nil
}

func (s *redisDraftStore) Apply(ctx context.Context, scope DraftScope, set map[string]attendance.Status, remove []string) error {
	if len(set) == 0 && len(remove) == 0 {
		return nil
	}
	key := scope.key()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(remove) > 0 {
			pipe.HDel(ctx, key, remove...)
		}
		if len(set) > 0 {
			values := make(map[string]interface{}, len(set))
			for field, status := range set {
				values[field] = string(status)
			}
			pipe.HSet(ctx, key, values)
		}
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *redisDraftStore) Clear(ctx context.Context, scope DraftScope) error {
	return s.client.Del(ctx, scope.key()).Err()
}

type memoryDraft struct {
	cells     map[string]attendance.Status
	expiresAt time.Time
}

type memoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]memoryDraft
}

func (s *memoryDraftStore) Load(_ context.Context, scope DraftScope) (map[string]attendance.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[scope.key()]
	if !ok {
		return map[string]attendance.Status{}, nil
	}
	if s.now().After(draft.expiresAt) {
		delete(s.drafts, scope.key())
		return map[string]attendance.Status{}, nil
	}
	out := make(map[string]attendance.Status, len(draft.cells))
	for field, status := range draft.cells {
		out[field] = status
	}
	return out, nil
}

func (s *memoryDraftStore) Apply(_ context.Context, scope DraftScope, set map[string]attendance.Status, remove []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scope.key()
	draft, ok := s.drafts[key]
	if !ok || s.now().After(draft.expiresAt) {
		draft = memoryDraft{cells: make(map[string]attendance.Status)}
	}
	for _, field := range remove {
		delete(draft.cells, field)
	}
	for field, status := range set {
		draft.cells[field] = status
	}
	if len(draft.cells) == 0 {
		delete(s.drafts, key)
		return nil
	}
	draft.expiresAt = s.now().Add(s.ttl)
	s.drafts[key] = draft
	return nil
}

func (s *memoryDraftStore) Clear(_ context.Context, scope DraftScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, scope.key())
	return nil
}
