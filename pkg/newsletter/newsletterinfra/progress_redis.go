package newsletterinfra

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/redis/go-redis/v9"
)

const progressKeyPrefix = "mailflow:newsletter:progress:"

// RedisProgressStore keeps one JSON checkpoint per group UUID.
type RedisProgressStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisProgressStore creates a store. A zero ttl keeps checkpoints forever.
func NewRedisProgressStore(client redis.UniversalClient, ttl time.Duration) *RedisProgressStore {
	return &RedisProgressStore{client: client, ttl: ttl}
}

func (s *RedisProgressStore) Load(ctx context.Context, group kernel.GroupID) (*newsletter.Progress, error) {
	data, err := s.client.Get(ctx, progressKey(group)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, newsletter.Errors().NewWithCause(newsletter.ErrProgressStore, err).
			WithDetail("groupUUID", group.String())
	}

	var p newsletter.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, newsletter.Errors().NewWithCause(newsletter.ErrProgressStore, err).
			WithDetail("groupUUID", group.String())
	}
	return &p, nil
}

func (s *RedisProgressStore) Save(ctx context.Context, p *newsletter.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrProgressStore, err)
	}
	if err := s.client.Set(ctx, progressKey(p.GroupUUID), data, s.ttl).Err(); err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrProgressStore, err).
			WithDetail("groupUUID", p.GroupUUID.String())
	}
	return nil
}

func progressKey(group kernel.GroupID) string {
	return progressKeyPrefix + group.String()
}
