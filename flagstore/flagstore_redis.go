package flagstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisFlagPrefix = "subjectflag/"

type RedisFlagStore struct {
	Client *redis.Client
}

var _ FlagStore = (*RedisFlagStore)(nil)

func NewRedisFlagStore(redisURL string) (*RedisFlagStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisFlagStore{Client: rdb}, nil
}

func redisFlagKey(subjectID uint64) string {
	return fmt.Sprintf("%s%d", redisFlagPrefix, subjectID)
}

func (s *RedisFlagStore) Get(ctx context.Context, subjectID uint64) (*State, error) {
	raw, err := s.Client.Get(ctx, redisFlagKey(subjectID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decoding flag state: %w", err)
	}
	return &st, nil
}

func (s *RedisFlagStore) Set(ctx context.Context, subjectID uint64, reason string, at time.Time) error {
	if reason == "" {
		return ErrEmptyReason
	}
	raw, err := json.Marshal(State{Reason: reason, FlaggedAt: at})
	if err != nil {
		return err
	}
	// flag state has no expiration; it is cleared by an explicit unflag
	return s.Client.Set(ctx, redisFlagKey(subjectID), raw, 0).Err()
}

func (s *RedisFlagStore) Clear(ctx context.Context, subjectID uint64) error {
	return s.Client.Del(ctx, redisFlagKey(subjectID)).Err()
}
