package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ActivityStore tracks each signed-in user's last activity and enforces a
// sliding inactivity timeout. A request arriving after the window has passed
// is rejected once; the record is cleared so the caller's next sign-in starts
// a fresh session.
type ActivityStore struct {
	client  *redis.Client
	timeout time.Duration
	now     func() time.Time
}

// Config for the redis-backed activity store.
type Config struct {
	RedisURL string
	Timeout  time.Duration
}

func NewActivityStore(cfg Config) (*ActivityStore, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &ActivityStore{client: client, timeout: cfg.Timeout, now: time.Now}, nil
}

// NewActivityStoreWithClient wires an existing client; used by tests.
func NewActivityStoreWithClient(client *redis.Client, timeout time.Duration) *ActivityStore {
	return &ActivityStore{client: client, timeout: timeout, now: time.Now}
}

func (s *ActivityStore) key(userID string) string {
	return "session:activity:" + userID
}

// Touch records activity for the user and reports whether their previous
// session had already idled out. An expired session is cleared so the
// following request starts fresh. A user with no recorded activity gets a
// new session rather than a rejection.
func (s *ActivityStore) Touch(ctx context.Context, userID string) (expired bool, err error) {
	key := s.key(userID)

	last, err := s.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to read session activity: %w", err)
	}

	if err == nil {
		ts, parseErr := time.Parse(time.RFC3339Nano, last)
		if parseErr == nil && s.now().Sub(ts) > s.timeout {
			if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
				return true, fmt.Errorf("failed to clear expired session: %w", delErr)
			}
			return true, nil
		}
	}

	// Keys self-expire well past the timeout as garbage collection only;
	// expiry decisions are made from the stored timestamp.
	if err := s.client.Set(ctx, key, s.now().UTC().Format(time.RFC3339Nano), 2*s.timeout).Err(); err != nil {
		return false, fmt.Errorf("failed to record session activity: %w", err)
	}
	return false, nil
}

// Expire ends the user's session immediately.
func (s *ActivityStore) Expire(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *ActivityStore) Close() error {
	return s.client.Close()
}
