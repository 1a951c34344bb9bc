package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when the caller still owns it.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// TermLocker serialises writers per term. Each (term) admits a single
// generation or repair at a time; a second writer gets ok=false rather than
// blocking.
type TermLocker interface {
	// Acquire attempts to take the lock for termID. When ok is true the
	// returned release func must be called exactly once.
	Acquire(ctx context.Context, termID string) (release func(), ok bool, err error)
}

// RedisTermLocker implements TermLocker on a shared Redis, so the
// single-writer guarantee holds across engine replicas.
type RedisTermLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTermLocker builds a locker with the provided TTL. The TTL bounds
// lock lifetime if a holder crashes mid-run.
func NewRedisTermLocker(client *redis.Client, ttl time.Duration) *RedisTermLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisTermLocker{client: client, ttl: ttl}
}

func (l *RedisTermLocker) Acquire(ctx context.Context, termID string) (func(), bool, error) {
	key := "term_lock:" + termID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release must not inherit the request context: the caller may
		// already be past its deadline when deferred cleanup runs.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
	}
	return release, true, nil
}

// LocalTermLocker is a process-local fallback used when Redis is not
// configured. Suitable for single-replica deployments only.
type LocalTermLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalTermLocker builds an in-memory locker.
func NewLocalTermLocker() *LocalTermLocker {
	return &LocalTermLocker{held: make(map[string]struct{})}
}

func (l *LocalTermLocker) Acquire(_ context.Context, termID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[termID]; busy {
		return nil, false, nil
	}
	l.held[termID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, termID)
			l.mu.Unlock()
		})
	}
	return release, true, nil
}
