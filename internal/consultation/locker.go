package consultation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlotLocker serializes bookings of the same (doctor, date, slot) triple.
// Lock returns ErrSlotUnavailable when another actor holds the slot.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SlotKey builds the lock key for a doctor's slot on a date.
func SlotKey(doctorID, date, slot string) string {
	return fmt.Sprintf("slot:%s:%s:%s", doctorID, date, normalizeSlot(slot))
}

// LocalLocker serializes every booking in this process.
type LocalLocker struct {
	mu sync.Mutex
}

// NewLocalLocker returns an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// Lock blocks until no other booking in this process is running.
func (l *LocalLocker) Lock(_ context.Context, _ string) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds slot locks in Redis so bookings from several server
// instances serialize per slot. It only guards double-booking when the
// repository sits on a RecordStore, which the engine re-reads under the lock.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLocker creates a locker whose locks expire after ttl.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, prefix: "telemed:"}
}

// Lock sets the key with NX. A held key means a concurrent booking of the
// same slot is in flight, which is reported as ErrSlotUnavailable.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	fullKey := l.prefix + key

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: slot is being booked by someone else", ErrSlotUnavailable)
	}

	return func() {
		// detached from the request so a cancelled caller still releases
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// a failed release is cleaned up by the TTL
		_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
	}, nil
}
