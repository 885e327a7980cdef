package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired 锁已被其他持有者占用
var ErrLockNotAcquired = errors.New("cache: lock not acquired")

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于 SET NX 的分布式锁
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker 创建分布式锁，ttl 为锁的最长持有时间
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

// Lock 已获取的锁
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Key 锁的键
func (l *Lock) Key() string {
	return l.key
}

// RoomLockKey 房间预订锁的键
func RoomLockKey(roomID int64) string {
	return BuildKey(KeyPrefixRoomLock, strconv.FormatInt(roomID, 10))
}

// Acquire 尝试获取锁，已被占用时返回 ErrLockNotAcquired
func (l *Locker) Acquire(ctx context.Context, key string) (*Lock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{client: l.client, key: key, token: token}, nil
}

// Release 释放锁，锁已过期或被他人持有时不做任何事
func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
