// Package distlock provides cross-process leases so two dispatcher runs
// never write the same ledgers at once.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/mail-dispatcher/internal/pkg/logger"
)

// ErrLocked is returned by Guard when another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock is an exclusive lease on a key.
type Lock interface {
	// Acquire tries to take the lock without waiting.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if we still own it.
	Release(ctx context.Context) error
}

// Extender is implemented by locks that expire unless refreshed.
type Extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
}

// NewLock picks Redis when a client is given, else a PostgreSQL advisory
// lock.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) Lock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}

// Guard acquires l and, for expiring locks, refreshes it every ttl/3 until
// release is called. release is safe to call more than once.
func Guard(ctx context.Context, l Lock, ttl time.Duration) (release func(), err error) {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}

	keepCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	if ext, isExt := l.(Extender); isExt && ttl > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(ttl / 3)
			defer ticker.Stop()
			for {
				select {
				case <-keepCtx.Done():
					return
				case <-ticker.C:
					if err := ext.Extend(keepCtx, ttl); err != nil && keepCtx.Err() == nil {
						logger.Warn("lock refresh failed", "error", err)
					}
				}
			}
		}()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			wg.Wait()
			if err := l.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("lock release failed", "error", err)
			}
		})
	}, nil
}

// PGAdvisoryLock holds a session-scoped advisory lock on one pinned
// connection. The lock goes away with the connection if the process dies.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock derives a stable lock id from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	closeErr := l.conn.Close()
	l.conn = nil
	if err != nil {
		return err
	}
	return closeErr
}
