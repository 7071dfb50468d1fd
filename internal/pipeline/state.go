package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"VoiceIntent/pkg/redis"
)

var ErrRunInProgress = errors.New("a voice run is already in progress for this session")

// RunState tracks whether a session is recording. Begin moves the session to
// Recording and returns the function that moves it back to Idle; release is
// safe to call more than once.
type RunState interface {
	Begin(ctx context.Context, sessionID string) (release func(), err error)
	IsRecording(ctx context.Context, sessionID string) (bool, error)
}

type MemoryRunState struct {
	mu        sync.Mutex
	recording map[string]bool
}

func NewMemoryRunState() *MemoryRunState {
	return &MemoryRunState{recording: make(map[string]bool)}
}

func (m *MemoryRunState) Begin(_ context.Context, sessionID string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recording[sessionID] {
		return nil, ErrRunInProgress
	}
	m.recording[sessionID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.recording, sessionID)
			m.mu.Unlock()
		})
	}, nil
}

func (m *MemoryRunState) IsRecording(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording[sessionID], nil
}

const runLockPrefix = "voice:run:"

// RedisRunState shares the recording flag between replicas. The TTL bounds how
// long a crashed process can keep a session locked.
type RedisRunState struct {
	redis redis.IRedis
	ttl   time.Duration
	log   *logrus.Logger
}

func NewRedisRunState(r redis.IRedis, ttl time.Duration, log *logrus.Logger) *RedisRunState {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisRunState{redis: r, ttl: ttl, log: log}
}

func RunLockKey(sessionID string) string {
	return runLockPrefix + sessionID
}

func (r *RedisRunState) Begin(ctx context.Context, sessionID string) (func(), error) {
	token := uuid.NewString()
	key := RunLockKey(sessionID)
	ok, err := r.redis.AcquireLock(ctx, key, token, r.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The run context may already be cancelled; the release must still happen.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()

			if _, err := r.redis.ReleaseLock(releaseCtx, key, token); err != nil {
				r.log.WithFields(logrus.Fields{
					"session_id": sessionID,
					"error":      err.Error(),
				}).Error("Failed to release run lock")
			}
		})
	}, nil
}

func (r *RedisRunState) IsRecording(ctx context.Context, sessionID string) (bool, error) {
	return r.redis.LockExists(ctx, RunLockKey(sessionID))
}
