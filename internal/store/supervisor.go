package store

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Mode names which backend the supervisor is currently serving from.
type Mode string

const (
	// ModeRemote means operations run against the networked store.
	ModeRemote Mode = "remote"
	// ModeFallback means operations run against the in-process store.
	ModeFallback Mode = "fallback"
)

// ErrNoRemote is returned by Reconnect when no remote store was configured.
var ErrNoRemote = errors.New("store: no remote address configured")

const (
	defaultConnectRetries  = 2
	defaultRetryInitial    = 250 * time.Millisecond
	defaultRetryMaxWait    = 2 * time.Second
	defaultRetryMaxElapsed = 10 * time.Second
)

// SupervisorConfig holds settings for the resilient store.
type SupervisorConfig struct {
	// Redis configures the remote store. An empty Addr starts the supervisor
	// directly on the in-process fallback.
	Redis RedisConfig
	// Memory configures the in-process fallback.
	Memory MemoryConfig

	// ConnectRetries bounds how many times a connect attempt is retried
	// beyond the first try.
	ConnectRetries uint64
	// RetryInitialInterval seeds the exponential backoff between attempts.
	RetryInitialInterval time.Duration
	// RetryMaxInterval caps the backoff between attempts.
	RetryMaxInterval time.Duration
}

func (cfg *SupervisorConfig) applyDefaults() {
	if cfg.ConnectRetries == 0 {
		cfg.ConnectRetries = defaultConnectRetries
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = defaultRetryInitial
	}
	if cfg.RetryMaxInterval == 0 {
		cfg.RetryMaxInterval = defaultRetryMaxWait
	}
}

// Supervisor serves the Store interface from the remote store while it is
// healthy and degrades to the in-process store the moment a connection-class
// error surfaces. The switch is one-directional: once engaged, the fallback
// serves everything until Reconnect is called explicitly. The operation that
// observed the failure is answered closed (miss for reads, no-op for writes)
// rather than surfacing a transport error to the cache layer.
type Supervisor struct {
	cfg      SupervisorConfig
	fallback *MemoryStore
	remote   atomic.Pointer[RedisStore]

	// mu serializes mode transitions; data operations never take it.
	mu sync.Mutex
}

var _ Store = (*Supervisor)(nil)

// NewSupervisor builds the fallback store and, when an address is configured,
// attempts the initial remote connection with bounded retries. A failed
// initial connection is not an error: the supervisor starts degraded and can
// be brought back later via Reconnect.
func NewSupervisor(ctx context.Context, cfg SupervisorConfig) (*Supervisor, error) {
	cfg.applyDefaults()

	fallback, err := NewMemoryStore(cfg.Memory)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{cfg: cfg, fallback: fallback}

	if cfg.Redis.Addr == "" {
		log.Info().Msg("No remote store configured, using in-process store")
		return s, nil
	}

	remote, err := s.connect(ctx)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).
			Msg("Remote store unreachable, starting on in-process fallback")
		return s, nil
	}
	s.remote.Store(remote)
	return s, nil
}

func (s *Supervisor) connect(ctx context.Context) (*RedisStore, error) {
	var remote *RedisStore

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialInterval
	b.MaxInterval = s.cfg.RetryMaxInterval
	b.MaxElapsedTime = defaultRetryMaxElapsed

	operation := func() error {
		var err error
		remote, err = NewRedisStore(s.cfg.Redis)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.ConnectRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return remote, nil
}

// Mode reports which backend currently serves operations.
func (s *Supervisor) Mode() Mode {
	if s.remote.Load() != nil {
		return ModeRemote
	}
	return ModeFallback
}

// Reconnect attempts to restore the remote store. It is the only path out of
// fallback mode. Entries written to the fallback while degraded stay there;
// the remote resumes as the source of truth.
func (s *Supervisor) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remote.Load() != nil {
		return nil
	}
	if s.cfg.Redis.Addr == "" {
		return ErrNoRemote
	}

	remote, err := s.connect(ctx)
	if err != nil {
		return err
	}
	s.remote.Store(remote)
	Reconnects.Inc()
	log.Info().Str("addr", s.cfg.Redis.Addr).Msg("Reconnected to remote store")
	return nil
}

// current returns the store to run an operation against.
func (s *Supervisor) current() Store {
	if remote := s.remote.Load(); remote != nil {
		return remote
	}
	return s.fallback
}

// degraded decides whether err, produced by st, should engage the fallback.
// Only connection-class errors from the remote store count; everything else
// propagates to the caller untouched.
func (s *Supervisor) degraded(st Store, op string, err error) bool {
	if err == nil || st == Store(s.fallback) {
		return false
	}
	if !isConnectionError(err) {
		OperationErrors.WithLabelValues(op, string(ModeRemote)).Inc()
		return false
	}
	s.engageFallback(op, err)
	return true
}

func (s *Supervisor) engageFallback(op string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote := s.remote.Load()
	if remote == nil {
		// A concurrent operation already switched; nothing more to do.
		return
	}
	s.remote.Store(nil)
	FallbackEngagements.Inc()
	log.Warn().Err(cause).Str("op", op).
		Msg("Remote store failed, switching to in-process fallback")

	// Release the dead client's pool. In-flight operations will observe
	// ErrClosed, which classifies as connection-class and degrades too.
	go func() {
		if err := remote.Close(); err != nil {
			log.Debug().Err(err).Msg("Error closing remote store")
		}
	}()
}

// Get retrieves a value; a remote failure degrades to a miss.
func (s *Supervisor) Get(ctx context.Context, key string) ([]byte, error) {
	st := s.current()
	val, err := st.Get(ctx, key)
	if s.degraded(st, "get", err) {
		return nil, nil
	}
	return val, err
}

// Set stores a value; a remote failure drops the write.
func (s *Supervisor) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	st := s.current()
	err := st.Set(ctx, key, value, ttl)
	if s.degraded(st, "set", err) {
		return nil
	}
	return err
}

// Delete removes keys; a remote failure reports zero deletions.
func (s *Supervisor) Delete(ctx context.Context, keys ...string) (int64, error) {
	st := s.current()
	n, err := st.Delete(ctx, keys...)
	if s.degraded(st, "delete", err) {
		return 0, nil
	}
	return n, err
}

// Exists reports key presence; a remote failure reports absent.
func (s *Supervisor) Exists(ctx context.Context, key string) (bool, error) {
	st := s.current()
	ok, err := st.Exists(ctx, key)
	if s.degraded(st, "exists", err) {
		return false, nil
	}
	return ok, err
}

// ScanKeys lists matching keys; a remote failure reports none.
func (s *Supervisor) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	st := s.current()
	keys, err := st.ScanKeys(ctx, pattern)
	if s.degraded(st, "scan", err) {
		return nil, nil
	}
	return keys, err
}

// TTL reports remaining lifetime; a remote failure reports missing.
func (s *Supervisor) TTL(ctx context.Context, key string) (time.Duration, error) {
	st := s.current()
	d, err := st.TTL(ctx, key)
	if s.degraded(st, "ttl", err) {
		return TTLMissing, nil
	}
	return d, err
}

// IncrBy adjusts a counter; a remote failure drops the update.
func (s *Supervisor) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	st := s.current()
	n, err := st.IncrBy(ctx, key, delta)
	if s.degraded(st, "incrby", err) {
		return 0, nil
	}
	return n, err
}

// IncrByFloat adjusts a float counter; a remote failure drops the update.
func (s *Supervisor) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	st := s.current()
	f, err := st.IncrByFloat(ctx, key, delta)
	if s.degraded(st, "incrbyfloat", err) {
		return 0, nil
	}
	return f, err
}

// FlushAll clears the active backend.
func (s *Supervisor) FlushAll(ctx context.Context) error {
	st := s.current()
	err := st.FlushAll(ctx)
	if s.degraded(st, "flush", err) {
		return nil
	}
	return err
}

// Ping checks the active backend.
func (s *Supervisor) Ping(ctx context.Context) error {
	return s.current().Ping(ctx)
}

// Close releases both backends.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	remote := s.remote.Load()
	s.remote.Store(nil)
	s.mu.Unlock()

	var err error
	if remote != nil {
		err = remote.Close()
	}
	if ferr := s.fallback.Close(); err == nil {
		err = ferr
	}
	return err
}

// isConnectionError reports whether err indicates the remote store itself is
// unreachable, as opposed to a per-request problem. Caller-initiated
// cancellation and redis.Nil never count.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, probe := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no such host",
		"pool timeout",
		"client is closed",
	} {
		if strings.Contains(msg, probe) {
			return true
		}
	}
	return false
}
