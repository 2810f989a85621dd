package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrimpsizemoose/trekker/logger"
)

// ErrUnauthenticated is returned by the gate when no suitable principal
// is bound to the presented session token.
var ErrUnauthenticated = errors.New("unauthenticated")

const (
	sessionKeyTpl = "session:%s"
	tokenPrefix   = "sess-mzrn-"

	timeFormat = "2006-01-02 15:04:05"
)

type PrincipalKind string

const (
	KindAnonymous PrincipalKind = "anonymous"
	KindStudent   PrincipalKind = "student"
	KindAdmin     PrincipalKind = "admin"
)

// Principal is a tagged variant: exactly one of anonymous, student or
// admin. StudentID is meaningful only when Kind is KindStudent, so "both
// student and admin" is not representable.
type Principal struct {
	Kind      PrincipalKind
	StudentID int64
}

func Anonymous() Principal { return Principal{Kind: KindAnonymous} }

func StudentPrincipal(id int64) Principal { return Principal{Kind: KindStudent, StudentID: id} }

func AdminPrincipal() Principal { return Principal{Kind: KindAdmin} }

// SessionStore binds opaque tokens to principals. Lookup of an unknown or
// expired token yields the anonymous principal, not an error.
type SessionStore interface {
	Bind(ctx context.Context, p Principal) (string, error)
	Lookup(ctx context.Context, token string) (Principal, error)
	Clear(ctx context.Context, token string) error
	Close() error
}

func generateToken() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}

// NewSessionStore picks redis when a URL is configured, otherwise an
// in-process store. The in-process store loses sessions on restart and is
// meant for dev setups and tests.
func NewSessionStore(config *Config) (SessionStore, error) {
	if config.Sessions.RedisURL == "" {
		logger.Debug.Println("No redis_url configured, keeping sessions in memory")
		return NewMemorySessions(), nil
	}

	opt, err := redis.ParseURL(config.Sessions.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSessions{
		redis: client,
		ttl:   time.Duration(config.Sessions.TTLHours) * time.Hour,
	}, nil
}

type RedisSessions struct {
	redis *redis.Client
	ttl   time.Duration
}

func (s *RedisSessions) Bind(ctx context.Context, p Principal) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf(sessionKeyTpl, token)
	now := time.Now().UTC()

	pipe := s.redis.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"kind":             string(p.Kind),
		"student_id":       p.StudentID,
		"created_dttm_utc": now.Format(timeFormat),
	})
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to bind session: %w", err)
	}

	return token, nil
}

func (s *RedisSessions) Lookup(ctx context.Context, token string) (Principal, error) {
	key := fmt.Sprintf(sessionKeyTpl, token)

	fields, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return Anonymous(), fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return Anonymous(), nil
	}

	switch PrincipalKind(fields["kind"]) {
	case KindAdmin:
		return AdminPrincipal(), nil
	case KindStudent:
		id, err := strconv.ParseInt(fields["student_id"], 10, 64)
		if err != nil {
			logger.Debug.Printf("Malformed student_id in session %s: %v", token, err)
			return Anonymous(), nil
		}
		return StudentPrincipal(id), nil
	default:
		return Anonymous(), nil
	}
}

func (s *RedisSessions) Clear(ctx context.Context, token string) error {
	key := fmt.Sprintf(sessionKeyTpl, token)
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *RedisSessions) Close() error {
	return s.redis.Close()
}

// MemorySessions is the redis-less fallback. No TTL: dev sessions live as
// long as the process does.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]Principal
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]Principal)}
}

func (s *MemorySessions) Bind(_ context.Context, p Principal) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = p
	return token, nil
}

func (s *MemorySessions) Lookup(_ context.Context, token string) (Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.sessions[token]; ok {
		return p, nil
	}
	return Anonymous(), nil
}

func (s *MemorySessions) Clear(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemorySessions) Close() error {
	return nil
}
