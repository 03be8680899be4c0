package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "finagent:idemp:"

// replayEntry is what the store keeps per request id: a claim while the
// handler runs, then the successful response.
type replayEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	BodySHA256  string    `json:"body_sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

func (e replayEntry) replayable() bool { return !e.InProgress && e.Code != 0 && len(e.Body) > 0 }

type replayStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// key scopes a request id to the caller and the route template.
func (replayStore) key(method, route, userID, reqID string) string {
	return replayKeyPrefix + userID + ":" + strings.ToLower(method) + ":" + route + ":" + reqID
}

// claim stores e only when key is free and reports whether it did.
func (s replayStore) claim(ctx context.Context, key string, e replayEntry) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, payload, claimTTL).Result()
}

func (s replayStore) load(ctx context.Context, key string) (replayEntry, error) {
	var e replayEntry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(v, &e)
	return e, err
}

func (s replayStore) finish(ctx context.Context, key string, e replayEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, payload, s.ttl).Err()
}

// release drops a claim so a failed attempt can be retried.
func (s replayStore) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

// normalizeReqID accepts any UUID spelling (dashed or 32 hex digits) and
// returns its canonical dashed form.
func normalizeReqID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 32 && len(raw) != 36 {
		return "", false
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
