// Package session implements the volatile session store: TTL-backed Redis
// persistence for session records plus the per-subject and per-tenant index
// sets the Manager uses for bulk operations and eviction.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is the sentinel for transport-level Redis failures. It is
// deliberately distinct from redis.Nil (absent): an unreachable store must
// never masquerade as a mass logout.
var ErrUnavailable = errors.New("volatile store unavailable")

// ErrCorruptRecord is returned when a stored blob fails to decode.
var ErrCorruptRecord = errors.New("session record corrupt")

const deleteRecordScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
redis.call("SREM", KEYS[3], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// Store is the Redis-backed volatile session store. It owns record encoding,
// TTL handling, and index-set maintenance; it carries no session policy.
//
// A Store is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a Store backed by the given Redis client. prefix
// namespaces every key; pass the configured value, it must not be empty.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "sk"
	}
	return &Store{redis: rdb, prefix: prefix}
}

func (s *Store) recordKey(subjectID, token string) string {
	return s.prefix + ":s:" + subjectID + ":" + token
}

func (s *Store) subjectKey(subjectID string) string {
	return s.prefix + ":u:" + subjectID
}

func (s *Store) tenantKey(tenantID, subjectID string) string {
	return s.prefix + ":t:" + tenantID + ":" + subjectID
}

// Put atomically upserts a record with the given TTL and registers its token
// in both index sets, refreshing the set TTLs to match. An existing record at
// the same key is overwritten.
//
//	Performance: one transactional pipeline (SET + 2x SADD + 2x EXPIRE).
func (s *Store) Put(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	recordKey := s.recordKey(rec.SubjectID, rec.Token)
	subjectKey := s.subjectKey(rec.SubjectID)
	tenantKey := s.tenantKey(rec.TenantID, rec.SubjectID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey, data, ttl)
		pipe.SAdd(ctx, subjectKey, rec.Token)
		pipe.Expire(ctx, subjectKey, ttl)
		pipe.SAdd(ctx, tenantKey, rec.Token)
		pipe.Expire(ctx, tenantKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Touch re-upserts a record with a refreshed TTL. Functionally identical to
// Put; the separate name documents activity-refresh intent at call sites.
func (s *Store) Touch(ctx context.Context, rec *Record, ttl time.Duration) error {
	return s.Put(ctx, rec, ttl)
}

// Get retrieves a record. Returns redis.Nil when the key is missing or past
// its TTL; store-level expiry is authoritative at this layer.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, subjectID, token string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.recordKey(subjectID, token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return decodeRecord(data)
}

// MarkRevoked flips the revoked flag and re-stores the record under a short
// bounded TTL. The tombstone keeps "revoked" observable for a grace window
// instead of collapsing into "never existed", while still bounding memory.
// The token is removed from both index sets so the session no longer counts
// as active.
//
// Returns false when the record is already gone; revoking twice is a no-op.
func (s *Store) MarkRevoked(ctx context.Context, subjectID, token string, tombstoneTTL time.Duration) (bool, error) {
	rec, err := s.Get(ctx, subjectID, token)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if rec.Revoked {
		return false, nil
	}

	rec.Revoked = true
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(subjectID, token), data, tombstoneTTL)
		pipe.SRem(ctx, s.subjectKey(subjectID), token)
		pipe.SRem(ctx, s.tenantKey(rec.TenantID, subjectID), token)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return true, nil
}

// Delete hard-removes a record and its index entries.
//
//	Performance: 1 GET + 1 Lua EVALSHA (DEL + 2x SREM, atomic).
func (s *Store) Delete(ctx context.Context, subjectID, token string) error {
	rec, err := s.Get(ctx, subjectID, token)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Record gone; clear any stale index entry anyway.
			if err := s.redis.SRem(ctx, s.subjectKey(subjectID), token).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return nil
		}
		return err
	}

	keys := []string{
		s.recordKey(subjectID, token),
		s.subjectKey(subjectID),
		s.tenantKey(rec.TenantID, subjectID),
	}
	if _, err := deleteRecordLua.Run(ctx, s.redis, keys, token).Result(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// ListForSubject resolves the subject's index set and batch-fetches each
// token's record, dropping entries whose record has already expired. Stale
// index entries are pruned best-effort.
//
//	Performance: 1 SMEMBERS + 1 pipelined GET batch.
func (s *Store) ListForSubject(ctx context.Context, subjectID string) ([]*Record, error) {
	tokens, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(tokens) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(tokens))
	for i, token := range tokens {
		cmds[i] = pipe.Get(ctx, s.recordKey(subjectID, token))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	records := make([]*Record, 0, len(tokens))
	var stale []interface{}
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, tokens[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, cmdErr)
		}

		rec, decErr := decodeRecord(data)
		if decErr != nil {
			return nil, decErr
		}
		records = append(records, rec)
	}

	if len(stale) > 0 {
		_ = s.redis.SRem(ctx, s.subjectKey(subjectID), stale...).Err()
	}

	return records, nil
}

// CountForSubject returns the number of tokens tracked in the subject's
// index set. The set may transiently overcount records that expired between
// index refreshes; callers needing exactness should list and filter.
func (s *Store) CountForSubject(ctx context.Context, subjectID string) (int, error) {
	count, err := s.redis.SCard(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}

// DeleteAllForSubject hard-removes every record tracked for the subject and
// clears the index sets. Returns the number of records that still existed.
//
// Not fully atomic: a session created between the SMEMBERS read and the
// delete pipeline is not captured and will be caught by its own TTL or a
// later call.
func (s *Store) DeleteAllForSubject(ctx context.Context, subjectID string) (int, error) {
	records, err := s.ListForSubject(ctx, subjectID)
	if err != nil {
		return 0, err
	}

	if len(records) == 0 {
		if err := s.redis.Del(ctx, s.subjectKey(subjectID)).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return 0, nil
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			pipe.Del(ctx, s.recordKey(subjectID, rec.Token))
			pipe.SRem(ctx, s.tenantKey(rec.TenantID, subjectID), rec.Token)
		}
		pipe.Del(ctx, s.subjectKey(subjectID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return len(records), nil
}

// Health returns a point-in-time availability probe and its round-trip
// latency.
func (s *Store) Health(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &rec, nil
}
