package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
)

const (
	keyPrefix     = "clinextract:status:"
	maxCASRetries = 5
)

// RedisTracker stores one JSON entry per transcript and applies transitions
// with WATCH/MULTI so concurrent workers cannot skip a state.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl}
}

func key(transcriptID string) string {
	return keyPrefix + transcriptID
}

func (r *RedisTracker) Get(ctx context.Context, transcriptID string) (Entry, error) {
	raw, err := r.client.Get(ctx, key(transcriptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read status: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode status: %w", err)
	}
	return entry, nil
}

func (r *RedisTracker) Transition(ctx context.Context, transcriptID string, to clinical.ProcessingStatus, message string) (Entry, error) {
	return r.update(ctx, transcriptID, string(to), func(current Entry, found bool) (Entry, error) {
		from := clinical.StatusPending
		if found {
			from = current.Status
		}
		if !clinical.CanTransition(from, to) {
			return Entry{}, transitionError(from, to)
		}
		return Entry{TranscriptID: transcriptID, Status: to, Message: message, UpdatedAt: time.Now().UTC()}, nil
	})
}

func (r *RedisTracker) Reclaim(ctx context.Context, transcriptID string, staleBefore time.Time, message string) (Entry, error) {
	return r.update(ctx, transcriptID, "reclaim", func(current Entry, found bool) (Entry, error) {
		if !found {
			return Entry{}, ErrNotFound
		}
		if err := checkReclaim(current, staleBefore); err != nil {
			return Entry{}, err
		}
		return Entry{TranscriptID: transcriptID, Status: clinical.StatusExtracting, Message: message, UpdatedAt: time.Now().UTC()}, nil
	})
}

// update reads the entry under WATCH, lets apply compute the next one and
// writes it in a MULTI block, retrying when another client got there first.
func (r *RedisTracker) update(ctx context.Context, transcriptID, op string, apply func(current Entry, found bool) (Entry, error)) (Entry, error) {
	k := key(transcriptID)
	var applied Entry

	txf := func(tx *redis.Tx) error {
		var current Entry
		found := true
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			found = false
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}
		}

		next, err := apply(current, found)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, r.ttl)
			return nil
		})
		if err == nil {
			applied = next
		}
		return err
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		err := r.client.Watch(ctx, txf, k)
		if err == nil {
			return applied, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logger.Log.WithFields(map[string]interface{}{
				"transcript_id": transcriptID,
				"op":            op,
				"attempt":       attempt + 1,
			}).Debug("status changed concurrently, retrying")
			continue
		}
		return Entry{}, err
	}
	return Entry{}, fmt.Errorf("status update for %s kept conflicting", transcriptID)
}

func (r *RedisTracker) Record(ctx context.Context, transcriptID string, status clinical.ProcessingStatus, message string) (Entry, error) {
	entry := Entry{TranscriptID: transcriptID, Status: status, Message: message, UpdatedAt: time.Now().UTC()}
	payload, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}
	if err := r.client.Set(ctx, key(transcriptID), payload, r.ttl).Err(); err != nil {
		return Entry{}, fmt.Errorf("write status: %w", err)
	}
	return entry, nil
}
