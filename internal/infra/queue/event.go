package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/store"
)

var errEmptyEvent = errors.New("invalidation event has no keys")

// NewEvent builds the event announcing that origin invalidated keys.
// Disabled keys are dropped.
func NewEvent(origin string, keys []store.Key) *domain.InvalidationEvent {
	ev := &domain.InvalidationEvent{Origin: origin}
	for _, k := range keys {
		if k.Enabled() {
			ev.Keys = append(ev.Keys, []string(k))
		}
	}
	return ev
}

// Targets returns the store keys of ev.
func Targets(ev *domain.InvalidationEvent) []store.Key {
	out := make([]store.Key, 0, len(ev.Keys))
	for _, parts := range ev.Keys {
		if k := store.Of(parts...); k.Enabled() {
			out = append(out, k)
		}
	}
	return out
}

func encodeEvent(ev *domain.InvalidationEvent) ([]byte, error) {
	if len(ev.Keys) == 0 {
		return nil, errEmptyEvent
	}
	return json.Marshal(ev)
}

func decodeEvent(b []byte) (*domain.InvalidationEvent, error) {
	var ev domain.InvalidationEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, fmt.Errorf("decode invalidation event: %w", err)
	}
	if len(ev.Keys) == 0 {
		return nil, errEmptyEvent
	}
	return &ev, nil
}

// partitionKey routes events of one collection to one partition so replicas
// apply them in publish order.
func partitionKey(ev *domain.InvalidationEvent) []byte {
	if len(ev.Keys) == 0 || len(ev.Keys[0]) == 0 {
		return nil
	}
	return []byte(ev.Keys[0][0])
}
