// Package session holds per-participant ephemeral dialogue state in a
// TTL-bearing key-value store. A session is a virtual aggregate: each
// field lives under its own key and the aggregate is reconstructed from
// independent reads.
package session

import (
	"context"
	"fmt"
	"time"
)

// Store is the key-scoped, TTL-bearing storage contract. Absence of a key
// is "not set", never an error. Any returned error is infrastructural and
// fatal to the current dialogue turn.
type Store interface {
	// Get returns the value and whether the key was set.
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// AppendList appends to an ordered list, refreshing its TTL.
	AppendList(ctx context.Context, key, value string, ttl time.Duration) error
	GetList(ctx context.Context, key string) ([]string, error)
}

// Session key names, one per field of the virtual aggregate.
const (
	keyNameFlag  = "question-name-flag"
	keyBatch     = "question-batch"
	keyCurrent   = "current-question"
	keyWords     = "collected-words"
	keyTitleFlag = "awaiting-title-flag"
	keyPendingID = "pending-target-id"
	keyRiskFlag  = "risk-flag"
	keyNamespace = "art"
)

func participantKey(name string, customerID int64) string {
	return fmt.Sprintf("%s:%s:%d", keyNamespace, name, customerID)
}

// allKeys lists every key comprising one participant's session, in the
// order Finalize deletes them.
func allKeys(customerID int64) []string {
	names := []string{
		keyNameFlag, keyBatch, keyCurrent, keyWords,
		keyTitleFlag, keyPendingID, keyRiskFlag,
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, participantKey(n, customerID))
	}
	return keys
}
