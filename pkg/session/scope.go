package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tinyland-inc/artbot/pkg/catalog"
)

// Scope is the typed view of one participant's session. It is the only
// serialization boundary between dialogue types and the store.
type Scope struct {
	store      Store
	customerID int64
	ttl        time.Duration
}

func NewScope(store Store, customerID int64, ttl time.Duration) *Scope {
	return &Scope{store: store, customerID: customerID, ttl: ttl}
}

func (s *Scope) key(name string) string {
	return participantKey(name, s.customerID)
}

func (s *Scope) getFlag(ctx context.Context, name string) (bool, error) {
	_, ok, err := s.store.Get(ctx, s.key(name))
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	return ok, nil
}

func (s *Scope) setFlag(ctx context.Context, name string) error {
	if err := s.store.SetWithTTL(ctx, s.key(name), "1", s.ttl); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	return nil
}

func (s *Scope) clear(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, s.key(name)); err != nil {
		return fmt.Errorf("clearing %s: %w", name, err)
	}
	return nil
}

// AwaitingName reports whether the onboarding name prompt is pending.
func (s *Scope) AwaitingName(ctx context.Context) (bool, error) {
	return s.getFlag(ctx, keyNameFlag)
}

func (s *Scope) SetAwaitingName(ctx context.Context) error {
	return s.setFlag(ctx, keyNameFlag)
}

func (s *Scope) ClearAwaitingName(ctx context.Context) error {
	return s.clear(ctx, keyNameFlag)
}

// Batch returns the pending question queue, front first. A missing key is
// an empty queue.
func (s *Scope) Batch(ctx context.Context) ([]catalog.Question, error) {
	raw, ok, err := s.store.Get(ctx, s.key(keyBatch))
	if err != nil {
		return nil, fmt.Errorf("reading batch: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var queue []catalog.Question
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		return nil, fmt.Errorf("decoding batch: %w", err)
	}
	return queue, nil
}

func (s *Scope) SetBatch(ctx context.Context, queue []catalog.Question) error {
	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}
	if err := s.store.SetWithTTL(ctx, s.key(keyBatch), string(data), s.ttl); err != nil {
		return fmt.Errorf("storing batch: %w", err)
	}
	return nil
}

func (s *Scope) ClearBatch(ctx context.Context) error {
	return s.clear(ctx, keyBatch)
}

// CurrentQuestion returns the last question emitted, or nil.
func (s *Scope) CurrentQuestion(ctx context.Context) (*catalog.Question, error) {
	raw, ok, err := s.store.Get(ctx, s.key(keyCurrent))
	if err != nil {
		return nil, fmt.Errorf("reading current question: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var q catalog.Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("decoding current question: %w", err)
	}
	return &q, nil
}

func (s *Scope) SetCurrentQuestion(ctx context.Context, q catalog.Question) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encoding current question: %w", err)
	}
	if err := s.store.SetWithTTL(ctx, s.key(keyCurrent), string(data), s.ttl); err != nil {
		return fmt.Errorf("storing current question: %w", err)
	}
	return nil
}

func (s *Scope) ClearCurrentQuestion(ctx context.Context) error {
	return s.clear(ctx, keyCurrent)
}

// AppendWord records one branch tag into the running collection.
func (s *Scope) AppendWord(ctx context.Context, word string) error {
	if err := s.store.AppendList(ctx, s.key(keyWords), word, s.ttl); err != nil {
		return fmt.Errorf("appending word: %w", err)
	}
	return nil
}

// Words returns every branch tag collected this session, in append order.
func (s *Scope) Words(ctx context.Context) ([]string, error) {
	words, err := s.store.GetList(ctx, s.key(keyWords))
	if err != nil {
		return nil, fmt.Errorf("reading words: %w", err)
	}
	return words, nil
}

// AwaitingTitle reports whether the save sub-flow expects a title.
func (s *Scope) AwaitingTitle(ctx context.Context) (bool, error) {
	return s.getFlag(ctx, keyTitleFlag)
}

func (s *Scope) SetAwaitingTitle(ctx context.Context) error {
	return s.setFlag(ctx, keyTitleFlag)
}

func (s *Scope) ClearAwaitingTitle(ctx context.Context) error {
	return s.clear(ctx, keyTitleFlag)
}

// PendingTargetID returns the id of the save record awaiting a title.
func (s *Scope) PendingTargetID(ctx context.Context) (string, bool, error) {
	id, ok, err := s.store.Get(ctx, s.key(keyPendingID))
	if err != nil {
		return "", false, fmt.Errorf("reading pending target: %w", err)
	}
	return id, ok, nil
}

func (s *Scope) SetPendingTargetID(ctx context.Context, id string) error {
	if err := s.store.SetWithTTL(ctx, s.key(keyPendingID), id, s.ttl); err != nil {
		return fmt.Errorf("storing pending target: %w", err)
	}
	return nil
}

// RiskFlagged reports whether an escalation was already issued this session.
func (s *Scope) RiskFlagged(ctx context.Context) (bool, error) {
	return s.getFlag(ctx, keyRiskFlag)
}

func (s *Scope) SetRiskFlagged(ctx context.Context) error {
	return s.setFlag(ctx, keyRiskFlag)
}

// Finalize deletes every key of the session. Deletion is best-effort, not
// atomic: a concurrent writer can recreate a key, which the TTL then
// expires.
func (s *Scope) Finalize(ctx context.Context) error {
	if err := s.store.Delete(ctx, allKeys(s.customerID)...); err != nil {
		return fmt.Errorf("finalizing session: %w", err)
	}
	return nil
}
