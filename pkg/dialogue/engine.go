// Package dialogue implements the conversation state machine: it consumes
// one inbound event plus the participant's stored session and produces the
// outbound payloads for that turn.
//
// A session is a composite of independently stored flags, so the machine
// is expressed as a priority-ordered transition table rather than a single
// state enum: the first transition whose predicate holds runs, and every
// session mutation is committed before the payloads are handed back for
// delivery (write-then-notify).
package dialogue

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/artbot/pkg/batch"
	"github.com/tinyland-inc/artbot/pkg/bus"
	"github.com/tinyland-inc/artbot/pkg/catalog"
	"github.com/tinyland-inc/artbot/pkg/config"
	"github.com/tinyland-inc/artbot/pkg/logger"
	"github.com/tinyland-inc/artbot/pkg/risk"
	"github.com/tinyland-inc/artbot/pkg/session"
)

const startCommand = "/start"

// tunesPerPlaylist caps how many tracks one save emits.
const tunesPerPlaylist = 5

// turn carries the per-event state threaded through the transition table.
type turn struct {
	event    bus.InboundEvent
	input    string
	customer catalog.Customer
	scope    *session.Scope
}

type transition struct {
	name string
	when func(ctx context.Context, t *turn) (bool, error)
	run  func(ctx context.Context, t *turn) ([]bus.OutboundPayload, error)
}

// Engine drives the dialogue state machine.
type Engine struct {
	store    session.Store
	locks    *session.Locks
	catalog  catalog.Catalog
	batches  *batch.Generator
	lemma    risk.Lemmatizer
	composer *Composer

	patterns [][]string
	ttl      time.Duration
	resets   map[string]bool
	triggers map[string]string

	transitions []transition
}

func NewEngine(
	store session.Store,
	cat catalog.Catalog,
	batches *batch.Generator,
	lemma risk.Lemmatizer,
	cfg *config.Config,
) *Engine {
	resets := make(map[string]bool, len(cfg.Dialogue.ResetCommands))
	resetLabel := "Домой"
	for _, r := range cfg.Dialogue.ResetCommands {
		resets[r] = true
		if !strings.HasPrefix(r, "/") {
			resetLabel = r
		}
	}

	var menuLabels []string
	for trigger := range cfg.Dialogue.CategoryTriggers {
		if !strings.HasPrefix(trigger, "/") {
			menuLabels = append(menuLabels, trigger)
		}
	}

	e := &Engine{
		store:    store,
		locks:    session.NewLocks(),
		catalog:  cat,
		batches:  batches,
		lemma:    lemma,
		composer: NewComposer(cfg.Dialogue.BotName, resetLabel, menuLabels),
		patterns: risk.DefaultPatterns(),
		ttl:      cfg.SessionTTL(),
		resets:   resets,
		triggers: cfg.Dialogue.CategoryTriggers,
	}

	// Priority order is the contract: earlier transitions win.
	e.transitions = []transition{
		{name: "start", when: e.whenStart, run: e.runStart},
		{name: "reset", when: e.whenReset, run: e.runReset},
		{name: "onboarding", when: e.whenOnboarding, run: e.runOnboarding},
		{name: "category", when: e.whenCategory, run: e.runCategory},
		{name: "title", when: e.whenTitle, run: e.runTitle},
		{name: "save", when: e.whenSave, run: e.runSave},
		{name: "active", when: e.whenActive, run: e.runActive},
		{name: "fallback", when: e.whenAlways, run: e.runFallback},
	}

	return e
}

// Handle processes one inbound event under the participant's lock and
// returns the payloads to deliver. Infrastructure errors abort the turn
// with no partial reply.
func (e *Engine) Handle(ctx context.Context, ev bus.InboundEvent) ([]bus.OutboundPayload, error) {
	if ev.ChatID == "" {
		logger.WarnC("dialogue", "Dropping event without chat id")
		return nil, nil
	}

	input := strings.TrimSpace(ev.Content())
	if input == "" {
		return []bus.OutboundPayload{e.composer.NothingFound(ev.ChatID)}, nil
	}

	customer, err := e.catalog.UpsertCustomer(ctx, ev.ChatID, ev.SenderName, ev.SenderUser)
	if err != nil {
		return nil, err
	}

	release := e.locks.Acquire(customer.ID)
	defer release()

	t := &turn{
		event:    ev,
		input:    input,
		customer: customer,
		scope:    session.NewScope(e.store, customer.ID, e.ttl),
	}

	for _, tr := range e.transitions {
		ok, err := tr.when(ctx, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		logger.DebugCF("dialogue", "Transition", map[string]any{
			"customer": customer.ID,
			"name":     tr.name,
		})
		return tr.run(ctx, t)
	}

	// unreachable: fallback always fires
	return []bus.OutboundPayload{e.composer.NothingFound(ev.ChatID)}, nil
}

func (e *Engine) whenAlways(context.Context, *turn) (bool, error) { return true, nil }

// --- start -----------------------------------------------------------------

func (e *Engine) whenStart(_ context.Context, t *turn) (bool, error) {
	return t.input == startCommand, nil
}

func (e *Engine) runStart(ctx context.Context, t *turn) ([]bus.OutboundPayload, error) {
	if err := t.scope.Finalize(ctx); err != nil {
		return nil, err
	}
	if err := t.scope.SetAwaitingName(ctx); err != nil {
		return nil, err
	}
	return []bus.OutboundPayload{e.composer.Greeting(t.event.ChatID)}, nil
}

// --- reset -----------------------------------------------------------------

func (e *Engine) whenReset(_ context.Context, t *turn) (bool, error) {
	return e.resets[t.input], nil
}

func (e *Engine) runReset(ctx context.Context, t *turn) ([]bus.OutboundPayload, error) {
	if err := t.scope.Finalize(ctx); err != nil {
		return nil, err
	}
	return []bus.OutboundPayload{e.composer.Menu(t.event.ChatID)}, nil
}

// --- onboarding ------------------------------------------------------------

func (e *Engine) whenOnboarding(ctx context.Context, t *turn) (bool, error) {
	return t.scope.AwaitingName(ctx)
}

func (e *Engine) runOnboarding(ctx context.Context, t *turn) ([]bus.OutboundPayload, error) {
	if err := e.catalog.RenameCustomer(ctx, t.customer.ID, t.input); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}
	if err := t.scope.ClearAwaitingName(ctx); err != nil {
		return nil, err
	}
	return []bus.OutboundPayload{e.composer.MenuNamed(t.event.ChatID, t.input)}, nil
}

// --- category trigger ------------------------------------------------------

func (e *Engine) whenCategory(_ context.Context, t *turn) (bool, error) {
	_, ok := e.triggers[t.input]
	return ok, nil
}

func (e *Engine) runCategory(ctx context.Context, t *turn) ([]bus.OutboundPayload, error) {
	// a fresh batch replaces any prior pass
	if err := t.scope.ClearBatch(ctx); err != nil {
		return nil, err
	}
	if err := t.scope.ClearCurrentQuestion(ctx); err != nil {
		return nil, err
	}

	categoryType := e.triggers[t.input]
	if _, err := e.batches.Generate(ctx, t.scope, categoryType); err != nil {
		return nil, err
	}
	return e.advance(ctx, t, nil)
}

// --- awaiting title --------------------------------------------------------

func (e *Engine) whenTitle(ctx context.Context, t *turn) (bool, error) {
	return t.scope.AwaitingTitle(ctx)
}

func (e *Engine) runTitle(ctx context.Context, t *turn) ([]bus.OutboundPayload, error) {
	if err := t.scope.ClearAwaitingTitle(ctx); err != nil {
		return nil, err
	}

	targetID, ok, err := t.scope.PendingTargetID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []bus.OutboundPayload{e.composer.NothingFound(t.event.ChatID)}, nil
	}

	switch err := e.catalog.SetPlaylistTitle(ctx, targetID, t.input); {
	case errors.Is(err, catalog.ErrNotFound):
		return []bus.OutboundPayload{e.composer.NothingFound(t.event.ChatID)}, nil
	case err != nil:
		return nil, err
	}

	// the closing sub-flow ends the session
	if err := t.scope.Finalize(ctx); err != nil {
		return nil, err
	}

	return []bus.OutboundPayload{
		e.composer.TitleSaved(t.event.ChatID, t.input),
		e.composer.Farewell(t.event.ChatID),
	}, nil
}

// --- playlist save ---------------------------------------------------------

func (e *Engine) whenSave(_ context.Context, t *turn) (bool, error) {
	return t.input == saveTunesCallback || t.input == saveTunesLabel, nil
}

func (e *Engine) runSave(ctx context.Context, t *turn) ([]bus.OutboundPayload, error) {
	words, err := t.scope.Words(ctx)
	if err != nil {
		return nil, err
	}

	tunes, err := e.catalog.TunesByGenres(ctx, words, tunesPerPlaylist)
	if err != nil {
		return nil, err
	}

	playlist := catalog.Playlist{
		ID:         uuid.NewString(),
		CustomerID: t.customer.ID,
		Words:      words,
		Status:     catalog.PlaylistPending,
	}
	if err := e.catalog.CreatePlaylist(ctx, playlist); err != nil {
		return nil, err
	}
	if err := t.scope.SetPendingTargetID(ctx, playlist.ID); err != nil {
		return nil, err
	}
	if err := t.scope.SetAwaitingTitle(ctx); err != nil {
		return nil, err
	}

	logger.InfoCF("dialogue", "Playlist assembled", map[string]any{
		"customer": t.customer.ID,
		"playlist": playlist.ID,
		"tunes":    len(tunes),
	})

	var payloads []bus.OutboundPayload
	if len(tunes) == 0 {
		payloads = append(payloads, e.composer.NoTunes(t.event.ChatID))
	}
	for _, tune := range tunes {
		payloads = append(payloads, e.composer.Tune(t.event.ChatID, tune))
	}
	payloads = append(payloads, e.composer.TitlePrompt(t.event.ChatID))
	return payloads, nil
}

// --- active batch ----------------------------------------------------------

func (e *Engine) whenActive(ctx context.Context, t *turn) (bool, error) {
	current, err := t.scope.CurrentQuestion(ctx)
	if err != nil {
		return false, err
	}
	if current != nil {
		return true, nil
	}
	queue, err := t.scope.Batch(ctx)
	if err != nil {
		return false, err
	}
	return len(queue) > 0, nil
}

func (e *Engine) runActive(ctx context.Context, t *turn) ([]bus.OutboundPayload, error) {
	current, err := t.scope.CurrentQuestion(ctx)
	if err != nil {
		return nil, err
	}

	if current != nil {
		if tag, ok := current.ButtonTag(t.input); ok {
			// recognized button label: branch selection, no risk check
			if err := t.scope.AppendWord(ctx, tag); err != nil {
				return nil, err
			}
			if err := t.scope.ClearCurrentQuestion(ctx); err != nil {
				return nil, err
			}
		} else {
			payloads, escalated, err := e.checkRisk(ctx, t, current)
			if err != nil {
				return nil, err
			}
			if escalated {
				return payloads, nil
			}
		}
	}

	return e.advance(ctx, t, current)
}

// checkRisk runs the free-text reply through the lemma service and the
// risk detector. On a first match it escalates: flag, finalize, emit the
// escalation notice, and stop the turn.
func (e *Engine) checkRisk(ctx context.Context, t *turn, current *catalog.Question) ([]bus.OutboundPayload, bool, error) {
	lemmas, err := e.lemma.Lemmas(ctx, t.input)
	if err != nil {
		return nil, false, err
	}

	patterns := slices.Concat(e.patterns, current.RiskPatterns())
	if !risk.Matches(risk.NewStemSet(lemmas), patterns) {
		return nil, false, nil
	}

	flagged, err := t.scope.RiskFlagged(ctx)
	if err != nil {
		return nil, false, err
	}
	if flagged {
		// one escalation notice per session
		return nil, false, nil
	}

	if err := t.scope.SetRiskFlagged(ctx); err != nil {
		return nil, false, err
	}

	logger.WarnCF("dialogue", "Risk language detected, escalating", map[string]any{
		"customer": t.customer.ID,
	})

	if err := t.scope.Finalize(ctx); err != nil {
		return nil, false, err
	}
	return []bus.OutboundPayload{e.composer.Escalation(t.event.ChatID)}, true, nil
}

// advance pops the next question off the queue, or enters the terminal
// branch when the queue is exhausted. last is the question the reply
// answered, if any.
func (e *Engine) advance(ctx context.Context, t *turn, last *catalog.Question) ([]bus.OutboundPayload, error) {
	queue, err := t.scope.Batch(ctx)
	if err != nil {
		return nil, err
	}

	if len(queue) > 0 {
		next := queue[0]
		if err := t.scope.SetBatch(ctx, queue[1:]); err != nil {
			return nil, err
		}
		if err := t.scope.SetCurrentQuestion(ctx, next); err != nil {
			return nil, err
		}
		return e.composer.Question(t.event.ChatID, next), nil
	}

	// terminal branch
	if err := t.scope.ClearBatch(ctx); err != nil {
		return nil, err
	}
	if err := t.scope.ClearCurrentQuestion(ctx); err != nil {
		return nil, err
	}

	if last != nil && last.IsLast {
		return []bus.OutboundPayload{e.composer.Closing(t.event.ChatID)}, nil
	}
	return []bus.OutboundPayload{e.composer.ChooseNext(t.event.ChatID)}, nil
}

// --- fallback --------------------------------------------------------------

// runFallback resolves static knowledge-base content for the raw text.
// It never touches session state.
func (e *Engine) runFallback(ctx context.Context, t *turn) ([]bus.OutboundPayload, error) {
	content, err := e.catalog.LookupKnowledge(ctx, t.input)
	if errors.Is(err, catalog.ErrNotFound) {
		return []bus.OutboundPayload{e.composer.NothingFound(t.event.ChatID)}, nil
	}
	if err != nil {
		return nil, err
	}
	return []bus.OutboundPayload{e.composer.Knowledge(t.event.ChatID, content)}, nil
}
