package dialogue_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/artbot/pkg/batch"
	"github.com/tinyland-inc/artbot/pkg/bus"
	"github.com/tinyland-inc/artbot/pkg/catalog"
	"github.com/tinyland-inc/artbot/pkg/config"
	"github.com/tinyland-inc/artbot/pkg/dialogue"
	"github.com/tinyland-inc/artbot/pkg/risk"
	"github.com/tinyland-inc/artbot/pkg/session"
)

const testChatID = "100500"

// countingLemmatizer wraps a fold lemmatizer and records how often the
// engine consults it.
type countingLemmatizer struct {
	inner risk.Lemmatizer
	calls int
}

func (l *countingLemmatizer) Lemmas(ctx context.Context, text string) ([]string, error) {
	l.calls++
	return l.inner.Lemmas(ctx, text)
}

// failingLemmatizer aborts the turn when consulted.
type failingLemmatizer struct{}

func (failingLemmatizer) Lemmas(context.Context, string) ([]string, error) {
	return nil, errors.New("lemma service down")
}

type fixture struct {
	engine *dialogue.Engine
	store  *session.MemoryStore
	cat    *catalog.MemoryCatalog
	lemma  *countingLemmatizer
	cfg    *config.Config
}

func newFixture(t *testing.T, questions ...catalog.Question) *fixture {
	t.Helper()

	cat := catalog.NewMemoryCatalog()
	if len(questions) > 0 {
		cat.AddCategory("art", len(questions), questions...)
	}

	store := session.NewMemoryStore()
	lemma := &countingLemmatizer{inner: risk.NewFoldLemmatizer(map[string]string{
		"смысла": "смысл",
		"цели":   "цель",
	})}
	cfg := config.DefaultConfig()

	return &fixture{
		engine: dialogue.NewEngine(store, cat, batch.NewGenerator(cat), lemma, cfg),
		store:  store,
		cat:    cat,
		lemma:  lemma,
		cfg:    cfg,
	}
}

func (f *fixture) send(t *testing.T, text string) []bus.OutboundPayload {
	t.Helper()
	payloads, err := f.engine.Handle(context.Background(), bus.InboundEvent{
		Kind:       bus.EventText,
		ChatID:     testChatID,
		SenderName: "Тест",
		Text:       text,
	})
	require.NoError(t, err)
	return payloads
}

// scope returns a typed view over the fixture participant's session keys.
func (f *fixture) scope(t *testing.T) *session.Scope {
	t.Helper()
	cust, err := f.cat.UpsertCustomer(context.Background(), testChatID, "Тест", "")
	require.NoError(t, err)
	return session.NewScope(f.store, cust.ID, 10*time.Minute)
}

func TestEngine_StartOnboarding(t *testing.T) {
	f := newFixture(t)

	payloads := f.send(t, "/start")
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Text, f.cfg.Dialogue.BotName)
	assert.Contains(t, payloads[0].Text, "Как тебя зовут?")

	awaiting, err := f.scope(t).AwaitingName(context.Background())
	require.NoError(t, err)
	assert.True(t, awaiting)

	payloads = f.send(t, "Алина")
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Text, "Алина")
	require.NotNil(t, payloads[0].Keyboard)

	awaiting, err = f.scope(t).AwaitingName(context.Background())
	require.NoError(t, err)
	assert.False(t, awaiting)
}

func TestEngine_BatchAdvanceAndButtonBranch(t *testing.T) {
	f := newFixture(t,
		catalog.Question{ID: 1, Position: 1, Text: "Q1"},
		catalog.Question{ID: 2, Position: 2, Text: "Q2", Buttons: []catalog.QuestionButton{
			{Text: "Yes", CallbackData: "g1"},
		}},
	)

	payloads := f.send(t, "/begin")
	require.Len(t, payloads, 1)
	assert.Equal(t, "Q1", payloads[0].Text)
	assert.Nil(t, payloads[0].Keyboard)

	payloads = f.send(t, "обычный ответ")
	require.Len(t, payloads, 1)
	assert.Equal(t, "Q2", payloads[0].Text)
	require.NotNil(t, payloads[0].Keyboard)
	assert.Equal(t, "Yes", payloads[0].Keyboard.Rows[0][0].Label)

	callsBefore := f.lemma.calls
	payloads = f.send(t, "Yes")
	require.Len(t, payloads, 1)

	// button branch: tag recorded, no risk check, terminal reached
	assert.Equal(t, callsBefore, f.lemma.calls)
	words, err := f.scope(t).Words(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, words)
}

func TestEngine_ButtonBranchSkipsBrokenLemmaService(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	cat.AddCategory("art", 1, catalog.Question{
		ID: 1, Position: 1, Text: "Q1",
		Buttons: []catalog.QuestionButton{{Text: "Да", CallbackData: "yes"}},
	})
	store := session.NewMemoryStore()
	engine := dialogue.NewEngine(store, cat, batch.NewGenerator(cat), failingLemmatizer{}, config.DefaultConfig())

	_, err := engine.Handle(context.Background(), bus.InboundEvent{Kind: bus.EventText, ChatID: testChatID, Text: "/begin"})
	require.NoError(t, err)

	// the recognized label must never reach the lemmatizer
	_, err = engine.Handle(context.Background(), bus.InboundEvent{Kind: bus.EventText, ChatID: testChatID, Text: "Да"})
	require.NoError(t, err)

	// free text does, and the infrastructure failure aborts the turn
	_, err = engine.Handle(context.Background(), bus.InboundEvent{Kind: bus.EventText, ChatID: testChatID, Text: "/begin"})
	require.NoError(t, err)
	_, err = engine.Handle(context.Background(), bus.InboundEvent{Kind: bus.EventText, ChatID: testChatID, Text: "мне грустно"})
	require.Error(t, err)
}

func TestEngine_RiskEscalation(t *testing.T) {
	f := newFixture(t,
		catalog.Question{ID: 1, Position: 1, Text: "Q1"},
		catalog.Question{ID: 2, Position: 2, Text: "Q2"},
	)

	f.send(t, "/begin")

	payloads := f.send(t, "нет смысла")
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Text, "психологической помощи")

	// escalation finalized the session
	queue, err := f.scope(t).Batch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queue)

	current, err := f.scope(t).CurrentQuestion(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)

	// a second matching input has no active question and falls through to
	// the default prompt, not a second escalation
	payloads = f.send(t, "нет смысла")
	require.Len(t, payloads, 1)
	assert.NotContains(t, payloads[0].Text, "психологической помощи")
}

func TestEngine_EscalationAtMostOncePerSession(t *testing.T) {
	f := newFixture(t,
		catalog.Question{ID: 1, Position: 1, Text: "Q1"},
		catalog.Question{ID: 2, Position: 2, Text: "Q2"},
	)

	f.send(t, "/begin")

	// session already carries the risk flag
	require.NoError(t, f.scope(t).SetRiskFlagged(context.Background()))

	payloads := f.send(t, "нет смысла")
	require.Len(t, payloads, 1)
	assert.Equal(t, "Q2", payloads[0].Text, "flagged session advances instead of re-escalating")
}

func TestEngine_NoEscalationWithoutFullPattern(t *testing.T) {
	f := newFixture(t,
		catalog.Question{ID: 1, Position: 1, Text: "Q1"},
		catalog.Question{ID: 2, Position: 2, Text: "Q2"},
	)

	f.send(t, "/begin")

	payloads := f.send(t, "смысла много")
	require.Len(t, payloads, 1)
	assert.Equal(t, "Q2", payloads[0].Text)
}

func TestEngine_QuestionRiskWordsExtendDefaults(t *testing.T) {
	f := newFixture(t, catalog.Question{
		ID: 1, Position: 1, Text: "Q1",
		Details: &catalog.QuestionDetails{RiskWords: [][]string{{"пусто"}}},
	})

	f.send(t, "/begin")

	payloads := f.send(t, "внутри пусто")
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Text, "психологической помощи")
}

func TestEngine_ResetMidBatch(t *testing.T) {
	f := newFixture(t,
		catalog.Question{ID: 1, Position: 1, Text: "Q1"},
		catalog.Question{ID: 2, Position: 2, Text: "Q2"},
	)

	f.send(t, "/begin")

	payloads := f.send(t, "Домой")
	require.Len(t, payloads, 1)
	require.NotNil(t, payloads[0].Keyboard)

	scope := f.scope(t)
	queue, err := scope.Batch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queue)

	current, err := scope.CurrentQuestion(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)

	// the next unrelated text is not a continuation of the old queue
	payloads = f.send(t, "привет")
	require.Len(t, payloads, 1)
	assert.NotEqual(t, "Q2", payloads[0].Text)
}

func TestEngine_ResumesAcrossRestart(t *testing.T) {
	f := newFixture(t,
		catalog.Question{ID: 1, Position: 1, Text: "Q1"},
		catalog.Question{ID: 2, Position: 2, Text: "Q2"},
	)

	f.send(t, "/begin")

	// a fresh engine over the same store and catalog picks up where the
	// old one left off
	restarted := dialogue.NewEngine(f.store, f.cat, batch.NewGenerator(f.cat), f.lemma, f.cfg)
	payloads, err := restarted.Handle(context.Background(), bus.InboundEvent{
		Kind: bus.EventText, ChatID: testChatID, SenderName: "Тест", Text: "дальше",
	})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "Q2", payloads[0].Text)
}

func TestEngine_EmptyBatchTerminatesImmediately(t *testing.T) {
	f := newFixture(t)

	payloads := f.send(t, "/begin")
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Text, "Вопросы закончились")
}

func TestEngine_MediaQuestionEmitsTwoPayloads(t *testing.T) {
	f := newFixture(t, catalog.Question{
		ID: 1, Position: 1, Text: "Q1",
		Media: &catalog.QuestionMedia{URL: "https://example.org/a.mp3"},
	})

	payloads := f.send(t, "/begin")
	require.Len(t, payloads, 2)
	assert.Equal(t, bus.PayloadAudio, payloads[0].Kind)
	assert.Equal(t, "https://example.org/a.mp3", payloads[0].AudioURL)
	assert.Equal(t, bus.PayloadText, payloads[1].Kind)
	assert.Equal(t, "Q1", payloads[1].Text)
}

func TestEngine_ClosingPlaylistFlow(t *testing.T) {
	f := newFixture(t, catalog.Question{
		ID: 1, Position: 1, Text: "Какая музыка ближе?",
		Buttons: []catalog.QuestionButton{{Text: "Спокойная", CallbackData: "calm"}},
		IsLast:  true,
	})
	f.cat.AddTune(catalog.Tune{ID: 1, Title: "Тишина", Genre: "calm", AudioURL: "https://example.org/1.mp3"})

	f.send(t, "/begin")

	payloads := f.send(t, "Спокойная")
	require.Len(t, payloads, 1)
	require.NotNil(t, payloads[0].Keyboard)
	assert.Equal(t, "Собрать плейлист", payloads[0].Keyboard.Rows[0][0].Label)

	payloads = f.send(t, "Собрать плейлист")
	require.Len(t, payloads, 2)
	assert.Equal(t, bus.PayloadAudio, payloads[0].Kind)
	assert.Equal(t, "Тишина", payloads[0].Caption)
	assert.Contains(t, payloads[1].Text, "назовём")

	scope := f.scope(t)
	pendingID, ok, err := scope.PendingTargetID(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	payloads = f.send(t, "Мой вечерний плейлист")
	require.Len(t, payloads, 2)
	assert.Contains(t, payloads[0].Text, "Мой вечерний плейлист")

	saved, ok := f.cat.Playlist(pendingID)
	require.True(t, ok)
	assert.Equal(t, "Мой вечерний плейлист", saved.Title)
	assert.Equal(t, catalog.PlaylistNamed, saved.Status)
	assert.Equal(t, []string{"calm"}, saved.Words)

	// the closing sub-flow finalizes the session
	awaiting, err := scope.AwaitingTitle(context.Background())
	require.NoError(t, err)
	assert.False(t, awaiting)
}

func TestEngine_TitleWithoutPendingTarget(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.scope(t).SetAwaitingTitle(context.Background()))

	payloads := f.send(t, "Название")
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Text, "ничего не найдено")

	awaiting, err := f.scope(t).AwaitingTitle(context.Background())
	require.NoError(t, err)
	assert.False(t, awaiting, "flag cleared either way")
}

func TestEngine_KnowledgeFallback(t *testing.T) {
	f := newFixture(t)
	f.cat.AddKnowledge("Что ты умеешь?", "Я собираю музыкальные подборки.")

	payloads := f.send(t, "Что ты умеешь?")
	require.Len(t, payloads, 1)
	assert.Equal(t, "Я собираю музыкальные подборки.", payloads[0].Text)

	payloads = f.send(t, "абракадабра")
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Text, "ничего не найдено")
}

func TestEngine_EmptyInput(t *testing.T) {
	f := newFixture(t)

	payloads, err := f.engine.Handle(context.Background(), bus.InboundEvent{
		Kind: bus.EventText, ChatID: testChatID, Text: "   ",
	})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Text, "ничего не найдено")
}

func TestEngine_CallbackEventUsesData(t *testing.T) {
	f := newFixture(t, catalog.Question{
		ID: 1, Position: 1, Text: "Q1",
		Buttons: []catalog.QuestionButton{{Text: "Да", CallbackData: "yes"}},
	})

	f.send(t, "/begin")

	payloads, err := f.engine.Handle(context.Background(), bus.InboundEvent{
		Kind:   bus.EventCallback,
		ChatID: testChatID,
		Data:   "Да",
	})
	require.NoError(t, err)
	require.NotEmpty(t, payloads)

	words, err := f.scope(t).Words(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"yes"}, words)
}

func TestEngine_ScenarioFromTranscript(t *testing.T) {
	// batch [Q1 pos1 no buttons, Q2 pos2 one button Yes/g1]: first advance
	// asks Q1, answering Q2 with the button label records g1 and reaches
	// the terminal branch without a risk check.
	f := newFixture(t,
		catalog.Question{ID: 1, Position: 1, Text: "Q1"},
		catalog.Question{ID: 2, Position: 2, Text: "Q2", Buttons: []catalog.QuestionButton{
			{Text: "Yes", CallbackData: "g1"},
		}},
	)

	first := f.send(t, "/begin")
	require.Len(t, first, 1)
	assert.Equal(t, "Q1", first[0].Text)

	second := f.send(t, "ответ свободным текстом")
	require.Len(t, second, 1)
	assert.Equal(t, "Q2", second[0].Text)

	calls := f.lemma.calls
	third := f.send(t, "Yes")
	require.Len(t, third, 1)
	assert.Contains(t, third[0].Text, "Вопросы закончились")
	assert.Equal(t, calls, f.lemma.calls)

	words, err := f.scope(t).Words(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, words)

	queue, err := f.scope(t).Batch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestEngine_FallbackLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t)
	f.cat.AddKnowledge("справка", "Ответ из базы знаний.")

	f.send(t, "справка")

	scope := f.scope(t)
	for name, check := range map[string]func() (bool, error){
		"awaiting-name":  func() (bool, error) { return scope.AwaitingName(context.Background()) },
		"awaiting-title": func() (bool, error) { return scope.AwaitingTitle(context.Background()) },
		"risk-flag":      func() (bool, error) { return scope.RiskFlagged(context.Background()) },
	} {
		set, err := check()
		require.NoError(t, err, name)
		assert.False(t, set, name)
	}
}

func TestEngine_StripsInputWhitespace(t *testing.T) {
	f := newFixture(t, catalog.Question{ID: 1, Position: 1, Text: "Q1"})

	payloads := f.send(t, "  /begin  ")
	require.Len(t, payloads, 1)
	assert.Equal(t, "Q1", payloads[0].Text)
}

func TestEngine_MenuTriggerLabel(t *testing.T) {
	f := newFixture(t, catalog.Question{ID: 1, Position: 1, Text: "Q1"})

	payloads := f.send(t, "Арт-терапия")
	require.Len(t, payloads, 1)
	assert.Equal(t, "Q1", payloads[0].Text)
}

func TestEngine_TriggerReplacesPriorBatch(t *testing.T) {
	f := newFixture(t,
		catalog.Question{ID: 1, Position: 1, Text: "Q1"},
		catalog.Question{ID: 2, Position: 2, Text: "Q2"},
	)

	f.send(t, "/begin")
	f.send(t, "ответ") // now on Q2

	payloads := f.send(t, "/begin")
	require.Len(t, payloads, 1)
	assert.Equal(t, "Q1", payloads[0].Text, "fresh batch restarts from the front")
}

func TestEngine_NonLastExhaustionKeepsResetAffordance(t *testing.T) {
	f := newFixture(t, catalog.Question{ID: 1, Position: 1, Text: "Q1"})

	f.send(t, "/begin")
	payloads := f.send(t, "ответ")
	require.Len(t, payloads, 1)
	require.NotNil(t, payloads[0].Keyboard)

	labels := make([]string, 0)
	for _, row := range payloads[0].Keyboard.Rows {
		for _, b := range row {
			labels = append(labels, b.Label)
		}
	}
	assert.Contains(t, strings.Join(labels, " "), "Домой")
}
