package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/artbot/cmd/artbot/internal"
	"github.com/tinyland-inc/artbot/pkg/batch"
	"github.com/tinyland-inc/artbot/pkg/bus"
	"github.com/tinyland-inc/artbot/pkg/catalog"
	"github.com/tinyland-inc/artbot/pkg/config"
	"github.com/tinyland-inc/artbot/pkg/dialogue"
	"github.com/tinyland-inc/artbot/pkg/logger"
	"github.com/tinyland-inc/artbot/pkg/risk"
	"github.com/tinyland-inc/artbot/pkg/session"
)

const localChatID = "local"

func chatCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg := config.DefaultConfig()
	cat := sampleCatalog()
	engine := dialogue.NewEngine(
		session.NewMemoryStore(),
		cat,
		batch.NewGenerator(cat),
		risk.NewFoldLemmatizer(lemmaOverrides()),
		cfg,
	)

	fmt.Printf("%s Local dialogue mode (Ctrl+C to exit). Send /start to begin.\n\n", internal.Logo)
	interactiveMode(engine)

	return nil
}

func interactiveMode(engine *dialogue.Engine) {
	prompt := fmt.Sprintf("%s You: ", internal.Logo)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".artbot_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		payloads, err := engine.Handle(context.Background(), bus.InboundEvent{
			Kind:   bus.EventText,
			ChatID: localChatID,
			Text:   input,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		for _, p := range payloads {
			printPayload(p)
		}
	}
}

func printPayload(p bus.OutboundPayload) {
	if p.Kind == bus.PayloadAudio {
		fmt.Printf("\n%s [audio] %s", internal.Logo, p.AudioURL)
		if p.Caption != "" {
			fmt.Printf(" — %s", p.Caption)
		}
		fmt.Println()
		return
	}

	fmt.Printf("\n%s %s\n", internal.Logo, p.Text)
	if p.Keyboard != nil {
		for _, row := range p.Keyboard.Rows {
			for _, b := range row {
				fmt.Printf("   [ %s ]\n", b.Label)
			}
		}
	}
	fmt.Println()
}

// sampleCatalog seeds a small conversation so the REPL is usable without
// Postgres.
func sampleCatalog() *catalog.MemoryCatalog {
	cat := catalog.NewMemoryCatalog()

	cat.AddCategory("art", 3,
		catalog.Question{
			ID: 1, Position: 1,
			Text: "Как ты себя сегодня чувствуешь? Расскажи своими словами.",
		},
		catalog.Question{
			ID: 2, Position: 2,
			Text: "Какая музыка тебе ближе прямо сейчас?",
			Buttons: []catalog.QuestionButton{
				{Text: "Спокойная", CallbackData: "calm"},
				{Text: "Энергичная", CallbackData: "energetic"},
			},
		},
		catalog.Question{
			ID: 3, Position: 3,
			Text: "Что хочется делать под музыку?",
			Buttons: []catalog.QuestionButton{
				{Text: "Отдыхать", CallbackData: "ambient"},
				{Text: "Двигаться", CallbackData: "dance"},
			},
			IsLast: true,
		},
	)

	cat.AddTune(catalog.Tune{ID: 1, Title: "Тихая гавань", Genre: "calm", AudioURL: "https://example.org/tunes/1.mp3"})
	cat.AddTune(catalog.Tune{ID: 2, Title: "Рассвет", Genre: "ambient", AudioURL: "https://example.org/tunes/2.mp3"})
	cat.AddTune(catalog.Tune{ID: 3, Title: "Пульс", Genre: "dance", AudioURL: "https://example.org/tunes/3.mp3"})
	cat.AddTune(catalog.Tune{ID: 4, Title: "Разбег", Genre: "energetic", AudioURL: "https://example.org/tunes/4.mp3"})

	cat.AddKnowledge("Что ты умеешь?", "Я задаю вопросы, слушаю ответы и собираю музыкальные подборки под настроение.")

	return cat
}

// lemmaOverrides maps common inflections to their stems for the local
// fold lemmatizer.
func lemmaOverrides() map[string]string {
	return map[string]string{
		"смысла":    "смысл",
		"цели":      "цель",
		"страдаю":   "страдать",
		"боюсь":     "бояться",
		"ненавижу":  "ненавидеть",
		"мучаюсь":   "мучиться",
		"виноват":   "виноватый",
		"недостоин": "недостойный",
	}
}
