package dialogue

import (
	"fmt"

	"github.com/tinyland-inc/artbot/pkg/bus"
	"github.com/tinyland-inc/artbot/pkg/catalog"
)

// Composer translates dialogue decisions into transport-agnostic outbound
// payloads. The transport channel renders and delivers them.
type Composer struct {
	botName     string
	resetLabel  string
	menuButtons []bus.Button
}

func NewComposer(botName, resetLabel string, menuLabels []string) *Composer {
	buttons := make([]bus.Button, 0, len(menuLabels))
	for _, l := range menuLabels {
		buttons = append(buttons, bus.Button{Label: l})
	}
	return &Composer{
		botName:     botName,
		resetLabel:  resetLabel,
		menuButtons: buttons,
	}
}

func (c *Composer) text(chatID, body string, kb *bus.Keyboard) bus.OutboundPayload {
	return bus.OutboundPayload{
		Kind:     bus.PayloadText,
		ChatID:   chatID,
		Text:     body,
		Keyboard: kb,
		OneShot:  kb != nil,
	}
}

// Greeting is the onboarding prompt asking the participant's name.
func (c *Composer) Greeting(chatID string) bus.OutboundPayload {
	return c.text(chatID, fmt.Sprintf(greetingText, c.botName), nil)
}

// Menu is the idle prompt listing category triggers.
func (c *Composer) Menu(chatID string) bus.OutboundPayload {
	return c.text(chatID, menuText, bus.SingleColumn(c.menuButtons...))
}

// MenuNamed greets the freshly named participant and shows the menu.
func (c *Composer) MenuNamed(chatID, name string) bus.OutboundPayload {
	return c.text(chatID, fmt.Sprintf(menuNamedText, name), bus.SingleColumn(c.menuButtons...))
}

// Question renders one question: an optional media payload first, then the
// question text with its reply keyboard.
func (c *Composer) Question(chatID string, q catalog.Question) []bus.OutboundPayload {
	var payloads []bus.OutboundPayload

	if q.Media != nil && q.Media.URL != "" {
		payloads = append(payloads, bus.OutboundPayload{
			Kind:     bus.PayloadAudio,
			ChatID:   chatID,
			AudioURL: q.Media.URL,
		})
	}

	var kb *bus.Keyboard
	if len(q.Buttons) > 0 {
		buttons := make([]bus.Button, 0, len(q.Buttons))
		for _, b := range q.Buttons {
			buttons = append(buttons, bus.Button{Label: b.Text, CallbackData: b.CallbackData})
		}
		kb = bus.SingleColumn(buttons...)
	}

	payloads = append(payloads, c.text(chatID, q.Text, kb))
	return payloads
}

// Escalation is the one-time safety response.
func (c *Composer) Escalation(chatID string) bus.OutboundPayload {
	return c.text(chatID, escalationText, nil)
}

// Closing offers the playlist action after the last question.
func (c *Composer) Closing(chatID string) bus.OutboundPayload {
	kb := bus.SingleColumn(
		bus.Button{Label: saveTunesLabel, CallbackData: saveTunesCallback},
		bus.Button{Label: c.resetLabel},
	)
	return c.text(chatID, closingText, kb)
}

// ChooseNext is the generic prompt after a non-final batch runs out.
func (c *Composer) ChooseNext(chatID string) bus.OutboundPayload {
	kb := bus.SingleColumn(bus.Button{Label: c.resetLabel})
	return c.text(chatID, chooseNextText, kb)
}

// Farewell closes the conversation after natural exhaustion.
func (c *Composer) Farewell(chatID string) bus.OutboundPayload {
	return c.text(chatID, farewellText, nil)
}

// Tune renders one playlist track.
func (c *Composer) Tune(chatID string, t catalog.Tune) bus.OutboundPayload {
	return bus.OutboundPayload{
		Kind:     bus.PayloadAudio,
		ChatID:   chatID,
		AudioURL: t.AudioURL,
		Caption:  t.Title,
	}
}

// TitlePrompt asks for a name for the pending playlist.
func (c *Composer) TitlePrompt(chatID string) bus.OutboundPayload {
	return c.text(chatID, titlePromptText, nil)
}

// TitleSaved confirms the playlist save.
func (c *Composer) TitleSaved(chatID, title string) bus.OutboundPayload {
	return c.text(chatID, fmt.Sprintf(titleSavedText, title), nil)
}

// NoTunes reports an empty tune selection.
func (c *Composer) NoTunes(chatID string) bus.OutboundPayload {
	return c.text(chatID, noTunesText, nil)
}

// NothingFound is the default fallback acknowledgment.
func (c *Composer) NothingFound(chatID string) bus.OutboundPayload {
	return c.text(chatID, nothingFoundText, nil)
}

// Knowledge renders static knowledge-base content.
func (c *Composer) Knowledge(chatID, content string) bus.OutboundPayload {
	return c.text(chatID, content, nil)
}
