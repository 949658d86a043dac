package bus

// EventKind discriminates inbound events from the transport.
type EventKind string

const (
	EventText     EventKind = "text"
	EventCallback EventKind = "callback"
)

// InboundEvent is one message or button press received from a participant.
// For EventText, Text carries the message body. For EventCallback, Data
// carries the button callback payload.
type InboundEvent struct {
	Kind       EventKind `json:"kind"`
	ChatID     string    `json:"chat_id"`
	SenderName string    `json:"sender_name,omitempty"`
	SenderUser string    `json:"sender_user,omitempty"`
	Text       string    `json:"text,omitempty"`
	Data       string    `json:"data,omitempty"`
}

// Content returns the effective input text of the event: the message body
// for text events, the callback payload for button events.
func (e InboundEvent) Content() string {
	if e.Kind == EventCallback {
		return e.Data
	}
	return e.Text
}

// Button is one pressable key in an outbound keyboard.
type Button struct {
	Label        string `json:"label"`
	CallbackData string `json:"callback_data,omitempty"`
}

// Keyboard is an ordered grid of buttons attached to an outbound payload.
type Keyboard struct {
	Rows [][]Button `json:"rows"`
}

// PayloadKind discriminates outbound payload bodies.
type PayloadKind string

const (
	PayloadText  PayloadKind = "text"
	PayloadAudio PayloadKind = "audio"
)

// OutboundPayload is one transport-agnostic message to deliver to a
// participant. OneShot keyboards are dismissed after a single use.
type OutboundPayload struct {
	Kind     PayloadKind `json:"kind"`
	ChatID   string      `json:"chat_id"`
	Text     string      `json:"text,omitempty"`
	AudioURL string      `json:"audio_url,omitempty"`
	Caption  string      `json:"caption,omitempty"`
	Keyboard *Keyboard   `json:"keyboard,omitempty"`
	OneShot  bool        `json:"one_shot"`
}

// SingleColumn builds a keyboard with one button per row, the layout used
// for question reply keyboards.
func SingleColumn(buttons ...Button) *Keyboard {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]Button, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []Button{b})
	}
	return &Keyboard{Rows: rows}
}
