// Package catalog exposes read access to the persistent question corpus
// (questions, categories, knowledge base, tunes) and write access to the
// customer and playlist records the dialogue produces.
package catalog

// QuestionButton is one reply-keyboard option attached to a question.
type QuestionButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// QuestionMedia points at an optional media attachment for a question.
type QuestionMedia struct {
	URL string `json:"url"`
}

// QuestionDetails carries per-question risk overrides and a closing action.
// RiskWords is a list of lemma patterns: a pattern matches when every stem
// in it is present in the participant's reply.
type QuestionDetails struct {
	Action    string     `json:"action,omitempty"`
	RiskWords [][]string `json:"risk_words,omitempty"`
}

// Question is one immutable dialogue step fetched from the catalog.
type Question struct {
	ID       int64            `json:"id"`
	Position int              `json:"position"`
	Text     string           `json:"text"`
	Buttons  []QuestionButton `json:"buttons,omitempty"`
	Media    *QuestionMedia   `json:"media,omitempty"`
	Details  *QuestionDetails `json:"details,omitempty"`
	IsLast   bool             `json:"is_last"`
}

// ButtonTag returns the branch tag recorded when the participant answers
// with the given button label, and whether the label belongs to this
// question's keyboard. The callback data is the tag; an empty callback
// falls back to the label itself.
func (q Question) ButtonTag(label string) (string, bool) {
	for _, b := range q.Buttons {
		if b.Text == label {
			if b.CallbackData != "" {
				return b.CallbackData, true
			}
			return b.Text, true
		}
	}
	return "", false
}

// RiskPatterns returns the per-question risk lemma patterns, if any.
func (q Question) RiskPatterns() [][]string {
	if q.Details == nil {
		return nil
	}
	return q.Details.RiskWords
}

// CategoryStats describes one category's sampling inputs: the candidate
// question ids and the per-batch sampling cap.
type CategoryStats struct {
	CategoryID   int64   `json:"category_id"`
	Type         string  `json:"type"`
	Attempt      int     `json:"attempt"`
	CandidateIDs []int64 `json:"candidate_ids"`
}

// Customer maps a transport chat id to the internal participant identity.
type Customer struct {
	ID     int64
	ChatID string
	Name   string
}

// Tune is one playable track selectable by genre tag.
type Tune struct {
	ID       int64
	Title    string
	Genre    string
	AudioURL string
}

// Playlist statuses.
const (
	PlaylistPending = 0
	PlaylistNamed   = 1
)

// Playlist is the persisted save record produced by the closing sub-flow.
type Playlist struct {
	ID         string
	CustomerID int64
	Words      []string
	Title      string
	Status     int
}
