// Package risk detects risk-indicating language in participant replies by
// matching lemma patterns against the reply's normalized stems.
package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// Lemmatizer normalizes text to its set of morphological stems. The model
// behind it is a process-wide resource; the engine only sees this
// capability.
type Lemmatizer interface {
	Lemmas(ctx context.Context, text string) ([]string, error)
}

// HTTPLemmatizer calls an external lemma service over HTTP.
type HTTPLemmatizer struct {
	url    string
	client *http.Client
}

func NewHTTPLemmatizer(url string, timeout time.Duration) *HTTPLemmatizer {
	return &HTTPLemmatizer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type lemmaRequest struct {
	Text string `json:"text"`
}

type lemmaResponse struct {
	Lemmas []string `json:"lemmas"`
}

func (l *HTTPLemmatizer) Lemmas(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(lemmaRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding lemma request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building lemma request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling lemma service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lemma service returned %d", resp.StatusCode)
	}

	var out lemmaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding lemma response: %w", err)
	}
	return out.Lemmas, nil
}

// FoldLemmatizer is a dictionary-backed fallback used by tests and the
// local REPL: it lowercases, strips punctuation and maps known inflections
// to their stems, leaving unknown words as-is.
type FoldLemmatizer struct {
	overrides map[string]string
}

func NewFoldLemmatizer(overrides map[string]string) *FoldLemmatizer {
	return &FoldLemmatizer{overrides: overrides}
}

func (l *FoldLemmatizer) Lemmas(_ context.Context, text string) ([]string, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	lemmas := make([]string, 0, len(words))
	for _, w := range words {
		if stem, ok := l.overrides[w]; ok {
			w = stem
		}
		lemmas = append(lemmas, w)
	}
	return lemmas, nil
}
