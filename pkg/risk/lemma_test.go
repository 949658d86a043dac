package risk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLemmatizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req lemmaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "нет смысла", req.Text)

		json.NewEncoder(w).Encode(lemmaResponse{Lemmas: []string{"нет", "смысл"}})
	}))
	defer srv.Close()

	l := NewHTTPLemmatizer(srv.URL, time.Second)
	lemmas, err := l.Lemmas(context.Background(), "нет смысла")
	require.NoError(t, err)
	assert.Equal(t, []string{"нет", "смысл"}, lemmas)
}

func TestHTTPLemmatizer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := NewHTTPLemmatizer(srv.URL, time.Second)
	_, err := l.Lemmas(context.Background(), "текст")
	assert.Error(t, err)
}
