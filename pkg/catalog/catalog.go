package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches nothing. Callers recover
// from it locally; it never aborts a dialogue turn.
var ErrNotFound = errors.New("catalog: not found")

// Catalog is the read/write boundary to persistent storage. The dialogue
// core consumes questions and categories read-only and writes only
// customer names and playlist records.
type Catalog interface {
	// FetchCategoryStats returns sampling inputs for every category of the
	// given type.
	FetchCategoryStats(ctx context.Context, categoryType string) ([]CategoryStats, error)

	// FetchQuestions returns full records for the given ids, ordered by
	// position ascending.
	FetchQuestions(ctx context.Context, ids []int64) ([]Question, error)

	// LookupKnowledge resolves static knowledge-base content by its
	// trigger text. Returns ErrNotFound when nothing matches.
	LookupKnowledge(ctx context.Context, text string) (string, error)

	// UpsertCustomer resolves a chat id to a customer, creating the record
	// on first contact.
	UpsertCustomer(ctx context.Context, chatID, name, username string) (Customer, error)

	// RenameCustomer stores the display name collected during onboarding.
	RenameCustomer(ctx context.Context, customerID int64, name string) error

	// TunesByGenres selects up to limit tunes matching any of the genre
	// tags, in stable id order.
	TunesByGenres(ctx context.Context, genres []string, limit int) ([]Tune, error)

	// CreatePlaylist persists a pending playlist save record.
	CreatePlaylist(ctx context.Context, p Playlist) error

	// SetPlaylistTitle names a pending playlist and marks it saved.
	// Returns ErrNotFound when the record is gone.
	SetPlaylistTitle(ctx context.Context, id, title string) error
}
