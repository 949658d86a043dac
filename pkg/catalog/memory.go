package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryCatalog is an in-memory Catalog used by tests and the local REPL.
type MemoryCatalog struct {
	mu         sync.RWMutex
	categories []CategoryStats
	questions  map[int64]Question
	knowledge  map[string]string
	tunes      []Tune
	customers  map[string]Customer
	playlists  map[string]Playlist
	nextID     int64
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		questions: make(map[int64]Question),
		knowledge: make(map[string]string),
		customers: make(map[string]Customer),
		playlists: make(map[string]Playlist),
	}
}

// AddCategory registers a category with its sampling cap and questions.
func (c *MemoryCatalog) AddCategory(categoryType string, attempt int, questions ...Question) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	stats := CategoryStats{
		CategoryID: c.nextID,
		Type:       categoryType,
		Attempt:    attempt,
	}
	for _, q := range questions {
		c.questions[q.ID] = q
		stats.CandidateIDs = append(stats.CandidateIDs, q.ID)
	}
	c.categories = append(c.categories, stats)
}

// AddKnowledge registers one static knowledge-base entry.
func (c *MemoryCatalog) AddKnowledge(trigger, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.knowledge[trigger] = content
}

// AddTune registers one tune.
func (c *MemoryCatalog) AddTune(t Tune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tunes = append(c.tunes, t)
}

func (c *MemoryCatalog) FetchCategoryStats(_ context.Context, categoryType string) ([]CategoryStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var stats []CategoryStats
	for _, s := range c.categories {
		if s.Type == categoryType {
			stats = append(stats, s)
		}
	}
	return stats, nil
}

func (c *MemoryCatalog) FetchQuestions(_ context.Context, ids []int64) ([]Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	questions := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.questions[id]; ok {
			questions = append(questions, q)
		}
	}
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Position != questions[j].Position {
			return questions[i].Position < questions[j].Position
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

func (c *MemoryCatalog) LookupKnowledge(_ context.Context, text string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	content, ok := c.knowledge[text]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

func (c *MemoryCatalog) UpsertCustomer(_ context.Context, chatID, name, username string) (Customer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cust, ok := c.customers[chatID]; ok {
		return cust, nil
	}
	c.nextID++
	cust := Customer{ID: c.nextID, ChatID: chatID, Name: name}
	c.customers[chatID] = cust
	return cust, nil
}

func (c *MemoryCatalog) RenameCustomer(_ context.Context, customerID int64, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for chatID, cust := range c.customers {
		if cust.ID == customerID {
			cust.Name = name
			c.customers[chatID] = cust
			return nil
		}
	}
	return ErrNotFound
}

func (c *MemoryCatalog) TunesByGenres(_ context.Context, genres []string, limit int) ([]Tune, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	wanted := make(map[string]bool, len(genres))
	for _, g := range genres {
		wanted[g] = true
	}

	var tunes []Tune
	for _, t := range c.tunes {
		if wanted[t.Genre] {
			tunes = append(tunes, t)
			if len(tunes) == limit {
				break
			}
		}
	}
	return tunes, nil
}

func (c *MemoryCatalog) CreatePlaylist(_ context.Context, p Playlist) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playlists[p.ID] = p
	return nil
}

func (c *MemoryCatalog) SetPlaylistTitle(_ context.Context, id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.playlists[id]
	if !ok {
		return ErrNotFound
	}
	p.Title = title
	p.Status = PlaylistNamed
	c.playlists[id] = p
	return nil
}

// Playlist returns a stored playlist by id, for test assertions.
func (c *MemoryCatalog) Playlist(id string) (Playlist, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.playlists[id]
	return p, ok
}
