package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tinyland-inc/artbot/pkg/logger"
)

// PostgresCatalog implements Catalog on top of the relational store owning
// customers, questions, categories, knowledge, tunes and playlists.
type PostgresCatalog struct {
	db *sql.DB
}

// ConnectPostgres opens the Postgres pool and verifies the connection.
func ConnectPostgres(dsn string) (*PostgresCatalog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	logger.InfoC("catalog", "Connected to Postgres")
	return &PostgresCatalog{db: db}, nil
}

// NewPostgresCatalog wraps an existing pool, primarily for tests.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) Close() error {
	return c.db.Close()
}

func (c *PostgresCatalog) FetchCategoryStats(ctx context.Context, categoryType string) ([]CategoryStats, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT c.id, c.type, c.attempt, COALESCE(array_agg(q.id) FILTER (WHERE q.id IS NOT NULL), '{}')
		FROM categories c
		LEFT JOIN questions q ON q.category_id = c.id
		WHERE c.type = $1
		GROUP BY c.id, c.type, c.attempt
		ORDER BY c.id`,
		categoryType,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching category stats: %w", err)
	}
	defer rows.Close()

	var stats []CategoryStats
	for rows.Next() {
		var s CategoryStats
		var ids pq.Int64Array
		if err := rows.Scan(&s.CategoryID, &s.Type, &s.Attempt, &ids); err != nil {
			return nil, fmt.Errorf("scanning category stats: %w", err)
		}
		s.CandidateIDs = []int64(ids)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (c *PostgresCatalog) FetchQuestions(ctx context.Context, ids []int64) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, position, text, COALESCE(buttons, '[]'), media, details, is_last
		FROM questions
		WHERE id = ANY($1)
		ORDER BY position, id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		var buttons, media, details []byte
		if err := rows.Scan(&q.ID, &q.Position, &q.Text, &buttons, &media, &details, &q.IsLast); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		if err := json.Unmarshal(buttons, &q.Buttons); err != nil {
			return nil, fmt.Errorf("decoding question %d buttons: %w", q.ID, err)
		}
		if len(media) > 0 {
			if err := json.Unmarshal(media, &q.Media); err != nil {
				return nil, fmt.Errorf("decoding question %d media: %w", q.ID, err)
			}
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &q.Details); err != nil {
				return nil, fmt.Errorf("decoding question %d details: %w", q.ID, err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (c *PostgresCatalog) LookupKnowledge(ctx context.Context, text string) (string, error) {
	var content string
	err := c.db.QueryRowContext(ctx, `
		SELECT content
		FROM knowledge
		WHERE trigger = $1`,
		text,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("looking up knowledge: %w", err)
	}
	return content, nil
}

func (c *PostgresCatalog) UpsertCustomer(ctx context.Context, chatID, name, username string) (Customer, error) {
	cust := Customer{ChatID: chatID}
	err := c.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(name, '')
		FROM customers
		WHERE uid = $1`,
		chatID,
	).Scan(&cust.ID, &cust.Name)
	if err == nil {
		return cust, nil
	}
	if err != sql.ErrNoRows {
		return Customer{}, fmt.Errorf("fetching customer: %w", err)
	}

	err = c.db.QueryRowContext(ctx, `
		INSERT INTO customers(name, username, uid)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, COALESCE(name, '')`,
		name, username, chatID,
	).Scan(&cust.ID, &cust.Name)
	if err != nil {
		return Customer{}, fmt.Errorf("creating customer: %w", err)
	}
	return cust, nil
}

func (c *PostgresCatalog) RenameCustomer(ctx context.Context, customerID int64, name string) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2
		WHERE id = $1`,
		customerID, name,
	)
	if err != nil {
		return fmt.Errorf("renaming customer %d: %w", customerID, err)
	}
	return nil
}

func (c *PostgresCatalog) TunesByGenres(ctx context.Context, genres []string, limit int) ([]Tune, error) {
	if len(genres) == 0 {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, genre, audio_url
		FROM tunes
		WHERE genre = ANY($1)
		ORDER BY id
		LIMIT $2`,
		pq.Array(genres), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting tunes: %w", err)
	}
	defer rows.Close()

	var tunes []Tune
	for rows.Next() {
		var t Tune
		if err := rows.Scan(&t.ID, &t.Title, &t.Genre, &t.AudioURL); err != nil {
			return nil, fmt.Errorf("scanning tune: %w", err)
		}
		tunes = append(tunes, t)
	}
	return tunes, rows.Err()
}

func (c *PostgresCatalog) CreatePlaylist(ctx context.Context, p Playlist) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO playlists(id, customer_id, words, title, status)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.CustomerID, pq.Array(p.Words), p.Title, p.Status,
	)
	if err != nil {
		return fmt.Errorf("creating playlist: %w", err)
	}
	return nil
}

func (c *PostgresCatalog) SetPlaylistTitle(ctx context.Context, id, title string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE playlists
		SET title = $2, status = $3
		WHERE id = $1`,
		id, title, PlaylistNamed,
	)
	if err != nil {
		return fmt.Errorf("naming playlist %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("naming playlist %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
