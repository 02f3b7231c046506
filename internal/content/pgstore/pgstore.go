// Package pgstore implements content.Store on PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	apperrors "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/postgres"
	"github.com/lib/pq"
)

// Schema creates the posts table. featured_rank is NULL for posts that are
// not featured; featured posts are listed by ascending rank.
const Schema = `
CREATE TABLE IF NOT EXISTS posts (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    excerpt       TEXT NOT NULL DEFAULT '',
    content       TEXT NOT NULL,
    author        TEXT NOT NULL DEFAULT '',
    date          TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL DEFAULT '',
    image         TEXT NOT NULL DEFAULT '',
    read_time     INTEGER NOT NULL DEFAULT 1,
    source_url    TEXT NOT NULL DEFAULT '',
    featured_rank INTEGER,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS posts_featured_rank_idx ON posts (featured_rank) WHERE featured_rank IS NOT NULL;
`

const selectColumns = `id, title, excerpt, content, author, date, category, image, read_time, source_url`

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "pgstore"),
	}
}

// EnsureSchema creates the posts table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating posts schema: %w", err)
	}
	return nil
}

// List returns every row that passes post validation.
func (s *Store) List(ctx context.Context) ([]content.Post, error) {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT `+selectColumns+` FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]content.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			s.logger.Warn("skipping invalid post row", "id", p.ID, "error", err)
			continue
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (content.Post, error) {
	row := s.db.DB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Post{}, apperrors.ErrPostNotFound
	}
	if err != nil {
		return content.Post{}, err
	}
	return p, nil
}

// Save upserts the post. featured_rank is left untouched on update.
func (s *Store) Save(ctx context.Context, p content.Post) error {
	_, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO posts (id, title, excerpt, content, author, date, category, image, read_time, source_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			excerpt = EXCLUDED.excerpt,
			content = EXCLUDED.content,
			author = EXCLUDED.author,
			date = EXCLUDED.date,
			category = EXCLUDED.category,
			image = EXCLUDED.image,
			read_time = EXCLUDED.read_time,
			source_url = EXCLUDED.source_url,
			updated_at = NOW()`,
		p.ID, p.Title, p.Excerpt, p.Content, p.Author, p.Date, p.Category, p.Image, p.ReadTime, p.SourceURL,
	)
	if err != nil {
		return fmt.Errorf("saving post %s: %w", p.ID, err)
	}
	s.logger.Info("post saved", "id", p.ID)
	return nil
}

func (s *Store) FeaturedIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id FROM posts WHERE featured_rank IS NOT NULL ORDER BY featured_rank, id`)
	if err != nil {
		return nil, fmt.Errorf("listing featured posts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning featured id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetFeatured replaces the featured index with ids, ranked in order.
func (s *Store) SetFeatured(ctx context.Context, ids []string) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET featured_rank = NULL WHERE featured_rank IS NOT NULL`); err != nil {
			return fmt.Errorf("clearing featured ranks: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE posts SET featured_rank = r.rank
			FROM unnest($1::text[]) WITH ORDINALITY AS r(id, rank)
			WHERE posts.id = r.id`,
			pq.Array(ids),
		)
		if err != nil {
			return fmt.Errorf("setting featured ranks: %w", err)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (content.Post, error) {
	var p content.Post
	err := row.Scan(&p.ID, &p.Title, &p.Excerpt, &p.Content, &p.Author, &p.Date, &p.Category, &p.Image, &p.ReadTime, &p.SourceURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scanning post: %w", err)
	}
	return p, nil
}
