// Package fsstore keeps posts as one JSON file per post in a directory,
// with the featured index in a separate featured.json file.
package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	apperrors "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const readConcurrency = 8

// FileError describes a post file that failed to load.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

type featuredIndex struct {
	FeaturedIDs []string `json:"featuredIds"`
}

// Store implements content.Store on a directory of JSON files.
type Store struct {
	dir          string
	featuredFile string
	mu           sync.Mutex
	logger       *slog.Logger
}

// New creates a Store rooted at dir. featuredFile may be empty.
func New(dir, featuredFile string) *Store {
	return &Store{
		dir:          dir,
		featuredFile: featuredFile,
		logger:       slog.Default().With("component", "fsstore", "dir", dir),
	}
}

// Dir returns the content directory.
func (s *Store) Dir() string {
	return s.dir
}

// Scan reads every *.json file in the directory concurrently. Files that
// fail to parse or validate are returned as FileErrors instead of posts. A
// missing directory yields no posts and no error.
func (s *Store) Scan(ctx context.Context) ([]content.Post, []FileError, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("content directory does not exist")
			return []content.Post{}, nil, nil
		}
		return nil, nil, fmt.Errorf("reading content dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(files)

	posts := make([]*content.Post, len(files))
	failures := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				failures[i] = err
				return nil
			}
			p, err := content.DecodePost(data)
			if err != nil {
				failures[i] = err
				return nil
			}
			posts[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	valid := make([]content.Post, 0, len(files))
	var invalid []FileError
	for i, p := range posts {
		if p != nil {
			valid = append(valid, *p)
			continue
		}
		invalid = append(invalid, FileError{Path: files[i], Err: failures[i]})
	}
	return valid, invalid, nil
}

// List returns every valid post, logging and skipping invalid files.
func (s *Store) List(ctx context.Context) ([]content.Post, error) {
	posts, invalid, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, fe := range invalid {
		s.logger.Warn("skipping invalid post file", "path", fe.Path, "error", fe.Err)
	}
	return posts, nil
}

// Get reads <id>.json when id is a slug, falling back to a full scan when
// the file is missing or the id inside it disagrees.
func (s *Store) Get(ctx context.Context, id string) (content.Post, error) {
	if content.ValidID(id) {
		data, err := os.ReadFile(s.path(id))
		if err == nil {
			if p, decodeErr := content.DecodePost(data); decodeErr == nil && p.ID == id {
				return p, nil
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return content.Post{}, fmt.Errorf("reading post %s: %w", id, err)
		}
	}

	posts, err := s.List(ctx)
	if err != nil {
		return content.Post{}, err
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return content.Post{}, apperrors.ErrPostNotFound
}

// Save writes the post to <id>.json as indented JSON, creating the directory
// when needed. The write goes through a temp file and a rename.
func (s *Store) Save(ctx context.Context, p content.Post) error {
	if !content.ValidID(p.ID) {
		return fmt.Errorf("post id %q: %w", p.ID, apperrors.ErrInvalidInput)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling post: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating content dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+p.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing post: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(p.ID)); err != nil {
		return fmt.Errorf("renaming post file: %w", err)
	}
	s.logger.Info("post saved", "id", p.ID)
	return nil
}

// FeaturedIDs reads the featured index. A missing file means no featured
// posts.
func (s *Store) FeaturedIDs(ctx context.Context) ([]string, error) {
	if s.featuredFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.featuredFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading featured index: %w", err)
	}
	var idx featuredIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing featured index: %w", err)
	}
	return idx.FeaturedIDs, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
