package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// CreateCorpus inserts a corpus. Names are unique.
func (s *Store) CreateCorpus(ctx context.Context, name string) (store.Corpus, error) {
	corpus := store.Corpus{ID: newID(), Name: name}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO corpora (id, name, created_at) VALUES (?, ?, ?)`,
		corpus.ID, corpus.Name, s.timestamp(),
	); err != nil {
		return store.Corpus{}, fmt.Errorf("insert corpus %q: %w", name, err)
	}
	return corpus, nil
}

// Corpora lists every corpus ordered by name.
func (s *Store) Corpora(ctx context.Context) ([]store.Corpus, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM corpora ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list corpora: %w", err)
	}
	defer rows.Close()

	var corpora []store.Corpus
	for rows.Next() {
		var c store.Corpus
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		corpora = append(corpora, c)
	}
	return corpora, rows.Err()
}

// CreateMedium inserts a medium into a corpus.
func (s *Store) CreateMedium(ctx context.Context, corpusID, name, url string) (store.Medium, error) {
	medium := store.Medium{ID: newID(), CorpusID: corpusID, Name: name, URL: url}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO media (id, corpus_id, name, url, created_at) VALUES (?, ?, ?, ?, ?)`,
		medium.ID, corpusID, name, nullableString(url), s.timestamp(),
	); err != nil {
		return store.Medium{}, fmt.Errorf("insert medium %q: %w", name, err)
	}
	return medium, nil
}

// Media lists the media of a corpus ordered by name.
func (s *Store) Media(ctx context.Context, corpusID string) ([]store.Medium, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, corpus_id, name, url FROM media WHERE corpus_id = ? ORDER BY name`, corpusID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var media []store.Medium
	for rows.Next() {
		m, err := scanMedium(rows)
		if err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// Medium fetches a medium by id.
func (s *Store) Medium(ctx context.Context, id string) (store.Lookup[store.Medium], error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, corpus_id, name, url FROM media WHERE id = ?`, id)
	m, err := scanMedium(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFound[store.Medium](), nil
	}
	if err != nil {
		return store.Lookup[store.Medium]{}, services.Wrap(services.ErrTransient, "sqlitestore", "get medium", id, err)
	}
	return store.Found(m), nil
}

func scanMedium(scanner interface{ Scan(dest ...any) error }) (store.Medium, error) {
	var (
		m   store.Medium
		url sql.NullString
	)
	if err := scanner.Scan(&m.ID, &m.CorpusID, &m.Name, &url); err != nil {
		return store.Medium{}, err
	}
	m.URL = url.String
	return m, nil
}
