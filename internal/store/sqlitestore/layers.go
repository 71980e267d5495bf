package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

const layerColumns = "id, corpus_id, name, fragment_type, data_type, description_json, deleted_at"

// CreateLayer inserts a layer with a fresh identity and returns it.
func (s *Store) CreateLayer(ctx context.Context, layer store.Layer) (store.Layer, error) {
	if layer.Description == nil {
		layer.Description = store.EmptyDescription(layer.DataType)
	}
	if layer.Description.DataType() != layer.DataType {
		return store.Layer{}, services.Wrap(services.ErrValidation, "sqlitestore", "create layer",
			fmt.Sprintf("description type %q does not match layer type %q", layer.Description.DataType(), layer.DataType), nil)
	}
	payload, err := store.EncodeDescription(layer.Description)
	if err != nil {
		return store.Layer{}, err
	}
	layer.ID = newID()
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO layers (id, corpus_id, name, fragment_type, data_type, description_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		layer.ID, layer.CorpusID, layer.Name, layer.FragmentType, string(layer.DataType), string(payload), now, now,
	); err != nil {
		return store.Layer{}, fmt.Errorf("insert layer %q: %w", layer.Name, err)
	}
	return layer, nil
}

// Layer fetches a layer, reporting soft-deleted layers as AlreadyDeleted.
func (s *Store) Layer(ctx context.Context, id string) (store.Lookup[store.Layer], error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+layerColumns+` FROM layers WHERE id = ?`, id)
	layer, deleted, err := scanLayer(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store.NotFound[store.Layer](), nil
	case err != nil:
		return store.Lookup[store.Layer]{}, err
	case deleted:
		return store.AlreadyDeleted[store.Layer](), nil
	}
	return store.Found(layer), nil
}

// Layers lists live layers of a corpus, optionally filtered by data type.
func (s *Store) Layers(ctx context.Context, corpusID string, dataType store.DataType) ([]store.Layer, error) {
	query := `SELECT ` + layerColumns + ` FROM layers WHERE corpus_id = ? AND deleted_at IS NULL`
	args := []any{corpusID}
	if dataType != "" {
		query += ` AND data_type = ?`
		args = append(args, string(dataType))
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "sqlitestore", "list layers", "", err)
	}
	defer rows.Close()

	var layers []store.Layer
	for rows.Next() {
		layer, _, err := scanLayer(rows)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	return layers, rows.Err()
}

// UpdateLayerDescription replaces a live layer's description.
func (s *Store) UpdateLayerDescription(ctx context.Context, id string, desc store.Description) error {
	lookup, err := s.Layer(ctx, id)
	if err != nil {
		return err
	}
	if err := lookupError(lookup.State, "layer", id); err != nil {
		return err
	}
	if desc == nil {
		desc = store.EmptyDescription(lookup.Value.DataType)
	}
	if desc.DataType() != lookup.Value.DataType {
		return services.Wrap(services.ErrValidation, "sqlitestore", "update layer",
			fmt.Sprintf("description type %q does not match layer type %q", desc.DataType(), lookup.Value.DataType), nil)
	}
	payload, err := store.EncodeDescription(desc)
	if err != nil {
		return err
	}
	if _, err := s.execWithRetry(ctx,
		`UPDATE layers SET description_json = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		string(payload), s.timestamp(), id,
	); err != nil {
		return fmt.Errorf("update layer %s: %w", id, err)
	}
	return nil
}

// DeleteLayer soft-deletes a layer.
func (s *Store) DeleteLayer(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE layers SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		s.timestamp(), s.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("delete layer %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		lookup, err := s.Layer(ctx, id)
		if err != nil {
			return err
		}
		return lookupError(lookup.State, "layer", id)
	}
	return nil
}

func scanLayer(scanner interface{ Scan(dest ...any) error }) (store.Layer, bool, error) {
	var (
		layer       store.Layer
		dataType    string
		description string
		deletedAt   sql.NullString
	)
	if err := scanner.Scan(&layer.ID, &layer.CorpusID, &layer.Name, &layer.FragmentType, &dataType, &description, &deletedAt); err != nil {
		return store.Layer{}, false, err
	}
	layer.DataType = store.DataType(dataType)
	desc, err := store.DecodeDescription(layer.DataType, []byte(description))
	if err != nil {
		return store.Layer{}, false, fmt.Errorf("layer %s: %w", layer.ID, err)
	}
	layer.Description = desc
	return layer, deletedAt.Valid, nil
}

func lookupError(state store.LookupState, kind, id string) error {
	switch state {
	case store.StateNotFound:
		return services.Wrap(services.ErrNotFound, "sqlitestore", kind, id, nil)
	case store.StateAlreadyDeleted:
		return services.Wrap(services.ErrAlreadyDeleted, "sqlitestore", kind, id, nil)
	}
	return nil
}
