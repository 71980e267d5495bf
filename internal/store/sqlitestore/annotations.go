package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// CreateAnnotations copies annotations into layerID with fresh identities.
// The batch is written in one transaction.
func (s *Store) CreateAnnotations(ctx context.Context, layerID string, annotations []store.Annotation) ([]store.Annotation, error) {
	lookup, err := s.Layer(ctx, layerID)
	if err != nil {
		return nil, err
	}
	if err := lookupError(lookup.State, "layer", layerID); err != nil {
		return nil, err
	}
	if len(annotations) == 0 {
		return nil, nil
	}

	created := make([]store.Annotation, 0, len(annotations))
	err = retryOnBusy(ctx, func() error {
		created = created[:0]
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO annotations (id, layer_id, medium_id, fragment_ref, fragment_json, data_json, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := s.timestamp()
		for _, a := range annotations {
			fragment, err := json.Marshal(a.Fragment)
			if err != nil {
				return services.Wrap(services.ErrValidation, "sqlitestore", "create annotation", "fragment", err)
			}
			a.ID = newID()
			a.LayerID = layerID
			var data any
			if len(a.Data) > 0 {
				data = string(a.Data)
			}
			if _, err := stmt.ExecContext(ctx, a.ID, layerID, nullableString(a.MediumID), nullableString(a.Fragment.Ref), string(fragment), data, now); err != nil {
				return err
			}
			created = append(created, a)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("insert annotations into %s: %w", layerID, err)
	}
	return created, nil
}

// Annotations lists a layer's annotations in insertion order.
func (s *Store) Annotations(ctx context.Context, filter store.AnnotationFilter) ([]store.Annotation, error) {
	if filter.LayerID == "" {
		return nil, services.Wrap(services.ErrValidation, "sqlitestore", "list annotations", "layer id is required", nil)
	}
	query := `SELECT id, layer_id, medium_id, fragment_json, data_json FROM annotations WHERE layer_id = ?`
	args := []any{filter.LayerID}
	if filter.MediumID != "" {
		query += ` AND medium_id = ?`
		args = append(args, filter.MediumID)
	} else if filter.NoMedium {
		query += ` AND medium_id IS NULL`
	}
	if filter.Fragment != "" {
		query += ` AND fragment_ref = ?`
		args = append(args, filter.Fragment)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "sqlitestore", "list annotations", filter.LayerID, err)
	}
	defer rows.Close()

	var annotations []store.Annotation
	for rows.Next() {
		var (
			a        store.Annotation
			medium   sql.NullString
			fragment string
			data     sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.LayerID, &medium, &fragment, &data); err != nil {
			return nil, err
		}
		a.MediumID = medium.String
		if err := json.Unmarshal([]byte(fragment), &a.Fragment); err != nil {
			return nil, fmt.Errorf("annotation %s: %w", a.ID, err)
		}
		if data.Valid {
			a.Data = json.RawMessage(data.String)
		}
		annotations = append(annotations, a)
	}
	return annotations, rows.Err()
}

// DeleteAnnotation removes an annotation.
func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM annotations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete annotation %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return services.Wrap(services.ErrNotFound, "sqlitestore", "annotation", id, nil)
	}
	return nil
}
