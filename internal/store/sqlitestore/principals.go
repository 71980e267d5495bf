package sqlitestore

import (
	"context"
	"fmt"

	"persondiscovery/internal/store"
)

// CreatePrincipal inserts a user or group.
func (s *Store) CreatePrincipal(ctx context.Context, name string, kind store.PrincipalKind) (store.Principal, error) {
	principal := store.Principal{ID: newID(), Name: name, Kind: kind}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO principals (id, name, kind, created_at) VALUES (?, ?, ?, ?)`,
		principal.ID, name, string(kind), s.timestamp(),
	); err != nil {
		return store.Principal{}, fmt.Errorf("insert %s %q: %w", kind, name, err)
	}
	return principal, nil
}

// Principals lists users or groups ordered by name.
func (s *Store) Principals(ctx context.Context, kind store.PrincipalKind) ([]store.Principal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, kind FROM principals WHERE kind = ? ORDER BY name`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	defer rows.Close()

	var principals []store.Principal
	for rows.Next() {
		var (
			p    store.Principal
			kind string
		)
		if err := rows.Scan(&p.ID, &p.Name, &kind); err != nil {
			return nil, err
		}
		p.Kind = store.PrincipalKind(kind)
		principals = append(principals, p)
	}
	return principals, rows.Err()
}

// SetLayerPermission grants (or replaces) a principal's permission on a layer.
func (s *Store) SetLayerPermission(ctx context.Context, layerID string, principal store.Principal, permission store.Permission) error {
	lookup, err := s.Layer(ctx, layerID)
	if err != nil {
		return err
	}
	if err := lookupError(lookup.State, "layer", layerID); err != nil {
		return err
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO layer_permissions (layer_id, principal_id, permission) VALUES (?, ?, ?)
         ON CONFLICT(layer_id, principal_id) DO UPDATE SET permission = excluded.permission`,
		layerID, principal.ID, int(permission),
	); err != nil {
		return fmt.Errorf("set permission on %s for %s: %w", layerID, principal.Name, err)
	}
	return nil
}

// LayerPermissions returns permissions keyed by principal id.
func (s *Store) LayerPermissions(ctx context.Context, layerID string) (map[string]store.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT principal_id, permission FROM layer_permissions WHERE layer_id = ?`, layerID)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	permissions := make(map[string]store.Permission)
	for rows.Next() {
		var (
			principal  string
			permission int
		)
		if err := rows.Scan(&principal, &permission); err != nil {
			return nil, err
		}
		permissions[principal] = store.Permission(permission)
	}
	return permissions, rows.Err()
}
