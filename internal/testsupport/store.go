package testsupport

import (
	"context"
	"testing"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/config"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/store/sqlitestore"
)

// MustOpenStore opens the store configured in cfg and closes it at cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sqlitestore.Store {
	t.Helper()

	st, err := sqlitestore.Open(cfg)
	if err != nil {
		t.Fatalf("sqlitestore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MustEnsureCatalog provisions the workflow resources.
func MustEnsureCatalog(t testing.TB, st *sqlitestore.Store, cfg *config.Config) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.Ensure(context.Background(), st, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("catalog.Ensure: %v", err)
	}
	return cat
}
