package robot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"persondiscovery/internal/services"
	"persondiscovery/internal/textutil"
)

// RoleLock keeps a single process per robot role on one host.
type RoleLock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file used for role under dir.
func LockPath(dir, role string) string {
	return filepath.Join(dir, textutil.SanitizeToken(role)+".lock")
}

// AcquireRoleLock takes the role lock without blocking. It fails with a
// configuration error when another process already holds it.
func AcquireRoleLock(dir, role string) (*RoleLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := LockPath(dir, role)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "robot", "lock",
			fmt.Sprintf("another %s robot is already running (%s)", role, path), nil)
	}
	return &RoleLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *RoleLock) Path() string {
	return l.path
}

// Release unlocks the role.
func (l *RoleLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
