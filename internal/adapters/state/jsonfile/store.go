package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
)

const (
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	stateFileSuffix = ".json"
	tempFilePattern = ".state-*.json.tmp"
)

// Store keeps one <name>.json file per state name under dir.
type Store struct {
	dir             string
	loadingDisabled bool
}

type Option func(*Store)

// WithLoadingDisabled makes every Load report domain.ErrStateLoadingDisabled
// so callers keep their defaults. Saves still go to disk.
func WithLoadingDisabled() Option {
	return func(s *Store) {
		s.loadingDisabled = true
	}
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.StateStore = (*Store)(nil)

func NewStore(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is empty")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve state directory: %w", err)
	}

	store := &Store{dir: filepath.Clean(absDir)}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Load(ctx context.Context, name string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.loadingDisabled {
		return domain.ErrStateLoadingDisabled
	}

	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("load %s state: destination must be a non-nil pointer", name)
	}

	path, err := s.pathFor(name)
	if err != nil {
		return err
	}

	mu := lockForPath(path)
	mu.RLock()
	data, err := os.ReadFile(path)
	mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrStateNotFound
		}
		return fmt.Errorf("read %s state: %w", name, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode %s state: %w: %w", name, domain.ErrStateShapeChanged, err)
	}
	env.applyDefaults()

	current := versionOf(dst)
	if err := env.validateVersion(name, current); err != nil {
		return err
	}

	// Decode into a fresh value so dst stays untouched on failure.
	fresh := reflect.New(target.Elem().Type())
	fresh.Elem().Set(target.Elem())

	if env.Version < current {
		migrator, ok := fresh.Interface().(Migrator)
		if !ok {
			return fmt.Errorf("%s state version %d: %w", name, env.Version, domain.ErrStateShapeChanged)
		}
		if err := migrator.Migrate(env.Version, env.Data); err != nil {
			return fmt.Errorf("migrate %s state from version %d: %w: %w", name, env.Version, domain.ErrStateShapeChanged, err)
		}
	} else {
		decoder := json.NewDecoder(bytes.NewReader(env.Data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(fresh.Interface()); err != nil {
			return fmt.Errorf("decode %s state: %w: %w", name, domain.ErrStateShapeChanged, err)
		}
	}

	target.Elem().Set(fresh.Elem())
	return nil
}

func (s *Store) Save(ctx context.Context, name string, src any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(name)
	if err != nil {
		return err
	}

	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode %s state: %w", name, err)
	}

	encoded, err := json.MarshalIndent(envelope{Version: versionOf(src), Data: data}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s state: %w", name, err)
	}

	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeAtomic(path, encoded)
}

func (s *Store) pathFor(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid state name %q", name)
	}

	return filepath.Join(s.dir, name+stateFileSuffix), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false
	return nil
}
