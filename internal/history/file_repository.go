package history

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrCorrupt marks a history file that could not be read or decoded.
	ErrCorrupt = errors.New("history file is corrupt")
	// ErrSchemaVersion marks a history file written with another schema version.
	ErrSchemaVersion = errors.New("history schema version mismatch")
)

//go:embed history.schema.json
var historySchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// SaveResult describes what a successful or attempted save did to the store.
type SaveResult struct {
	Kept   int
	Pruned int
}

// FileRepository persists a Store as an indented JSON document.
type FileRepository struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a FileRepository.
type Option func(*FileRepository)

// WithClock overrides the time source used for pruning and last_updated.
func WithClock(now func() time.Time) Option {
	return func(r *FileRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewFileRepository binds the repository to a JSON file path.
func NewFileRepository(path string, logger *slog.Logger, opts ...Option) *FileRepository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &FileRepository{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the backing file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the persisted store. The returned store is never nil: on any
// failure an empty store is returned together with an error wrapping
// ErrCorrupt or ErrSchemaVersion, and callers are expected to continue.
func (r *FileRepository) Load() (*Store, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("no history file found, starting fresh", "path", r.path)
		return NewStore(), nil
	}
	if err != nil {
		return NewStore(), fmt.Errorf("%w: read %s: %v", ErrCorrupt, r.path, err)
	}

	store, err := decodeStore(raw)
	if err != nil {
		return NewStore(), fmt.Errorf("%s: %w", r.path, err)
	}

	r.logger.Info("history loaded", "path", r.path, "articles", len(store.Articles))
	return store, nil
}

// Save prunes expired records, stamps last_updated and atomically replaces
// the file. The store is mutated even when writing fails.
func (r *FileRepository) Save(store *Store) (SaveResult, error) {
	if store == nil {
		return SaveResult{}, fmt.Errorf("save history: nil store")
	}

	now := r.now()
	pruned := Prune(store, now)
	if pruned > 0 {
		r.logger.Info("pruned expired history", "pruned", pruned, "retention_days", RetentionDays)
	}
	stamp := now.Format(time.RFC3339)
	store.LastUpdated = &stamp
	store.Version = SchemaVersion
	if store.Articles == nil {
		store.Articles = []Record{}
	}

	result := SaveResult{Kept: len(store.Articles), Pruned: pruned}

	data, err := encodeStore(store)
	if err != nil {
		return result, fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("create history directory: %w", err)
	}

	lock := flock.New(r.path + ".lock")
	if err := lock.Lock(); err != nil {
		return result, fmt.Errorf("lock history: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release history lock", "error", err)
		}
	}()

	if err := writeAtomic(r.path, data); err != nil {
		return result, err
	}

	r.logger.Info("history saved", "path", r.path, "articles", result.Kept)
	return result, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

func encodeStore(store *Store) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(store); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeStore(raw []byte) (*Store, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	doc, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrCorrupt)
	}
	if version, ok := doc["version"].(json.Number); !ok || version.String() != fmt.Sprint(SchemaVersion) {
		return nil, fmt.Errorf("%w: found %v, want %d", ErrSchemaVersion, doc["version"], SchemaVersion)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var store Store
	if err := json.Unmarshal(raw, &store); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if store.Articles == nil {
		store.Articles = []Record{}
	}
	return &store, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("history.schema.json", strings.NewReader(historySchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("history.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("trailing content after document")
	}
	return value, nil
}
