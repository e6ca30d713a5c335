package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knilesh2212/exam-paper-saas/store"
)

// FileRecords stores each record as <dir>/<key>.json.
type FileRecords struct {
	dir string
	mu  sync.Mutex
}

// NewFileRecords creates dir if needed and returns a backend rooted there.
func NewFileRecords(dir string) (*FileRecords, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileRecords{dir: dir}, nil
}

func (f *FileRecords) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get reads the record file for key.
func (f *FileRecords) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrRecordNotFound
		}
		return nil, fmt.Errorf("read record %s: %w", key, err)
	}
	return data, nil
}

// Put writes every entry to a temp file first and renames them into place
// only after all writes succeeded. If a rename fails, the records already
// renamed are restored to their previous contents, so either all entries
// are written or none of them.
func (f *FileRecords) Put(ctx context.Context, entries ...store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	temps := make([]string, 0, len(entries))
	cleanup := func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}
	for _, e := range entries {
		tmp, err := f.writeTemp(e.Key, e.Value)
		if err != nil {
			cleanup()
			return err
		}
		temps = append(temps, tmp)
	}

	var done []prior
	for i, e := range entries {
		p, err := f.readPrior(e.Key)
		if err == nil {
			err = os.Rename(temps[i], f.path(e.Key))
		}
		if err != nil {
			cleanup()
			return errors.Join(fmt.Errorf("rename %s: %w", e.Key, err), f.restore(done))
		}
		done = append(done, p)
	}
	return nil
}

// prior is the content a record had before a Put replaced it.
type prior struct {
	key    string
	value  []byte
	exists bool
}

func (f *FileRecords) readPrior(key string) (prior, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return prior{key: key}, nil
	}
	if err != nil {
		return prior{}, err
	}
	return prior{key: key, value: data, exists: true}, nil
}

// restore puts back the records of an interrupted Put, newest first.
func (f *FileRecords) restore(done []prior) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		p := done[i]
		if !p.exists {
			if err := os.Remove(f.path(p.key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("restore %s: %w", p.key, err))
			}
			continue
		}
		tmp, err := f.writeTemp(p.key, p.value)
		if err == nil {
			if err = os.Rename(tmp, f.path(p.key)); err != nil {
				_ = os.Remove(tmp)
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", p.key, err))
		}
	}
	return errors.Join(errs...)
}

// writeTemp writes value to a synced temp file next to the record.
func (f *FileRecords) writeTemp(key string, value []byte) (string, error) {
	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", key, err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return tmp.Name(), nil
}
