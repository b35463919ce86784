package migrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/nrednav/cuid2"
)

// HistoryStore loads and saves the list of applied migrations.
type HistoryStore interface {
	Load() (History, error)
	Save(History) error
}

// FileHistory is a HistoryStore backed by a JSON file.
type FileHistory struct {
	fs   vfs.FileSystem
	path string
}

var _ HistoryStore = (*FileHistory)(nil)

// NewFileHistory returns a HistoryStore that persists history at path.
func NewFileHistory(fs vfs.FileSystem, path string) *FileHistory {
	return &FileHistory{fs: fs, path: path}
}

// Path returns the filesystem path where the history is stored.
func (h *FileHistory) Path() string {
	return h.path
}

// Load reads the history file. A missing or empty file is an empty history.
func (h *FileHistory) Load() (History, error) {
	data, err := vfs.ReadFile(h.fs, h.path)
	if err != nil {
		if vfs.IsErrNotExist(err) {
			return History{}, nil
		}
		return nil, &PersistenceError{Op: "load", Path: h.path, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return History{}, nil
	}

	var hist History
	if err = json.Unmarshal(data, &hist); err != nil {
		return nil, &PersistenceError{
			Op: "load", Path: h.path, Err: fmt.Errorf("failed parsing JSON: %w", err),
		}
	}
	if hist == nil {
		hist = History{}
	}

	return hist, nil
}

// Save replaces the history file with hist. The data is written to a
// temporary file in the same directory first, which is then renamed over the
// history file, so readers never see a partial write.
func (h *FileHistory) Save(hist History) error {
	data, err := encodeHistory(hist)
	if err != nil {
		return &PersistenceError{Op: "save", Path: h.path, Err: err}
	}

	dir := filepath.Dir(h.path)
	if err = h.fs.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{
			Op: "save", Path: h.path, Err: fmt.Errorf("failed creating history directory: %w", err),
		}
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(h.path), cuid2.Generate()))
	if err = h.writeFile(tmpPath, data); err != nil {
		_ = h.fs.Remove(tmpPath)
		return &PersistenceError{Op: "save", Path: h.path, Err: err}
	}

	if err = h.replace(tmpPath); err != nil {
		_ = h.fs.Remove(tmpPath)
		return &PersistenceError{Op: "save", Path: h.path, Err: err}
	}

	return nil
}

func (h *FileHistory) writeFile(path string, data []byte) error {
	f, err := h.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed creating temporary file: %w", err)
	}

	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	cerr := f.Close()
	if err = errors.Join(werr, cerr); err != nil {
		return fmt.Errorf("failed writing temporary file: %w", err)
	}

	return nil
}

// replace moves the file at tmpPath to the history path.
func (h *FileHistory) replace(tmpPath string) error {
	err := h.fs.Rename(tmpPath, h.path)
	if err == nil {
		return nil
	}

	// Some filesystems refuse to rename over an existing file.
	if _, serr := h.fs.Stat(h.path); serr != nil {
		return fmt.Errorf("failed renaming temporary file: %w", err)
	}
	if rerr := h.fs.Remove(h.path); rerr != nil {
		return fmt.Errorf("failed removing previous history file: %w", rerr)
	}
	if err = h.fs.Rename(tmpPath, h.path); err != nil {
		return fmt.Errorf("failed renaming temporary file: %w", err)
	}

	return nil
}

// encodeHistory serializes the history as an indented JSON array of strings.
// The output format is stable, so saving a loaded history doesn't change the
// file contents.
func encodeHistory(hist History) ([]byte, error) {
	if hist == nil {
		hist = History{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(hist); err != nil {
		return nil, fmt.Errorf("failed serializing history: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
