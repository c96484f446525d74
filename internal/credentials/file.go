package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// File хранит оба слота JSON-документом в файле с правами 0600.
// Файл перечитывается на каждом Get, поэтому значения переживают
// перезапуск процесса и видны соседним процессам того же пользователя.
// Запись атомарна: временный файл + rename.
type File struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

type fileDoc struct {
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

func NewFile(path string, log *slog.Logger) *File {
	if log == nil {
		log = slog.Default()
	}

	return &File{path: path, log: log}
}

func (f *File) Get(slot Slot) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		f.log.Warn("credentials_read_failed",
			slog.String("slot", string(slot)),
			slog.String("err", err.Error()),
		)
		return "", false
	}

	v := doc.get(slot)
	return v, v != ""
}

func (f *File) Set(slot Slot, value string) {
	f.update(slot, func(d *fileDoc) { d.set(slot, value) })
}

func (f *File) Clear(slot Slot) {
	f.update(slot, func(d *fileDoc) { d.set(slot, "") })
}

func (f *File) Close() error { return nil }

func (f *File) update(slot Slot, mutate func(*fileDoc)) {
	if !valid(slot) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		// Битый файл перезаписываем целиком: слоты - единственное содержимое.
		f.log.Warn("credentials_read_failed",
			slog.String("slot", string(slot)),
			slog.String("err", err.Error()),
		)
		doc = fileDoc{}
	}

	mutate(&doc)

	if err := f.write(doc); err != nil {
		f.log.Warn("credentials_write_failed",
			slog.String("slot", string(slot)),
			slog.String("err", err.Error()),
		)
	}
}

func (f *File) read() (fileDoc, error) {
	var doc fileDoc

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, err
	}

	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("decode %s: %w", f.path, err)
	}

	return doc, nil
}

func (f *File) write(doc fileDoc) error {
	if doc == (fileDoc{}) {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, f.path)
}

func (d fileDoc) get(slot Slot) string {
	switch slot {
	case Access:
		return d.Access
	case Refresh:
		return d.Refresh
	default:
		return ""
	}
}

func (d *fileDoc) set(slot Slot, value string) {
	switch slot {
	case Access:
		d.Access = value
	case Refresh:
		d.Refresh = value
	}
}

var _ ClosableStore = (*File)(nil)
