// credentials - постоянное хранилище двух непрозрачных строк: access- и
// refresh-токена. Хранилище синхронное и «тупое»: без срока жизни,
// шифрования и проверки содержимого.
//
// Контракт отказов: недоступное хранилище не роняет вызывающего -
// чтение трактуется как «слот пуст», запись как no-op; причина пишется в лог.
package credentials

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pribylovaa/route-planner/internal/config"
)

// Slot - имя слота.
type Slot string

const (
	Access  Slot = "access"
	Refresh Slot = "refresh"
)

// Slots - все известные слоты.
var Slots = []Slot{Access, Refresh}

// Store задаёт контракт хранилища учётных данных.
type Store interface {
	// Get возвращает значение слота и признак наличия.
	Get(slot Slot) (string, bool)
	// Set целиком заменяет значение слота.
	Set(slot Slot, value string)
	// Clear удаляет значение слота.
	Clear(slot Slot)
}

// ClosableStore - хранилище с внешним ресурсом (файл БД, соединение Redis).
type ClosableStore interface {
	Store
	Close() error
}

// ClearAll очищает оба слота.
func ClearAll(s Store) {
	for _, slot := range Slots {
		s.Clear(slot)
	}
}

// Open выбирает бэкенд по конфигурации.
// Для file/sqlite пустой Path заменяется на файл в os.UserConfigDir().
func Open(cfg config.CredentialsConfig, log *slog.Logger) (ClosableStore, error) {
	const op = "credentials.Open"

	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "credentials"), slog.String("backend", cfg.Backend))

	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil

	case config.BackendFile:
		path, err := resolvePath(cfg.Path, "credentials.json")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return NewFile(path, log), nil

	case config.BackendSQLite:
		path, err := resolvePath(cfg.Path, "credentials.db")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		st, err := OpenSQLite(path, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return st, nil

	case config.BackendRedis:
		st, err := NewRedis(cfg.RedisURL, cfg.RedisPrefix, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return st, nil

	default:
		return nil, fmt.Errorf("%s: unknown backend %q", op, cfg.Backend)
	}
}

func resolvePath(path, name string) (string, error) {
	if path != "" {
		return path, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}

	return filepath.Join(dir, "route-planner", name), nil
}

func valid(slot Slot) bool {
	return slot == Access || slot == Refresh
}
