package audiostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore — хранение аудио в локальном каталоге.
// Запись атомарна: временный файл → fsync → rename.
type FSStore struct {
	dataDir string
	logger  *slog.Logger
}

// NewFSStore создаёт каталог данных, если его нет.
func NewFSStore(dataDir string, logger *slog.Logger) (*FSStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	logger.Info("Хранилище аудио: локальный каталог", slog.String("data_dir", dataDir))
	return &FSStore{
		dataDir: dataDir,
		logger:  logger.With(slog.String("component", "audiostore_fs")),
	}, nil
}

func (s *FSStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dataDir, key), nil
}

// Put записывает данные во временный файл и атомарно переименовывает его.
func (s *FSStore) Put(_ context.Context, key string, data []byte) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	s.logger.Debug("Аудио сохранено", slog.String("key", key), slog.Int("size", len(data)))
	return nil
}

// Open открывает файл. *os.File поддерживает Seek, что нужно для Range-запросов.
func (s *FSStore) Open(_ context.Context, key string) (*Object, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", key, err)
	}

	return &Object{Content: f, Size: info.Size(), ModTime: info.ModTime(), closer: f}, nil
}

// Copy копирует файл через временный файл с атомарным rename.
func (s *FSStore) Copy(ctx context.Context, src, dst string) error {
	obj, err := s.Open(ctx, src)
	if err != nil {
		return err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj.Content)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла %s: %w", src, err)
	}
	return s.Put(ctx, dst, data)
}

// Delete удаляет файл; nil, если файла уже нет.
func (s *FSStore) Delete(_ context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", key, err)
	}
	return nil
}

// CheckReady проверяет, что каталог данных существует.
func (s *FSStore) CheckReady() (status string, message string) {
	info, err := os.Stat(s.dataDir)
	if err != nil {
		return "fail", fmt.Sprintf("каталог данных недоступен: %v", err)
	}
	if !info.IsDir() {
		return "fail", fmt.Sprintf("%s не является каталогом", s.dataDir)
	}
	return "ok", "каталог данных доступен"
}
