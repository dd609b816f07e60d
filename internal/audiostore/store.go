// Пакет audiostore — хранение аудио-файлов озвученных записей.
// Бэкенды: локальный каталог (fs) и S3-совместимое хранилище (s3).
// Объекты адресуются плоским ключом вида "<uuid>.wav".
package audiostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/ttsstudio/internal/config"
)

var (
	// ErrNotFound — объект отсутствует в хранилище.
	ErrNotFound = errors.New("аудио-объект не найден")
	// ErrInvalidKey — ключ содержит недопустимые символы.
	ErrInvalidKey = errors.New("недопустимый ключ аудио-объекта")
)

// Store — хранилище аудио-объектов.
type Store interface {
	// Put сохраняет объект целиком (перезаписывает существующий).
	Put(ctx context.Context, key string, data []byte) error
	// Open открывает объект для чтения с произвольным доступом.
	// Вызывающий код обязан закрыть Object.
	Open(ctx context.Context, key string) (*Object, error)
	// Copy копирует объект src в dst.
	Copy(ctx context.Context, src, dst string) error
	// Delete удаляет объект. Отсутствие объекта не считается ошибкой.
	Delete(ctx context.Context, key string) error
	// CheckReady проверяет доступность хранилища для health endpoint.
	CheckReady() (status string, message string)
}

// Object — открытый аудио-объект.
type Object struct {
	Content io.ReadSeeker
	Size    int64
	ModTime time.Time
	closer  io.Closer
}

// Close освобождает ресурсы объекта.
func (o *Object) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// NewKey генерирует уникальный ключ объекта с расширением ext (без точки).
func NewKey(ext string) string {
	return uuid.New().String() + "." + strings.TrimPrefix(ext, ".")
}

// validateKey запрещает разделители пути и переходы вверх.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// New создаёт хранилище по TTS_AUDIO_BACKEND.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.AudioBackend {
	case config.AudioBackendS3:
		return NewS3Store(ctx, S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		}, logger)
	default:
		return NewFSStore(cfg.DataDir, logger)
	}
}
