// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/ttsstudio/internal/repository"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт: дубликат или попытка понизить право владельца.
	ErrConflict = errors.New("конфликт")
	// ErrUnauthorized — нет сессии или нет нужного права на узел.
	ErrUnauthorized = errors.New("доступ запрещён")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrSpeechUnavailable — речевой сервис недоступен или не настроен.
	ErrSpeechUnavailable = errors.New("речевой сервис недоступен")
)

// mapRepoErr переводит ошибки репозитория в ошибки сервиса.
// what — описание ресурса для сообщения ("узел 5").
func mapRepoErr(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s уже существует", ErrConflict, what)
	default:
		return err
	}
}
