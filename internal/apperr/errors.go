package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Servis katmanının döndürdüğü hata sınıfları. Handler'lar ToFiber ile
// HTTP durum koduna çevirir; eşleşmeyen hatalar main'deki ErrorHandler'a
// düşer ve 500 olarak döner.
var (
	ErrNotFound          = errors.New("kayıt bulunamadı")
	ErrForbidden         = errors.New("bu işlem için yetkiniz yok")
	ErrValidation        = errors.New("geçersiz veri")
	ErrInvalidTransition = errors.New("geçersiz durum geçişi")
	ErrInvalidState      = errors.New("işlem mevcut durumda yapılamaz")
	ErrConflict          = errors.New("kayıt eşzamanlı başka bir istek tarafından değiştirildi")
	ErrBudgetExceeded    = errors.New("bütçe aşımı")
)

func NotFoundf(format string, args ...any) error {
	return wrapf(ErrNotFound, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return wrapf(ErrForbidden, format, args...)
}

func Validationf(format string, args ...any) error {
	return wrapf(ErrValidation, format, args...)
}

func InvalidTransitionf(format string, args ...any) error {
	return wrapf(ErrInvalidTransition, format, args...)
}

func InvalidStatef(format string, args ...any) error {
	return wrapf(ErrInvalidState, format, args...)
}

func Conflictf(format string, args ...any) error {
	return wrapf(ErrConflict, format, args...)
}

func BudgetExceededf(format string, args ...any) error {
	return wrapf(ErrBudgetExceeded, format, args...)
}

func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// ToFiber servis hatasını HTTP cevabına eşler.
func ToFiber(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrBudgetExceeded):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
