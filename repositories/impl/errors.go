package impl

import (
	"PinguinGuard/repositories"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}

// isDuplicateKey распознает нарушение уникального индекса. TranslateError
// поддерживается не всеми драйверами, поэтому проверяем и текст ошибки.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
