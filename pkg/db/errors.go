package db

import (
	stdErrors "errors"

	"gorm.io/gorm"

	"github.com/dropflowhq/dropflow-backend/pkg/errors"
)

// Translate maps driver errors onto domain codes so callers never
// branch on gorm sentinels directly.
func Translate(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(errors.CodeNotFound, err, notFoundMsg)
	}
	if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrap(errors.CodeStateConflict, err, "duplicate record")
	}
	return errors.Wrap(errors.CodeDependency, err, "database operation failed")
}

func IsNotFound(err error) bool {
	return errors.HasCode(err, errors.CodeNotFound) || stdErrors.Is(err, gorm.ErrRecordNotFound)
}
