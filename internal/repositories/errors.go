package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
	ErrDuplicate      = errors.New("record already exists")
	ErrConstraint     = errors.New("constraint violated")
)

// translateError maps driver and gorm errors onto the package sentinels.
func translateError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", op, ErrConstraint)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
