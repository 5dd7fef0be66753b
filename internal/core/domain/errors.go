package domain

import "errors"

var (
	ErrInvalidBounds        = errors.New("invalid bounding box")
	ErrInvalidCategories    = errors.New("invalid category filter")
	ErrInvalidTable         = errors.New("invalid table name")
	ErrInvalidColumn        = errors.New("invalid column name")
	ErrTableNotAllowed      = errors.New("table not allowed")
	ErrTableNotFound        = errors.New("table not found")
	ErrMissingSourceColumns = errors.New("table is missing longitude/latitude columns")
)

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidBounds) ||
		errors.Is(err, ErrInvalidCategories) ||
		errors.Is(err, ErrInvalidTable) ||
		errors.Is(err, ErrInvalidColumn)
}
