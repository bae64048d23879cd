package apperrors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNotAnalyzable = errors.New("report not eligible for analysis")
)
