package repository

import "errors"

var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("record changed concurrently")
	ErrDBNotReady = errors.New("db not ready")
)
