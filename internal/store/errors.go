package store

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidFingerprint = errors.New("fingerprint is not finite")
)
