package proxy

import "errors"

var (
	ErrUnknownFlag         = errors.New("proxy: unknown flag")
	ErrKindMismatch        = errors.New("proxy: value kind mismatch")
	ErrStringTooLong       = errors.New("proxy: string exceeds declared capacity")
	ErrArrayLengthMismatch = errors.New("proxy: array flags are fixed-length")
)
