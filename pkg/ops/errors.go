package ops

import "errors"

var (
	ErrShape = errors.New("shape mismatch")
	ErrDType = errors.New("invalid dtype")
	ErrIndex = errors.New("index out of range")
	ErrEmpty = errors.New("empty input")
)
