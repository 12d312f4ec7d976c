package core

import "errors"

var (
	ErrEmptyName       = errors.New("empty habit name")
	ErrEmptySource     = errors.New("empty ledger source")
	ErrUnknownCategory = errors.New("unknown ledger category")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidMonth    = errors.New("invalid month")
)
