package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidRange  = errors.New("invalid date range")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidLine   = errors.New("invalid cart line")
)
