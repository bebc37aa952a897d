package services

import "errors"

// Ledger and settlement errors
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrIndexOutOfRange = errors.New("item index out of range")
	ErrTableOccupied   = errors.New("destination table has an open order")
	ErrInvalidSplit    = errors.New("invalid number of payers")
	ErrNotFullyPaid    = errors.New("order is not fully paid")
	ErrInvalidTable    = errors.New("table id is required")
)
