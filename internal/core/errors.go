package core

import "errors"

// Typed failure kinds returned to callers unchanged. Services wrap them with
// fmt.Errorf("...: %w", Err...) so errors.Is matching works across layers.
var (
	// ErrNotFound — order, account, alert, item, location, or BOM line is missing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition — illegal state change, including line edits and task
	// changes against orders in terminal states.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidQuantity — quantity ≤ 0 or more fractional digits than the
	// target ledger allows.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInsufficientStock — an OUT movement would drive a balance below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrOverReceipt — a purchase receipt exceeds a line's ordered quantity.
	ErrOverReceipt = errors.New("over receipt")

	// ErrBOMIncomplete — production requires materials with no BOM defined.
	ErrBOMIncomplete = errors.New("bill of materials incomplete")

	// ErrConflict — duplicate stock account key, duplicate BOM line, or
	// duplicate item/location code.
	ErrConflict = errors.New("conflict")

	// ErrValidation — malformed input that fits none of the kinds above
	// (missing required fields, unknown enum values, bad references).
	ErrValidation = errors.New("validation failed")
)
