package matching

import "errors"

// Error kinds surfaced by the core, per the engine's error handling design.
var (
	// ErrOverfill is returned by Order.Fill when the requested quantity
	// exceeds what remains. Should be unreachable by construction; the
	// matcher treats it as fatal.
	ErrOverfill = errors.New("matching: fill exceeds remaining quantity")

	// ErrInvalidOrder marks an order with an invalid side/type, a limit
	// order with an invalid price, or a zero quantity.
	ErrInvalidOrder = errors.New("matching: invalid order")

	// ErrBookInvariantViolation marks a fatal, should-never-happen state:
	// an empty level surviving in a SideBook, or an order of the wrong
	// side/type reaching it.
	ErrBookInvariantViolation = errors.New("matching: book invariant violation")

	// ErrShutdownInProgress is returned by Submit once shutdown has been
	// requested or the worker has died.
	ErrShutdownInProgress = errors.New("matching: shutdown in progress")

	// ErrLevelNotFound is returned by SideBook.Cancel when no level
	// exists at the requested price.
	ErrLevelNotFound = errors.New("matching: no price level at that price")

	// ErrOrderNotFound is returned by SideBook.Cancel when the level
	// exists but holds no order with the given id.
	ErrOrderNotFound = errors.New("matching: order id not resting at that price")
)
