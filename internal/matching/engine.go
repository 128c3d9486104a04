package matching

import (
	"sync"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// Callbacks are invoked with no engine lock held. OnFill, OnAddedToBook
// and OnKilled are invoked by the matcher worker, one at a time, never
// concurrently with each other. OnQueued is invoked by Submit on the
// submitting goroutine, so it may run concurrently with the other three
// and with other OnQueued calls. None of them may block waiting for the
// fill of an order they themselves submit from inside the callback.
type Callbacks struct {
	// OnQueued fires after an order has been placed on the intake queue
	// by Submit.
	OnQueued func(order Order)
	// OnFill fires once per pairing of an incoming order with a resting
	// order; both arguments reflect post-fill residuals.
	OnFill func(incoming, resting Order)
	// OnAddedToBook fires when a residual limit order is inserted into
	// its own-side book.
	OnAddedToBook func(order Order)
	// OnKilled fires when a market order exhausts the opposite book
	// with residual quantity remaining.
	OnKilled func(order Order)
}

// Config holds the construction-time options recognised by the engine.
type Config struct {
	// DrainOnShutdown, when true (the default), lets the worker finish
	// every order already on the intake queue before exiting. When
	// false, queued-but-unprocessed orders are discarded at shutdown.
	DrainOnShutdown bool
	// RejectInvalid, when true (the default), rejects an order with an
	// invalid side/type/price/quantity synchronously from Submit. When
	// false, such an order is still enqueued and is instead dropped
	// silently (REJECTED) when the worker dequeues it.
	RejectInvalid bool
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{DrainOnShutdown: true, RejectInvalid: true}
}

// BookSnapshot is a read-only view of both sides of the book, safe to
// hand to callers outside the matcher worker.
type BookSnapshot struct {
	Bids []LevelSnapshot
	Asks []LevelSnapshot
}

// Engine owns both SideBooks, the IntakeQueue, and the single matcher
// worker goroutine; it is the public facade described in §6.
type Engine struct {
	cfg       Config
	callbacks Callbacks
	core      *core
	intake    *intakeQueue

	t            tomb.Tomb
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewEngine constructs the engine and immediately spawns its one
// matcher worker goroutine.
func NewEngine(cfg Config, callbacks Callbacks) *Engine {
	e := &Engine{
		cfg:       cfg,
		callbacks: callbacks,
		core:      newCore(),
		intake:    newIntakeQueue(),
	}
	e.t.Go(e.run)
	return e
}

// Submit copies the order onto the intake queue and emits OnQueued. It
// never blocks on matcher progress.
func (e *Engine) Submit(order Order) error {
	if e.intake.isClosed() {
		return ErrShutdownInProgress
	}
	if e.cfg.RejectInvalid && !order.valid() {
		return ErrInvalidOrder
	}
	if !e.intake.push(task{kind: taskSubmit, order: order}) {
		return ErrShutdownInProgress
	}
	if e.callbacks.OnQueued != nil {
		e.callbacks.OnQueued(order)
	}
	return nil
}

// Cancel withdraws a single resting order from the book for the given
// side/price, serialised through the intake queue so it never touches
// either SideBook from outside the matcher worker.
func (e *Engine) Cancel(id uint64, side Side, price Price) error {
	done := make(chan error, 1)
	if !e.intake.push(task{kind: taskCancel, cancelID: id, cancelSide: side, cancelPrice: price, cancelDone: done}) {
		return ErrShutdownInProgress
	}
	return <-done
}

// Snapshot returns the current resting liquidity on both sides of the
// book. Like Cancel, it is served by the matcher worker itself so it
// never races with an in-flight match.
func (e *Engine) Snapshot() (BookSnapshot, error) {
	result := make(chan BookSnapshot, 1)
	if !e.intake.push(task{kind: taskSnapshot, snapshotDone: result}) {
		return BookSnapshot{}, ErrShutdownInProgress
	}
	return <-result, nil
}

// Shutdown stops the worker and joins it. It is idempotent and safe to
// call from any goroutine; every call after the first returns the same
// stored result.
func (e *Engine) Shutdown() error {
	e.shutdownOnce.Do(func() {
		e.intake.shutdown(e.cfg.DrainOnShutdown)
		e.shutdownErr = e.t.Wait()
	})
	return e.shutdownErr
}

// run is the matcher worker's entire body: pop a task, act on it,
// repeat until the intake queue reports shutdown. Any fatal invariant
// violation returns an error here, which kills the tomb and surfaces
// through Shutdown.
func (e *Engine) run() error {
	log.Info().Msg("matching worker starting")
	for {
		t, ok := e.intake.popBlocking()
		if !ok {
			log.Info().Msg("matching worker exiting")
			return nil
		}
		switch t.kind {
		case taskSubmit:
			if err := e.processOrder(t.order); err != nil {
				log.Error().Err(err).Msg("fatal matching error, worker exiting")
				e.intake.shutdown(false)
				return err
			}
		case taskCancel:
			t.cancelDone <- e.core.bookFor(t.cancelSide).cancel(t.cancelID, t.cancelPrice)
		case taskSnapshot:
			t.snapshotDone <- BookSnapshot{
				Bids: e.core.bids.levels(),
				Asks: e.core.asks.levels(),
			}
		}
	}
}

// processOrder runs one order through the INCOMING -> CROSSING ->
// (FILLED | RESIDUAL) -> (RESTED | KILLED | REJECTED) state machine and
// fires the corresponding callbacks.
func (e *Engine) processOrder(order Order) error {
	if !order.valid() {
		log.Warn().Uint64("id", order.ID()).Msg("dropping invalid order")
		return nil
	}

	result := e.core.match(order)

	if e.callbacks.OnFill != nil {
		for _, fill := range result.fills {
			e.callbacks.OnFill(fill.Incoming, fill.Resting)
		}
	}

	switch result.outcome {
	case outcomeRested:
		if err := e.core.rest(result.final); err != nil {
			return err
		}
		if e.callbacks.OnAddedToBook != nil {
			e.callbacks.OnAddedToBook(result.final)
		}
	case outcomeKilled:
		if e.callbacks.OnKilled != nil {
			e.callbacks.OnKilled(result.final)
		}
	case outcomeFilled:
		// Fully filled: no rest, no kill, just the fills already emitted.
	}
	return nil
}
