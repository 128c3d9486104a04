package matching

import (
	"fmt"

	"github.com/tidwall/btree"
)

// levelTree is the price-sorted index behind a SideBook. Bids and asks
// share this type, parameterised only by comparator direction, per the
// design note that a single generic structure can serve both sides.
type levelTree = btree.BTreeG[*priceLevel]

// LevelSnapshot is a read-only view of one price level, safe to hand to
// callers without exposing the live *priceLevel or its resting orders.
type LevelSnapshot struct {
	Price         Price
	OrderCount    int
	TotalQuantity uint64
}

// sideBook is a sorted mapping from Price to priceLevel with a
// side-specific comparator: asks ascend (best = lowest), bids descend
// (best = highest).
type sideBook struct {
	side Side
	tree *levelTree
}

func newSideBook(side Side) *sideBook {
	var less func(a, b *priceLevel) bool
	switch side {
	case SideBuy:
		// Bids: descending by price, so Min() yields the highest bid.
		less = func(a, b *priceLevel) bool { return a.price.Greater(b.price) }
	case SideSell:
		// Asks: ascending by price, so Min() yields the lowest ask.
		less = func(a, b *priceLevel) bool { return a.price.Less(b.price) }
	default:
		panic("matching: sideBook requires SideBuy or SideSell")
	}
	return &sideBook{side: side, tree: btree.NewBTreeG(less)}
}

// best returns the level most advantageous to the opposite side, or false
// if the book is empty. The returned pointer is mutable in place:
// mutating its order slice does not change its sort key, so it is safe
// to pop from it without a remove/reinsert round trip.
func (b *sideBook) best() (*priceLevel, bool) {
	return b.tree.Min()
}

// insert requires order.Side() to match this book's side and
// order.Type() == OrderTypeLimit; it appends to the level at the order's
// price, creating the level if absent.
func (b *sideBook) insert(order *Order) error {
	if order.Side() != b.side || order.Type() != OrderTypeLimit {
		return fmt.Errorf("%w: order %d side=%s type=%s does not belong in this book",
			ErrBookInvariantViolation, order.ID(), order.Side(), order.Type())
	}
	probe := newPriceLevel(order.Price())
	if level, ok := b.tree.Get(probe); ok {
		level.pushBack(order)
		return nil
	}
	probe.pushBack(order)
	b.tree.Set(probe)
	return nil
}

// removeLevel erases an exhausted level from the tree. Called once a
// level has been emptied, either by matching or by cancel.
func (b *sideBook) removeLevel(level *priceLevel) {
	b.tree.Delete(level)
}

// cancel removes one order with matching id from the level at price,
// removing the level too if it becomes empty.
func (b *sideBook) cancel(id uint64, price Price) error {
	level, ok := b.tree.Get(newPriceLevel(price))
	if !ok {
		return ErrLevelNotFound
	}
	if _, ok := level.removeByID(id); !ok {
		return ErrOrderNotFound
	}
	if level.isEmpty() {
		b.removeLevel(level)
	}
	return nil
}

// levels reports every non-empty level in this book's best-first order.
func (b *sideBook) levels() []LevelSnapshot {
	snapshots := make([]LevelSnapshot, 0, b.tree.Len())
	b.tree.Scan(func(level *priceLevel) bool {
		snapshots = append(snapshots, LevelSnapshot{
			Price:         level.price,
			OrderCount:    level.len(),
			TotalQuantity: level.totalQuantity(),
		})
		return true
	})
	return snapshots
}

func (b *sideBook) isEmpty() bool { return b.tree.Len() == 0 }
