package matching

// priceLevel is a FIFO sequence of resting orders sharing one price and
// one side. It lives in a SideBook's tree only while non-empty; the last
// pop or an explicit cancel that empties it is followed immediately by
// the book erasing it.
type priceLevel struct {
	price  Price
	orders []*Order
}

func newPriceLevel(price Price) *priceLevel {
	return &priceLevel{price: price}
}

// pushBack enqueues an arriving order at the back of the FIFO.
func (l *priceLevel) pushBack(o *Order) {
	l.orders = append(l.orders, o)
}

// front returns the earliest-arrived order without removing it.
func (l *priceLevel) front() (*Order, bool) {
	if len(l.orders) == 0 {
		return nil, false
	}
	return l.orders[0], true
}

// popFront removes and returns the earliest-arrived order.
func (l *priceLevel) popFront() (*Order, bool) {
	o, ok := l.front()
	if !ok {
		return nil, false
	}
	l.orders[0] = nil
	l.orders = l.orders[1:]
	return o, true
}

// removeByID removes the first order matching id, wherever it sits in
// the FIFO, for the optional Cancel operation. Cancellation does not
// respect arrival order since any resting order may be withdrawn.
func (l *priceLevel) removeByID(id uint64) (*Order, bool) {
	for i, o := range l.orders {
		if o.ID() == id {
			l.orders = append(l.orders[:i:i], l.orders[i+1:]...)
			return o, true
		}
	}
	return nil, false
}

func (l *priceLevel) isEmpty() bool { return len(l.orders) == 0 }

func (l *priceLevel) len() int { return len(l.orders) }

// totalQuantity sums remaining quantity across all resting orders, for
// read-only snapshots.
func (l *priceLevel) totalQuantity() uint64 {
	var total uint64
	for _, o := range l.orders {
		total += o.RemainingQuantity()
	}
	return total
}
