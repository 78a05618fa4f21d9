package orders

import "riskcore/internal/schema"

// Tracker keeps the working set of live orders on top of the state machine.
// It reports when an order leaves the working set so the owner can release
// its open-order slot; the tracker itself holds no limit state.
type Tracker struct {
	state *StateMachine
	open  map[uint64]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		state: NewStateMachine(),
		open:  make(map[uint64]struct{}),
	}
}

// State returns the underlying order state machine.
func (t *Tracker) State() *StateMachine {
	return t.state
}

// Submit registers an accepted order as working.
func (t *Tracker) Submit(order schema.Order) error {
	if _, err := t.state.ApplySubmit(order); err != nil {
		return err
	}
	t.open[order.OrderID] = struct{}{}
	return nil
}

// OnAck updates order state from an acknowledgment. It reports whether the
// order just left the working set.
func (t *Tracker) OnAck(ack schema.OrderAck) (bool, error) {
	order, err := t.state.ApplyAck(ack)
	if err != nil {
		return false, err
	}
	return t.release(order), nil
}

// OnFill updates order state from a fill. It reports whether the order just
// left the working set.
func (t *Tracker) OnFill(fill schema.Fill) (bool, error) {
	order, err := t.state.ApplyFill(fill)
	if err != nil {
		return false, err
	}
	return t.release(order), nil
}

// OpenCount returns the number of working orders.
func (t *Tracker) OpenCount() int {
	return len(t.open)
}

// Order returns the tracked view of an order.
func (t *Tracker) Order(id uint64) (*Order, bool) {
	return t.state.Order(id)
}

func (t *Tracker) release(order *Order) bool {
	if !IsTerminal(order.State) {
		return false
	}
	if _, ok := t.open[order.ID]; !ok {
		return false
	}
	delete(t.open, order.ID)
	return true
}
