// Package cart keeps the buyer's cart in step with the backend.
//
// Every mutation is applied locally first, computed from the current state
// plus a delta, and then sent to the backend. Calls for the same product leave
// strictly in the order they were issued; calls for different products run
// independently. When a call succeeds and nothing newer is queued for that
// product, the backend's view of the line (price, stock, quantity) is folded
// back in. When a call fails, only that call's own delta is reverted, so later
// actions on the line survive. A late response never brings back a line the
// user has since removed.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
)

var (
	// ErrStockLimit means the requested quantity exceeds the reported stock.
	ErrStockLimit = errors.New("quantity exceeds available stock")
	// ErrOutOfStock means the product cannot be added at all.
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrNotInCart means the product has no line in the cart.
	ErrNotInCart = errors.New("product not in cart")
)

// Gateway is the subset of the API client the cart needs.
type Gateway interface {
	GetCart(ctx context.Context) ([]api.CartItem, error)
	AddCartItem(ctx context.Context, productID string, quantity int) ([]api.CartItem, error)
	UpdateCartItem(ctx context.Context, productID string, quantity int) ([]api.CartItem, error)
	RemoveCartItem(ctx context.Context, productID string) ([]api.CartItem, error)
	ClearCart(ctx context.Context) error
}

// Line is one product in the cart. Price and FinalPrice are per unit.
type Line struct {
	Product    api.Product
	Quantity   int
	Price      float64
	FinalPrice float64
}

// Subtotal is FinalPrice times Quantity.
func (l Line) Subtotal() float64 {
	return l.FinalPrice * float64(l.Quantity)
}

// State is a point-in-time view of the cart.
type State struct {
	Lines   []Line
	Open    bool
	Loading bool
}

func (st *State) index(productID string) int {
	for i := range st.Lines {
		if st.Lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (st *State) removeAt(i int) {
	st.Lines = append(st.Lines[:i], st.Lines[i+1:]...)
}

func cloneState(st State) State {
	st.Lines = state.CloneSlice(st.Lines)
	return st
}

// Manager owns the cart state.
type Manager struct {
	gw     Gateway
	toasts toast.Notifier
	log    *slog.Logger

	store *state.Store[State]
	seq   state.Sequencer

	// Guarded by the store's lock: only touched inside Update.
	inflight int
	epoch    uint64
}

// New returns an empty cart manager.
func New(gw Gateway, toasts toast.Notifier, logger *slog.Logger) *Manager {
	if toasts == nil {
		toasts = toast.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		gw:     gw,
		toasts: toasts,
		log:    logger,
		store:  state.New(State{}, cloneState),
	}
}

// Snapshot returns a copy of the cart state.
func (m *Manager) Snapshot() State { return m.store.Snapshot() }

// Subscribe signals after every cart change.
func (m *Manager) Subscribe() (<-chan struct{}, func()) { return m.store.Subscribe() }

// Lines returns a copy of the cart lines.
func (m *Manager) Lines() []Line { return m.Snapshot().Lines }

// Loading reports whether any remote cart call is in flight.
func (m *Manager) Loading() bool { return m.Snapshot().Loading }

// Total is the sum of FinalPrice times Quantity over all lines, recomputed on
// every call.
func (m *Manager) Total() float64 {
	var total float64
	m.store.Read(func(st State) {
		for _, l := range st.Lines {
			total += l.Subtotal()
		}
	})
	if total < 0 {
		return 0
	}
	return total
}

// Count is the number of units in the cart.
func (m *Manager) Count() int {
	n := 0
	m.store.Read(func(st State) {
		for _, l := range st.Lines {
			n += l.Quantity
		}
	})
	return n
}

// IsInCart reports whether the product has a line.
func (m *Manager) IsInCart(productID string) bool {
	return m.ItemQuantity(productID) > 0
}

// ItemQuantity returns the line quantity for a product, or 0.
func (m *Manager) ItemQuantity(productID string) int {
	q := 0
	m.store.Read(func(st State) {
		if i := st.index(productID); i >= 0 {
			q = st.Lines[i].Quantity
		}
	})
	return q
}

// Toggle flips the cart drawer visibility.
func (m *Manager) Toggle() {
	m.store.Update(func(st *State) { st.Open = !st.Open })
}

// SetOpen forces the cart drawer open or closed.
func (m *Manager) SetOpen(open bool) {
	m.store.Update(func(st *State) { st.Open = open })
}

// IsOpen reports the drawer visibility.
func (m *Manager) IsOpen() bool { return m.Snapshot().Open }

// Reset drops the local cart without touching the backend. Responses to calls
// issued before Reset are ignored.
func (m *Manager) Reset() {
	m.store.Update(func(st *State) {
		m.epoch++
		st.Lines = nil
		st.Open = false
	})
}

// Sync replaces the local cart with the backend's. Lines with queued calls
// keep their local version so in-progress actions are not undone.
func (m *Manager) Sync(ctx context.Context) error {
	var epoch uint64
	m.store.Update(func(st *State) {
		epoch = m.epoch
		m.begin(st)
	})

	items, err := m.gw.GetCart(ctx)

	m.store.Update(func(st *State) {
		m.end(st)
		if err != nil || epoch != m.epoch {
			return
		}
		next := make([]Line, 0, len(items))
		seen := make(map[string]bool, len(items))
		for _, it := range items {
			id := it.Product.ID
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			if m.seq.Pending(id) > 0 {
				if i := st.index(id); i >= 0 {
					next = append(next, st.Lines[i])
				}
				continue
			}
			if line, ok := lineFromItem(it); ok {
				next = append(next, line)
			}
		}
		for _, l := range st.Lines {
			if !seen[l.Product.ID] && m.seq.Pending(l.Product.ID) > 0 {
				next = append(next, l)
			}
		}
		st.Lines = next
	})
	if err != nil {
		m.report(err, "Failed to load cart")
		return fmt.Errorf("sync cart: %w", err)
	}
	return nil
}

// AddToCart adds quantity units of p. An existing line is merged and capped
// at stock. Adding to a line already at stock returns ErrStockLimit.
func (m *Manager) AddToCart(ctx context.Context, p api.Product, quantity int) error {
	if p.ID == "" {
		return fmt.Errorf("add to cart: product id required")
	}
	if quantity < 1 {
		quantity = 1
	}
	id := p.ID
	err := m.mutate(ctx, id, func(st *State) (change, error) {
		if p.Stock <= 0 {
			return change{}, ErrOutOfStock
		}
		if i := st.index(id); i >= 0 {
			line := &st.Lines[i]
			line.Product.Stock = p.Stock
			target := min(line.Quantity+quantity, p.Stock)
			if target <= line.Quantity {
				return change{}, stockError(p.Stock)
			}
			delta := target - line.Quantity
			line.Quantity = target
			return change{delta: delta, remote: func(ctx context.Context) ([]api.CartItem, error) {
				return m.gw.UpdateCartItem(ctx, id, target)
			}}, nil
		}
		n := min(quantity, p.Stock)
		st.Lines = append(st.Lines, Line{Product: p, Quantity: n, Price: p.Price, FinalPrice: p.EffectivePrice()})
		return change{delta: n, remote: func(ctx context.Context) ([]api.CartItem, error) {
			return m.gw.AddCartItem(ctx, id, n)
		}}, nil
	})
	if err == nil {
		m.toasts.Success("Added to cart")
	}
	return err
}

// IncrementQuantity adds one unit. At stock it returns ErrStockLimit and
// changes nothing.
func (m *Manager) IncrementQuantity(ctx context.Context, productID string) error {
	return m.mutate(ctx, productID, func(st *State) (change, error) {
		i := st.index(productID)
		if i < 0 {
			return change{}, ErrNotInCart
		}
		line := &st.Lines[i]
		if line.Quantity+1 > line.Product.Stock {
			return change{}, stockError(line.Product.Stock)
		}
		line.Quantity++
		target := line.Quantity
		return change{delta: 1, remote: func(ctx context.Context) ([]api.CartItem, error) {
			return m.gw.UpdateCartItem(ctx, productID, target)
		}}, nil
	})
}

// DecrementQuantity removes one unit; the last unit removes the line.
func (m *Manager) DecrementQuantity(ctx context.Context, productID string) error {
	return m.mutate(ctx, productID, func(st *State) (change, error) {
		i := st.index(productID)
		if i < 0 {
			return change{}, ErrNotInCart
		}
		if st.Lines[i].Quantity <= 1 {
			return m.planRemove(st, i), nil
		}
		st.Lines[i].Quantity--
		target := st.Lines[i].Quantity
		return change{delta: -1, remote: func(ctx context.Context) ([]api.CartItem, error) {
			return m.gw.UpdateCartItem(ctx, productID, target)
		}}, nil
	})
}

// UpdateQuantity sets an absolute quantity. Below 1 removes the line; above
// stock returns ErrStockLimit.
func (m *Manager) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	return m.mutate(ctx, productID, func(st *State) (change, error) {
		i := st.index(productID)
		if i < 0 {
			return change{}, ErrNotInCart
		}
		if quantity < 1 {
			return m.planRemove(st, i), nil
		}
		line := &st.Lines[i]
		if quantity > line.Product.Stock {
			return change{}, stockError(line.Product.Stock)
		}
		delta := quantity - line.Quantity
		if delta == 0 {
			return change{}, errNoChange
		}
		line.Quantity = quantity
		return change{delta: delta, remote: func(ctx context.Context) ([]api.CartItem, error) {
			return m.gw.UpdateCartItem(ctx, productID, quantity)
		}}, nil
	})
}

// RemoveFromCart drops a line. Removing an absent line is a no-op.
func (m *Manager) RemoveFromCart(ctx context.Context, productID string) error {
	return m.mutate(ctx, productID, func(st *State) (change, error) {
		i := st.index(productID)
		if i < 0 {
			return change{}, errNoChange
		}
		return m.planRemove(st, i), nil
	})
}

// ClearCart empties the cart locally and remotely. On failure the removed
// lines come back.
func (m *Manager) ClearCart(ctx context.Context) error {
	var (
		removed []Line
		tickets []*state.Ticket
		epoch   uint64
	)
	m.store.Update(func(st *State) {
		removed = st.Lines
		st.Lines = nil
		for _, l := range removed {
			tickets = append(tickets, m.seq.Take(l.Product.ID))
		}
		epoch = m.epoch
		m.begin(st)
	})

	var err error
	for _, t := range tickets {
		if err = t.Wait(ctx); err != nil {
			break
		}
	}
	if err == nil {
		err = m.gw.ClearCart(ctx)
	}

	m.store.Update(func(st *State) {
		defer func() {
			for _, t := range tickets {
				t.Release()
			}
		}()
		m.end(st)
		if err == nil || epoch != m.epoch {
			return
		}
		for _, l := range removed {
			if st.index(l.Product.ID) < 0 {
				st.Lines = append(st.Lines, l)
			}
		}
	})
	if err != nil {
		m.report(err, "Failed to clear cart")
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

var errNoChange = errors.New("no change")

type change struct {
	delta   int
	removed *Line
	index   int
	remote  func(context.Context) ([]api.CartItem, error)
}

func (m *Manager) planRemove(st *State, i int) change {
	line := st.Lines[i]
	st.removeAt(i)
	id := line.Product.ID
	return change{
		delta:   -line.Quantity,
		removed: &line,
		index:   i,
		remote: func(ctx context.Context) ([]api.CartItem, error) {
			return m.gw.RemoveCartItem(ctx, id)
		},
	}
}

func (m *Manager) begin(st *State) {
	m.inflight++
	st.Loading = true
}

func (m *Manager) end(st *State) {
	m.inflight--
	st.Loading = m.inflight > 0
}

// mutate applies plan under the store lock, queues the remote call behind
// earlier calls for the same product, and folds the outcome back in.
func (m *Manager) mutate(ctx context.Context, productID string, plan func(*State) (change, error)) error {
	var (
		ch      change
		ticket  *state.Ticket
		epoch   uint64
		planErr error
	)
	m.store.Update(func(st *State) {
		ch, planErr = plan(st)
		if planErr != nil {
			return
		}
		ticket = m.seq.Take(productID)
		epoch = m.epoch
		m.begin(st)
	})
	if errors.Is(planErr, errNoChange) {
		return nil
	}
	if planErr != nil {
		m.reportLocal(planErr)
		return planErr
	}

	var items []api.CartItem
	err := ticket.Wait(ctx)
	if err == nil {
		items, err = ch.remote(ctx)
	}

	m.store.Update(func(st *State) {
		defer ticket.Release()
		m.end(st)
		if epoch != m.epoch {
			return
		}
		if err != nil {
			revert(st, productID, ch)
			return
		}
		if m.seq.Pending(productID) == 1 {
			reconcile(st, productID, items)
		}
	})
	if err != nil {
		m.report(err, "Failed to update cart")
		return err
	}
	return nil
}

func revert(st *State, productID string, ch change) {
	i := st.index(productID)
	if ch.removed != nil {
		if i < 0 {
			at := min(ch.index, len(st.Lines))
			st.Lines = append(st.Lines[:at], append([]Line{*ch.removed}, st.Lines[at:]...)...)
			return
		}
		line := &st.Lines[i]
		line.Quantity = min(line.Quantity+ch.removed.Quantity, max(line.Product.Stock, line.Quantity))
		return
	}
	if i < 0 {
		return
	}
	st.Lines[i].Quantity -= ch.delta
	if st.Lines[i].Quantity < 1 {
		st.removeAt(i)
	}
}

// reconcile folds the backend's view of one line into local state. It never
// creates a line that is not already present locally.
func reconcile(st *State, productID string, items []api.CartItem) {
	i := st.index(productID)
	if i < 0 {
		return
	}
	for _, it := range items {
		if it.Product.ID != productID {
			continue
		}
		remote, ok := lineFromItem(it)
		if !ok {
			st.removeAt(i)
			return
		}
		local := &st.Lines[i]
		if remote.Product.Name != "" {
			local.Product = remote.Product
		}
		if remote.Price > 0 {
			local.Price = remote.Price
		}
		if remote.FinalPrice > 0 {
			local.FinalPrice = remote.FinalPrice
		}
		local.Quantity = remote.Quantity
		if local.Product.Stock > 0 && local.Quantity > local.Product.Stock {
			local.Quantity = local.Product.Stock
		}
		return
	}
	if items != nil {
		st.removeAt(i)
	}
}

func lineFromItem(it api.CartItem) (Line, bool) {
	if it.Quantity < 1 || it.Product.ID == "" {
		return Line{}, false
	}
	price := it.Price
	if price == 0 {
		price = it.Product.Price
	}
	final := it.FinalPrice
	if final == 0 {
		final = it.Product.EffectivePrice()
	}
	if final == 0 {
		final = price
	}
	return Line{Product: it.Product, Quantity: it.Quantity, Price: price, FinalPrice: final}, true
}

type stockLimitError struct{ stock int }

func (e stockLimitError) Error() string {
	return fmt.Sprintf("only %d items available in stock", e.stock)
}

func (e stockLimitError) Unwrap() error { return ErrStockLimit }

func stockError(stock int) error {
	if stock <= 0 {
		return ErrOutOfStock
	}
	return stockLimitError{stock: stock}
}

func (m *Manager) reportLocal(err error) {
	var limit stockLimitError
	switch {
	case errors.As(err, &limit):
		m.toasts.Error(fmt.Sprintf("Only %d items available in stock", limit.stock))
	case errors.Is(err, ErrOutOfStock):
		m.toasts.Error("Product is out of stock")
	}
}

func (m *Manager) report(err error, fallback string) {
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		m.log.Debug("cart call abandoned", "error", err)
		return
	}
	m.log.Warn("cart call failed", "error", err)
	m.toasts.Error(api.Message(err, fallback))
}
