// Package checkout drives a purchase from address selection to a confirmed
// order.
//
// The Orchestrator is a linear state machine:
//
//	AddressSelection -> CouponOptional -> PaymentMethodSelection -> PaymentInFlight
//	PaymentInFlight  -> OrderConfirmed | PaymentFailed | PaymentMethodSelection
//
// Back moves one step towards the start and is the only way backwards apart
// from a dismissed payment. Checkout never starts, and never stays open, with
// an empty cart.
//
// Cash on delivery completes as soon as the order exists. Online payment is
// handed to a Launcher together with an Outcome bound to that one launch; it
// reports exactly one verdict through PaymentSucceeded or PaymentDismissed.
// A launch stops being current when checkout is left, restarted or relaunched,
// and its late verdicts are refused with ErrStalePayment. The provider owns
// its own UI, retries and timeouts.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/nav"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
)

const (
	DefaultFreeShippingThreshold = 500
	DefaultShippingFee           = 50
	DefaultStoreName             = "ShopAura"
	DefaultThemeColor            = "#4F46E5"
	DefaultCurrency              = "INR"

	cancelReason = "Payment cancelled by user"
)

var (
	// ErrEmptyCart means checkout was entered, or kept open, with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidState means the operation is not allowed at the current step.
	ErrInvalidState = errors.New("operation not allowed at this checkout step")
	// ErrNoAddress means no delivery address is selected.
	ErrNoAddress = errors.New("no delivery address selected")
	// ErrCouponRequired means an empty coupon code was submitted.
	ErrCouponRequired = errors.New("coupon code required")
	// ErrUnknownMethod means the payment method is not cod or online.
	ErrUnknownMethod = errors.New("unknown payment method")
	// ErrStalePayment means a verdict arrived for a payment that is no longer
	// the one being paid.
	ErrStalePayment = errors.New("payment is no longer current")
)

// Step is a checkout state.
type Step int

const (
	Idle Step = iota
	AddressSelection
	CouponOptional
	PaymentMethodSelection
	PaymentInFlight
	PaymentFailed
	OrderConfirmed
	Exited
)

var stepNames = map[Step]string{
	Idle:                   "idle",
	AddressSelection:       "address",
	CouponOptional:         "coupon",
	PaymentMethodSelection: "payment-method",
	PaymentInFlight:        "payment-in-flight",
	PaymentFailed:          "payment-failed",
	OrderConfirmed:         "order-confirmed",
	Exited:                 "exited",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "step(" + strconv.Itoa(int(s)) + ")"
}

// Gateway is the subset of the API client checkout needs.
type Gateway interface {
	ListAddresses(ctx context.Context) ([]api.Address, error)
	ValidateCoupon(ctx context.Context, code string, subtotal float64) (api.CouponResult, error)
	RemoveCoupon(ctx context.Context) error
	CreateOrder(ctx context.Context, req api.OrderRequest) (api.CreatedOrder, error)
	VerifyPayment(ctx context.Context, orderID string, confirmation api.PaymentConfirmation) error
	ReportPaymentFailure(ctx context.Context, providerOrderID, reason string) error
}

// Cart is what checkout reads from and clears on the cart.
type Cart interface {
	Total() float64
	Count() int
	ClearCart(ctx context.Context) error
}

// Prefill is the contact information shown in the provider's form.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// PaymentOptions is everything the provider's checkout needs.
type PaymentOptions struct {
	Key             string  `json:"key"`
	Amount          int64   `json:"amount"`
	Currency        string  `json:"currency"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	ProviderOrderID string  `json:"order_id"`
	Prefill         Prefill `json:"prefill"`
	ThemeColor      string  `json:"-"`
}

// Outcome receives the provider's verdict. Exactly one method is called per
// launched payment.
type Outcome interface {
	PaymentSucceeded(ctx context.Context, confirmation api.PaymentConfirmation) error
	PaymentDismissed(ctx context.Context) error
}

// Launcher opens the provider's checkout. Open returns once the checkout is
// on screen; the outcome arrives later through out. Cancel withdraws every
// checkout still waiting for an outcome.
type Launcher interface {
	Open(ctx context.Context, opts PaymentOptions, out Outcome) error
	Cancel()
}

// Summary is the price breakdown shown at every step.
type Summary struct {
	Subtotal float64
	Shipping float64
	Discount float64
	Total    float64
}

// ComputeSummary applies the shipping rule and clamps the total at zero.
func ComputeSummary(subtotal, discount, freeShippingThreshold, shippingFee float64) Summary {
	subtotal = math.Max(subtotal, 0)
	discount = math.Max(discount, 0)
	shipping := shippingFee
	if subtotal >= freeShippingThreshold {
		shipping = 0
	}
	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Total:    math.Max(0, subtotal+shipping-discount),
	}
}

// State is a point-in-time view of checkout.
type State struct {
	Step          Step
	Addresses     []api.Address
	AddressID     string
	Coupon        *api.Coupon
	Discount      float64
	Method        string
	Order         *api.Order
	ProviderOrder *api.ProviderOrder
	Loading       bool
}

func cloneState(st State) State {
	st.Addresses = state.CloneSlice(st.Addresses)
	if st.Coupon != nil {
		c := *st.Coupon
		st.Coupon = &c
	}
	if st.Order != nil {
		o := *st.Order
		st.Order = &o
	}
	if st.ProviderOrder != nil {
		p := *st.ProviderOrder
		st.ProviderOrder = &p
	}
	return st
}

// Options configure an Orchestrator.
type Options struct {
	Gateway               Gateway
	Cart                  Cart
	Launcher              Launcher
	Toasts                toast.Notifier
	Navigator             nav.Navigator
	Identity              func() *api.User
	PaymentKey            string
	StoreName             string
	ThemeColor            string
	Currency              string
	FreeShippingThreshold float64
	ShippingFee           float64
	Logger                *slog.Logger
}

// Orchestrator runs one checkout at a time.
type Orchestrator struct {
	gw       Gateway
	cart     Cart
	launcher Launcher
	toasts   toast.Notifier
	nav      nav.Navigator
	identity func() *api.User
	log      *slog.Logger

	paymentKey  string
	storeName   string
	themeColor  string
	currency    string
	freeShipAt  float64
	shippingFee float64

	store *state.Store[State]

	// Only touched inside store.Update.
	couponGen  uint64
	launchGen  uint64
	settledGen uint64
}

// payment is the Outcome of one launch.
type payment struct {
	o               *Orchestrator
	gen             uint64
	providerOrderID string
}

func (p *payment) PaymentSucceeded(ctx context.Context, confirmation api.PaymentConfirmation) error {
	return p.o.succeed(ctx, p.gen, p.providerOrderID, confirmation)
}

func (p *payment) PaymentDismissed(ctx context.Context) error {
	return p.o.dismiss(ctx, p.gen, p.providerOrderID)
}

// New builds an Orchestrator in the Idle step.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		gw:          opts.Gateway,
		cart:        opts.Cart,
		launcher:    opts.Launcher,
		toasts:      opts.Toasts,
		nav:         opts.Navigator,
		identity:    opts.Identity,
		log:         opts.Logger,
		paymentKey:  opts.PaymentKey,
		storeName:   opts.StoreName,
		themeColor:  opts.ThemeColor,
		currency:    opts.Currency,
		freeShipAt:  opts.FreeShippingThreshold,
		shippingFee: opts.ShippingFee,
		store:       state.New(State{}, cloneState),
	}
	if o.toasts == nil {
		o.toasts = toast.Discard{}
	}
	if o.nav == nil {
		o.nav = nav.NavigatorFunc(func(nav.Target) {})
	}
	if o.identity == nil {
		o.identity = func() *api.User { return nil }
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.storeName == "" {
		o.storeName = DefaultStoreName
	}
	if o.themeColor == "" {
		o.themeColor = DefaultThemeColor
	}
	if o.currency == "" {
		o.currency = DefaultCurrency
	}
	if o.freeShipAt <= 0 {
		o.freeShipAt = DefaultFreeShippingThreshold
	}
	if o.shippingFee <= 0 {
		o.shippingFee = DefaultShippingFee
	}
	return o
}

// Snapshot returns a copy of the checkout state.
func (o *Orchestrator) Snapshot() State { return o.store.Snapshot() }

// Subscribe signals after every checkout change.
func (o *Orchestrator) Subscribe() (<-chan struct{}, func()) { return o.store.Subscribe() }

// Step reports the current step.
func (o *Orchestrator) Step() Step { return o.Snapshot().Step }

// Summary prices the current cart with the applied discount.
func (o *Orchestrator) Summary() Summary {
	var discount float64
	o.store.Read(func(st State) { discount = st.Discount })
	return ComputeSummary(o.cart.Total(), discount, o.freeShipAt, o.shippingFee)
}

// Begin opens checkout. With an empty cart it exits straight away: the user
// is told, sent to the product list, and ErrEmptyCart is returned.
func (o *Orchestrator) Begin(ctx context.Context) error {
	if o.cart.Count() == 0 {
		o.exitEmpty()
		return ErrEmptyCart
	}
	o.store.Update(func(st *State) {
		o.couponGen++
		o.launchGen++
		*st = State{Step: AddressSelection, Loading: true}
	})
	o.cancelLaunches()

	addrs, err := o.gw.ListAddresses(ctx)
	o.store.Update(func(st *State) {
		st.Loading = false
		if err != nil || st.Step != AddressSelection {
			return
		}
		st.Addresses = addrs
		if i := slices.IndexFunc(addrs, func(a api.Address) bool { return a.IsDefault }); i >= 0 {
			st.AddressID = addrs[i].ID
		}
	})
	if err != nil {
		o.report(err, "Failed to load addresses", false)
		return fmt.Errorf("load addresses: %w", err)
	}
	return nil
}

// ReloadAddresses refreshes the address list while the address step is
// open. The current selection survives when it still exists; otherwise
// prefer is selected if listed, then the default.
func (o *Orchestrator) ReloadAddresses(ctx context.Context, prefer string) error {
	if o.Step() != AddressSelection {
		return ErrInvalidState
	}
	addrs, err := o.gw.ListAddresses(ctx)
	if err != nil {
		o.report(err, "Failed to load addresses", false)
		return fmt.Errorf("reload addresses: %w", err)
	}
	o.store.Update(func(st *State) {
		if st.Step != AddressSelection {
			return
		}
		st.Addresses = addrs
		has := func(id string) bool {
			return id != "" && slices.ContainsFunc(addrs, func(a api.Address) bool { return a.ID == id })
		}
		switch {
		case has(st.AddressID):
		case has(prefer):
			st.AddressID = prefer
		default:
			st.AddressID = ""
			if i := slices.IndexFunc(addrs, func(a api.Address) bool { return a.IsDefault }); i >= 0 {
				st.AddressID = addrs[i].ID
			}
		}
	})
	return nil
}

// SelectAddress picks a delivery address from the loaded list.
func (o *Orchestrator) SelectAddress(id string) error {
	var err error
	o.store.Update(func(st *State) {
		if st.Step != AddressSelection {
			err = ErrInvalidState
			return
		}
		if !slices.ContainsFunc(st.Addresses, func(a api.Address) bool { return a.ID == id }) {
			err = ErrNoAddress
			return
		}
		st.AddressID = id
	})
	return err
}

// ConfirmAddress moves on to the coupon step.
func (o *Orchestrator) ConfirmAddress() error {
	var err error
	o.store.Update(func(st *State) {
		switch {
		case st.Step != AddressSelection:
			err = ErrInvalidState
		case st.AddressID == "":
			err = ErrNoAddress
		default:
			st.Step = CouponOptional
		}
	})
	if errors.Is(err, ErrNoAddress) {
		o.toasts.Error("Please select a delivery address")
	}
	return err
}

// ApplyCoupon validates code against the current subtotal. The discount
// replaces any earlier one; only the most recently issued code is applied.
func (o *Orchestrator) ApplyCoupon(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		o.toasts.Error("Please enter a coupon code")
		return ErrCouponRequired
	}
	var (
		gen uint64
		err error
	)
	o.store.Update(func(st *State) {
		if st.Step != CouponOptional {
			err = ErrInvalidState
			return
		}
		o.couponGen++
		gen = o.couponGen
		st.Loading = true
	})
	if err != nil {
		return err
	}

	result, err := o.gw.ValidateCoupon(ctx, code, o.cart.Total())

	applied := false
	o.store.Update(func(st *State) {
		if gen != o.couponGen {
			return
		}
		st.Loading = false
		if err != nil || st.Step != CouponOptional {
			return
		}
		c := result.Coupon
		st.Coupon = &c
		st.Discount = math.Max(result.Discount, 0)
		applied = true
	})
	if err != nil {
		o.report(err, "Invalid coupon code", true)
		return fmt.Errorf("apply coupon: %w", err)
	}
	if applied {
		o.toasts.Success("Coupon applied! You saved " + api.FormatPrice(o.currency, result.Discount))
	}
	return nil
}

// RemoveCoupon drops the applied coupon. The discount goes back to zero even
// when the backend call fails.
func (o *Orchestrator) RemoveCoupon(ctx context.Context) error {
	var err error
	o.store.Update(func(st *State) {
		if st.Step != CouponOptional && st.Step != PaymentMethodSelection {
			err = ErrInvalidState
			return
		}
		o.couponGen++
		st.Coupon = nil
		st.Discount = 0
		st.Loading = false
	})
	if err != nil {
		return err
	}
	if rerr := o.gw.RemoveCoupon(ctx); rerr != nil {
		o.log.Warn("remove coupon request failed", "error", rerr)
	}
	o.toasts.Success("Coupon removed")
	return nil
}

// ProceedToPayment moves on to payment method selection.
func (o *Orchestrator) ProceedToPayment() error {
	var err error
	o.store.Update(func(st *State) {
		switch {
		case st.Step != CouponOptional:
			err = ErrInvalidState
		case st.AddressID == "":
			err = ErrNoAddress
		default:
			st.Step = PaymentMethodSelection
		}
	})
	if errors.Is(err, ErrNoAddress) {
		o.toasts.Error("Please select a delivery address")
	}
	return err
}

// SelectMethod chooses cash on delivery or online payment. After a failed
// payment it also returns to method selection.
func (o *Orchestrator) SelectMethod(method string) error {
	if method != api.PaymentCOD && method != api.PaymentOnline {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	var err error
	o.store.Update(func(st *State) {
		if st.Step != PaymentMethodSelection && st.Step != PaymentFailed {
			err = ErrInvalidState
			return
		}
		st.Method = method
		st.Step = PaymentMethodSelection
	})
	return err
}

// Back moves one step towards the start.
func (o *Orchestrator) Back() error {
	var err error
	o.store.Update(func(st *State) {
		switch st.Step {
		case CouponOptional:
			st.Step = AddressSelection
		case PaymentMethodSelection:
			st.Step = CouponOptional
		case PaymentFailed:
			st.Step = PaymentMethodSelection
		default:
			err = ErrInvalidState
		}
	})
	return err
}

// Leave abandons checkout. A payment page still open is withdrawn.
func (o *Orchestrator) Leave() {
	o.store.Update(func(st *State) {
		o.couponGen++
		o.launchGen++
		*st = State{Step: Exited}
	})
	o.cancelLaunches()
}

// CartChanged re-checks the empty-cart guard. Call it whenever the cart
// changes; an emptied cart closes checkout unless an order is being paid or
// already placed.
func (o *Orchestrator) CartChanged() {
	if o.cart.Count() > 0 {
		return
	}
	switch o.Step() {
	case AddressSelection, CouponOptional, PaymentMethodSelection, PaymentFailed:
		o.exitEmpty()
	}
}

func (o *Orchestrator) exitEmpty() {
	o.store.Update(func(st *State) {
		o.couponGen++
		o.launchGen++
		*st = State{Step: Exited}
	})
	o.cancelLaunches()
	o.toasts.Error("Your cart is empty")
	o.nav.Navigate(nav.To(nav.RouteProducts))
}

// Pay creates the order with the selected method. Cash on delivery is
// confirmed immediately; online payment opens the provider's checkout and
// waits for its outcome.
func (o *Orchestrator) Pay(ctx context.Context) error {
	if o.cart.Count() == 0 {
		o.exitEmpty()
		return ErrEmptyCart
	}
	var (
		req api.OrderRequest
		err error
	)
	o.store.Update(func(st *State) {
		switch {
		case st.Step != PaymentMethodSelection:
			err = ErrInvalidState
		case st.AddressID == "":
			err = ErrNoAddress
		case st.Method == "":
			err = ErrUnknownMethod
		default:
			req = api.OrderRequest{AddressID: st.AddressID, PaymentMethod: st.Method}
			if st.Coupon != nil {
				req.CouponCode = st.Coupon.Code
			}
			st.Step = PaymentInFlight
			st.Loading = true
		}
	})
	if err != nil {
		return err
	}

	created, err := o.gw.CreateOrder(ctx, req)
	if err != nil {
		o.backToMethods()
		o.report(err, "Payment failed", true)
		return fmt.Errorf("create order: %w", err)
	}
	o.store.Update(func(st *State) {
		order := created.Order
		st.Order = &order
		st.ProviderOrder = created.ProviderOrder
	})

	if req.PaymentMethod == api.PaymentCOD {
		o.complete(ctx, created.Order.ID, "Order placed successfully", map[string]any{"orderPlaced": true})
		return nil
	}
	return o.launch(ctx, created)
}

func (o *Orchestrator) launch(ctx context.Context, created api.CreatedOrder) error {
	if created.ProviderOrder == nil || created.ProviderOrder.ID == "" {
		o.backToMethods()
		o.toasts.Error("Failed to initialize payment")
		return fmt.Errorf("launch payment: order %s has no provider order", created.Order.ID)
	}
	if o.launcher == nil {
		o.backToMethods()
		o.toasts.Error("Failed to load payment gateway")
		return errors.New("launch payment: no payment launcher configured")
	}
	opts := o.paymentOptions(created)
	var gen uint64
	o.store.Update(func(*State) {
		o.launchGen++
		gen = o.launchGen
	})
	o.launcher.Cancel()
	out := &payment{o: o, gen: gen, providerOrderID: created.ProviderOrder.ID}
	if err := o.launcher.Open(ctx, opts, out); err != nil {
		o.backToMethods()
		o.log.Error("open payment checkout failed", "order", created.Order.ID, "error", err)
		o.toasts.Error("Failed to initialize payment")
		return fmt.Errorf("launch payment: %w", err)
	}
	o.store.Update(func(st *State) { st.Loading = false })
	o.log.Info("payment checkout opened", "order", created.Order.ID, "provider_order", created.ProviderOrder.ID)
	return nil
}

func (o *Orchestrator) paymentOptions(created api.CreatedOrder) PaymentOptions {
	currency := created.ProviderOrder.Currency
	if currency == "" {
		currency = o.currency
	}
	opts := PaymentOptions{
		Key:             o.paymentKey,
		Amount:          created.ProviderOrder.Amount,
		Currency:        currency,
		Name:            o.storeName,
		Description:     "Order #" + created.Order.OrderNumber,
		ProviderOrderID: created.ProviderOrder.ID,
		ThemeColor:      o.themeColor,
	}
	if u := created.Order.User; u != nil {
		opts.Prefill.Name = u.Name
		opts.Prefill.Email = u.Email
	} else if u := o.identity(); u != nil {
		opts.Prefill.Name = u.Name
		opts.Prefill.Email = u.Email
	}
	if a := created.Order.ShippingAddress; a != nil {
		opts.Prefill.Contact = a.Phone
	}
	return opts
}

// PaymentSucceeded verifies the provider's payload for the current launch. A
// verified payment confirms the order; a rejected one leaves the cart alone
// and moves to PaymentFailed. A payload naming another provider order is
// refused with ErrStalePayment.
func (o *Orchestrator) PaymentSucceeded(ctx context.Context, confirmation api.PaymentConfirmation) error {
	gen, provider := o.currentLaunch()
	return o.succeed(ctx, gen, provider, confirmation)
}

// PaymentDismissed records that the user closed the provider's checkout and
// returns to method selection. The cart is kept.
func (o *Orchestrator) PaymentDismissed(ctx context.Context) error {
	gen, provider := o.currentLaunch()
	return o.dismiss(ctx, gen, provider)
}

func (o *Orchestrator) currentLaunch() (uint64, string) {
	var (
		gen      uint64
		provider string
	)
	o.store.Read(func(st State) {
		gen = o.launchGen
		if st.ProviderOrder != nil {
			provider = st.ProviderOrder.ID
		}
	})
	return gen, provider
}

func (o *Orchestrator) succeed(ctx context.Context, gen uint64, providerOrderID string, confirmation api.PaymentConfirmation) error {
	if confirmation.ProviderOrderID != "" && confirmation.ProviderOrderID != providerOrderID {
		o.log.Warn("payment result for another order ignored", "provider_order", confirmation.ProviderOrderID, "expected", providerOrderID)
		return ErrStalePayment
	}
	order, provider, err := o.claim(gen, providerOrderID)
	if err != nil {
		return err
	}

	if err := o.gw.VerifyPayment(ctx, order.ID, confirmation); err != nil {
		o.store.Update(func(st *State) {
			st.Loading = false
			if st.Step == PaymentInFlight && o.launchGen == gen {
				st.Step = PaymentFailed
			}
		})
		o.log.Warn("payment verification failed", "order", order.ID, "error", err)
		o.toasts.Error("Payment verification failed")
		o.reportFailure(ctx, provider.ID, err.Error())
		return fmt.Errorf("verify payment: %w", err)
	}
	o.complete(ctx, order.ID, "Payment successful", map[string]any{"orderPlaced": true, "paymentSuccess": true})
	return nil
}

func (o *Orchestrator) dismiss(ctx context.Context, gen uint64, providerOrderID string) error {
	_, provider, err := o.claim(gen, providerOrderID)
	if err != nil {
		return err
	}
	o.backToMethods()
	o.toasts.Error("Payment cancelled")
	o.reportFailure(ctx, provider.ID, cancelReason)
	return nil
}

// claim takes the single verdict of launch gen. It fails when checkout has
// moved past the payment or another launch has replaced it.
func (o *Orchestrator) claim(gen uint64, providerOrderID string) (api.Order, api.ProviderOrder, error) {
	var (
		order    api.Order
		provider api.ProviderOrder
		err      error
	)
	o.store.Update(func(st *State) {
		switch {
		case gen != o.launchGen:
			err = ErrStalePayment
		case st.ProviderOrder != nil && st.ProviderOrder.ID != providerOrderID:
			err = ErrStalePayment
		case st.Step != PaymentInFlight || st.Order == nil || st.ProviderOrder == nil || o.settledGen == gen:
			err = ErrInvalidState
		default:
			o.settledGen = gen
			order, provider = *st.Order, *st.ProviderOrder
			st.Loading = true
		}
	})
	return order, provider, err
}

func (o *Orchestrator) cancelLaunches() {
	if o.launcher != nil {
		o.launcher.Cancel()
	}
}

func (o *Orchestrator) complete(ctx context.Context, orderID, message string, navState map[string]any) {
	if err := o.cart.ClearCart(ctx); err != nil {
		o.log.Warn("clear cart after order failed", "order", orderID, "error", err)
	}
	o.store.Update(func(st *State) {
		st.Step = OrderConfirmed
		st.Loading = false
	})
	o.toasts.Success(message)
	o.nav.Navigate(nav.Target{Path: nav.OrderDetail(orderID), State: navState})
}

func (o *Orchestrator) backToMethods() {
	o.store.Update(func(st *State) {
		st.Loading = false
		if st.Step == PaymentInFlight {
			st.Step = PaymentMethodSelection
		}
	})
}

func (o *Orchestrator) reportFailure(ctx context.Context, providerOrderID, reason string) {
	if err := o.gw.ReportPaymentFailure(ctx, providerOrderID, reason); err != nil {
		o.log.Warn("record payment failure failed", "provider_order", providerOrderID, "error", err)
	}
}

// report toasts err. withBackendMessage prefers the backend's own message
// over fallback.
func (o *Orchestrator) report(err error, fallback string, withBackendMessage bool) {
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		o.log.Debug("checkout call abandoned", "error", err)
		return
	}
	o.log.Warn("checkout call failed", "error", err)
	if withBackendMessage {
		fallback = api.Message(err, fallback)
	}
	o.toasts.Error(fallback)
}
