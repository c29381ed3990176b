// Package checkout drives one checkout attempt through
// Shipping -> Validating -> SubmittingOrder -> OrderCreated ->
// SubmittingPayment -> Confirmed, with Failed as the absorbing error state.
//
// The cart is read exactly once, when the Orchestrator is created. Later cart
// mutations never reach an order that is being or has been submitted.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/remote"
	"storefront/internal/shoperr"
	"storefront/internal/validation"
)

type OrderClient interface {
	CreateOrder(ctx context.Context, req remote.CreateOrderRequest) (remote.CreateOrderResponse, error)
}

type PaymentSubmitter interface {
	Validate(req payment.Request) error
	Submit(ctx context.Context, req payment.Request) (models.Receipt, error)
}

type Identity interface {
	Current() (models.User, bool)
}

type Listener func(o *Orchestrator, t Transition)

type Params struct {
	Snapshot   models.Cart
	Prefill    models.ShippingInfo
	Identity   Identity
	Orders     OrderClient
	Payments   PaymentSubmitter
	Calculator *pricing.Calculator
	Validator  *validation.Validator
	Log        *zap.Logger
}

// View is a read-only copy of the orchestrator state.
type View struct {
	State          State                 `json:"state"`
	Items          []models.CartItem     `json:"items"`
	Shipping       models.ShippingInfo   `json:"shipping"`
	SaveAddress    bool                  `json:"saveAddress"`
	ShippingMethod models.ShippingMethod `json:"shippingMethod"`
	Promo          string                `json:"promo,omitempty"`
	Quote          *pricing.Quote        `json:"quote,omitempty"`
	FieldErrors    map[string]string     `json:"fieldErrors,omitempty"`
	Order          *models.Order         `json:"order,omitempty"`
	Receipt        *models.Receipt       `json:"receipt,omitempty"`
	Failure        *Failure              `json:"failure,omitempty"`
}

type Orchestrator struct {
	snapshot   models.Cart
	identity   Identity
	orders     OrderClient
	payments   PaymentSubmitter
	calculator *pricing.Calculator
	validator  *validation.Validator
	log        *zap.Logger

	mu          sync.Mutex
	state       State
	shipping    models.ShippingInfo
	saveAddress bool
	method      models.ShippingMethod
	promo       string
	fieldErrors map[string]string
	order       *models.Order
	receipt     *models.Receipt
	failure     *Failure

	listenersMu sync.Mutex
	listeners   []Listener
}

func New(p Params) *Orchestrator {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	if p.Calculator == nil {
		p.Calculator = pricing.Default
	}
	if p.Validator == nil {
		p.Validator = validation.New(time.Now)
	}
	return &Orchestrator{
		snapshot:   p.Snapshot,
		identity:   p.Identity,
		orders:     p.Orders,
		payments:   p.Payments,
		calculator: p.Calculator,
		validator:  p.Validator,
		log:        p.Log.Named("checkout"),
		state:      Shipping,
		shipping:   p.Prefill,
		method:     models.ShippingStandard,
	}
}

// Subscribe registers fn for state transitions. Listeners run synchronously
// after the transition, outside the orchestrator lock.
func (o *Orchestrator) Subscribe(fn Listener) {
	o.listenersMu.Lock()
	o.listeners = append(o.listeners, fn)
	o.listenersMu.Unlock()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := View{
		State:          o.state,
		Items:          o.snapshot.Items(),
		Shipping:       o.shipping,
		SaveAddress:    o.saveAddress,
		ShippingMethod: o.method,
		Promo:          o.promo,
	}
	if q, err := o.calculator.Calculate(o.snapshot, o.promo, o.method); err == nil {
		v.Quote = &q
	}
	if len(o.fieldErrors) > 0 {
		v.FieldErrors = make(map[string]string, len(o.fieldErrors))
		for k, msg := range o.fieldErrors {
			v.FieldErrors[k] = msg
		}
	}
	if o.order != nil {
		order := *o.order
		order.Items = append([]models.CartItem(nil), o.order.Items...)
		v.Order = &order
	}
	if o.receipt != nil {
		receipt := *o.receipt
		v.Receipt = &receipt
	}
	if o.failure != nil {
		failure := *o.failure
		v.Failure = &failure
	}
	return v
}

// Snapshot is the cart this checkout was started from.
func (o *Orchestrator) Snapshot() models.Cart {
	return o.snapshot
}

// SaveAddressRequested reports whether the user opted in to keeping the
// shipping address.
func (o *Orchestrator) SaveAddressRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.saveAddress
}

// SetShipping replaces the shipping form. Allowed only before an order
// exists.
func (o *Orchestrator) SetShipping(info models.ShippingInfo, saveAddress bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked("set shipping"); err != nil {
		return err
	}
	o.shipping = info.Normalize()
	o.saveAddress = saveAddress
	o.fieldErrors = nil
	return nil
}

func (o *Orchestrator) SetShippingMethod(method models.ShippingMethod) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked("set shipping method"); err != nil {
		return err
	}
	if _, err := o.calculator.Calculate(models.Cart{}, "", method); err != nil {
		return err
	}
	o.method = method
	return nil
}

// ApplyPromo sets the promo code. An unknown code is rejected and the
// previous code stays in effect. An empty code clears it.
func (o *Orchestrator) ApplyPromo(code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editableLocked("apply promo"); err != nil {
		return err
	}
	if !o.calculator.ValidPromo(code) {
		return shoperr.NewFieldError("promoCode", "is not a valid promo code")
	}
	o.promo = pricing.NormalizePromo(code)
	return nil
}

func (o *Orchestrator) Quote() (pricing.Quote, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calculator.Calculate(o.snapshot, o.promo, o.method)
}

func (o *Orchestrator) editableLocked(op string) error {
	if o.order != nil {
		return shoperr.NewConflict(op, shoperr.MsgOrderAlreadyExists)
	}
	if o.state != Shipping {
		return shoperr.NewConflict(op, fmt.Sprintf("checkout is %s", o.state))
	}
	return nil
}

// SubmitOrder validates the form and the cart snapshot and creates the order.
// Validation failures return the checkout to Shipping. Once an order exists
// this never sends another order request.
func (o *Orchestrator) SubmitOrder(ctx context.Context) (models.Order, error) {
	const op = "submit order"

	o.mu.Lock()
	if o.order != nil {
		o.mu.Unlock()
		return models.Order{}, shoperr.NewConflict(op, shoperr.MsgOrderAlreadyExists)
	}
	if o.state == SubmittingOrder || o.state == Validating {
		o.mu.Unlock()
		return models.Order{}, shoperr.NewConflict(op, shoperr.MsgOrderInFlight)
	}
	if o.state != Shipping {
		state := o.state
		o.mu.Unlock()
		return models.Order{}, shoperr.NewConflict(op, fmt.Sprintf("checkout is %s", state))
	}

	o.transitionLocked(Validating)
	user, signedIn := o.currentUser()
	quote, err := o.validateLocked()
	if err == nil && !signedIn {
		err = shoperr.NewAuth(op, 0)
	}
	if err != nil {
		o.fieldErrors = shoperr.FieldsOf(err)
		o.transitionLocked(Shipping)
		fields := o.fieldErrors
		o.mu.Unlock()
		o.emit(Shipping, Validating)
		o.emit(Validating, Shipping)
		o.log.Info("order rejected locally", zap.Stringer("code", shoperr.CodeOf(err)), zap.Any("fields", fields))
		return models.Order{}, err
	}
	o.fieldErrors = nil
	o.transitionLocked(SubmittingOrder)

	req := remote.CreateOrderRequest{
		UserID:          user.ID,
		ShippingAddress: o.shipping.AddressLine(),
		ShippingMethod:  o.method,
		OrderItems:      models.OrderItemsFrom(o.snapshot.Items()),
		Total:           quote.Total,
	}
	items := o.snapshot.Items()
	method := o.method
	o.mu.Unlock()
	o.emit(Shipping, Validating)
	o.emit(Validating, SubmittingOrder)

	resp, err := o.orders.CreateOrder(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = shoperr.FromTransport(op, ctx.Err())
	}

	o.mu.Lock()
	if err != nil {
		o.failure = failureFrom(err)
		o.transitionLocked(Failed)
		o.mu.Unlock()
		o.emit(SubmittingOrder, Failed)
		o.log.Warn("order failed", zap.Stringer("code", shoperr.CodeOf(err)), zap.Error(err))
		return models.Order{}, err
	}

	order := models.Order{
		ID:              resp.ID,
		Number:          resp.OrderNumber,
		Status:          models.OrderPending,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		ShippingMethod:  method,
		Total:           quote.Total,
		CreatedAt:       time.Now(),
	}
	if resp.Total != nil && !resp.Total.Equal(quote.Total) {
		o.log.Warn("order total differs from local quote",
			zap.String("local", quote.Total.StringFixed(2)),
			zap.String("remote", resp.Total.StringFixed(2)),
		)
		order.Total = *resp.Total
	}
	o.order = &order
	o.transitionLocked(OrderCreated)
	o.mu.Unlock()
	o.emit(SubmittingOrder, OrderCreated)

	o.log.Info("order created", zap.String("orderId", order.ID), zap.String("orderNumber", order.Number))
	return order, nil
}

// validateLocked checks the form and the snapshot and prices the order.
func (o *Orchestrator) validateLocked() (pricing.Quote, error) {
	fields := map[string]string{}
	if err := o.validator.Struct(o.shipping); err != nil {
		for k, msg := range shoperr.FieldsOf(err) {
			fields[k] = msg
		}
	}
	if o.snapshot.IsEmpty() {
		fields["cart"] = "is empty"
	}
	for _, item := range o.snapshot.Items() {
		if strings.TrimSpace(item.ProductID) == "" {
			fields["cart"] = "contains an item without a product"
			break
		}
	}
	quote, err := o.calculator.Calculate(o.snapshot, o.promo, o.method)
	if err != nil {
		for k, msg := range shoperr.FieldsOf(err) {
			fields[k] = msg
		}
	}
	if len(fields) > 0 {
		return pricing.Quote{}, shoperr.NewValidation(fields)
	}
	return quote, nil
}

// SubmitPayment pays the created order. Invalid details keep the checkout in
// OrderCreated; remote failures move it to Failed.
func (o *Orchestrator) SubmitPayment(ctx context.Context, details payment.Details) (models.Receipt, error) {
	const op = "submit payment"

	o.mu.Lock()
	switch o.state {
	case OrderCreated:
	case Confirmed:
		o.mu.Unlock()
		return models.Receipt{}, shoperr.NewConflict(op, shoperr.MsgAlreadyPaid)
	case SubmittingPayment:
		o.mu.Unlock()
		return models.Receipt{}, shoperr.NewConflict(op, shoperr.MsgPaymentInFlight)
	default:
		state := o.state
		o.mu.Unlock()
		return models.Receipt{}, shoperr.NewConflict(op, fmt.Sprintf("checkout is %s", state))
	}

	user, _ := o.currentUser()
	req := payment.Request{
		UserID:  user.ID,
		Order:   payment.OrderRef{ID: o.order.ID, Number: o.order.Number},
		Amount:  o.order.Total,
		Details: details,
	}
	if err := o.payments.Validate(req); err != nil {
		o.fieldErrors = shoperr.FieldsOf(err)
		o.mu.Unlock()
		return models.Receipt{}, err
	}
	o.fieldErrors = nil
	o.order.Status = models.OrderPaymentSubmitted
	o.transitionLocked(SubmittingPayment)
	o.mu.Unlock()
	o.emit(OrderCreated, SubmittingPayment)

	receipt, err := o.payments.Submit(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = shoperr.FromTransport(op, ctx.Err())
	}

	o.mu.Lock()
	if err != nil {
		if shoperr.IsValidation(err) {
			o.fieldErrors = shoperr.FieldsOf(err)
			o.order.Status = models.OrderPending
			o.transitionLocked(OrderCreated)
			o.mu.Unlock()
			o.emit(SubmittingPayment, OrderCreated)
			return models.Receipt{}, err
		}
		o.failure = failureFrom(err)
		if o.failure.Retryable {
			o.order.Status = models.OrderPending
		} else {
			o.order.Status = models.OrderFailed
		}
		o.transitionLocked(Failed)
		o.mu.Unlock()
		o.emit(SubmittingPayment, Failed)
		o.log.Warn("payment failed", zap.Stringer("code", shoperr.CodeOf(err)), zap.Error(err))
		return models.Receipt{}, err
	}

	o.receipt = &receipt
	o.order.Status = models.OrderConfirmed
	o.transitionLocked(Confirmed)
	o.mu.Unlock()
	o.emit(SubmittingPayment, Confirmed)

	o.log.Info("checkout confirmed", zap.String("orderNumber", receipt.OrderNumber), zap.String("paymentNumber", receipt.PaymentNumber))
	return receipt, nil
}

// Retry resumes a retryable failure: at Shipping when no order was created,
// otherwise at OrderCreated so the existing order is paid instead of
// duplicated.
func (o *Orchestrator) Retry() error {
	const op = "retry checkout"

	o.mu.Lock()
	if o.state != Failed {
		state := o.state
		o.mu.Unlock()
		return shoperr.NewConflict(op, fmt.Sprintf("checkout is %s", state))
	}
	if o.failure == nil || !o.failure.Retryable {
		o.mu.Unlock()
		return shoperr.NewConflict(op, "this checkout cannot be retried")
	}
	next := Shipping
	if o.order != nil {
		next = OrderCreated
		o.order.Status = models.OrderPending
	}
	o.failure = nil
	o.transitionLocked(next)
	o.mu.Unlock()
	o.emit(Failed, next)
	return nil
}

// Order returns the created order, if any.
func (o *Orchestrator) Order() (models.Order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil {
		return models.Order{}, false
	}
	order := *o.order
	order.Items = append([]models.CartItem(nil), o.order.Items...)
	return order, true
}

// Shipping returns the current shipping form.
func (o *Orchestrator) Shipping() models.ShippingInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shipping
}

func (o *Orchestrator) currentUser() (models.User, bool) {
	if o.identity == nil {
		return models.User{}, false
	}
	return o.identity.Current()
}

func (o *Orchestrator) transitionLocked(to State) {
	o.log.Debug("transition", zap.String("from", string(o.state)), zap.String("to", string(to)))
	o.state = to
}

func (o *Orchestrator) emit(from, to State) {
	o.listenersMu.Lock()
	listeners := append([]Listener(nil), o.listeners...)
	o.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(o, Transition{From: from, To: to})
	}
}
