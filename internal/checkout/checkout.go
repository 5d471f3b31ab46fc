package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"puntoventa/terminal/internal/cart"
	"puntoventa/terminal/internal/catalog"
	"puntoventa/terminal/internal/domain"
	"puntoventa/terminal/internal/gateway"
	"puntoventa/terminal/internal/xid"
)

// Status is the workflow's explicit state. The source client encoded this as
// loading/disabled flag combinations; here every transition is named.
type Status string

const (
	// StatusIdle: no payment in progress.
	StatusIdle Status = "idle"
	// StatusAwaitingPayment: the payment dialog is open, tendered amount
	// being edited.
	StatusAwaitingPayment Status = "awaiting_payment"
	// StatusSubmitting: the sale is in flight; no second submission may
	// start.
	StatusSubmitting Status = "submitting"
	// StatusCommitted: the sale was accepted and the cart reset.
	StatusCommitted Status = "committed"
)

func (s Status) String() string { return string(s) }

var (
	// ErrEmptyCart blocks opening checkout with no lines.
	ErrEmptyCart = errors.New("checkout: no hay productos en la venta")
	// ErrInvalidState rejects an operation outside its legal state.
	ErrInvalidState = errors.New("checkout: operación inválida en el estado actual")
)

const (
	msgInsufficient = "El dinero recibido es insuficiente"
	msgEmptyCart    = "No hay productos en la venta"
	msgConnectivity = "Error de conexión al registrar la venta"
	msgUnexpected   = "Error inesperado al confirmar el pago."
)

// Submitter is the sale submission side of the backend gateway.
type Submitter interface {
	SubmitSale(ctx context.Context, sale domain.Sale) (domain.SubmitResult, error)
}

// PendingPayment is the transient state of the open payment dialog. Raw
// input is kept apart from its parsed value so the dialog can echo exactly
// what was typed.
type PendingPayment struct {
	Raw      string
	Tendered decimal.Decimal
	Change   decimal.Decimal
	Err      string
}

// Workflow gates sale submission behind a valid payment and commits it.
type Workflow struct {
	cart      *cart.Cart
	catalog   *catalog.Store
	submitter Submitter
	log       zerolog.Logger

	status  Status
	pending PendingPayment
}

func NewWorkflow(c *cart.Cart, cat *catalog.Store, submitter Submitter, log zerolog.Logger) *Workflow {
	return &Workflow{
		cart:      c,
		catalog:   cat,
		submitter: submitter,
		log:       log,
		status:    StatusIdle,
	}
}

func (w *Workflow) Status() Status          { return w.status }
func (w *Workflow) Pending() PendingPayment { return w.pending }

// Open starts the checkout. An empty cart fails without a state change. A
// total of zero or less (fully discounted sale) skips the payment dialog and
// commits directly; the returned result is non-nil exactly on that path.
func (w *Workflow) Open(ctx context.Context) (*domain.SubmitResult, error) {
	if w.status == StatusSubmitting {
		return nil, ErrInvalidState
	}
	if w.cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	if !w.cart.Total().IsPositive() {
		w.status = StatusSubmitting
		result := w.commit(ctx)
		if result.Success {
			w.status = StatusCommitted
		} else {
			w.status = StatusIdle
		}
		w.pending = PendingPayment{}
		return &result, nil
	}

	w.status = StatusAwaitingPayment
	w.pending = PendingPayment{}
	return nil, nil
}

// UpdateTendered records the raw tendered input and derives change and the
// insufficient-funds error from it. Empty input and a parsed zero clear both.
func (w *Workflow) UpdateTendered(raw string) error {
	if w.status != StatusAwaitingPayment {
		return ErrInvalidState
	}

	tendered, err := decimal.NewFromString(raw)
	if err != nil {
		tendered = decimal.Zero
	}
	w.pending.Raw = raw
	w.pending.Tendered = tendered

	total := w.cart.Total()
	switch {
	case raw == "" || tendered.IsZero():
		w.pending.Err = ""
		w.pending.Change = decimal.Zero
	case tendered.LessThan(total):
		w.pending.Err = msgInsufficient
		w.pending.Change = decimal.Zero
	default:
		w.pending.Err = ""
		w.pending.Change = tendered.Sub(total).Round(2)
	}
	return nil
}

// Confirm validates the tendered amount and commits the sale. While the
// submission is in flight the workflow sits in StatusSubmitting, so a second
// Confirm is rejected with ErrInvalidState.
func (w *Workflow) Confirm(ctx context.Context) (domain.SubmitResult, error) {
	if w.status != StatusAwaitingPayment {
		return domain.SubmitResult{}, ErrInvalidState
	}

	total := w.cart.Total()
	if w.pending.Tendered.LessThan(total) && total.IsPositive() {
		w.pending.Err = msgInsufficient
		return domain.SubmitResult{Success: false, Message: msgInsufficient}, nil
	}

	w.status = StatusSubmitting
	result := w.commit(ctx)
	if result.Success {
		w.status = StatusCommitted
		w.pending = PendingPayment{}
	} else {
		w.status = StatusAwaitingPayment
		w.pending.Err = result.Message
	}
	return result, nil
}

// Cancel discards the pending payment and returns to idle. The cart is left
// untouched.
func (w *Workflow) Cancel() error {
	if w.status == StatusSubmitting {
		return ErrInvalidState
	}
	w.pending = PendingPayment{}
	w.status = StatusIdle
	return nil
}

// Reset readies the workflow for the next sale after a commit.
func (w *Workflow) Reset() {
	if w.status == StatusSubmitting {
		return
	}
	w.pending = PendingPayment{}
	w.status = StatusIdle
}

// commit builds the sale record, submits it, and on success reconciles local
// state: stock decremented by the sold quantities, cart cleared.
func (w *Workflow) commit(ctx context.Context) domain.SubmitResult {
	if w.cart.IsEmpty() {
		return domain.SubmitResult{Success: false, Message: msgEmptyCart}
	}

	items := w.cart.Items()
	sale := domain.Sale{
		Date:  time.Now().Format("2006-01-02"),
		Total: w.cart.Total(),
		Items: items,
	}

	ref := xid.New("venta")
	w.log.Info().
		Str("ref", ref).
		Str("total", sale.Total.StringFixed(2)).
		Int("items", len(items)).
		Msg("registrando venta")

	result, err := w.submitter.SubmitSale(ctx, sale)
	if err != nil {
		w.log.Error().Str("ref", ref).Err(err).Msg("fallo al registrar la venta")
		if errors.Is(err, gateway.ErrUnavailable) {
			return domain.SubmitResult{Success: false, Message: msgConnectivity}
		}
		return domain.SubmitResult{Success: false, Message: msgUnexpected}
	}
	if !result.Success {
		return result
	}

	w.catalog.ApplySale(items)
	w.cart.Clear()
	w.log.Info().Str("ref", ref).Msg("venta registrada")
	return domain.SubmitResult{Success: true}
}
