package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"puntoventa/terminal/internal/cart"
	"puntoventa/terminal/internal/catalog"
	"puntoventa/terminal/internal/domain"
	"puntoventa/terminal/internal/gateway"
)

type fakeFetcher struct {
	products   []domain.Product
	categories []domain.Category
}

func (f *fakeFetcher) FetchProducts(context.Context) ([]domain.Product, error) {
	return f.products, nil
}

func (f *fakeFetcher) FetchCategories(context.Context) ([]domain.Category, error) {
	return f.categories, nil
}

type fakeSubmitter struct {
	result domain.SubmitResult
	err    error
	calls  int
	sale   domain.Sale
}

func (f *fakeSubmitter) SubmitSale(_ context.Context, sale domain.Sale) (domain.SubmitResult, error) {
	f.calls++
	f.sale = sale
	return f.result, f.err
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type fixture struct {
	cart      *cart.Cart
	catalog   *catalog.Store
	submitter *fakeSubmitter
	flow      *Workflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fetcher := &fakeFetcher{
		products: []domain.Product{
			{ID: 1, Name: "Café", Price: dec("10.00"), Stock: 5},
			{ID: 2, Name: "Medialuna", Price: dec("3.25"), Stock: 2},
		},
	}
	cat := catalog.NewStore(fetcher, zerolog.Nop())
	require.NoError(t, cat.Load(context.Background()))

	c := cart.New(cat)
	submitter := &fakeSubmitter{result: domain.SubmitResult{Success: true}}
	return &fixture{
		cart:      c,
		catalog:   cat,
		submitter: submitter,
		flow:      NewWorkflow(c, cat, submitter, zerolog.Nop()),
	}
}

func TestOpenEmptyCart(t *testing.T) {
	f := newFixture(t)

	result, err := f.flow.Open(context.Background())
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Nil(t, result)
	require.Equal(t, StatusIdle, f.flow.Status())
}

func TestOpenAwaitsPayment(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddLine(1))

	result, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.Nil(t, result)
	require.Equal(t, StatusAwaitingPayment, f.flow.Status())
	require.Zero(t, f.submitter.calls)
}

func TestUpdateTenderedOutsidePayment(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.flow.UpdateTendered("10"), ErrInvalidState)
}

func TestUpdateTendered(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddLine(1))
	require.NoError(t, f.cart.SetQuantity(1, 2))
	_, err := f.flow.Open(context.Background())
	require.NoError(t, err)

	// Less than the total: insufficient, no change.
	require.NoError(t, f.flow.UpdateTendered("15"))
	pending := f.flow.Pending()
	require.Equal(t, "El dinero recibido es insuficiente", pending.Err)
	require.True(t, pending.Change.IsZero())

	// Enough: change is tendered minus total, rounded to cents.
	require.NoError(t, f.flow.UpdateTendered("25.505"))
	pending = f.flow.Pending()
	require.Empty(t, pending.Err)
	require.True(t, pending.Change.Equal(dec("5.51")), "change was %s", pending.Change)

	// Clearing the input clears the derived state.
	require.NoError(t, f.flow.UpdateTendered(""))
	pending = f.flow.Pending()
	require.Empty(t, pending.Err)
	require.True(t, pending.Change.IsZero())

	// Garbage parses as zero and clears too.
	require.NoError(t, f.flow.UpdateTendered("abc"))
	require.True(t, f.flow.Pending().Tendered.IsZero())
	require.Empty(t, f.flow.Pending().Err)
}

func TestConfirmInsufficientKeepsEverything(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddLine(1))
	_, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.flow.UpdateTendered("4"))

	result, err := f.flow.Confirm(context.Background())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "El dinero recibido es insuficiente", result.Message)
	require.Equal(t, StatusAwaitingPayment, f.flow.Status())
	require.Zero(t, f.submitter.calls)
	require.False(t, f.cart.IsEmpty())
}

func TestConfirmOutsidePayment(t *testing.T) {
	f := newFixture(t)
	_, err := f.flow.Confirm(context.Background())
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmCommitsSale(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddLine(1))
	require.NoError(t, f.cart.SetQuantity(1, 2))
	require.NoError(t, f.cart.AddLine(2))
	f.cart.SetDiscount("3.25")

	_, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.flow.UpdateTendered("20"))

	result, err := f.flow.Confirm(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, StatusCommitted, f.flow.Status())

	require.Equal(t, 1, f.submitter.calls)
	sale := f.submitter.sale
	require.Equal(t, time.Now().Format("2006-01-02"), sale.Date)
	require.True(t, sale.Total.Equal(dec("20.00")), "total was %s", sale.Total)
	require.Len(t, sale.Items, 2)
	require.Equal(t, int64(1), sale.Items[0].ProductID)
	require.Equal(t, 2, sale.Items[0].Quantity)
	require.True(t, sale.Items[0].Total.Equal(dec("20.00")))

	// Local state reconciled: cart emptied, stock decremented.
	require.True(t, f.cart.IsEmpty())
	product, ok := f.catalog.Get(1)
	require.True(t, ok)
	require.Equal(t, 3, product.Stock)
	product, ok = f.catalog.Get(2)
	require.True(t, ok)
	require.Equal(t, 1, product.Stock)

	// A second checkout on the now-empty cart reports the empty-cart failure.
	f.flow.Reset()
	_, err = f.flow.Open(context.Background())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestConfirmBusinessRejection(t *testing.T) {
	f := newFixture(t)
	f.submitter.result = domain.SubmitResult{Success: false, Message: "Stock insuficiente para el producto Café"}
	require.NoError(t, f.cart.AddLine(1))
	_, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.flow.UpdateTendered("10"))

	result, err := f.flow.Confirm(context.Background())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Stock insuficiente para el producto Café", result.Message)

	// The dialog stays open for a retry and nothing was reconciled.
	require.Equal(t, StatusAwaitingPayment, f.flow.Status())
	require.Equal(t, result.Message, f.flow.Pending().Err)
	require.False(t, f.cart.IsEmpty())
	product, _ := f.catalog.Get(1)
	require.Equal(t, 5, product.Stock)
}

func TestConfirmConnectivityFailure(t *testing.T) {
	f := newFixture(t)
	f.submitter.err = fmt.Errorf("post ventas: %w", gateway.ErrUnavailable)
	require.NoError(t, f.cart.AddLine(1))
	_, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.flow.UpdateTendered("10"))

	result, err := f.flow.Confirm(context.Background())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Error de conexión al registrar la venta", result.Message)
	require.Equal(t, StatusAwaitingPayment, f.flow.Status())
}

func TestConfirmUnexpectedFailure(t *testing.T) {
	f := newFixture(t)
	f.submitter.err = errors.New("boom")
	require.NoError(t, f.cart.AddLine(1))
	_, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.flow.UpdateTendered("10"))

	result, err := f.flow.Confirm(context.Background())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Error inesperado al confirmar el pago.", result.Message)
}

func TestZeroTotalBypassesPayment(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddLine(1))
	f.cart.SetDiscount("10")
	require.True(t, f.cart.Total().IsZero())

	result, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.Success)
	require.Equal(t, StatusCommitted, f.flow.Status())
	require.Equal(t, 1, f.submitter.calls)
	require.True(t, f.cart.IsEmpty())
}

func TestCancelKeepsCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddLine(1))
	_, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.flow.UpdateTendered("50"))

	require.NoError(t, f.flow.Cancel())
	require.Equal(t, StatusIdle, f.flow.Status())
	require.Empty(t, f.flow.Pending().Raw)
	require.False(t, f.cart.IsEmpty())
}

func TestResetAfterCommit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddLine(1))
	_, err := f.flow.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.flow.UpdateTendered("10"))
	_, err = f.flow.Confirm(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, f.flow.Status())

	f.flow.Reset()
	require.Equal(t, StatusIdle, f.flow.Status())
}
