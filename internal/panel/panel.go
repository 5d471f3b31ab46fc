package panel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"puntoventa/terminal/internal/cart"
	"puntoventa/terminal/internal/catalog"
	"puntoventa/terminal/internal/checkout"
	"puntoventa/terminal/internal/domain"
	"puntoventa/terminal/internal/gateway"
	"puntoventa/terminal/internal/session"
)

// ErrSessionInvalid is returned when the backend rejects the session while
// loading the catalog; the caller must send the user back to the entry
// screen.
var ErrSessionInvalid = errors.New("panel: sesión inválida o expirada")

// Panel wires the session guard, catalog, cart and checkout workflow behind
// a line-oriented command loop.
type Panel struct {
	guard   *session.Guard
	catalog *catalog.Store
	cart    *cart.Cart
	flow    *checkout.Workflow
	log     zerolog.Logger
	out     io.Writer
}

func New(guard *session.Guard, cat *catalog.Store, c *cart.Cart, flow *checkout.Workflow, log zerolog.Logger, out io.Writer) *Panel {
	return &Panel{
		guard:   guard,
		catalog: cat,
		cart:    c,
		flow:    flow,
		log:     log,
		out:     out,
	}
}

// Run authorizes entry, loads the catalog and serves commands until "salir"
// or end of input. A 401 during the load clears the session and returns
// ErrSessionInvalid.
func (p *Panel) Run(ctx context.Context, input io.Reader) error {
	if _, err := p.guard.Authorize(ctx); err != nil {
		return err
	}

	if err := p.catalog.Load(ctx); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			if logoutErr := p.guard.Logout(ctx); logoutErr != nil {
				p.log.Error().Err(logoutErr).Msg("fallo al cerrar sesión")
			}
			return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
		}
		return fmt.Errorf("error al cargar datos: %w", err)
	}

	p.printf("Punto de Venta — Modo Cajero")
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		quit, err := p.handle(ctx, scanner.Text())
		if err != nil {
			return err
		}
		if quit {
			break
		}
	}
	return scanner.Err()
}

func (p *Panel) handle(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "productos":
		p.showProducts(strings.Join(args, " "))
	case "agregar":
		p.addProduct(args)
	case "cantidad":
		p.setQuantity(args)
	case "quitar":
		p.removeProduct(args)
	case "descuento":
		p.applyDiscount(args)
	case "venta":
		p.showSale()
	case "cobrar":
		p.openCheckout(ctx)
	case "recibido":
		p.updateTendered(args)
	case "confirmar":
		p.confirmPayment(ctx)
	case "cancelar":
		if err := p.flow.Cancel(); err != nil {
			p.printf("Procesando... espere")
		}
	case "cancelarventa":
		p.cancelSale()
	case "salir":
		if err := p.guard.Logout(ctx); err != nil {
			p.log.Error().Err(err).Msg("fallo al cerrar sesión")
		}
		return true, nil
	default:
		p.printf("Comando desconocido: %s", command)
	}
	return false, nil
}

func (p *Panel) showProducts(query string) {
	groups := p.catalog.GroupByCategory(query)
	if len(groups) == 0 {
		p.printf("No hay productos para esta búsqueda.")
		return
	}
	for _, group := range groups {
		p.printf("== %s ==", group.Name)
		for _, product := range group.Products {
			state := fmt.Sprintf("Stock: %d", product.Stock)
			if product.Stock <= 0 {
				state = "AGOTADO"
			}
			p.printf("  [%d] %s  $%s  %s", product.ID, product.Name, product.Price.StringFixed(2), state)
		}
	}
}

func (p *Panel) addProduct(args []string) {
	id, ok := p.parseID(args)
	if !ok {
		return
	}
	switch err := p.cart.AddLine(id); {
	case errors.Is(err, cart.ErrOutOfStock):
		p.printf("Producto fuera de stock")
	case errors.Is(err, cart.ErrInsufficientStock):
		p.printf("No hay suficiente stock para agregar más unidades.")
	case errors.Is(err, cart.ErrUnknownProduct):
		p.printf("Producto desconocido")
	case err == nil:
		p.showSale()
	}
}

func (p *Panel) setQuantity(args []string) {
	if len(args) < 2 {
		p.printf("Uso: cantidad <id> <n>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		p.printf("Producto inválido: %s", args[0])
		return
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		quantity = 1
	}
	if setErr := p.cart.SetQuantity(id, quantity); errors.Is(setErr, cart.ErrInsufficientStock) {
		p.printf("No hay suficiente stock para esa cantidad.")
		return
	}
	p.showSale()
}

func (p *Panel) removeProduct(args []string) {
	id, ok := p.parseID(args)
	if !ok {
		return
	}
	p.cart.RemoveLine(id)
	p.showSale()
}

func (p *Panel) applyDiscount(args []string) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	}
	p.cart.SetDiscount(raw)
	p.showSale()
}

func (p *Panel) showSale() {
	lines := p.cart.Lines()
	if len(lines) == 0 {
		p.printf("No hay productos en la venta")
		return
	}
	for _, line := range lines {
		p.printf("  %s x%d  $%s  $%s", line.Name, line.Quantity, line.UnitPrice.StringFixed(2), line.Total.StringFixed(2))
	}
	p.printf("Subtotal: $%s", p.cart.Subtotal().StringFixed(2))
	p.printf("Descuento: $%s", p.cart.Discount().StringFixed(2))
	p.printf("Total: $%s", p.cart.Total().StringFixed(2))
}

func (p *Panel) openCheckout(ctx context.Context) {
	result, err := p.flow.Open(ctx)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		p.printf("No hay productos en la venta")
	case err != nil:
		p.printf("Procesando... espere")
	case result != nil:
		// Zero total: the payment dialog was bypassed and the sale
		// committed directly.
		p.reportCommit(*result)
	default:
		p.printf("Procesar Pago — Total a Pagar: $%s", p.cart.Total().StringFixed(2))
	}
}

func (p *Panel) updateTendered(args []string) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	}
	if err := p.flow.UpdateTendered(raw); err != nil {
		p.printf("No hay un pago en curso")
		return
	}
	pending := p.flow.Pending()
	if pending.Err != "" {
		p.printf("%s", pending.Err)
		return
	}
	if pending.Change.IsPositive() {
		p.printf("Cambio a devolver: $%s", pending.Change.StringFixed(2))
	}
}

func (p *Panel) confirmPayment(ctx context.Context) {
	change := p.flow.Pending().Change
	result, err := p.flow.Confirm(ctx)
	if err != nil {
		p.printf("No hay un pago en curso")
		return
	}
	if result.Success && change.IsPositive() {
		p.printf("Cambio a devolver: $%s", change.StringFixed(2))
	}
	p.reportCommit(result)
}

func (p *Panel) reportCommit(result domain.SubmitResult) {
	if result.Success {
		p.printf("Venta registrada exitosamente")
		p.flow.Reset()
		return
	}
	p.printf("%s", result.Message)
}

func (p *Panel) cancelSale() {
	if err := p.flow.Cancel(); err != nil {
		p.printf("Procesando... espere")
		return
	}
	p.cart.Clear()
	p.printf("Venta cancelada")
}

func (p *Panel) parseID(args []string) (int64, bool) {
	if len(args) == 0 {
		p.printf("Falta el identificador del producto")
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		p.printf("Producto inválido: %s", args[0])
		return 0, false
	}
	return id, true
}

func (p *Panel) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}
