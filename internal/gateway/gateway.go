package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"puntoventa/terminal/internal/domain"
)

var (
	// ErrUnauthorized maps a 401 from the backend; the caller must take the
	// forced-logout path.
	ErrUnauthorized = errors.New("gateway: unauthorized")
	// ErrUnavailable covers transport failures: connection refused, DNS,
	// request timeout.
	ErrUnavailable = errors.New("gateway: backend unreachable")
	// ErrInvalidResponse covers payloads that fail decoding or schema
	// validation at the boundary.
	ErrInvalidResponse = errors.New("gateway: invalid response")
	// ErrLoadFailed is the generic catalog load error for any non-success
	// outcome that is not a 401.
	ErrLoadFailed = errors.New("gateway: load failed")
)

// recoveryPassword is the fixed placeholder the recovery contract mandates.
const recoveryPassword = "1234"

var validate = validator.New()

// TokenProvider hands the client the bearer token of the current session.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the POS backend. All methods classify failures into the
// package sentinels so callers never inspect HTTP details.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	log     zerolog.Logger
}

func New(baseURL string, timeout time.Duration, tokens TokenProvider, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log,
	}
}

type productPayload struct {
	ID         int64       `json:"id_producto" validate:"required"`
	Name       string      `json:"nombre" validate:"required"`
	Price      json.Number `json:"precio"`
	Stock      json.Number `json:"stock"`
	CategoryID int64       `json:"id_categoria"`
}

type categoryPayload struct {
	ID   int64  `json:"id_categoria" validate:"required"`
	Name string `json:"nombre" validate:"required"`
}

type productsEnvelope struct {
	Success  bool             `json:"success"`
	Products []productPayload `json:"productos"`
}

type categoriesEnvelope struct {
	Success    bool              `json:"success"`
	Categories []categoryPayload `json:"categorias"`
}

type saleItemPayload struct {
	ProductID int64   `json:"id_producto" validate:"required"`
	Quantity  int     `json:"cantidad" validate:"gte=1"`
	UnitPrice float64 `json:"precio_unitario" validate:"gte=0"`
	Total     float64 `json:"total" validate:"gte=0"`
}

type salePayload struct {
	Date  string            `json:"fecha" validate:"required"`
	Total float64           `json:"total"`
	Items []saleItemPayload `json:"items" validate:"min=1,dive"`
}

type submitEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type recoveryEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	body, err := c.get(ctx, "/productos")
	if err != nil {
		return nil, err
	}

	var envelope productsEnvelope
	if err := decodeStrict(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: productos: %v", ErrInvalidResponse, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: productos", ErrLoadFailed)
	}

	products := make([]domain.Product, 0, len(envelope.Products))
	for _, payload := range envelope.Products {
		if err := validate.Struct(payload); err != nil {
			return nil, fmt.Errorf("%w: producto: %v", ErrInvalidResponse, err)
		}
		products = append(products, domain.Product{
			ID:         payload.ID,
			Name:       payload.Name,
			Price:      coerceMoney(payload.Price),
			Stock:      coerceInt(payload.Stock),
			CategoryID: payload.CategoryID,
		})
	}
	c.log.Debug().Int("count", len(products)).Msg("productos cargados")
	return products, nil
}

func (c *Client) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	body, err := c.get(ctx, "/categorias")
	if err != nil {
		return nil, err
	}

	var envelope categoriesEnvelope
	if err := decodeStrict(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: categorias: %v", ErrInvalidResponse, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: categorias", ErrLoadFailed)
	}

	categories := make([]domain.Category, 0, len(envelope.Categories))
	for _, payload := range envelope.Categories {
		if err := validate.Struct(payload); err != nil {
			return nil, fmt.Errorf("%w: categoria: %v", ErrInvalidResponse, err)
		}
		categories = append(categories, domain.Category{ID: payload.ID, Name: payload.Name})
	}
	c.log.Debug().Int("count", len(categories)).Msg("categorias cargadas")
	return categories, nil
}

// SubmitSale posts a completed sale. A backend rejection comes back as a
// failed SubmitResult with the backend's message; only transport, auth and
// schema problems surface as errors.
func (c *Client) SubmitSale(ctx context.Context, sale domain.Sale) (domain.SubmitResult, error) {
	payload := salePayload{
		Date:  sale.Date,
		Total: sale.Total.InexactFloat64(),
		Items: make([]saleItemPayload, 0, len(sale.Items)),
	}
	for _, item := range sale.Items {
		payload.Items = append(payload.Items, saleItemPayload{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			Total:     item.Total.InexactFloat64(),
		})
	}
	if err := validate.Struct(payload); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("venta invalida: %w", err)
	}

	body, err := c.send(ctx, http.MethodPost, "/ventas", payload, true)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	var envelope submitEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("%w: ventas: %v", ErrInvalidResponse, err)
	}
	if !envelope.Success {
		message := envelope.Message
		if message == "" {
			message = "Error desconocido al registrar"
		}
		c.log.Warn().Str("message", message).Msg("venta rechazada por el backend")
		return domain.SubmitResult{Success: false, Message: message}, nil
	}
	return domain.SubmitResult{Success: true}, nil
}

// RecoverPassword applies the documented recovery contract: a fixed
// placeholder password is set for the given username.
func (c *Client) RecoverPassword(ctx context.Context, username string) (domain.SubmitResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.SubmitResult{Success: false, Message: "Debes ingresar tu nombre de usuario"}, nil
	}

	path := fmt.Sprintf("/usuarios/%s/actualizar-password", url.PathEscape(username))
	payload := map[string]string{"nuevaPassword": recoveryPassword}

	req, err := c.newRequest(ctx, http.MethodPut, path, payload, false)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var envelope recoveryEnvelope
	_ = json.Unmarshal(body, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := envelope.Error
		if message == "" {
			message = "Error al enviar el enlace"
		}
		return domain.SubmitResult{Success: false, Message: message}, nil
	}
	return domain.SubmitResult{
		Success: true,
		Message: fmt.Sprintf("Se ha enviado un enlace de recuperación al correo del usuario %q.", username),
	}, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, path, nil, true)
}

func (c *Client) send(ctx context.Context, method string, path string, payload any, authed bool) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, payload, authed)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrLoadFailed, method, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method string, path string, payload any, authed bool) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if authed {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func decodeStrict(body []byte, dest any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	return decoder.Decode(dest)
}

// coerceMoney mirrors the source client's Number(p.precio) || 0 coercion:
// junk or negative prices become 0 instead of poisoning the catalog.
func coerceMoney(raw json.Number) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw.String())
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	return value
}

func coerceInt(raw json.Number) int {
	if raw == "" {
		return 0
	}
	if n, err := raw.Int64(); err == nil {
		if n < 0 {
			return 0
		}
		return int(n)
	}
	if f, err := raw.Float64(); err == nil && f > 0 {
		return int(f)
	}
	return 0
}
