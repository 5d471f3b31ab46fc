package domain

import "github.com/shopspring/decimal"

// RoleCashier is the numeric role the backend assigns to cashier accounts.
// A session whose user carries any other role may not enter the panel.
const RoleCashier = 3

type Product struct {
	ID         int64           `json:"id_producto"`
	Name       string          `json:"nombre"`
	Price      decimal.Decimal `json:"precio"`
	Stock      int             `json:"stock"`
	CategoryID int64           `json:"id_categoria,omitempty"`
}

type Category struct {
	ID   int64  `json:"id_categoria"`
	Name string `json:"nombre"`
}

// CartLine is one product entry in the current sale. UnitPrice and Total are
// denormalized at mutation time; Total always equals Quantity x UnitPrice.
type CartLine struct {
	ProductID int64           `json:"id_producto"`
	Name      string          `json:"nombre"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
	Total     decimal.Decimal `json:"total"`
}

type SaleItem struct {
	ProductID int64           `json:"id_producto"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
	Total     decimal.Decimal `json:"total"`
}

// Sale is the record submitted to the backend when a payment is confirmed.
// Date uses the backend's YYYY-MM-DD convention.
type Sale struct {
	Date  string          `json:"fecha"`
	Total decimal.Decimal `json:"total"`
	Items []SaleItem      `json:"items"`
}

// SubmitResult is the synchronous outcome every checkout action reports.
type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type User struct {
	ID   int64 `json:"id_usuario"`
	Role int   `json:"role"`
}

// Session is the explicit session context the panel operates under. It is
// populated at login, cleared at logout and read-only everywhere else.
type Session struct {
	Token  string `json:"token"`
	UserID int64  `json:"id_usuario"`
	User   User   `json:"user"`
}
