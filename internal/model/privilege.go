package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "stock:adjust"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivProductView     = "product:view"
	PrivProductViewCost = "product:view_cost"
	PrivProductCreate   = "product:create"
	PrivProductUpdate   = "product:update"
	PrivStockView       = "stock:view"
	PrivStockAdjust     = "stock:adjust"
	PrivStockReconcile  = "stock:reconcile"
	PrivSaleView        = "sale:view"
	PrivSaleCreate      = "sale:create"
	PrivSaleProcess     = "sale:process"
	PrivSaleCancel      = "sale:cancel"
	PrivDashboardView   = "dashboard:view"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// Catalog
	{Code: PrivProductView, Name: "View Product"},
	{Code: PrivProductViewCost, Name: "View Buy Price"},
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivProductUpdate, Name: "Update Product"},
	// Stock ledger
	{Code: PrivStockView, Name: "View Stock Movements"},
	{Code: PrivStockAdjust, Name: "Adjust Stock"},
	{Code: PrivStockReconcile, Name: "Reconcile Stock"},
	// Sales
	{Code: PrivSaleView, Name: "View Sale"},
	{Code: PrivSaleCreate, Name: "Create Sale"},
	{Code: PrivSaleProcess, Name: "Process Online Order"},
	{Code: PrivSaleCancel, Name: "Cancel Sale"},
	// Dashboard
	{Code: PrivDashboardView, Name: "View Dashboard"},
}

// CashierPrivileges is what the KASIR role receives. Buy prices, stock
// adjustment and reconciliation stay with OWNER and ADMIN.
var CashierPrivileges = []string{
	PrivProductView,
	PrivStockView,
	PrivSaleView,
	PrivSaleCreate,
	PrivSaleProcess,
	PrivSaleCancel,
}
