package model

// Privilege represents a permission granted to operators through their role
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "inventory:adjust"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivInventoryAdjust = "inventory:adjust"
	PrivInventoryView   = "inventory:view"
	PrivProductCreate   = "product:create"
	PrivProductUpdate   = "product:update"
	PrivOrderCreate     = "order:create"
	PrivOrderView       = "order:view"
	PrivOrderManage     = "order:manage"
	PrivOutboundCreate  = "outbound:create"
	PrivOutboundView    = "outbound:view"
	PrivDashboardView   = "dashboard:view"
	PrivOperatorManage  = "operator:manage"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// Inventory
	{Code: PrivInventoryAdjust, Name: "Adjust Stock"},
	{Code: PrivInventoryView, Name: "View Inventory Logs"},
	// Catalog
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivProductUpdate, Name: "Update Product"},
	// Orders
	{Code: PrivOrderCreate, Name: "Checkout Order"},
	{Code: PrivOrderView, Name: "View Orders"},
	{Code: PrivOrderManage, Name: "Cancel, Refund and Delete Orders"},
	// Outbound
	{Code: PrivOutboundCreate, Name: "Record Outbound"},
	{Code: PrivOutboundView, Name: "View Outbound"},
	// Dashboard
	{Code: PrivDashboardView, Name: "View Dashboard"},
	// Operators
	{Code: PrivOperatorManage, Name: "Manage Operators"},
}
