package model

// Role groups the privileges an operator holds
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // MANAGER, CASHIER
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

const (
	RoleManager = "MANAGER"
	RoleCashier = "CASHIER"
)

var DefaultRoles = []Role{
	{
		Code:        RoleManager,
		Name:        "Store Manager",
		Description: "Full access including manual stock adjustments and order management",
	},
	{
		Code:        RoleCashier,
		Name:        "Cashier",
		Description: "Checkout and scan access",
	},
}

// DefaultRolePrivileges lists the privilege codes seeded for each role.
// A nil entry means every privilege.
var DefaultRolePrivileges = map[string][]string{
	RoleManager: nil,
	RoleCashier: {
		PrivOrderCreate,
		PrivOrderView,
		PrivOutboundCreate,
		PrivOutboundView,
	},
}
