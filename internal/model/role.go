package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // OWNER, ADMIN, KASIR
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants
const (
	RoleOwner   = "OWNER"
	RoleAdmin   = "ADMIN"
	RoleCashier = "KASIR"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleOwner,
		Name:        "Pemilik Toko",
		Description: "Full access including buy prices and reconciliation",
	},
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Catalog, stock and sales administration",
	},
	{
		Code:        RoleCashier,
		Name:        "Kasir",
		Description: "Point of sale and online order handling",
	},
}

// ownerOnly stays with OWNER: buy prices and ledger audits.
var ownerOnly = map[string]bool{
	PrivProductViewCost: true,
	PrivStockReconcile:  true,
}

// RolePrivileges returns the privilege codes a role is seeded with.
func RolePrivileges(roleCode string) []string {
	switch roleCode {
	case RoleOwner, RoleAdmin:
		codes := make([]string, 0, len(DefaultPrivileges))
		for _, p := range DefaultPrivileges {
			if roleCode == RoleAdmin && ownerOnly[p.Code] {
				continue
			}
			codes = append(codes, p.Code)
		}
		return codes
	case RoleCashier:
		return append([]string(nil), CashierPrivileges...)
	}
	return nil
}
