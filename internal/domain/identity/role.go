package identity

// Role is the single role a user holds in the dealership
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSales    Role = "sales"
	RoleDriver   Role = "driver"
	RoleCustomer Role = "customer"
)

// AllRoles lists every assignable role
var AllRoles = []Role{RoleAdmin, RoleSales, RoleDriver, RoleCustomer}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSales, RoleDriver, RoleCustomer:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to dealership staff
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSales || r == RoleDriver
}

// CanManageCatalog reports whether the role can edit homes, options, services and factories
func (r Role) CanManageCatalog() bool {
	return r == RoleAdmin || r == RoleSales
}

// CanManageSales reports whether the role can work customer carts, transactions and appointments
func (r Role) CanManageSales() bool {
	return r == RoleAdmin || r == RoleSales
}

// CanOperateDeliveries reports whether the role can post GPS readings and delivery status
func (r Role) CanOperateDeliveries() bool {
	return r == RoleAdmin || r == RoleDriver
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts s into a Role
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}
