package sdk

// Role is the dashboard role embedded in access tokens as a small integer.
type Role int

const (
	RoleUnknown Role = iota
	RoleSuperadmin
	RoleAdmin
	RoleFrigorifico
	RoleLogistica
	RoleTienda
)

var roleNames = map[Role]string{
	RoleSuperadmin:  "superadmin",
	RoleAdmin:       "admin",
	RoleFrigorifico: "frigorifico",
	RoleLogistica:   "logistica",
	RoleTienda:      "tienda",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// RoleFromID maps a claim role id onto a Role, RoleUnknown for ids outside
// the known set.
func RoleFromID(id int) Role {
	r := Role(id)
	if _, ok := roleNames[r]; !ok {
		return RoleUnknown
	}
	return r
}
