package analysis

import "strings"

// Role is a semantic hint derived from a column header.
type Role string

const (
	RoleNone       Role = ""
	RoleCurrency   Role = "currency"
	RolePercent    Role = "percent"
	RoleQuantity   Role = "quantity"
	RoleTime       Role = "time"
	RoleDimension  Role = "dimension"
	RoleIdentifier Role = "identifier"
)

// roleKeywords is evaluated top to bottom; the first keyword contained in the
// lower-cased header wins. Order matters: "unit price" is currency, not quantity.
var roleKeywords = []struct {
	keyword string
	role    Role
}{
	{"revenue", RoleCurrency},
	{"sales", RoleCurrency},
	{"price", RoleCurrency},
	{"amount", RoleCurrency},
	{"cost", RoleCurrency},
	{"profit", RoleCurrency},
	{"income", RoleCurrency},
	{"expense", RoleCurrency},
	{"salary", RoleCurrency},
	{"budget", RoleCurrency},
	{"total", RoleCurrency},
	{"percent", RolePercent},
	{"rate", RolePercent},
	{"ratio", RolePercent},
	{"%", RolePercent},
	{"quantity", RoleQuantity},
	{"qty", RoleQuantity},
	{"units", RoleQuantity},
	{"count", RoleQuantity},
	{"stock", RoleQuantity},
	{"date", RoleTime},
	{"month", RoleTime},
	{"year", RoleTime},
	{"quarter", RoleTime},
	{"week", RoleTime},
	{"id", RoleIdentifier},
	{"region", RoleDimension},
	{"category", RoleDimension},
	{"type", RoleDimension},
	{"status", RoleDimension},
	{"product", RoleDimension},
	{"department", RoleDimension},
	{"name", RoleDimension},
}

// RoleOf maps a header to its role by ordered substring match.
func RoleOf(header string) Role {
	h := strings.ToLower(header)
	for _, kw := range roleKeywords {
		if strings.Contains(h, kw.keyword) {
			return kw.role
		}
	}
	return RoleNone
}
