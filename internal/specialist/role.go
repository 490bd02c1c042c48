package specialist

// Role identifies one independent analysis backend.
type Role string

const (
	RoleConcierge      Role = "concierge"
	RoleTrading        Role = "trading"
	RoleLegal          Role = "legal"
	RoleMediaForensics Role = "media-forensics"
)

// AllRoles lists every known role in a stable order.
func AllRoles() []Role {
	return []Role{RoleConcierge, RoleTrading, RoleLegal, RoleMediaForensics}
}

// Valid reports whether the role is one of the known specialists.
func (r Role) Valid() bool {
	switch r {
	case RoleConcierge, RoleTrading, RoleLegal, RoleMediaForensics:
		return true
	}
	return false
}

// Billable reports whether invoking the role consumes quota.
// The concierge never costs anything; every other specialist does.
func (r Role) Billable() bool {
	return r != RoleConcierge
}

func (r Role) String() string { return string(r) }
