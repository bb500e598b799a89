package domain

// Role is the closed set of principal roles.
type Role uint8

const (
	RoleUser Role = iota
	RoleAdmin
)

// ParseRole maps a role string to the closed Role set. Anything other than
// the literal "admin", including the empty string, is a plain user.
func ParseRole(s string) Role {
	if s == "admin" {
		return RoleAdmin
	}
	return RoleUser
}

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}

// MarshalText lets Role render as its string form in JSON payloads.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// Principal is the authenticated actor resolved from a request.
// A nil *Principal means the request is unauthenticated.
type Principal struct {
	ID   int64
	Role Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
