package auth

import (
	"encoding/json"
	"strings"
)

// Role is a closed, ordered set: user < admin < dev
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleDev   Role = "dev"
)

var roleRank = map[Role]int{
	RoleUser:  1,
	RoleAdmin: 2,
	RoleDev:   3,
}

// ParseRole normalizes raw; unknown values are the lowest role
func ParseRole(raw string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleRank[role]; ok {
		return role
	}
	return RoleUser
}

// UnmarshalJSON accepts any spelling and never fails
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = RoleUser
		return nil
	}
	*r = ParseRole(raw)
	return nil
}

// Rank orders roles; higher outranks lower
func (r Role) Rank() int {
	return roleRank[ParseRole(string(r))]
}

// AtLeast reports whether r is min or higher
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

// CanManage reports whether r may manage accounts holding other
func (r Role) CanManage(other Role) bool {
	return r.AtLeast(RoleAdmin) && r.Rank() > other.Rank()
}
