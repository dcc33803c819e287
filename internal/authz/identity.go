// Package authz holds the resolved caller identity and the pure decision
// function that guards consult. Nothing here touches storage or HTTP.
package authz

// Identity is either Root or Standard. Guards switch on the concrete type;
// no other code inspects an is-root flag.
type Identity interface {
	UserID() string
	UserEmail() string
	identity()
}

// Root bypasses every role and permission requirement.
type Root struct {
	ID    string
	Email string
}

func (r Root) UserID() string    { return r.ID }
func (r Root) UserEmail() string { return r.Email }
func (Root) identity()           {}

type Standard struct {
	ID    string
	Email string
	Role  RoleGrant
}

func (s Standard) UserID() string    { return s.ID }
func (s Standard) UserEmail() string { return s.Email }
func (Standard) identity()           {}

// RoleGrant is the live role of a standard caller. Name is empty when the
// user has no role assigned yet.
type RoleGrant struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (g RoleGrant) Has(slug string) bool {
	for _, p := range g.Permissions {
		if p == slug {
			return true
		}
	}
	return false
}
