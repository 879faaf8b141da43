package auth

import "gift-store/internal/domain"

// Capability names an action gated by role.
type Capability string

const (
	CapManageCatalog Capability = "catalog:manage"
	CapManageOrders  Capability = "orders:manage"
	CapUploadMedia   Capability = "media:upload"
	CapUseWishlist   Capability = "wishlist:use"
	CapReadOrders    Capability = "orders:read"
	CapCheckout      Capability = "checkout"
)

// Policy maps roles to the capabilities they hold.
type Policy struct {
	grants map[string]map[Capability]struct{}
}

// NewPolicy builds a policy from role -> capabilities.
func NewPolicy(grants map[string][]Capability) *Policy {
	p := &Policy{grants: make(map[string]map[Capability]struct{}, len(grants))}
	for role, caps := range grants {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		p.grants[role] = set
	}
	return p
}

// DefaultPolicy grants shoppers the customer capabilities and admins everything.
func DefaultPolicy() *Policy {
	customer := []Capability{CapUseWishlist, CapReadOrders, CapCheckout}
	return NewPolicy(map[string][]Capability{
		domain.RoleUser:  customer,
		domain.RoleAdmin: append([]Capability{CapManageCatalog, CapManageOrders, CapUploadMedia}, customer...),
	})
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func (p *Policy) Can(role string, capability Capability) bool {
	_, ok := p.grants[role][capability]
	return ok
}

// IsAdmin reports whether role may manage the catalog.
func (p *Policy) IsAdmin(role string) bool {
	return p.Can(role, CapManageCatalog)
}

// Allows reports whether the session's user holds capability.
func (p *Policy) Allows(s Session, capability Capability) bool {
	return s.User != nil && p.Can(s.User.Role, capability)
}
