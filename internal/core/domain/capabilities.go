package domain

// Capability names a single role-derived feature flag.
type Capability string

const (
	CapabilityKids      Capability = "kids"
	CapabilityGrandpa   Capability = "grandpa"
	CapabilityPremium   Capability = "premium"
	CapabilityChildSafe Capability = "child_safe"
)

// Capabilities are the feature flags derived from a role. They are never
// stored; every profile load recomputes them.
type Capabilities struct {
	KidsEnabled    bool `json:"kidsEnabled"`
	GrandpaEnabled bool `json:"grandpaEnabled"`
	PremiumAccess  bool `json:"premiumAccess"`
	ChildSafe      bool `json:"childSafe"`
}

// Has reports whether the flag named by c is set.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapabilityKids:
		return c.KidsEnabled
	case CapabilityGrandpa:
		return c.GrandpaEnabled
	case CapabilityPremium:
		return c.PremiumAccess
	case CapabilityChildSafe:
		return c.ChildSafe
	}
	return false
}

// DeriveCapabilities maps a role to its feature flags. Unknown roles get
// every flag off.
//
//	parent → kids
//	child  → childSafe
//	senior → grandpa
func DeriveCapabilities(role Role) Capabilities {
	r, _ := ParseRole(string(role))
	switch r {
	case RoleParent:
		return Capabilities{KidsEnabled: true}
	case RoleChild:
		return Capabilities{ChildSafe: true}
	case RoleSenior:
		return Capabilities{GrandpaEnabled: true}
	default:
		return Capabilities{}
	}
}

// SmartProfile is a Profile enriched with its derived capabilities.
type SmartProfile struct {
	Profile
	Capabilities
}

// Enrich derives capabilities from p.Role. The profile is copied.
func Enrich(p Profile) SmartProfile {
	return SmartProfile{Profile: p, Capabilities: DeriveCapabilities(p.Role)}
}
