package auth

// Package auth contains domain-level types for authentication and
// authorization. It is pure and free of framework/adapter concerns.

import "time"

// Audience identifies which identity class a token/cookie pair belongs to.
// The two audiences are never unified; cookies, cache keys, and backend
// endpoints are all namespaced by audience.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

// Valid reports whether the audience is one of the two known values.
func (a Audience) Valid() bool {
	return a == AudienceUser || a == AudienceAdmin
}

// TokenPair holds the opaque bearer credentials issued by the content
// backend. The gateway never inspects or mints tokens.
type TokenPair struct {
	Access  string
	Refresh string
}

// Empty reports whether no access token is present.
func (p TokenPair) Empty() bool { return p.Access == "" }

// SubscriptionStatus is the billing state of an end user.
type SubscriptionStatus string

const (
	SubscriptionFree    SubscriptionStatus = "free"
	SubscriptionPremium SubscriptionStatus = "premium"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// UserIdentity is the end-user variant of an authenticated principal.
type UserIdentity struct {
	ID               string             `json:"id"`
	Email            string             `json:"email"`
	Username         string             `json:"username"`
	Role             string             `json:"role"`
	Subscription     SubscriptionStatus `json:"subscription"`
	PremiumExpiresAt *time.Time         `json:"premium_expires_at,omitempty"`
}

// IsPremium reports whether the user has a paid subscription at the given time.
func (u UserIdentity) IsPremium(now time.Time) bool {
	if u.Subscription != SubscriptionPremium {
		return false
	}
	if u.PremiumExpiresAt == nil {
		return true
	}
	return now.Before(*u.PremiumExpiresAt)
}

// AdminRole is the backend-assigned role of a dashboard administrator.
type AdminRole string

const (
	RoleSuperAdmin    AdminRole = "super_admin"
	RoleDevAdmin      AdminRole = "dev_admin"
	RoleShopAdmin     AdminRole = "shop_admin"
	RoleContentAdmin  AdminRole = "content_admin"
	RoleCustomerAdmin AdminRole = "customer_admin"
)

// PermissionSet maps a permission name to whether it is granted.
// Sets are always explicit and complete; there is no implicit superuser
// bypass anywhere in the authorization path.
type PermissionSet map[string]bool

// Has reports whether the named permission is granted.
func (s PermissionSet) Has(name string) bool { return s[name] }

// Clone returns an independent copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	if s == nil {
		return nil
	}
	out := make(PermissionSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// AdminIdentity is the administrator variant of an authenticated principal.
type AdminIdentity struct {
	ID              string        `json:"id"`
	Email           string        `json:"email"`
	Role            AdminRole     `json:"role"`
	Permissions     PermissionSet `json:"permissions"`
	AllowedSections []string      `json:"allowed_sections"`
	Active          bool          `json:"active"`
}

// CanAccessSection reports whether the section appears in the admin's
// allowed-section list. Permission requirements are checked separately by
// the guard.
func (a AdminIdentity) CanAccessSection(section string) bool {
	for _, s := range a.AllowedSections {
		if s == section {
			return true
		}
	}
	return false
}

// Identity bundles the audience-specific principal variants. Exactly one of
// User or Admin is set, matching Audience. The variants are deliberately not
// unified behind a common struct; they have different lifecycles and fields.
type Identity struct {
	Audience Audience       `json:"audience"`
	User     *UserIdentity  `json:"user,omitempty"`
	Admin    *AdminIdentity `json:"admin,omitempty"`
}

// ID returns the stable identifier of whichever variant is present.
func (i Identity) ID() string {
	switch {
	case i.User != nil:
		return i.User.ID
	case i.Admin != nil:
		return i.Admin.ID
	default:
		return ""
	}
}

// Email returns the email of whichever variant is present.
func (i Identity) Email() string {
	switch {
	case i.User != nil:
		return i.User.Email
	case i.Admin != nil:
		return i.Admin.Email
	default:
		return ""
	}
}
