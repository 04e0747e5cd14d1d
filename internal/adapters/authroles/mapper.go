package authroles

// Package authroles expands backend admin roles into explicit permission sets
// and allowed-section lists. Every set is complete over the permission
// vocabulary; authorization never special-cases a role name.

import (
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// Permission vocabulary. Grants are always spelled out per role; there is no
// wildcard entry.
const (
	PermManageGames      = "manageGames"
	PermManageCategories = "manageCategories"
	PermManageQuestions  = "manageQuestions"
	PermManageUsers      = "manageUsers"
	PermManageBilling    = "manageBilling"
	PermManageAdmins     = "manageAdmins"
	PermManageSettings   = "manageSettings"
	PermViewReports      = "viewReports"
)

// Admin dashboard sections.
const (
	SectionGames      = "games"
	SectionCategories = "categories"
	SectionQuestions  = "questions"
	SectionUsers      = "users"
	SectionBilling    = "billing"
	SectionAdmins     = "admins"
	SectionSettings   = "settings"
)

// AllPermissions lists the full vocabulary in a stable order.
func AllPermissions() []string {
	return []string{
		PermManageGames,
		PermManageCategories,
		PermManageQuestions,
		PermManageUsers,
		PermManageBilling,
		PermManageAdmins,
		PermManageSettings,
		PermViewReports,
	}
}

// AllSections lists every dashboard section in a stable order.
func AllSections() []string {
	return []string{
		SectionGames,
		SectionCategories,
		SectionQuestions,
		SectionUsers,
		SectionBilling,
		SectionAdmins,
		SectionSettings,
	}
}

// roleGrant names the permissions and sections a role receives.
type roleGrant struct {
	permissions []string
	sections    []string
}

// grants is the authoritative role table. Super admin is listed with every
// grant spelled out so Expand never needs a role-name shortcut.
var grants = map[domainauth.AdminRole]roleGrant{
	domainauth.RoleSuperAdmin: {
		permissions: AllPermissions(),
		sections:    AllSections(),
	},
	domainauth.RoleDevAdmin: {
		permissions: []string{
			PermManageGames, PermManageCategories, PermManageQuestions,
			PermManageSettings, PermViewReports,
		},
		sections: []string{
			SectionGames, SectionCategories, SectionQuestions, SectionSettings,
		},
	},
	domainauth.RoleShopAdmin: {
		permissions: []string{PermManageBilling, PermViewReports},
		sections:    []string{SectionBilling},
	},
	domainauth.RoleContentAdmin: {
		permissions: []string{PermManageGames, PermManageCategories, PermManageQuestions},
		sections:    []string{SectionGames, SectionCategories, SectionQuestions},
	},
	domainauth.RoleCustomerAdmin: {
		permissions: []string{PermManageUsers, PermViewReports},
		sections:    []string{SectionUsers},
	},
}

// StaticMapper implements ports.RoleMapper from the compiled-in role table.
type StaticMapper struct{}

var _ ports.RoleMapper = StaticMapper{}

// NewStaticMapper returns the table-driven role mapper.
func NewStaticMapper() StaticMapper { return StaticMapper{} }

// Expand returns a complete permission set (every vocabulary entry present,
// granted or not) and the role's allowed sections. Unknown roles get an
// all-false set and no sections.
func (StaticMapper) Expand(role domainauth.AdminRole) (domainauth.PermissionSet, []string) {
	set := make(domainauth.PermissionSet, len(AllPermissions()))
	for _, p := range AllPermissions() {
		set[p] = false
	}

	grant, ok := grants[role]
	if !ok {
		return set, nil
	}
	for _, p := range grant.permissions {
		set[p] = true
	}
	return set, append([]string(nil), grant.sections...)
}
