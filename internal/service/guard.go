package service

import (
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
)

// sectionRequirements maps each admin dashboard section to the permissions
// required to enter it. Unknown sections have no entry and are always denied.
var sectionRequirements = map[string][]string{
	"games":      {"manageGames"},
	"categories": {"manageCategories"},
	"questions":  {"manageQuestions"},
	"users":      {"manageUsers"},
	"billing":    {"manageBilling"},
	"admins":     {"manageAdmins"},
	"settings":   {"manageSettings"},
}

// SectionRequirements returns the permissions required for a section, or nil
// for an unknown section.
func SectionRequirements(section string) []string {
	reqs, ok := sectionRequirements[section]
	if !ok {
		return nil
	}
	return append([]string(nil), reqs...)
}

// Authorize reports whether the identity holds every required permission.
// The check is a logical AND over the identity's explicit permission set;
// no role name grants anything by itself. Pure, never errors.
func Authorize(identity *domainauth.Identity, required []string) bool {
	if identity == nil {
		return false
	}
	if identity.Admin == nil || !identity.Admin.Active {
		return false
	}
	for _, p := range required {
		if !identity.Admin.Permissions.Has(p) {
			return false
		}
	}
	return true
}

// AuthorizeSection reports whether the identity may enter the named admin
// section: the section must be in the identity's allowed-section list and
// every permission the section requires must be granted.
func AuthorizeSection(identity *domainauth.Identity, section string) bool {
	if identity == nil || identity.Admin == nil {
		return false
	}
	required, known := sectionRequirements[section]
	if !known {
		return false
	}
	if !identity.Admin.CanAccessSection(section) {
		return false
	}
	return Authorize(identity, required)
}
