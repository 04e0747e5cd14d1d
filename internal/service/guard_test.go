package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
)

func adminIdentity(perms domainauth.PermissionSet, sections ...string) *domainauth.Identity {
	return &domainauth.Identity{
		Audience: domainauth.AudienceAdmin,
		Admin: &domainauth.AdminIdentity{
			ID:              "admin-1",
			Email:           "admin@example.com",
			Role:            domainauth.RoleContentAdmin,
			Permissions:     perms,
			AllowedSections: sections,
			Active:          true,
		},
	}
}

func TestAuthorize_NilIdentity(t *testing.T) {
	assert.False(t, Authorize(nil, []string{"manageGames"}))
}

func TestAuthorize_UserIdentityNeverAuthorized(t *testing.T) {
	identity := &domainauth.Identity{
		Audience: domainauth.AudienceUser,
		User:     &domainauth.UserIdentity{ID: "u1"},
	}
	assert.False(t, Authorize(identity, nil))
}

func TestAuthorize_InactiveAdmin(t *testing.T) {
	identity := adminIdentity(domainauth.PermissionSet{"manageGames": true})
	identity.Admin.Active = false

	assert.False(t, Authorize(identity, []string{"manageGames"}))
}

func TestAuthorize_RequiresEveryPermission(t *testing.T) {
	identity := adminIdentity(domainauth.PermissionSet{
		"manageGames": true,
		"manageUsers": true,
	})

	assert.True(t, Authorize(identity, []string{"manageGames", "manageUsers"}))

	// Removing any one permission flips the result.
	identity.Admin.Permissions["manageUsers"] = false
	assert.False(t, Authorize(identity, []string{"manageGames", "manageUsers"}))

	identity.Admin.Permissions["manageUsers"] = true
	identity.Admin.Permissions["manageGames"] = false
	assert.False(t, Authorize(identity, []string{"manageGames", "manageUsers"}))
}

func TestAuthorize_EmptyRequirementOnActiveAdmin(t *testing.T) {
	identity := adminIdentity(domainauth.PermissionSet{})
	assert.True(t, Authorize(identity, nil))
}

func TestAuthorize_RoleNameGrantsNothing(t *testing.T) {
	// A super_admin role with an empty permission set is denied; only the
	// explicit set counts.
	identity := adminIdentity(domainauth.PermissionSet{})
	identity.Admin.Role = domainauth.RoleSuperAdmin

	assert.False(t, Authorize(identity, []string{"manageGames"}))
}

func TestAuthorizeSection_GrantFlipsResult(t *testing.T) {
	identity := adminIdentity(
		domainauth.PermissionSet{"manageGames": true},
		"games", "users",
	)

	assert.True(t, AuthorizeSection(identity, "games"))
	assert.False(t, AuthorizeSection(identity, "users"), "listed section still needs its permission")

	identity.Admin.Permissions["manageUsers"] = true
	assert.True(t, AuthorizeSection(identity, "users"))
}

func TestAuthorizeSection_RequiresSectionMembership(t *testing.T) {
	identity := adminIdentity(
		domainauth.PermissionSet{"manageBilling": true},
		"games",
	)

	assert.False(t, AuthorizeSection(identity, "billing"), "permission without section membership is not enough")
}

func TestAuthorizeSection_UnknownSection(t *testing.T) {
	identity := adminIdentity(domainauth.PermissionSet{"manageGames": true}, "games")
	assert.False(t, AuthorizeSection(identity, "warehouse"))
}

func TestAuthorizeSection_NilIdentity(t *testing.T) {
	assert.False(t, AuthorizeSection(nil, "games"))
}

func TestSectionRequirements(t *testing.T) {
	assert.Equal(t, []string{"manageGames"}, SectionRequirements("games"))
	assert.Nil(t, SectionRequirements("warehouse"))

	// Callers get a copy, not the shared table.
	reqs := SectionRequirements("billing")
	reqs[0] = "tampered"
	assert.Equal(t, []string{"manageBilling"}, SectionRequirements("billing"))
}
