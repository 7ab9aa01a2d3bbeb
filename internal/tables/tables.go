// Package tables names the backing-store collections shared with the API.
package tables

const (
	Users           = "users"
	UserTokens      = "user_tokens"
	UserPlans       = "user_plans"
	UserPermissions = "user_permissions"
	Products        = "products"
	Prices          = "prices"
	Teams           = "teams"
	TeamInvitations = "team_invitations"
	TeamMembers     = "team_members"
)

// All returns every table name in declaration order.
func All() []string {
	return []string{
		Users,
		UserTokens,
		UserPlans,
		UserPermissions,
		Products,
		Prices,
		Teams,
		TeamInvitations,
		TeamMembers,
	}
}
