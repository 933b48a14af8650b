package auth

type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var roleLevels = map[Role]int{
	RoleUser:       0,
	RoleModerator:  1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Roles lists the known roles from lowest to highest level.
func Roles() []Role {
	return []Role{RoleUser, RoleModerator, RoleAdmin, RoleSuperAdmin}
}

// Level returns the rank of role. Unrecognized names rank with RoleUser.
func Level(role string) int {
	return roleLevels[Role(role)]
}

// Permits reports whether actor ranks at or above required.
func Permits(actor, required string) bool {
	return Level(actor) >= Level(required)
}

func IsKnownRole(role string) bool {
	_, ok := roleLevels[Role(role)]
	return ok
}
