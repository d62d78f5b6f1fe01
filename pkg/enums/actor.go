package enums

import "fmt"

// ActorRole identifies who drives an order transition.
type ActorRole string

const (
	ActorBuyer  ActorRole = "BUYER"
	ActorSeller ActorRole = "SELLER"
	ActorSystem ActorRole = "SYSTEM"
	ActorAdmin  ActorRole = "ADMIN"
)

func (a ActorRole) String() string {
	return string(a)
}

// CompletedBy records how an order reached COMPLETED.
type CompletedBy string

const (
	CompletedByBuyer CompletedBy = "buyer"
	CompletedByAuto  CompletedBy = "auto"
)

// ParseCompletedBy converts raw input into CompletedBy.
func ParseCompletedBy(value string) (CompletedBy, error) {
	switch CompletedBy(value) {
	case CompletedByBuyer, CompletedByAuto:
		return CompletedBy(value), nil
	}
	return "", fmt.Errorf("invalid completedBy %q", value)
}

// UserRole is stored in users.roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// ParseUserRole converts raw input into UserRole.
func ParseUserRole(value string) (UserRole, error) {
	role := UserRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", value)
	}
	return role, nil
}
