package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// UserDTO is the profile shape returned to clients. Wallet balances are
// served by the wallets package.
type UserDTO struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email       string
	DisplayName string
	Roles       []enums.UserRole
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Roles:       append([]string(nil), u.Roles...),
		CreatedAt:   u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	roles := make(pq.StringArray, 0, len(c.Roles)+1)
	for _, r := range c.Roles {
		roles = append(roles, string(r))
	}
	if len(roles) == 0 {
		roles = append(roles, string(enums.UserRoleUser))
	}
	return &models.User{
		ID:             uuid.New(),
		Email:          strings.ToLower(strings.TrimSpace(c.Email)),
		DisplayName:    strings.TrimSpace(c.DisplayName),
		Roles:          roles,
		WalletCurrency: enums.CurrencyIDR,
	}
}
