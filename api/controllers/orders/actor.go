package orders

import (
	"net/http"

	"github.com/RayhanLauzzadani/pasma-apps/api/controllers"
	"github.com/RayhanLauzzadani/pasma-apps/api/middleware"
	internalorders "github.com/RayhanLauzzadani/pasma-apps/internal/orders"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// actorAs builds the acting party for a participant operation. The state
// machine still checks the caller against the order's buyer and seller.
func actorAs(r *http.Request, role enums.ActorRole) (internalorders.Actor, error) {
	userID, err := controllers.UserIDFromRequest(r)
	if err != nil {
		return internalorders.Actor{}, err
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}

// viewer marks a token admin claim. Services confirm it against the stored
// roles before widening read access.
func viewer(r *http.Request) (internalorders.Actor, error) {
	if middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin) {
		return actorAs(r, enums.ActorAdmin)
	}
	return actorAs(r, enums.ActorBuyer)
}
