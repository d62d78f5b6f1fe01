package orders

import (
	"net/http"
	"strings"

	"github.com/RayhanLauzzadani/pasma-apps/api/controllers"
	"github.com/RayhanLauzzadani/pasma-apps/api/responses"
	"github.com/RayhanLauzzadani/pasma-apps/api/validators"
	"github.com/RayhanLauzzadani/pasma-apps/internal/disputes"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/pagination"
)

// OpenDispute freezes a shipped order pending admin review.
func OpenDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorAs(r, enums.ActorBuyer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := controllers.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		evidence := make([]string, 0, len(body.Evidence))
		for _, ref := range body.Evidence {
			evidence = append(evidence, strings.TrimSpace(ref))
		}

		dispute, err := svc.Create(r.Context(), actor, disputes.CreateInput{
			OrderID:     orderID,
			Reason:      validators.SanitizeString(body.Reason, 200),
			Description: validators.SanitizeString(body.Description, 2000),
			Evidence:    evidence,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"disputeId": dispute.ID})
	}
}

func DisputeDetail(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := viewer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disputeID, err := controllers.UUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Get(r.Context(), actor, disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

// ListOpenDisputes is the admin review queue.
func ListOpenDisputes(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorAs(r, enums.ActorAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOpen(r.Context(), actor, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ResolveDispute settles a dispute with a refund or by resuming the order.
func ResolveDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorAs(r, enums.ActorAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disputeID, err := controllers.UUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Resolve(r.Context(), actor, disputes.ResolveInput{
			DisputeID:  disputeID,
			Resolution: body.Resolution,
			AdminNotes: validators.SanitizeString(body.AdminNotes, 2000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}
