package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/RayhanLauzzadani/pasma-apps/internal/disputes"
	internalorders "github.com/RayhanLauzzadani/pasma-apps/internal/orders"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/pagination"
)

type stubDisputesService struct {
	created  *disputes.CreateInput
	resolved *disputes.ResolveInput
	actor    internalorders.Actor
	err      error
}

func (s *stubDisputesService) Create(ctx context.Context, actor internalorders.Actor, input disputes.CreateInput) (*disputes.DisputeDTO, error) {
	s.actor = actor
	s.created = &input
	if s.err != nil {
		return nil, s.err
	}
	return &disputes.DisputeDTO{ID: uuid.New(), OrderID: input.OrderID}, nil
}

func (s *stubDisputesService) Resolve(ctx context.Context, actor internalorders.Actor, input disputes.ResolveInput) (*disputes.DisputeDTO, error) {
	s.actor = actor
	s.resolved = &input
	if s.err != nil {
		return nil, s.err
	}
	return &disputes.DisputeDTO{ID: input.DisputeID, Status: enums.DisputeStatusResolved}, nil
}

func (s *stubDisputesService) Get(ctx context.Context, actor internalorders.Actor, disputeID uuid.UUID) (*disputes.DisputeDTO, error) {
	s.actor = actor
	return &disputes.DisputeDTO{ID: disputeID}, s.err
}

func (s *stubDisputesService) ListOpen(ctx context.Context, actor internalorders.Actor, params pagination.Params) (*disputes.ListResult, error) {
	s.actor = actor
	return &disputes.ListResult{}, s.err
}

func TestOpenDisputeReturnsID(t *testing.T) {
	orderID := uuid.New()
	buyerID := uuid.New()
	svc := &stubDisputesService{}

	body := `{"reason":"damaged","description":"box crushed","evidence":[" https://cdn.example/1.jpg "]}`
	req := withParam(newRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/disputes", body, buyerID), "orderId", orderID.String())
	resp := httptest.NewRecorder()
	OpenDispute(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.NotNil(t, svc.created)
	require.Equal(t, orderID, svc.created.OrderID)
	require.Equal(t, []string{"https://cdn.example/1.jpg"}, svc.created.Evidence)
	require.Equal(t, buyerID, svc.actor.UserID)

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data["disputeId"])
}

func TestOpenDisputeRequiresEvidence(t *testing.T) {
	orderID := uuid.New()
	svc := &stubDisputesService{}
	req := withParam(newRequest(http.MethodPost, "/x", `{"reason":"damaged","evidence":[]}`, uuid.New()), "orderId", orderID.String())
	resp := httptest.NewRecorder()
	OpenDispute(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Nil(t, svc.created)
}

func TestOpenDisputeConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &stubDisputesService{err: pkgerrors.New(pkgerrors.CodeConflict, "order already disputed")}
	req := withParam(newRequest(http.MethodPost, "/x", `{"reason":"late","evidence":["ref-1"]}`, uuid.New()), "orderId", orderID.String())
	resp := httptest.NewRecorder()
	OpenDispute(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestResolveDisputeValidatesResolution(t *testing.T) {
	disputeID := uuid.New()
	svc := &stubDisputesService{}
	req := withParam(newRequest(http.MethodPost, "/x", `{"resolution":"split"}`, uuid.New()), "disputeId", disputeID.String())
	resp := httptest.NewRecorder()
	ResolveDispute(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Nil(t, svc.resolved)
}

func TestResolveDisputeAsAdmin(t *testing.T) {
	disputeID := uuid.New()
	adminID := uuid.New()
	svc := &stubDisputesService{}
	req := withParam(newRequest(http.MethodPost, "/x", `{"resolution":"refund","adminNotes":"seller never shipped"}`, adminID), "disputeId", disputeID.String())
	resp := httptest.NewRecorder()
	ResolveDispute(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, disputeID, svc.resolved.DisputeID)
	require.Equal(t, "refund", svc.resolved.Resolution)
	require.Equal(t, enums.ActorAdmin, svc.actor.Role)
	require.Equal(t, adminID, svc.actor.UserID)
}

func TestListOpenDisputesForbidden(t *testing.T) {
	svc := &stubDisputesService{err: pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")}
	resp := httptest.NewRecorder()
	ListOpenDisputes(svc, testLogger())(resp, newRequest(http.MethodGet, "/api/v1/admin/disputes", "", uuid.New()))
	require.Equal(t, http.StatusForbidden, resp.Code)
}
