package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rodrigoferraz/autovendas-backend/api/responses"
	"github.com/rodrigoferraz/autovendas-backend/api/validators"
	"github.com/rodrigoferraz/autovendas-backend/internal/negotiations"
	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	pkgerrors "github.com/rodrigoferraz/autovendas-backend/pkg/errors"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
	"github.com/rodrigoferraz/autovendas-backend/pkg/pagination"
)

type createNegotiationRequest struct {
	VehicleID    uuid.UUID       `json:"vehicle_id" validate:"required"`
	OfferedPrice decimal.Decimal `json:"offered_price" validate:"required"`
	Comment      string          `json:"comment" validate:"omitempty,max=2000"`
}

type respondNegotiationRequest struct {
	Decision        string           `json:"decision" validate:"required,oneof=accept reject counter"`
	NegotiatedPrice *decimal.Decimal `json:"negotiated_price"`
	Reason          *string          `json:"reason" validate:"omitempty,max=2000"`
}

type negotiationMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type cancelNegotiationRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=2000"`
}

// CreateNegotiation opens a negotiation on a listed vehicle for the caller.
func CreateNegotiation(svc negotiations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "negotiations service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createNegotiationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Create(r.Context(), negotiations.CreateInput{
			BuyerID:      buyerID,
			VehicleID:    payload.VehicleID,
			OfferedPrice: payload.OfferedPrice,
			Comment:      payload.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

// ListNegotiations returns the caller's negotiations, newest activity first.
func ListNegotiations(svc negotiations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "negotiations service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters := negotiations.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseNegotiationStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
			if raw != "buyer" && raw != "seller" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer or seller"))
				return
			}
			filters.Role = raw
		}

		list, err := svc.ListForUser(r.Context(), userID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// GetNegotiation returns the full detail of one negotiation for a participant.
func GetNegotiation(svc negotiations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "negotiations service unavailable"))
			return
		}

		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := negotiationIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetDetails(r.Context(), negotiationID, caller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

// RespondNegotiation applies the seller's accept, reject or counter decision.
func RespondNegotiation(svc negotiations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "negotiations service unavailable"))
			return
		}

		sellerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := negotiationIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload respondNegotiationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, ok := negotiations.ParseDecision(payload.Decision)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "decision must be accept, reject or counter"))
			return
		}

		detail, err := svc.Respond(r.Context(), negotiations.RespondInput{
			NegotiationID:   negotiationID,
			SellerID:        sellerID,
			Decision:        decision,
			NegotiatedPrice: payload.NegotiatedPrice,
			Reason:          payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

// AddNegotiationMessage appends a free-text message to an open thread.
func AddNegotiationMessage(svc negotiations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "negotiations service unavailable"))
			return
		}

		authorID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := negotiationIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload negotiationMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.AddMessage(r.Context(), negotiations.AddMessageInput{
			NegotiationID: negotiationID,
			AuthorID:      authorID,
			Content:       payload.Content,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// CancelNegotiation lets the buyer withdraw an active negotiation. The body is
// optional; an absent body cancels with the default reason.
func CancelNegotiation(svc negotiations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "negotiations service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := negotiationIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelNegotiationRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Cancel(r.Context(), negotiations.CancelInput{
			NegotiationID: negotiationID,
			BuyerID:       buyerID,
			Reason:        payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetNegotiationHistory returns the ordered audit trail of a negotiation.
func GetNegotiationHistory(svc negotiations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "negotiations service unavailable"))
			return
		}

		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := negotiationIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), negotiationID, caller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"history": history})
	}
}

func negotiationIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "negotiationID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid negotiation id")
	}
	return id, nil
}
