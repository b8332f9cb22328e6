package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db/models"
	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	pkgerrors "github.com/rodrigoferraz/autovendas-backend/pkg/errors"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
	"github.com/rodrigoferraz/autovendas-backend/pkg/pagination"
)

// Mailer delivers outbound email. Delivery is best effort; implementations
// report errors to the caller, which logs and moves on.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service records in-app notifications and dispatches best-effort email for
// negotiation lifecycle events. Dispatch never blocks or fails the caller.
type Service interface {
	NegotiationCreated(ctx context.Context, negotiation *models.Negotiation)
	NegotiationResponded(ctx context.Context, negotiation *models.Negotiation, decision string)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo   Repository
	mailer Mailer
	logg   *logger.Logger
}

// ListParams configures pagination for a user's notification feed.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notification dependencies. The mailer is optional; without
// one only in-app rows are written.
func NewService(repo Repository, mailer Mailer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, mailer: mailer, logg: logg}, nil
}

func (s *service) NegotiationCreated(ctx context.Context, negotiation *models.Negotiation) {
	if negotiation == nil {
		return
	}
	vehicleName := vehicleLabel(negotiation)
	title := "new offer received"
	body := fmt.Sprintf("a buyer offered %s for your %s", negotiation.OfferedPrice.StringFixed(2), vehicleName)

	s.record(ctx, negotiation, enums.NotificationKindNegotiationCreated, []models.Notification{
		s.row(negotiation.SellerID, negotiation.ID, enums.NotificationKindNegotiationCreated, title, body),
		s.row(negotiation.BuyerID, negotiation.ID, enums.NotificationKindNegotiationCreated, "offer sent",
			fmt.Sprintf("your offer of %s on the %s was sent to the seller", negotiation.OfferedPrice.StringFixed(2), vehicleName)),
	})
	s.mail(ctx, negotiation.Seller, title, body)
}

func (s *service) NegotiationResponded(ctx context.Context, negotiation *models.Negotiation, decision string) {
	if negotiation == nil {
		return
	}
	vehicleName := vehicleLabel(negotiation)
	title := fmt.Sprintf("negotiation %sed", decision)
	body := fmt.Sprintf("the seller responded to your offer on the %s", vehicleName)
	if negotiation.NegotiatedPrice != nil {
		body = fmt.Sprintf("%s at %s", body, negotiation.NegotiatedPrice.StringFixed(2))
	}

	s.record(ctx, negotiation, enums.NotificationKindNegotiationResponded, []models.Notification{
		s.row(negotiation.BuyerID, negotiation.ID, enums.NotificationKindNegotiationResponded, title, body),
	})
	s.mail(ctx, negotiation.Buyer, title, body)
}

func (s *service) record(ctx context.Context, negotiation *models.Negotiation, kind enums.NotificationKind, rows []models.Notification) {
	if err := s.repo.Create(ctx, rows); err != nil {
		logCtx := s.logg.WithNegotiationID(ctx, negotiation.ID.String())
		s.logg.Error(logCtx, fmt.Sprintf("recording %s notification failed", kind), err)
	}
}

// mail runs delivery on a detached goroutine so a slow or failing provider
// never reaches the request path. The parent context's cancellation is
// dropped on purpose: the triggering operation has already committed.
func (s *service) mail(ctx context.Context, recipient *models.User, subject, body string) {
	if s.mailer == nil || recipient == nil || recipient.Email == "" {
		return
	}
	detached := context.WithoutCancel(ctx)
	email := recipient.Email
	go func() {
		sendCtx, cancel := context.WithTimeout(detached, 15*time.Second)
		defer cancel()
		if err := s.mailer.Send(sendCtx, email, subject, body); err != nil {
			s.logg.Warn(detached, fmt.Sprintf("notification email to %s failed: %v", email, err))
		}
	}()
}

func (s *service) row(userID, negotiationID uuid.UUID, kind enums.NotificationKind, title, message string) models.Notification {
	return models.Notification{
		ID:            uuid.New(),
		UserID:        userID,
		NegotiationID: negotiationID,
		Kind:          kind,
		Title:         title,
		Message:       message,
	}
}

func vehicleLabel(negotiation *models.Negotiation) string {
	if negotiation.Vehicle == nil {
		return "vehicle"
	}
	return fmt.Sprintf("%s %s %d", negotiation.Vehicle.Make, negotiation.Vehicle.Model, negotiation.Vehicle.Year)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	count, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
