package negotiations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rodrigoferraz/autovendas-backend/internal/vehicles"
	"github.com/rodrigoferraz/autovendas-backend/pkg/config"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db/models"
	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	pkgerrors "github.com/rodrigoferraz/autovendas-backend/pkg/errors"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
	"github.com/rodrigoferraz/autovendas-backend/pkg/pagination"
	"github.com/rodrigoferraz/autovendas-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier receives lifecycle events after the owning transaction commits.
// Calls arrive on a detached goroutine and implementations swallow their
// own errors.
type Notifier interface {
	NegotiationCreated(ctx context.Context, negotiation *models.Negotiation)
	NegotiationResponded(ctx context.Context, negotiation *models.Negotiation, decision string)
}

// Service owns the negotiation lifecycle: creation, message exchange, seller
// responses, buyer cancellation, system expiry and the audit history.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*NegotiationDetail, error)
	Respond(ctx context.Context, input RespondInput) (*NegotiationDetail, error)
	AddMessage(ctx context.Context, input AddMessageInput) (*MessageView, error)
	Cancel(ctx context.Context, input CancelInput) (*CancelResult, error)
	Expire(ctx context.Context, negotiationID uuid.UUID) (bool, error)
	ExpireDue(ctx context.Context, limit int) (int, error)
	PurgeDue(ctx context.Context) (int64, error)
	GetDetails(ctx context.Context, negotiationID uuid.UUID, caller Caller) (*NegotiationDetail, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*NegotiationList, error)
	History(ctx context.Context, negotiationID uuid.UUID, caller Caller) ([]HistoryView, error)
}

type service struct {
	repo       Repository
	catalog    vehicles.Catalog
	tx         txRunner
	notifier   Notifier
	logg       *logger.Logger
	expiryTTL  time.Duration
	purgeDelay time.Duration
	now        func() time.Time
}

const (
	defaultRejectReason = "offer rejected by the seller"
	defaultCancelReason = "negotiation cancelled by the buyer"
	defaultExpireReason = "negotiation expired automatically"
	acceptedMessageText = "negotiation accepted"

	expireBatchSize = 200

	dispatchTimeout = 30 * time.Second
)

// NewService builds a negotiation engine with the required dependencies.
// The notifier is optional; a nil notifier disables lifecycle notifications.
func NewService(repo Repository, catalog vehicles.Catalog, tx txRunner, notifier Notifier, logg *logger.Logger, cfg config.NegotiationConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("negotiations repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("vehicle catalog required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		catalog:    catalog,
		tx:         tx,
		notifier:   notifier,
		logg:       logg,
		expiryTTL:  cfg.ExpiryTTL(),
		purgeDelay: cfg.PurgeDelay(),
		now:        time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*NegotiationDetail, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}
	if !input.OfferedPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offered price must be positive")
	}

	snapshot, err := s.catalog.NegotiableSnapshot(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}
	if !snapshot.Available() || !snapshot.Negotiable {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "vehicle is not open to offers")
	}
	if snapshot.SellerID == input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sellers cannot negotiate their own vehicle")
	}

	vehicle, err := s.catalog.FindByID(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}
	vehicleSnapshot := &types.VehicleSummary{
		Make:  vehicle.Make,
		Model: vehicle.Model,
		Year:  vehicle.Year,
		Price: vehicle.Price,
	}

	now := s.now()
	expiresAt := now.Add(s.expiryTTL)
	negotiation := &models.Negotiation{
		ID:           uuid.New(),
		VehicleID:    input.VehicleID,
		BuyerID:      input.BuyerID,
		SellerID:     snapshot.SellerID,
		AskingPrice:  snapshot.Price,
		OfferedPrice: input.OfferedPrice,
		Status:       enums.NegotiationStatusOpen,
		ExpiresAt:    &expiresAt,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		_, findErr := repo.FindOpenByVehicleAndBuyer(ctx, input.VehicleID, input.BuyerID)
		if findErr == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "an open negotiation already exists for this vehicle")
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "check existing negotiation")
		}

		if _, createErr := repo.Create(ctx, negotiation); createErr != nil {
			// The partial unique index on active negotiations catches the
			// creation that raced past the existence check above.
			if isUniqueViolation(createErr) {
				return pkgerrors.New(pkgerrors.CodeConflict, "an open negotiation already exists for this vehicle")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create negotiation")
		}

		content := strings.TrimSpace(input.Comment)
		if content == "" {
			content = fmt.Sprintf("opening offer of %s", input.OfferedPrice.StringFixed(2))
		}
		if msgErr := s.insertMessage(ctx, repo, negotiation.ID, &input.BuyerID, content, enums.MessageKindOffer); msgErr != nil {
			return msgErr
		}

		asking := snapshot.Price
		offered := input.OfferedPrice
		createdDetails := types.HistoryDetails{
			AskingPrice: &asking,
			Vehicle:     vehicleSnapshot,
		}
		if histErr := s.insertHistory(ctx, repo, negotiation.ID, &input.BuyerID, enums.HistoryActionCreated, createdDetails); histErr != nil {
			return histErr
		}
		offerDetails := types.HistoryDetails{
			OfferedPrice: &offered,
			Comment:      strings.TrimSpace(input.Comment),
		}
		return s.insertHistory(ctx, repo, negotiation.ID, &input.BuyerID, enums.HistoryActionOffer, offerDetails)
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.loadDetail(ctx, negotiation.ID)
	if err != nil {
		return nil, err
	}
	s.dispatchCreated(ctx, negotiation.ID)
	return detail, nil
}

func (s *service) Respond(ctx context.Context, input RespondInput) (*NegotiationDetail, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.NegotiationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation id required")
	}
	switch input.Decision {
	case DecisionAccept, DecisionReject:
	case DecisionCounter:
		if input.NegotiatedPrice == nil || !input.NegotiatedPrice.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiated price required for a counter offer")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown response decision")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		negotiation, findErr := s.findForMutation(ctx, repo, input.NegotiationID)
		if findErr != nil {
			return findErr
		}
		if negotiation.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can respond to a negotiation")
		}
		if !CanTransition(negotiation.Status, decisionAction(input.Decision)) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation is closed for responses")
		}

		switch input.Decision {
		case DecisionAccept:
			return s.applyAccept(ctx, repo, negotiation, input.NegotiatedPrice)
		case DecisionReject:
			return s.applyReject(ctx, repo, negotiation, input.Reason)
		default:
			return s.applyCounter(ctx, repo, negotiation, *input.NegotiatedPrice)
		}
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.loadDetail(ctx, input.NegotiationID)
	if err != nil {
		return nil, err
	}
	s.dispatchResponded(ctx, input.NegotiationID, string(input.Decision))
	return detail, nil
}

func (s *service) applyAccept(ctx context.Context, repo Repository, negotiation *models.Negotiation, explicit *decimal.Decimal) error {
	// Accepting without an explicit price settles on the last counter, or
	// on the buyer's offer when no counter was ever made.
	final := negotiation.OfferedPrice
	if negotiation.NegotiatedPrice != nil {
		final = *negotiation.NegotiatedPrice
	}
	if explicit != nil {
		if !explicit.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "negotiated price must be positive")
		}
		final = *explicit
	}

	now := s.now()
	updates := map[string]any{
		"status":           enums.NegotiationStatusAccepted,
		"negotiated_price": final,
		"closed_at":        now,
		"updated_at":       now,
	}
	if err := s.closeNegotiation(ctx, repo, negotiation.ID, updates, "accept negotiation"); err != nil {
		return err
	}
	content := fmt.Sprintf("%s at %s", acceptedMessageText, final.StringFixed(2))
	if err := s.insertMessage(ctx, repo, negotiation.ID, nil, content, enums.MessageKindSystem); err != nil {
		return err
	}
	return s.insertHistory(ctx, repo, negotiation.ID, &negotiation.SellerID, enums.HistoryActionResponseAccept, types.HistoryDetails{NegotiatedPrice: &final})
}

func (s *service) applyReject(ctx context.Context, repo Repository, negotiation *models.Negotiation, reason *string) error {
	text := defaultRejectReason
	if reason != nil && strings.TrimSpace(*reason) != "" {
		text = strings.TrimSpace(*reason)
	}

	now := s.now()
	updates := map[string]any{
		"status":           enums.NegotiationStatusRejected,
		"rejection_reason": text,
		"closed_at":        now,
		"updated_at":       now,
	}
	if err := s.closeNegotiation(ctx, repo, negotiation.ID, updates, "reject negotiation"); err != nil {
		return err
	}
	if err := s.insertMessage(ctx, repo, negotiation.ID, nil, text, enums.MessageKindSystem); err != nil {
		return err
	}
	return s.insertHistory(ctx, repo, negotiation.ID, &negotiation.SellerID, enums.HistoryActionResponseReject, types.HistoryDetails{Reason: text})
}

func (s *service) applyCounter(ctx context.Context, repo Repository, negotiation *models.Negotiation, price decimal.Decimal) error {
	now := s.now()
	updates := map[string]any{
		"status":           enums.NegotiationStatusCounterOffer,
		"negotiated_price": price,
		"updated_at":       now,
	}
	if err := s.closeNegotiation(ctx, repo, negotiation.ID, updates, "counter negotiation"); err != nil {
		return err
	}
	content := fmt.Sprintf("counter offer of %s", price.StringFixed(2))
	if err := s.insertMessage(ctx, repo, negotiation.ID, &negotiation.SellerID, content, enums.MessageKindCounterOffer); err != nil {
		return err
	}
	return s.insertHistory(ctx, repo, negotiation.ID, &negotiation.SellerID, enums.HistoryActionResponseCounter, types.HistoryDetails{NegotiatedPrice: &price})
}

func (s *service) AddMessage(ctx context.Context, input AddMessageInput) (*MessageView, error) {
	if input.AuthorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.NegotiationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation id required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content required")
	}

	var message *models.NegotiationMessage
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		negotiation, findErr := s.findForMutation(ctx, repo, input.NegotiationID)
		if findErr != nil {
			return findErr
		}
		if negotiation.BuyerID != input.AuthorID && negotiation.SellerID != input.AuthorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only negotiation participants can post messages")
		}
		if !CanTransition(negotiation.Status, ActionMessage) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation is closed for messages")
		}

		authorID := input.AuthorID
		created, msgErr := repo.CreateMessage(ctx, &models.NegotiationMessage{
			ID:            uuid.New(),
			NegotiationID: negotiation.ID,
			AuthorID:      &authorID,
			Content:       content,
			Kind:          enums.MessageKindText,
		})
		if msgErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, msgErr, "create message")
		}
		message = created
		return repo.TouchUpdatedAt(ctx, negotiation.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	view := buildMessageView(message)
	return &view, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*CancelResult, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.NegotiationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation id required")
	}

	var purgeAfter time.Time
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		negotiation, findErr := s.findForMutation(ctx, repo, input.NegotiationID)
		if findErr != nil {
			return findErr
		}
		if negotiation.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can cancel a negotiation")
		}
		if !CanTransition(negotiation.Status, ActionCancel) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation is already closed")
		}

		text := defaultCancelReason
		if input.Reason != nil && strings.TrimSpace(*input.Reason) != "" {
			text = strings.TrimSpace(*input.Reason)
		}

		now := s.now()
		purgeAfter = now.Add(s.purgeDelay)
		updates := map[string]any{
			"status":           enums.NegotiationStatusCancelled,
			"rejection_reason": text,
			"closed_at":        now,
			"purge_after":      purgeAfter,
			"updated_at":       now,
		}
		if updErr := s.closeNegotiation(ctx, repo, negotiation.ID, updates, "cancel negotiation"); updErr != nil {
			return updErr
		}
		if msgErr := s.insertMessage(ctx, repo, negotiation.ID, nil, text, enums.MessageKindSystem); msgErr != nil {
			return msgErr
		}
		return s.insertHistory(ctx, repo, negotiation.ID, &input.BuyerID, enums.HistoryActionCancelled, types.HistoryDetails{Reason: text})
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.loadDetail(ctx, input.NegotiationID)
	if err != nil {
		return nil, err
	}
	return &CancelResult{Negotiation: detail, PurgeAfter: purgeAfter}, nil
}

// Expire moves a past-deadline negotiation to its terminal state. Calling it
// on an already-terminal or not-yet-due negotiation is a no-op.
func (s *service) Expire(ctx context.Context, negotiationID uuid.UUID) (bool, error) {
	if negotiationID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "negotiation id required")
	}

	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		negotiation, findErr := s.findForMutation(ctx, repo, negotiationID)
		if findErr != nil {
			return findErr
		}
		if !CanTransition(negotiation.Status, ActionExpire) {
			return nil
		}
		now := s.now()
		if negotiation.ExpiresAt == nil || negotiation.ExpiresAt.After(now) {
			return nil
		}

		updates := map[string]any{
			"status":           enums.NegotiationStatusExpired,
			"rejection_reason": defaultExpireReason,
			"closed_at":        now,
			"updated_at":       now,
		}
		affected, updErr := repo.UpdateActive(ctx, negotiation.ID, updates)
		if updErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "expire negotiation")
		}
		if affected == 0 {
			// A concurrent respond or cancel closed it first.
			return nil
		}
		if msgErr := s.insertMessage(ctx, repo, negotiation.ID, nil, defaultExpireReason, enums.MessageKindSystem); msgErr != nil {
			return msgErr
		}
		if histErr := s.insertHistory(ctx, repo, negotiation.ID, nil, enums.HistoryActionCancelled, types.HistoryDetails{Reason: defaultExpireReason}); histErr != nil {
			return histErr
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// ExpireDue expires every open negotiation whose deadline has lapsed, up to
// the given batch limit. Failures on individual rows do not stop the batch.
func (s *service) ExpireDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = expireBatchSize
	}
	ids, err := s.repo.FindExpiredDue(ctx, s.now(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired negotiations")
	}

	count := 0
	var errs error
	for _, id := range ids {
		expired, expireErr := s.Expire(ctx, id)
		if expireErr != nil {
			errs = multierr.Append(errs, expireErr)
			continue
		}
		if expired {
			count++
		}
	}
	return count, errs
}

// PurgeDue hard-deletes cancelled negotiations past their purge schedule.
func (s *service) PurgeDue(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeletePurgeable(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge cancelled negotiations")
	}
	return deleted, nil
}

func (s *service) GetDetails(ctx context.Context, negotiationID uuid.UUID, caller Caller) (*NegotiationDetail, error) {
	if negotiationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation id required")
	}

	negotiation, err := s.repo.FindByID(ctx, negotiationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load negotiation")
	}
	if !canView(negotiation, caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "negotiation does not belong to caller")
	}

	messages, err := s.repo.ListMessages(ctx, negotiationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load messages")
	}
	return buildDetail(negotiation, messages), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*NegotiationList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListForUser(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list negotiations")
	}
	return list, nil
}

func (s *service) History(ctx context.Context, negotiationID uuid.UUID, caller Caller) ([]HistoryView, error) {
	if negotiationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiation id required")
	}

	negotiation, err := s.repo.FindLean(ctx, negotiationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load negotiation")
	}
	if !canView(negotiation, caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "negotiation does not belong to caller")
	}

	entries, err := s.repo.ListHistory(ctx, negotiationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load history")
	}
	views := make([]HistoryView, 0, len(entries))
	for i := range entries {
		views = append(views, buildHistoryView(&entries[i]))
	}
	return views, nil
}

// closeNegotiation writes a status transition through the conditional update.
// Zero affected rows means another writer closed the negotiation between this
// call's read and its write, so the caller lost the race.
func (s *service) closeNegotiation(ctx context.Context, repo Repository, id uuid.UUID, updates map[string]any, op string) error {
	affected, err := repo.UpdateActive(ctx, id, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation was closed by a concurrent update")
	}
	return nil
}

func (s *service) findForMutation(ctx context.Context, repo Repository, id uuid.UUID) (*models.Negotiation, error) {
	negotiation, err := repo.FindLean(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load negotiation")
	}
	return negotiation, nil
}

func (s *service) insertMessage(ctx context.Context, repo Repository, negotiationID uuid.UUID, authorID *uuid.UUID, content string, kind enums.MessageKind) error {
	_, err := repo.CreateMessage(ctx, &models.NegotiationMessage{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		AuthorID:      authorID,
		Content:       content,
		Kind:          kind,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}
	return nil
}

func (s *service) insertHistory(ctx context.Context, repo Repository, negotiationID uuid.UUID, actorID *uuid.UUID, action enums.HistoryAction, details types.HistoryDetails) error {
	if err := repo.CreateHistory(ctx, &models.NegotiationHistory{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		ActorID:       actorID,
		Action:        action,
		Details:       details,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create history entry")
	}
	return nil
}

func (s *service) loadDetail(ctx context.Context, id uuid.UUID) (*NegotiationDetail, error) {
	negotiation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload negotiation")
	}
	messages, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load messages")
	}
	return buildDetail(negotiation, messages), nil
}

func (s *service) dispatchCreated(ctx context.Context, id uuid.UUID) {
	s.dispatch(ctx, id, "creation", func(dispatchCtx context.Context, negotiation *models.Negotiation) {
		s.notifier.NegotiationCreated(dispatchCtx, negotiation)
	})
}

func (s *service) dispatchResponded(ctx context.Context, id uuid.UUID, decision string) {
	s.dispatch(ctx, id, "response", func(dispatchCtx context.Context, negotiation *models.Negotiation) {
		s.notifier.NegotiationResponded(dispatchCtx, negotiation, decision)
	})
}

// dispatch reloads the negotiation and hands it to the notifier off the
// request path, so the caller's response never waits on notification I/O.
// The context is detached from the request: a client disconnect after commit
// must not suppress the notification.
func (s *service) dispatch(ctx context.Context, id uuid.UUID, event string, deliver func(context.Context, *models.Negotiation)) {
	if s.notifier == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	go func() {
		dispatchCtx, cancel := context.WithTimeout(base, dispatchTimeout)
		defer cancel()
		negotiation, err := s.repo.FindByID(dispatchCtx, id)
		if err != nil {
			s.logg.Warn(s.logg.WithNegotiationID(dispatchCtx, id.String()), "skipping "+event+" notification: reload failed")
			return
		}
		deliver(dispatchCtx, negotiation)
	}()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func canView(n *models.Negotiation, caller Caller) bool {
	if caller.ID == uuid.Nil {
		return false
	}
	return n.BuyerID == caller.ID || n.SellerID == caller.ID || caller.Role == enums.UserRoleAdmin
}

func buildDetail(n *models.Negotiation, messages []models.NegotiationMessage) *NegotiationDetail {
	views := make([]MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, buildMessageView(&messages[i]))
	}
	return &NegotiationDetail{
		ID:              n.ID,
		Status:          n.Status,
		AskingPrice:     n.AskingPrice,
		OfferedPrice:    n.OfferedPrice,
		NegotiatedPrice: n.NegotiatedPrice,
		RejectionReason: n.RejectionReason,
		Vehicle:         buildVehicleSummary(n.Vehicle),
		Buyer:           buildPartySummary(n.Buyer),
		Seller:          buildPartySummary(n.Seller),
		Messages:        views,
		ClosedAt:        n.ClosedAt,
		ExpiresAt:       n.ExpiresAt,
		PurgeAfter:      n.PurgeAfter,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

func buildMessageView(m *models.NegotiationMessage) MessageView {
	view := MessageView{
		ID:        m.ID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		Kind:      m.Kind,
		CreatedAt: m.CreatedAt,
	}
	if m.Author != nil {
		author := buildPartySummary(m.Author)
		view.Author = &author
	}
	return view
}

func buildHistoryView(h *models.NegotiationHistory) HistoryView {
	view := HistoryView{
		ID:        h.ID,
		Action:    h.Action,
		ActorID:   h.ActorID,
		Details:   h.Details,
		CreatedAt: h.CreatedAt,
	}
	if h.Actor != nil {
		actor := buildPartySummary(h.Actor)
		view.Actor = &actor
	}
	return view
}
