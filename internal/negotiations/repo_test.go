package negotiations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db/models"
	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	"github.com/rodrigoferraz/autovendas-backend/pkg/pagination"
	"github.com/rodrigoferraz/autovendas-backend/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupNegotiationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	vehicles := `
CREATE TABLE IF NOT EXISTS vehicles (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  make TEXT NOT NULL,
  model TEXT NOT NULL,
  year INTEGER NOT NULL,
  plate TEXT,
  price TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  negotiable INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	negotiations := `
CREATE TABLE IF NOT EXISTS negotiations (
  id TEXT PRIMARY KEY,
  vehicle_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  asking_price TEXT NOT NULL,
  offered_price TEXT NOT NULL,
  negotiated_price TEXT,
  status TEXT NOT NULL DEFAULT 'open',
  rejection_reason TEXT,
  closed_at DATETIME,
  expires_at DATETIME,
  purge_after DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	messages := `
CREATE TABLE IF NOT EXISTS negotiation_messages (
  id TEXT PRIMARY KEY,
  negotiation_id TEXT NOT NULL,
  author_id TEXT,
  content TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT 'text',
  created_at DATETIME
);`
	histories := `
CREATE TABLE IF NOT EXISTS negotiation_histories (
  id TEXT PRIMARY KEY,
  negotiation_id TEXT NOT NULL,
  actor_id TEXT,
  action TEXT NOT NULL,
  details TEXT,
  created_at DATETIME
);`
	activeIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS uniq_negotiations_active
  ON negotiations(vehicle_id, buyer_id) WHERE status IN ('open', 'counter_offer');`
	for _, ddl := range []string{users, vehicles, negotiations, messages, histories, activeIndex} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Name:     name,
		Role:     enums.UserRoleUser,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedVehicle(t *testing.T, db *gorm.DB, sellerID uuid.UUID) *models.Vehicle {
	t.Helper()
	vehicle := &models.Vehicle{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Make:       "Chevrolet",
		Model:      "Onix",
		Year:       2021,
		Price:      decimal.RequireFromString("60000"),
		Status:     enums.VehicleStatusAvailable,
		Negotiable: true,
	}
	require.NoError(t, db.Create(vehicle).Error)
	return vehicle
}

func seedNegotiation(t *testing.T, repo Repository, vehicle *models.Vehicle, buyerID uuid.UUID, status enums.NegotiationStatus) *models.Negotiation {
	t.Helper()
	negotiation := &models.Negotiation{
		ID:           uuid.New(),
		VehicleID:    vehicle.ID,
		BuyerID:      buyerID,
		SellerID:     vehicle.SellerID,
		AskingPrice:  vehicle.Price,
		OfferedPrice: decimal.RequireFromString("50000"),
		Status:       status,
	}
	created, err := repo.Create(context.Background(), negotiation)
	require.NoError(t, err)
	return created
}

func setNegotiationColumn(t *testing.T, db *gorm.DB, id uuid.UUID, column string, value any) {
	t.Helper()
	require.NoError(t, db.Model(&models.Negotiation{}).Where("id = ?", id).Update(column, value).Error)
}

func TestRepositoryFindByIDPreloadsAssociations(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	vehicle := seedVehicle(t, db, seller.ID)
	negotiation := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusOpen)

	found, err := repo.FindByID(context.Background(), negotiation.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Vehicle)
	require.NotNil(t, found.Buyer)
	require.NotNil(t, found.Seller)
	assert.Equal(t, "Onix", found.Vehicle.Model)
	assert.Equal(t, buyer.ID, found.Buyer.ID)
	assert.Equal(t, seller.ID, found.Seller.ID)
}

func TestRepositoryFindOpenByVehicleAndBuyer(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	vehicle := seedVehicle(t, db, seller.ID)

	seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusRejected)
	_, err := repo.FindOpenByVehicleAndBuyer(context.Background(), vehicle.ID, buyer.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "terminal negotiations do not block new offers")

	open := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusCounterOffer)
	found, err := repo.FindOpenByVehicleAndBuyer(context.Background(), vehicle.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, open.ID, found.ID)
}

func TestRepositoryUpdateActiveMatchesOnlyActiveRows(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	vehicle := seedVehicle(t, db, seller.ID)
	negotiation := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusOpen)

	now := time.Now()
	accept := map[string]any{
		"status":     enums.NegotiationStatusAccepted,
		"closed_at":  now,
		"updated_at": now,
	}
	affected, err := repo.UpdateActive(context.Background(), negotiation.ID, accept)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// The row is terminal now, so a racing writer that read it as open
	// matches nothing instead of overwriting the accepted state.
	reject := map[string]any{
		"status":     enums.NegotiationStatusRejected,
		"updated_at": now,
	}
	affected, err = repo.UpdateActive(context.Background(), negotiation.ID, reject)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	found, err := repo.FindLean(context.Background(), negotiation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.NegotiationStatusAccepted, found.Status)
}

func TestRepositoryRejectsSecondActiveNegotiation(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	vehicle := seedVehicle(t, db, seller.ID)

	seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusOpen)

	_, err := repo.Create(context.Background(), &models.Negotiation{
		ID:           uuid.New(),
		VehicleID:    vehicle.ID,
		BuyerID:      buyer.ID,
		SellerID:     vehicle.SellerID,
		AskingPrice:  vehicle.Price,
		OfferedPrice: decimal.RequireFromString("52000"),
		Status:       enums.NegotiationStatusOpen,
	})
	require.Error(t, err, "unique index on active negotiations must reject the second insert")
}

func TestRepositoryListForUser(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	other := seedUser(t, db, "Other")
	vehicle := seedVehicle(t, db, seller.ID)

	first := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusRejected)
	second := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusOpen)
	seedNegotiation(t, repo, vehicle, other.ID, enums.NegotiationStatusOpen)

	// Spread updated_at so the ordering is deterministic.
	base := time.Now().Add(-time.Hour)
	require.NoError(t, repo.TouchUpdatedAt(context.Background(), first.ID, base))
	require.NoError(t, repo.TouchUpdatedAt(context.Background(), second.ID, base.Add(time.Minute)))

	for i := 0; i < 2; i++ {
		_, err := repo.CreateMessage(context.Background(), &models.NegotiationMessage{
			ID:            uuid.New(),
			NegotiationID: second.ID,
			Content:       "ping",
			Kind:          enums.MessageKindText,
		})
		require.NoError(t, err)
	}

	list, err := repo.ListForUser(context.Background(), buyer.ID, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Negotiations, 2)
	assert.Equal(t, second.ID, list.Negotiations[0].ID, "most recently updated first")
	assert.Equal(t, int64(2), list.Negotiations[0].MessageCount)
	assert.Equal(t, int64(0), list.Negotiations[1].MessageCount)
	assert.Empty(t, list.NextCursor)

	status := enums.NegotiationStatusRejected
	filtered, err := repo.ListForUser(context.Background(), buyer.ID, pagination.Params{}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, filtered.Negotiations, 1)
	assert.Equal(t, first.ID, filtered.Negotiations[0].ID)

	asSeller, err := repo.ListForUser(context.Background(), seller.ID, pagination.Params{}, ListFilters{Role: "seller"})
	require.NoError(t, err)
	assert.Len(t, asSeller.Negotiations, 3)

	asBuyer, err := repo.ListForUser(context.Background(), seller.ID, pagination.Params{}, ListFilters{Role: "buyer"})
	require.NoError(t, err)
	assert.Empty(t, asBuyer.Negotiations)
}

func TestRepositoryListForUserPagination(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		n := seedNegotiation(t, repo, seedVehicle(t, db, seller.ID), buyer.ID, enums.NegotiationStatusOpen)
		require.NoError(t, repo.TouchUpdatedAt(context.Background(), n.ID, base.Add(time.Duration(i)*time.Minute)))
	}

	page, err := repo.ListForUser(context.Background(), buyer.ID, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Negotiations, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListForUser(context.Background(), buyer.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rest.Negotiations, 1)
	assert.Empty(t, rest.NextCursor)
	assert.NotEqual(t, page.Negotiations[0].ID, rest.Negotiations[0].ID)
	assert.NotEqual(t, page.Negotiations[1].ID, rest.Negotiations[0].ID)
}

func TestRepositoryListMessagesOrdering(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	vehicle := seedVehicle(t, db, seller.ID)
	negotiation := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusOpen)

	base := time.Now().Add(-time.Hour)
	for i, content := range []string{"first", "second", "third"} {
		message := &models.NegotiationMessage{
			ID:            uuid.New(),
			NegotiationID: negotiation.ID,
			Content:       content,
			Kind:          enums.MessageKindText,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		_, err := repo.CreateMessage(context.Background(), message)
		require.NoError(t, err)
	}

	messages, err := repo.ListMessages(context.Background(), negotiation.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "third", messages[2].Content)
}

func TestRepositoryFindExpiredDue(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	vehicle := seedVehicle(t, db, seller.ID)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	due := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusOpen)
	setNegotiationColumn(t, db, due.ID, "expires_at", past)

	notDue := seedNegotiation(t, repo, seedVehicle(t, db, seller.ID), buyer.ID, enums.NegotiationStatusOpen)
	setNegotiationColumn(t, db, notDue.ID, "expires_at", future)

	closed := seedNegotiation(t, repo, seedVehicle(t, db, seller.ID), buyer.ID, enums.NegotiationStatusAccepted)
	setNegotiationColumn(t, db, closed.ID, "expires_at", past)

	ids, err := repo.FindExpiredDue(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, due.ID, ids[0])
}

func TestRepositoryDeletePurgeable(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	vehicle := seedVehicle(t, db, seller.ID)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	purgeable := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusCancelled)
	setNegotiationColumn(t, db, purgeable.ID, "purge_after", past)

	retained := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusCancelled)
	setNegotiationColumn(t, db, retained.ID, "purge_after", future)

	deleted, err := repo.DeletePurgeable(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindLean(context.Background(), purgeable.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindLean(context.Background(), retained.ID)
	assert.NoError(t, err)
}

func TestRepositoryHistoryRoundTrip(t *testing.T) {
	db := setupNegotiationsTestDB(t)
	repo := NewRepository(db)

	seller := seedUser(t, db, "Seller")
	buyer := seedUser(t, db, "Buyer")
	vehicle := seedVehicle(t, db, seller.ID)
	negotiation := seedNegotiation(t, repo, vehicle, buyer.ID, enums.NegotiationStatusOpen)

	offered := decimal.RequireFromString("50000")
	actorID := buyer.ID
	err := repo.CreateHistory(context.Background(), &models.NegotiationHistory{
		ID:            uuid.New(),
		NegotiationID: negotiation.ID,
		ActorID:       &actorID,
		Action:        enums.HistoryActionOffer,
		Details: types.HistoryDetails{
			OfferedPrice: &offered,
			Comment:      "initial offer",
		},
	})
	require.NoError(t, err)

	entries, err := repo.ListHistory(context.Background(), negotiation.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.HistoryActionOffer, entries[0].Action)
	require.NotNil(t, entries[0].Details.OfferedPrice)
	assert.True(t, entries[0].Details.OfferedPrice.Equal(offered))
	assert.Equal(t, "initial offer", entries[0].Details.Comment)
}
