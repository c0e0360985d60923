package services

import (
	"context"
	"testing"
	"time"

	"github.com/kendall-kelly/stitchwise-api/config"
	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testClock = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	db       *gorm.DB
	svc      *OrderService
	ledger   *ReputationLedger
	customer models.User
	tailor   models.User
	stranger models.User
	admin    models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	rules, err := config.LoadBadgeRules("")
	require.NoError(t, err)

	ledger := NewReputationLedger(db, NewBadgeEvaluator(rules), NewReviewStore(), logging.Discard())
	svc := NewOrderService(db, ledger, NewMemoryOrderLocker(time.Second), StatusPolicy{}, logging.Discard())
	svc.now = func() time.Time { return testClock }

	return &testEnv{
		db:       db,
		svc:      svc,
		ledger:   ledger,
		customer: testutil.CreateUser(t, db, "auth0|customer", models.RoleCustomer),
		tailor:   testutil.CreateUser(t, db, "auth0|tailor", models.RoleTailor),
		stranger: testutil.CreateUser(t, db, "auth0|stranger", models.RoleCustomer),
		admin:    testutil.CreateUser(t, db, "auth0|admin", models.RoleAdmin),
	}
}

func actorOf(user models.User) models.Actor {
	return models.Actor{UserID: user.ID, Role: user.Role}
}

func ptr[T any](v T) *T {
	return &v
}

// createOrder opens the standard test order: base 4000 x 2
func (e *testEnv) createOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := e.svc.Create(context.Background(), actorOf(e.customer), CreateOrderInput{
		TailorID:    e.tailor.ID,
		ServiceType: "custom_tailoring",
		GarmentType: "suit",
		Quantity:    2,
		BasePrice:   ptr(4000.0),
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) profile(t *testing.T) *models.TailorProfile {
	t.Helper()
	profile, err := e.ledger.Profile(context.Background(), e.tailor.ID)
	require.NoError(t, err)
	return profile
}

func (e *testEnv) outboxTypes(t *testing.T, orderID uint) []string {
	t.Helper()
	var events []models.OutboxEvent
	require.NoError(t, e.db.Where("order_id = ?", orderID).Order("id ASC").Find(&events).Error)
	types := make([]string, len(events))
	for i, event := range events {
		types[i] = event.Type
	}
	return types
}
