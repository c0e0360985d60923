package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAppError(t *testing.T, err error, kind error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

// TestOrderLifecycle walks an order through consultation-free production,
// a rejected revision, its replacement and completion.
func TestOrderLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, tailor := actorOf(env.customer), actorOf(env.tailor)

	// Creation computes the total and counts the order for the tailor
	order := env.createOrder(t)
	assert.Equal(t, 8000.0, order.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "TLR-20260314-"))
	assert.Equal(t, 1, order.Version)
	require.Len(t, order.Timeline, 1)
	assert.Equal(t, models.OrderStatusPending, order.Timeline[0].Status)
	assert.Equal(t, 1, env.profile(t).TotalOrders)

	// Customer requests a revision
	order, err := env.svc.AddRevision(ctx, customer, order.ID, "Shorten the sleeves", []string{"orders/1/a.png"})
	require.NoError(t, err)
	require.Len(t, order.Revisions, 1)
	assert.Equal(t, 1, order.Revisions[0].RevisionNumber)
	assert.Equal(t, models.RevisionStatusPending, order.Revisions[0].Status)
	assert.Equal(t, []string{"orders/1/a.png"}, order.Revisions[0].Images)
	assert.Equal(t, models.OrderStatusRevisionRequested, order.Status)

	// Tailor approves, starts and completes it
	order, err = env.svc.ApproveRevision(ctx, tailor, order.ID, 1, "Will do")
	require.NoError(t, err)
	assert.Equal(t, models.RevisionStatusApproved, order.Revisions[0].Status)
	assert.Equal(t, models.OrderStatusInProgress, order.Status)

	order, err = env.svc.StartRevision(ctx, tailor, order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RevisionStatusInProgress, order.Revisions[0].Status)
	assert.Equal(t, models.OrderStatusInProgress, order.Status)

	order, err = env.svc.CompleteRevision(ctx, tailor, order.ID, 1, []string{"orders/1/done.png"}, "Sleeves shortened")
	require.NoError(t, err)
	assert.Equal(t, models.RevisionStatusCompleted, order.Revisions[0].Status)
	assert.Equal(t, models.OrderStatusQualityCheck, order.Status)
	assert.True(t, order.QualityCheck.Passed)
	require.NotNil(t, order.QualityCheck.CheckedByID)
	assert.Equal(t, env.tailor.ID, *order.QualityCheck.CheckedByID)

	// Customer rejects the work, a second revision is opened
	order, err = env.svc.CustomerRejectRevision(ctx, customer, order.ID, 1, "stitching uneven")
	require.NoError(t, err)
	require.Len(t, order.Revisions, 2)
	assert.Equal(t, models.RevisionStatusCustomerRejected, order.Revisions[0].Status)
	require.NotNil(t, order.Revisions[0].SupersededBy)
	assert.Equal(t, 2, *order.Revisions[0].SupersededBy)
	assert.Equal(t, 2, order.Revisions[1].RevisionNumber)
	assert.Equal(t, models.RevisionStatusPending, order.Revisions[1].Status)
	assert.Equal(t, "stitching uneven", order.Revisions[1].Description)
	assert.Equal(t, models.OrderStatusRevisionRequested, order.Status)
	assert.False(t, order.QualityCheck.Passed)

	// Second round ends in completion
	_, err = env.svc.ApproveRevision(ctx, tailor, order.ID, 2, "")
	require.NoError(t, err)
	_, err = env.svc.StartRevision(ctx, tailor, order.ID, 2)
	require.NoError(t, err)
	order, err = env.svc.CompleteRevision(ctx, tailor, order.ID, 2, nil, "Restitched")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusQualityCheck, order.Status)

	order, err = env.svc.CustomerApproveRevision(ctx, customer, order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RevisionStatusCustomerApproved, order.Revisions[1].Status)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	require.NotNil(t, order.ActualCompletionDate)
	assert.True(t, order.ActualCompletionDate.Equal(testClock))

	profile := env.profile(t)
	assert.Equal(t, 1, profile.TotalOrders)
	assert.Equal(t, 1, profile.CompletedOrders)
	assert.Equal(t, 100.0, profile.CompletionRate)

	// Every status change is on the timeline and in the outbox
	statuses := make([]models.OrderStatus, len(order.Timeline))
	for i, entry := range order.Timeline {
		statuses[i] = entry.Status
	}
	assert.Equal(t, []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusRevisionRequested,
		models.OrderStatusInProgress,
		models.OrderStatusQualityCheck,
		models.OrderStatusRevisionRequested,
		models.OrderStatusInProgress,
		models.OrderStatusQualityCheck,
		models.OrderStatusCompleted,
	}, statuses)

	events := env.outboxTypes(t, order.ID)
	assert.Equal(t, models.EventOrderCreated, events[0])
	assert.Contains(t, events, models.EventRevisionRequested)
	assert.Equal(t, models.EventOrderCompleted, events[len(events)-1])
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("quantity defaults to one and supplied total wins", func(t *testing.T) {
		env := newTestEnv(t)
		order, err := env.svc.Create(ctx, actorOf(env.customer), CreateOrderInput{
			TailorID:    env.tailor.ID,
			ServiceType: "alteration",
			GarmentType: "dress",
			BasePrice:   ptr(1200.0),
			FabricCost:  300,
			TotalPrice:  ptr(1000.0),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, order.Quantity)
		assert.Equal(t, 1000.0, order.TotalPrice)
	})

	t.Run("total includes fabric, charges and discount", func(t *testing.T) {
		env := newTestEnv(t)
		order, err := env.svc.Create(ctx, actorOf(env.customer), CreateOrderInput{
			TailorID:          env.tailor.ID,
			ServiceType:       "alteration",
			GarmentType:       "dress",
			Quantity:          3,
			BasePrice:         ptr(100.0),
			FabricCost:        50,
			AdditionalCharges: 20,
			Discount:          70,
		})
		require.NoError(t, err)
		assert.Equal(t, 300.0, order.TotalPrice)
	})

	tests := []struct {
		name  string
		actor func(env *testEnv) models.Actor
		input func(env *testEnv) CreateOrderInput
		kind  error
		code  string
	}{
		{
			name:  "tailor cannot create orders",
			actor: func(env *testEnv) models.Actor { return actorOf(env.tailor) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.tailor.ID, ServiceType: "a", GarmentType: "b", BasePrice: ptr(1.0)}
			},
			kind: utils.ErrAuthorization,
			code: "ONLY_CUSTOMERS",
		},
		{
			name:  "missing tailor",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{ServiceType: "a", GarmentType: "b", BasePrice: ptr(1.0)}
			},
			kind: utils.ErrValidation,
			code: "TAILOR_REQUIRED",
		},
		{
			name:  "missing service type",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.tailor.ID, GarmentType: "b", BasePrice: ptr(1.0)}
			},
			kind: utils.ErrValidation,
			code: "SERVICE_TYPE_REQUIRED",
		},
		{
			name:  "missing garment type",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.tailor.ID, ServiceType: "a", BasePrice: ptr(1.0)}
			},
			kind: utils.ErrValidation,
			code: "GARMENT_TYPE_REQUIRED",
		},
		{
			name:  "missing base price",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.tailor.ID, ServiceType: "a", GarmentType: "b"}
			},
			kind: utils.ErrValidation,
			code: "BASE_PRICE_REQUIRED",
		},
		{
			name:  "negative quantity",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.tailor.ID, ServiceType: "a", GarmentType: "b", BasePrice: ptr(1.0), Quantity: -1}
			},
			kind: utils.ErrValidation,
			code: "INVALID_QUANTITY",
		},
		{
			name:  "negative price",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.tailor.ID, ServiceType: "a", GarmentType: "b", BasePrice: ptr(-5.0)}
			},
			kind: utils.ErrValidation,
			code: "INVALID_PRICE",
		},
		{
			name:  "negative discount",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.tailor.ID, ServiceType: "a", GarmentType: "b", Quantity: 2, BasePrice: ptr(4000.0), Discount: -500}
			},
			kind: utils.ErrValidation,
			code: "INVALID_PRICE",
		},
		{
			name:  "discount larger than subtotal",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.tailor.ID, ServiceType: "a", GarmentType: "b", BasePrice: ptr(100.0), FabricCost: 20, Discount: 150}
			},
			kind: utils.ErrValidation,
			code: "DISCOUNT_TOO_LARGE",
		},
		{
			name:  "tailor is a customer account",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: env.stranger.ID, ServiceType: "a", GarmentType: "b", BasePrice: ptr(1.0)}
			},
			kind: utils.ErrValidation,
			code: "NOT_A_TAILOR",
		},
		{
			name:  "tailor does not exist",
			actor: func(env *testEnv) models.Actor { return actorOf(env.customer) },
			input: func(env *testEnv) CreateOrderInput {
				return CreateOrderInput{TailorID: 9999, ServiceType: "a", GarmentType: "b", BasePrice: ptr(1.0)}
			},
			kind: utils.ErrValidation,
			code: "TAILOR_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.svc.Create(ctx, tt.actor(env), tt.input(env))
			assertAppError(t, err, tt.kind, tt.code)

			var count int64
			require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
			assert.Zero(t, count)
			assert.Equal(t, 0, env.profile(t).TotalOrders)
		})
	}

	t.Run("inactive tailor", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.db.Model(&models.TailorProfile{}).Where("user_id = ?", env.tailor.ID).Update("active", false).Error)

		_, err := env.svc.Create(ctx, actorOf(env.customer), CreateOrderInput{
			TailorID: env.tailor.ID, ServiceType: "a", GarmentType: "b", BasePrice: ptr(1.0),
		})
		assertAppError(t, err, utils.ErrValidation, "TAILOR_NOT_ACTIVE")
	})
}

func TestConsultation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)

	_, err := env.svc.UpdateConsultationStatus(ctx, actorOf(env.customer), order.ID, models.ConsultationCompleted)
	assertAppError(t, err, utils.ErrValidation, "CONSULTATION_NOT_SCHEDULED")

	_, err = env.svc.ScheduleConsultation(ctx, actorOf(env.stranger), order.ID, ScheduleConsultationInput{Date: ptr(testClock)})
	assertAppError(t, err, utils.ErrAuthorization, "NOT_ORDER_PARTY")

	_, err = env.svc.ScheduleConsultation(ctx, actorOf(env.customer), order.ID, ScheduleConsultationInput{})
	assertAppError(t, err, utils.ErrValidation, "CONSULTATION_DATE_REQUIRED")

	order, err = env.svc.ScheduleConsultation(ctx, actorOf(env.customer), order.ID, ScheduleConsultationInput{
		Date: ptr(testClock.Add(48 * time.Hour)),
		Type: "video",
		Link: "https://meet.example.com/abc",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConsultationScheduled, order.Status)
	assert.Equal(t, models.ConsultationScheduled, order.Consultation.Status)
	assert.Equal(t, "video", order.Consultation.Type)

	_, err = env.svc.UpdateConsultationStatus(ctx, actorOf(env.tailor), order.ID, "postponed")
	assertAppError(t, err, utils.ErrValidation, "INVALID_CONSULTATION_STATUS")

	order, err = env.svc.UpdateConsultationStatus(ctx, actorOf(env.tailor), order.ID, models.ConsultationCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConsultationCompleted, order.Status)
	assert.Equal(t, models.ConsultationCompleted, order.Consultation.Status)

	// Rescheduling later keeps the order status
	order, err = env.svc.ScheduleConsultation(ctx, actorOf(env.tailor), order.ID, ScheduleConsultationInput{Date: ptr(testClock), Type: "phone"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConsultationCompleted, order.Status)
	assert.Equal(t, models.ConsultationRescheduled, order.Consultation.Status)
	assert.Equal(t, "phone", order.Consultation.Type)
}

func TestRescheduleConsultationBeforeItHappens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)

	order, err := env.svc.ScheduleConsultation(ctx, actorOf(env.customer), order.ID, ScheduleConsultationInput{Date: ptr(testClock.Add(24 * time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, models.ConsultationScheduled, order.Consultation.Status)

	later := testClock.Add(72 * time.Hour)
	order, err = env.svc.ScheduleConsultation(ctx, actorOf(env.customer), order.ID, ScheduleConsultationInput{Date: &later})
	require.NoError(t, err)
	assert.Equal(t, models.ConsultationRescheduled, order.Consultation.Status)
	assert.Equal(t, models.OrderStatusConsultationScheduled, order.Status)
	require.NotNil(t, order.Consultation.Date)
	assert.True(t, later.Equal(*order.Consultation.Date))

	order, err = env.svc.UpdateConsultationStatus(ctx, actorOf(env.tailor), order.ID, models.ConsultationCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConsultationCompleted, order.Status)
}

func TestUpdateFabric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)
	fabric := models.FabricDetails{Type: "wool", Color: "navy", Quantity: 3.5}

	_, err := env.svc.UpdateFabric(ctx, actorOf(env.customer), order.ID, fabric)
	assertAppError(t, err, utils.ErrAuthorization, "ONLY_TAILOR")

	_, err = env.svc.UpdateFabric(ctx, actorOf(env.tailor), order.ID, models.FabricDetails{Color: "navy"})
	assertAppError(t, err, utils.ErrValidation, "FABRIC_TYPE_REQUIRED")

	order, err = env.svc.UpdateFabric(ctx, actorOf(env.tailor), order.ID, fabric)
	require.NoError(t, err)
	assert.True(t, order.FabricSelected)
	assert.Equal(t, models.OrderStatusFabricSelected, order.Status)
	assert.Equal(t, "wool", order.Fabric.Type)
	assert.Equal(t, 3.5, order.Fabric.Quantity)

	// A closed order rejects the customer on authority before state
	_, err = env.svc.UpdateOrderStatus(ctx, actorOf(env.customer), order.ID, models.OrderStatusCancelled, "")
	require.NoError(t, err)
	_, err = env.svc.UpdateFabric(ctx, actorOf(env.customer), order.ID, fabric)
	assertAppError(t, err, utils.ErrAuthorization, "ONLY_TAILOR")
	_, err = env.svc.UpdateFabric(ctx, actorOf(env.tailor), order.ID, fabric)
	assertAppError(t, err, utils.ErrConflict, "ORDER_CLOSED")
}

func TestUpdatePricing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)

	_, err := env.svc.UpdatePricing(ctx, actorOf(env.customer), order.ID, UpdatePricingInput{Discount: ptr(10.0)})
	assertAppError(t, err, utils.ErrAuthorization, "ONLY_TAILOR")

	_, err = env.svc.UpdatePricing(ctx, actorOf(env.tailor), order.ID, UpdatePricingInput{})
	assertAppError(t, err, utils.ErrValidation, "NO_CHANGES")

	_, err = env.svc.UpdatePricing(ctx, actorOf(env.tailor), order.ID, UpdatePricingInput{FabricCost: ptr(-1.0)})
	assertAppError(t, err, utils.ErrValidation, "INVALID_PRICE")

	_, err = env.svc.UpdatePricing(ctx, actorOf(env.tailor), order.ID, UpdatePricingInput{Discount: ptr(-500.0)})
	assertAppError(t, err, utils.ErrValidation, "INVALID_PRICE")

	_, err = env.svc.UpdatePricing(ctx, actorOf(env.tailor), order.ID, UpdatePricingInput{Discount: ptr(9000.0)})
	assertAppError(t, err, utils.ErrValidation, "DISCOUNT_TOO_LARGE")

	// Lowering the base price below an existing discount is rejected too
	order, err = env.svc.UpdatePricing(ctx, actorOf(env.tailor), order.ID, UpdatePricingInput{Discount: ptr(1000.0)})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, order.Discount)
	_, err = env.svc.UpdatePricing(ctx, actorOf(env.tailor), order.ID, UpdatePricingInput{BasePrice: ptr(400.0)})
	assertAppError(t, err, utils.ErrValidation, "DISCOUNT_TOO_LARGE")

	reloaded, err := env.svc.GetOrder(ctx, actorOf(env.tailor), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 4000.0, reloaded.BasePrice)
	assert.Equal(t, 1000.0, reloaded.Discount)

	order, err = env.svc.UpdatePricing(ctx, actorOf(env.tailor), order.ID, UpdatePricingInput{FabricCost: ptr(500.0)})
	require.NoError(t, err)
	assert.Equal(t, 500.0, order.FabricCost)
	assert.Equal(t, 8000.0, order.TotalPrice, "total is not reconciled unless supplied")

	order, err = env.svc.UpdatePricing(ctx, actorOf(env.tailor), order.ID, UpdatePricingInput{TotalPrice: ptr(8500.0)})
	require.NoError(t, err)
	assert.Equal(t, 8500.0, order.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestRevisionNumbersIncrease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)

	for i := 1; i <= 3; i++ {
		var err error
		order, err = env.svc.AddRevision(ctx, actorOf(env.customer), order.ID, fmt.Sprintf("change %d", i), nil)
		require.NoError(t, err)
	}

	require.Len(t, order.Revisions, 3)
	for i, revision := range order.Revisions {
		assert.Equal(t, i+1, revision.RevisionNumber)
	}
	assert.Equal(t, 3, order.CurrentRevision)

	_, err := env.svc.AddRevision(ctx, actorOf(env.customer), order.ID, "  ", nil)
	assertAppError(t, err, utils.ErrValidation, "DESCRIPTION_REQUIRED")
}

func TestConcurrentRevisionsGetDistinctNumbers(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder(t)

	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.AddRevision(context.Background(), actorOf(env.customer), order.ID, fmt.Sprintf("change %d", i), nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	order, err := env.svc.GetOrder(context.Background(), actorOf(env.customer), order.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, order.CurrentRevision)
	assert.Equal(t, 1+workers, order.Version)

	numbers := make([]int, 0, workers)
	for _, revision := range order.Revisions {
		numbers = append(numbers, revision.RevisionNumber)
	}
	sort.Ints(numbers)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, numbers)
}

func TestRevisionAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)

	_, err := env.svc.AddRevision(ctx, actorOf(env.tailor), order.ID, "tailor wants a change", nil)
	assertAppError(t, err, utils.ErrAuthorization, "ONLY_CUSTOMER")

	order, err = env.svc.AddRevision(ctx, actorOf(env.customer), order.ID, "hem", nil)
	require.NoError(t, err)

	_, err = env.svc.ApproveRevision(ctx, actorOf(env.customer), order.ID, 1, "")
	assertAppError(t, err, utils.ErrAuthorization, "ONLY_TAILOR")

	_, err = env.svc.ApproveRevision(ctx, actorOf(env.admin), order.ID, 1, "")
	assertAppError(t, err, utils.ErrAuthorization, "ONLY_TAILOR")

	_, err = env.svc.CustomerApproveRevision(ctx, actorOf(env.tailor), order.ID, 1)
	assertAppError(t, err, utils.ErrAuthorization, "ONLY_CUSTOMER")

	_, err = env.svc.ApproveRevision(ctx, actorOf(env.tailor), order.ID, 7, "")
	assertAppError(t, err, utils.ErrNotFound, "REVISION_NOT_FOUND")

	_, err = env.svc.ApproveRevision(ctx, actorOf(env.tailor), 4242, 1, "")
	assertAppError(t, err, utils.ErrNotFound, "ORDER_NOT_FOUND")
}

func TestRevisionStateErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)

	order, err := env.svc.AddRevision(ctx, actorOf(env.customer), order.ID, "hem", nil)
	require.NoError(t, err)

	_, err = env.svc.StartRevision(ctx, actorOf(env.tailor), order.ID, 1)
	assertAppError(t, err, utils.ErrValidation, "REVISION_NOT_APPROVED")

	_, err = env.svc.CompleteRevision(ctx, actorOf(env.tailor), order.ID, 1, nil, "")
	assertAppError(t, err, utils.ErrValidation, "REVISION_NOT_IN_PROGRESS")

	_, err = env.svc.CustomerApproveRevision(ctx, actorOf(env.customer), order.ID, 1)
	assertAppError(t, err, utils.ErrValidation, "REVISION_NOT_COMPLETED")

	rejected, err := env.svc.RejectRevision(ctx, actorOf(env.tailor), order.ID, 1, "out of scope")
	require.NoError(t, err)
	assert.Equal(t, models.RevisionStatusRejected, rejected.Revisions[0].Status)
	assert.Equal(t, "out of scope", rejected.Revisions[0].RejectionReason)
	assert.Equal(t, models.OrderStatusInProgress, rejected.Status)

	// Rejecting twice is a conflict and changes nothing
	_, err = env.svc.RejectRevision(ctx, actorOf(env.tailor), order.ID, 1, "again")
	assertAppError(t, err, utils.ErrConflict, "REVISION_ALREADY_REJECTED")

	after, err := env.svc.GetOrder(ctx, actorOf(env.tailor), order.ID)
	require.NoError(t, err)
	assert.Equal(t, rejected.Version, after.Version)
	assert.Equal(t, "out of scope", after.Revisions[0].RejectionReason)

	_, err = env.svc.ApproveRevision(ctx, actorOf(env.tailor), order.ID, 1, "")
	assertAppError(t, err, utils.ErrValidation, "REVISION_NOT_PENDING")
}

func TestRejectRevisionWaitsForOtherPendingRevisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)

	for _, description := range []string{"hem", "collar"} {
		var err error
		order, err = env.svc.AddRevision(ctx, actorOf(env.customer), order.ID, description, nil)
		require.NoError(t, err)
	}

	order, err := env.svc.RejectRevision(ctx, actorOf(env.tailor), order.ID, 1, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRevisionRequested, order.Status)

	order, err = env.svc.RejectRevision(ctx, actorOf(env.tailor), order.ID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, order.Status)
}

func TestCompletionWaitsForAllRevisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, tailor := actorOf(env.customer), actorOf(env.tailor)
	order := env.createOrder(t)

	for _, description := range []string{"hem", "collar"} {
		var err error
		order, err = env.svc.AddRevision(ctx, customer, order.ID, description, nil)
		require.NoError(t, err)
	}

	_, err := env.svc.ApproveRevision(ctx, tailor, order.ID, 1, "")
	require.NoError(t, err)
	_, err = env.svc.StartRevision(ctx, tailor, order.ID, 1)
	require.NoError(t, err)
	order, err = env.svc.CompleteRevision(ctx, tailor, order.ID, 1, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, order.Status, "revision 2 still needs work")

	order, err = env.svc.CustomerApproveRevision(ctx, customer, order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, order.Status)
	assert.Equal(t, 0, env.profile(t).CompletedOrders)

	_, err = env.svc.ApproveRevision(ctx, tailor, order.ID, 2, "")
	require.NoError(t, err)
	_, err = env.svc.StartRevision(ctx, tailor, order.ID, 2)
	require.NoError(t, err)
	order, err = env.svc.CompleteRevision(ctx, tailor, order.ID, 2, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusQualityCheck, order.Status)

	order, err = env.svc.CustomerApproveRevision(ctx, customer, order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, 1, env.profile(t).CompletedOrders)
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown statuses", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.createOrder(t)
		_, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.tailor), order.ID, "shipped", "")
		assertAppError(t, err, utils.ErrValidation, "INVALID_STATUS")
	})

	t.Run("rejects the current status", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.createOrder(t)
		_, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.tailor), order.ID, models.OrderStatusPending, "")
		assertAppError(t, err, utils.ErrConflict, "STATUS_UNCHANGED")
	})

	t.Run("only parties may change status", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.createOrder(t)
		_, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.stranger), order.ID, models.OrderStatusInProgress, "")
		assertAppError(t, err, utils.ErrAuthorization, "NOT_ORDER_PARTY")
	})

	t.Run("fast-forward to completed records reputation once", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.createOrder(t)

		order, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.tailor), order.ID, models.OrderStatusCompleted, "Delivered in store")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCompleted, order.Status)
		require.NotNil(t, order.ActualCompletionDate)
		assert.Equal(t, "Delivered in store", order.Timeline[len(order.Timeline)-1].Description)

		profile := env.profile(t)
		assert.Equal(t, 1, profile.CompletedOrders)
		assert.Equal(t, 100.0, profile.CompletionRate)

		_, err = env.svc.UpdateOrderStatus(ctx, actorOf(env.customer), order.ID, models.OrderStatusCompleted, "")
		assertAppError(t, err, utils.ErrConflict, "ORDER_CLOSED")
		assert.Equal(t, 1, env.profile(t).CompletedOrders)

		_, err = env.svc.AddRevision(ctx, actorOf(env.customer), order.ID, "too late", nil)
		assertAppError(t, err, utils.ErrConflict, "ORDER_CLOSED")

		assert.Equal(t, []string{
			models.EventOrderCreated,
			models.EventOrderStatusChanged,
			models.EventOrderCompleted,
		}, env.outboxTypes(t, order.ID))
	})

	t.Run("cancellation does not touch completion counters", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.createOrder(t)

		order, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.customer), order.ID, models.OrderStatusCancelled, "")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, order.Status)
		assert.Nil(t, order.ActualCompletionDate)

		profile := env.profile(t)
		assert.Equal(t, 1, profile.TotalOrders)
		assert.Equal(t, 0, profile.CompletedOrders)
		assert.Equal(t, 0.0, profile.CompletionRate)
	})

	t.Run("strict policy enforces transitions", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.policy = StatusPolicy{Strict: true}
		order := env.createOrder(t)

		_, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.tailor), order.ID, models.OrderStatusCompleted, "")
		assertAppError(t, err, utils.ErrValidation, "INVALID_TRANSITION")

		_, err = env.svc.UpdateOrderStatus(ctx, actorOf(env.customer), order.ID, models.OrderStatusInProgress, "")
		assertAppError(t, err, utils.ErrAuthorization, "TRANSITION_NOT_ALLOWED")

		order, err = env.svc.UpdateOrderStatus(ctx, actorOf(env.tailor), order.ID, models.OrderStatusInProgress, "")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusInProgress, order.Status)
	})
}

func TestCompletionAwardsBadgesMonotonically(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.db.Model(&models.TailorProfile{}).Where("user_id = ?", env.tailor.ID).Updates(map[string]any{
		"total_orders":     54,
		"completed_orders": 49,
		"average_rating":   4.8,
	}).Error)

	order := env.createOrder(t)
	_, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.tailor), order.ID, models.OrderStatusCompleted, "")
	require.NoError(t, err)

	profile := env.profile(t)
	assert.Equal(t, 55, profile.TotalOrders)
	assert.Equal(t, 50, profile.CompletedOrders)
	assert.Equal(t, 90.91, profile.CompletionRate)
	require.Len(t, profile.Badges, 1)
	assert.Equal(t, models.BadgeTopRated, profile.Badges[0].Type)
	require.NotNil(t, profile.Badges[0].OrderID)
	assert.Equal(t, order.ID, *profile.Badges[0].OrderID)
	assert.Contains(t, env.outboxTypes(t, order.ID), models.EventBadgeAwarded)

	// Rebuilding from history lowers the counters but keeps the badge
	rebuilt, awarded, err := env.ledger.Rebuild(ctx, env.tailor.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)
	assert.Equal(t, 1, rebuilt.TotalOrders)
	assert.Equal(t, 1, rebuilt.CompletedOrders)
	require.Len(t, rebuilt.Badges, 1)
	assert.Equal(t, models.BadgeTopRated, rebuilt.Badges[0].Type)
}

func TestMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.createOrder(t)

	_, err := env.svc.AddMessage(ctx, actorOf(env.stranger), order.ID, "hello", nil)
	assertAppError(t, err, utils.ErrAuthorization, "NOT_ORDER_PARTY")

	_, err = env.svc.AddMessage(ctx, actorOf(env.customer), order.ID, "   ", nil)
	assertAppError(t, err, utils.ErrValidation, "MESSAGE_TEXT_REQUIRED")

	message, err := env.svc.AddMessage(ctx, actorOf(env.customer), order.ID, "Can we meet Friday?", []string{"orders/1/ref.jpg"})
	require.NoError(t, err)
	assert.Equal(t, env.customer.ID, message.SenderID)
	assert.Equal(t, env.customer.Email, message.Sender.Email)
	assert.False(t, message.Read)

	// Sender reading their own message changes nothing
	message, err = env.svc.MarkMessageRead(ctx, actorOf(env.customer), order.ID, message.ID)
	require.NoError(t, err)
	assert.False(t, message.Read)

	message, err = env.svc.MarkMessageRead(ctx, actorOf(env.tailor), order.ID, message.ID)
	require.NoError(t, err)
	assert.True(t, message.Read)
	require.NotNil(t, message.ReadAt)
	assert.True(t, message.ReadAt.Equal(testClock))

	_, err = env.svc.MarkMessageRead(ctx, actorOf(env.tailor), order.ID, 999)
	assertAppError(t, err, utils.ErrNotFound, "MESSAGE_NOT_FOUND")

	// Messaging stays open after the order closes and does not bump the version
	closed, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.customer), order.ID, models.OrderStatusCancelled, "")
	require.NoError(t, err)
	_, err = env.svc.AddMessage(ctx, actorOf(env.tailor), order.ID, "Sorry to see it go", nil)
	require.NoError(t, err)

	messages, err := env.svc.ListMessages(ctx, actorOf(env.admin), order.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Can we meet Friday?", messages[0].Text)
	assert.Equal(t, []string{"orders/1/ref.jpg"}, messages[0].Attachments)
	assert.True(t, messages[0].Read)

	current, err := env.svc.GetOrder(ctx, actorOf(env.customer), order.ID)
	require.NoError(t, err)
	assert.Equal(t, closed.Version, current.Version)

	_, err = env.svc.ListMessages(ctx, actorOf(env.stranger), order.ID)
	assertAppError(t, err, utils.ErrAuthorization, "NOT_ORDER_PARTY")
}

func TestOrderReads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.createOrder(t)
	second := env.createOrder(t)
	_, err := env.svc.UpdateOrderStatus(ctx, actorOf(env.customer), second.ID, models.OrderStatusCancelled, "")
	require.NoError(t, err)

	t.Run("get order", func(t *testing.T) {
		_, err := env.svc.GetOrder(ctx, actorOf(env.stranger), first.ID)
		assertAppError(t, err, utils.ErrAuthorization, "NOT_ORDER_PARTY")

		order, err := env.svc.GetOrder(ctx, actorOf(env.admin), first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.OrderNumber, order.OrderNumber)
		assert.Equal(t, env.customer.ID, order.Customer.ID)
		assert.Equal(t, env.tailor.ID, order.Tailor.ID)

		_, err = env.svc.GetOrder(ctx, actorOf(env.admin), 9999)
		assertAppError(t, err, utils.ErrNotFound, "ORDER_NOT_FOUND")
	})

	t.Run("list orders", func(t *testing.T) {
		orders, total, err := env.svc.ListOrders(ctx, actorOf(env.customer), OrderFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, orders, 2)

		orders, total, err = env.svc.ListOrders(ctx, actorOf(env.tailor), OrderFilter{Status: models.OrderStatusCancelled})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, orders, 1)
		assert.Equal(t, second.ID, orders[0].ID)

		orders, total, err = env.svc.ListOrders(ctx, actorOf(env.admin), OrderFilter{Limit: 1, Page: 2, Sort: "oldest"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, orders, 1)
		assert.Equal(t, second.ID, orders[0].ID)

		orders, total, err = env.svc.ListOrders(ctx, actorOf(env.stranger), OrderFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, orders)

		_, _, err = env.svc.ListOrders(ctx, actorOf(env.customer), OrderFilter{Status: "lost"})
		assertAppError(t, err, utils.ErrValidation, "INVALID_STATUS")

		_, _, err = env.svc.ListOrders(ctx, actorOf(env.customer), OrderFilter{Sort: "price"})
		assertAppError(t, err, utils.ErrValidation, "INVALID_SORT")
	})

	t.Run("timeline", func(t *testing.T) {
		entries, err := env.svc.GetTimeline(ctx, actorOf(env.tailor), second.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, models.OrderStatusPending, entries[0].Status)
		assert.Equal(t, models.OrderStatusCancelled, entries[1].Status)
		require.NotNil(t, entries[1].UpdatedByID)
		assert.Equal(t, env.customer.ID, *entries[1].UpdatedByID)

		_, err = env.svc.GetTimeline(ctx, actorOf(env.stranger), second.ID)
		assertAppError(t, err, utils.ErrAuthorization, "NOT_ORDER_PARTY")
	})
}

func TestSaveDetectsConcurrentModification(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder(t)

	stale, err := env.svc.orders.loadForUpdate(env.db, order.ID)
	require.NoError(t, err)

	_, err = env.svc.UpdatePricing(context.Background(), actorOf(env.tailor), order.ID, UpdatePricingInput{Discount: ptr(100.0)})
	require.NoError(t, err)

	stale.Notes = "overwritten"
	err = env.svc.orders.save(env.db, stale, stale.Version)
	assertAppError(t, err, utils.ErrConflict, "ORDER_MODIFIED")

	current, err := env.svc.GetOrder(context.Background(), actorOf(env.tailor), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, current.Discount)
	assert.Empty(t, current.Notes)
}
