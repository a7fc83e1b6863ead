package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"proshop-api/internal/auth"
	"proshop-api/internal/domain"
	"proshop-api/internal/mocks"
	"proshop-api/internal/repository"
)

func testPrincipal(admin bool) auth.Principal {
	return auth.Principal{
		ID:      primitive.NewObjectID(),
		Name:    "John Doe",
		Email:   "john@example.com",
		IsAdmin: admin,
	}
}

func testItems() []domain.OrderItem {
	return []domain.OrderItem{
		{ProductID: primitive.NewObjectID(), Name: "Airpods", Qty: 1, Price: 89.99},
		{ProductID: primitive.NewObjectID(), Name: "Camera", Qty: 2, Price: 5.0},
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	principal := testPrincipal(false)

	tests := []struct {
		name          string
		input         PlaceOrderInput
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockPublisher)
		expectedError error
	}{
		{
			name: "successful order creation",
			input: PlaceOrderInput{
				OrderItems:    testItems(),
				PaymentMethod: "PayPal",
				ItemsPrice:    99.99,
				TaxPrice:      15.0,
				ShippingPrice: 10.0,
				TotalPrice:    124.99,
			},
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Order")).
					Return(nil).
					Run(func(args mock.Arguments) {
						order := args.Get(1).(*domain.Order)
						order.ID = primitive.NewObjectID()
					}).
					Once()
				mockPub.On("Publish", mock.Anything, "order.created", mock.Anything).Return(nil).Maybe()
			},
		},
		{
			name: "empty item list never persists",
			input: PlaceOrderInput{
				OrderItems: nil,
				TotalPrice: 100,
			},
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockPublisher) {},
			expectedError: domain.ErrEmptyOrder,
		},
		{
			name: "repository error",
			input: PlaceOrderInput{
				OrderItems: testItems(),
				TotalPrice: 100,
			},
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockPub *mocks.MockPublisher) {
				mockRepo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Order")).
					Return(errors.New("database error")).
					Once()
			},
			expectedError: errors.New("database error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			mockUsers := new(mocks.MockUserRepository)
			mockPub := new(mocks.MockPublisher)
			tt.setupMocks(mockRepo, mockPub)

			service := NewOrderService(mockRepo, mockUsers, mockPub, zap.NewNop())
			result, err := service.PlaceOrder(context.Background(), principal, tt.input)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, result)
				assert.Equal(t, principal.ID, result.UserID)
				assert.Equal(t, tt.input.TotalPrice, result.TotalPrice)
				assert.Equal(t, tt.input.ItemsPrice, result.ItemsPrice)
				assert.False(t, result.IsPaid)
				assert.False(t, result.IsDelivered)
				assert.Nil(t, result.PaidAt)
				assert.Nil(t, result.PaymentResult)
				assert.WithinDuration(t, time.Now(), result.CreatedAt, time.Second)
			}

			time.Sleep(50 * time.Millisecond)
			mockRepo.AssertExpectations(t)
			mockPub.AssertExpectations(t)
		})
	}
}

// The returned snapshot must copy the caller-supplied totals verbatim,
// with no server-side recomputation even when they are inconsistent.
func TestOrderService_PlaceOrder_TotalsVerbatim(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	mockPub.On("Publish", mock.Anything, "order.created", mock.Anything).Return(nil).Maybe()

	service := NewOrderService(mockRepo, new(mocks.MockUserRepository), mockPub, zap.NewNop())

	result, err := service.PlaceOrder(context.Background(), testPrincipal(false), PlaceOrderInput{
		OrderItems:    testItems(),
		ItemsPrice:    10,
		TaxPrice:      1,
		ShippingPrice: 1,
		TotalPrice:    999,
	})

	assert.NoError(t, err)
	assert.Equal(t, float64(999), result.TotalPrice)

	time.Sleep(50 * time.Millisecond)
}

func TestOrderService_GetMyOrders(t *testing.T) {
	principal := testPrincipal(false)
	mine := []domain.Order{
		{ID: primitive.NewObjectID(), UserID: principal.ID, TotalPrice: 10},
		{ID: primitive.NewObjectID(), UserID: principal.ID, TotalPrice: 20},
	}

	mockRepo := new(mocks.MockOrderRepository)
	mockRepo.On("FindByUser", mock.Anything, principal.ID).Return(mine, nil).Once()

	service := NewOrderService(mockRepo, new(mocks.MockUserRepository), new(mocks.MockPublisher), zap.NewNop())
	result, err := service.GetMyOrders(context.Background(), principal)

	assert.NoError(t, err)
	assert.Len(t, result, 2)
	for _, order := range result {
		assert.Equal(t, principal.ID, order.UserID)
	}
	mockRepo.AssertExpectations(t)
}

func TestOrderService_GetOrderByID(t *testing.T) {
	ownerID := primitive.NewObjectID()
	orderID := primitive.NewObjectID()

	tests := []struct {
		name          string
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockUserRepository)
		expectedError error
	}{
		{
			name: "joins owner name and email",
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockUsers *mocks.MockUserRepository) {
				mockRepo.On("FindByID", mock.Anything, orderID).
					Return(&domain.Order{ID: orderID, UserID: ownerID, TotalPrice: 100}, nil)
				mockUsers.On("FindByID", mock.Anything, ownerID).
					Return(&domain.User{ID: ownerID, Name: "Jane", Email: "jane@example.com"}, nil)
			},
		},
		{
			name: "order not found",
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockUsers *mocks.MockUserRepository) {
				mockRepo.On("FindByID", mock.Anything, orderID).Return(nil, nil)
			},
			expectedError: domain.ErrOrderNotFound,
		},
		{
			name: "repository error",
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockUsers *mocks.MockUserRepository) {
				mockRepo.On("FindByID", mock.Anything, orderID).Return(nil, errors.New("database error"))
			},
			expectedError: errors.New("database error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			mockUsers := new(mocks.MockUserRepository)
			tt.setupMocks(mockRepo, mockUsers)

			service := NewOrderService(mockRepo, mockUsers, new(mocks.MockPublisher), zap.NewNop())
			result, err := service.GetOrderByID(context.Background(), orderID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, orderID, result.Order.ID)
				assert.Equal(t, ownerID, result.User.ID)
				assert.Equal(t, "Jane", result.User.Name)
				assert.Equal(t, "jane@example.com", result.User.Email)
			}

			mockRepo.AssertExpectations(t)
			mockUsers.AssertExpectations(t)
		})
	}
}

func TestOrderService_PayOrder(t *testing.T) {
	owner := testPrincipal(false)
	orderID := primitive.NewObjectID()
	receipt := domain.PaymentResult{
		ID:           "PAYID-123",
		Status:       "COMPLETED",
		UpdateTime:   "2024-03-01T10:00:00Z",
		EmailAddress: "payer@example.com",
	}

	t.Run("sets paid state and attaches the exact receipt", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockPub := new(mocks.MockPublisher)
		mockRepo.On("FindByID", mock.Anything, orderID).
			Return(&domain.Order{ID: orderID, UserID: owner.ID}, nil)
		mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Order")).
			Return(nil).
			Run(func(args mock.Arguments) {
				updated := args.Get(1).(*domain.Order)
				assert.True(t, updated.IsPaid)
				assert.NotNil(t, updated.PaidAt)
				assert.Equal(t, receipt, *updated.PaymentResult)
			})
		mockPub.On("Publish", mock.Anything, "order.paid", mock.Anything).Return(nil).Maybe()

		service := NewOrderService(mockRepo, new(mocks.MockUserRepository), mockPub, zap.NewNop())
		result, err := service.PayOrder(context.Background(), owner, orderID, receipt)

		assert.NoError(t, err)
		assert.True(t, result.IsPaid)
		assert.Equal(t, receipt, *result.PaymentResult)

		time.Sleep(50 * time.Millisecond)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing order performs no write", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockRepo.On("FindByID", mock.Anything, orderID).Return(nil, nil)

		service := NewOrderService(mockRepo, new(mocks.MockUserRepository), new(mocks.MockPublisher), zap.NewNop())
		result, err := service.PayOrder(context.Background(), owner, orderID, receipt)

		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		assert.Nil(t, result)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("stranger cannot pay", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockRepo.On("FindByID", mock.Anything, orderID).
			Return(&domain.Order{ID: orderID, UserID: primitive.NewObjectID()}, nil)

		service := NewOrderService(mockRepo, new(mocks.MockUserRepository), new(mocks.MockPublisher), zap.NewNop())
		result, err := service.PayOrder(context.Background(), owner, orderID, receipt)

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Nil(t, result)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("admin can pay another user's order", func(t *testing.T) {
		admin := testPrincipal(true)
		mockRepo := new(mocks.MockOrderRepository)
		mockPub := new(mocks.MockPublisher)
		mockRepo.On("FindByID", mock.Anything, orderID).
			Return(&domain.Order{ID: orderID, UserID: primitive.NewObjectID()}, nil)
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
		mockPub.On("Publish", mock.Anything, "order.paid", mock.Anything).Return(nil).Maybe()

		service := NewOrderService(mockRepo, new(mocks.MockUserRepository), mockPub, zap.NewNop())
		result, err := service.PayOrder(context.Background(), admin, orderID, receipt)

		assert.NoError(t, err)
		assert.True(t, result.IsPaid)
		time.Sleep(50 * time.Millisecond)
	})

	t.Run("repeat pay overwrites receipt", func(t *testing.T) {
		paidAt := time.Now().Add(-time.Hour)
		first := domain.PaymentResult{ID: "PAYID-OLD", Status: "COMPLETED"}
		mockRepo := new(mocks.MockOrderRepository)
		mockPub := new(mocks.MockPublisher)
		mockRepo.On("FindByID", mock.Anything, orderID).
			Return(&domain.Order{ID: orderID, UserID: owner.ID, IsPaid: true, PaidAt: &paidAt, PaymentResult: &first}, nil)
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
		mockPub.On("Publish", mock.Anything, "order.paid", mock.Anything).Return(nil).Maybe()

		service := NewOrderService(mockRepo, new(mocks.MockUserRepository), mockPub, zap.NewNop())
		result, err := service.PayOrder(context.Background(), owner, orderID, receipt)

		assert.NoError(t, err)
		assert.Equal(t, "PAYID-123", result.PaymentResult.ID)
		assert.True(t, result.PaidAt.After(paidAt))
		time.Sleep(50 * time.Millisecond)
	})
}

func TestOrderService_DeliverOrder(t *testing.T) {
	orderID := primitive.NewObjectID()

	t.Run("missing order performs no write", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockRepo.On("FindByID", mock.Anything, orderID).Return(nil, nil)

		service := NewOrderService(mockRepo, new(mocks.MockUserRepository), new(mocks.MockPublisher), zap.NewNop())
		result, err := service.DeliverOrder(context.Background(), orderID)

		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		assert.Nil(t, result)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("delivery does not require payment", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockPub := new(mocks.MockPublisher)
		mockRepo.On("FindByID", mock.Anything, orderID).
			Return(&domain.Order{ID: orderID, UserID: primitive.NewObjectID(), IsPaid: false}, nil)
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
		mockPub.On("Publish", mock.Anything, "order.delivered", mock.Anything).Return(nil).Maybe()

		service := NewOrderService(mockRepo, new(mocks.MockUserRepository), mockPub, zap.NewNop())
		result, err := service.DeliverOrder(context.Background(), orderID)

		assert.NoError(t, err)
		assert.True(t, result.IsDelivered)
		assert.NotNil(t, result.DeliveredAt)
		assert.False(t, result.IsPaid)
		time.Sleep(50 * time.Millisecond)
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	u1 := primitive.NewObjectID()
	u2 := primitive.NewObjectID()
	orders := []domain.Order{
		{ID: primitive.NewObjectID(), UserID: u1},
		{ID: primitive.NewObjectID(), UserID: u1},
		{ID: primitive.NewObjectID(), UserID: u2},
	}

	mockRepo := new(mocks.MockOrderRepository)
	mockUsers := new(mocks.MockUserRepository)
	mockRepo.On("FindAll", mock.Anything).Return(orders, nil)
	mockUsers.On("FindByID", mock.Anything, u1).Return(&domain.User{ID: u1, Name: "Jane"}, nil).Once()
	mockUsers.On("FindByID", mock.Anything, u2).Return(&domain.User{ID: u2, Name: "Bob"}, nil).Once()

	service := NewOrderService(mockRepo, mockUsers, new(mocks.MockPublisher), zap.NewNop())
	result, err := service.ListOrders(context.Background())

	assert.NoError(t, err)
	assert.Len(t, result, 3)
	assert.Equal(t, "Jane", result[0].User.Name)
	assert.Equal(t, "Jane", result[1].User.Name)
	assert.Equal(t, "Bob", result[2].User.Name)
	// Email is only joined on single-order reads.
	assert.Empty(t, result[0].User.Email)
	mockUsers.AssertExpectations(t)
}

// Full lifecycle: place, pay, deliver, read back with the owner joined.
func TestOrderService_Lifecycle(t *testing.T) {
	owner := testPrincipal(false)

	var state domain.Order

	mockRepo := new(mocks.MockOrderRepository)
	mockUsers := new(mocks.MockUserRepository)
	mockPub := new(mocks.MockPublisher)

	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).
		Run(func(args mock.Arguments) {
			order := args.Get(1).(*domain.Order)
			order.ID = primitive.NewObjectID()
			state = *order
		})
	mockRepo.On("FindByID", mock.Anything, mock.Anything).Return(&state, nil)
	mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil).
		Run(func(args mock.Arguments) {
			state = *args.Get(1).(*domain.Order)
		})
	mockUsers.On("FindByID", mock.Anything, owner.ID).
		Return(&domain.User{ID: owner.ID, Name: owner.Name, Email: owner.Email}, nil)
	mockPub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	service := NewOrderService(mockRepo, mockUsers, mockPub, zap.NewNop())
	ctx := context.Background()

	created, err := service.PlaceOrder(ctx, owner, PlaceOrderInput{
		OrderItems: testItems(),
		TotalPrice: 100,
	})
	assert.NoError(t, err)
	assert.False(t, created.IsPaid)

	paid, err := service.PayOrder(ctx, owner, created.ID, domain.PaymentResult{ID: "PAYID-1", Status: "COMPLETED"})
	assert.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.False(t, paid.IsDelivered)

	delivered, err := service.DeliverOrder(ctx, created.ID)
	assert.NoError(t, err)
	assert.True(t, delivered.IsPaid)
	assert.True(t, delivered.IsDelivered)

	detail, err := service.GetOrderByID(ctx, created.ID)
	assert.NoError(t, err)
	assert.True(t, detail.IsPaid)
	assert.True(t, detail.IsDelivered)
	assert.Equal(t, owner.Name, detail.User.Name)
	assert.Equal(t, owner.Email, detail.User.Email)

	time.Sleep(100 * time.Millisecond)
}

// racingOrderRepo is a minimal in-memory repository for exercising the
// fetch-then-write race on PayOrder.
type racingOrderRepo struct {
	mu    sync.Mutex
	order domain.Order
}

var _ repository.OrderRepository = (*racingOrderRepo)(nil)

func (r *racingOrderRepo) Insert(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = *order
	return nil
}

func (r *racingOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.order
	return &o, nil
}

func (r *racingOrderRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	return nil, nil
}

func (r *racingOrderRepo) FindAll(ctx context.Context) ([]domain.Order, error) {
	return nil, nil
}

func (r *racingOrderRepo) Update(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = *order
	return nil
}

// Two concurrent pays both succeed; the stored receipt is whichever
// write landed last, never a merge of the two.
func TestOrderService_ConcurrentPay(t *testing.T) {
	owner := testPrincipal(false)
	repo := &racingOrderRepo{
		order: domain.Order{ID: primitive.NewObjectID(), UserID: owner.ID},
	}

	service := NewOrderService(repo, new(mocks.MockUserRepository), nil, zap.NewNop())
	ctx := context.Background()
	orderID := repo.order.ID

	r1 := domain.PaymentResult{ID: "PAYID-A", Status: "COMPLETED"}
	r2 := domain.PaymentResult{ID: "PAYID-B", Status: "COMPLETED"}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := service.PayOrder(ctx, owner, orderID, r1)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := service.PayOrder(ctx, owner, orderID, r2)
		assert.NoError(t, err)
	}()
	wg.Wait()

	final, err := repo.FindByID(ctx, orderID)
	assert.NoError(t, err)
	assert.True(t, final.IsPaid)
	assert.Contains(t, []string{"PAYID-A", "PAYID-B"}, final.PaymentResult.ID)
}
