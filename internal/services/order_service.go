package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"proshop-api/internal/auth"
	"proshop-api/internal/domain"
	rabbit "proshop-api/internal/infra/rabbitmq"
	"proshop-api/internal/repository"
)

// PlaceOrderInput carries the caller-supplied order fields. Totals are
// stored verbatim; the service never recomputes them.
type PlaceOrderInput struct {
	OrderItems      []domain.OrderItem
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	ItemsPrice      float64
	TaxPrice        float64
	ShippingPrice   float64
	TotalPrice      float64
}

// OrderService owns the order lifecycle: creation, the monotonic
// paid/delivered transitions and the visibility rules around them.
type OrderService struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	publisher rabbit.PublisherInterface
	log       *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, users repository.UserRepository, pub rabbit.PublisherInterface, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		users:     users,
		publisher: pub,
		log:       log,
	}
}

// PlaceOrder persists a new unpaid, undelivered order owned by the
// principal. An empty item list is the one validated input: nothing is
// persisted in that case.
func (s *OrderService) PlaceOrder(ctx context.Context, principal auth.Principal, in PlaceOrderInput) (*domain.Order, error) {
	if len(in.OrderItems) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	now := time.Now()
	order := &domain.Order{
		UserID:          principal.ID,
		OrderItems:      append([]domain.OrderItem(nil), in.OrderItems...),
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      in.ItemsPrice,
		TaxPrice:        in.TaxPrice,
		ShippingPrice:   in.ShippingPrice,
		TotalPrice:      in.TotalPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	go s.publish(context.Background(), "order.created", domain.OrderCreatedEvent{
		OrderID:    order.ID.Hex(),
		UserID:     order.UserID.Hex(),
		TotalPrice: order.TotalPrice,
		CreatedAt:  order.CreatedAt,
	})

	return order, nil
}

// GetMyOrders returns the principal's orders in store order. An empty
// result is not an error.
func (s *OrderService) GetMyOrders(ctx context.Context, principal auth.Principal) ([]domain.Order, error) {
	return s.orders.FindByUser(ctx, principal.ID)
}

// GetOrderByID returns any order to any authenticated principal, with
// the owner's name and email joined in at read time.
func (s *OrderService) GetOrderByID(ctx context.Context, id primitive.ObjectID) (*domain.OrderDetail, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	detail := &domain.OrderDetail{
		Order: *order,
		User:  domain.OrderOwner{ID: order.UserID},
	}

	owner, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		detail.User.Name = owner.Name
		detail.User.Email = owner.Email
	}

	return detail, nil
}

// PayOrder flips the order to paid and attaches the provider receipt.
// Only the owner or an admin may pay. Repeat calls overwrite the
// timestamp and receipt: last write wins.
func (s *OrderService) PayOrder(ctx context.Context, principal auth.Principal, id primitive.ObjectID, receipt domain.PaymentResult) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.UserID != principal.ID && !principal.IsAdmin {
		return nil, domain.ErrForbidden
	}

	now := time.Now()
	updated := *order
	updated.IsPaid = true
	updated.PaidAt = &now
	updated.PaymentResult = &receipt
	updated.UpdatedAt = now

	if err := s.orders.Update(ctx, &updated); err != nil {
		return nil, err
	}

	go s.publish(context.Background(), "order.paid", domain.OrderPaidEvent{
		OrderID:   updated.ID.Hex(),
		PaymentID: receipt.ID,
		Status:    receipt.Status,
		PaidAt:    now,
	})

	return &updated, nil
}

// DeliverOrder flips the order to delivered. The admin gate runs at the
// route; payment state is not a precondition.
func (s *OrderService) DeliverOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	now := time.Now()
	updated := *order
	updated.IsDelivered = true
	updated.DeliveredAt = &now
	updated.UpdatedAt = now

	if err := s.orders.Update(ctx, &updated); err != nil {
		return nil, err
	}

	go s.publish(context.Background(), "order.delivered", domain.OrderDeliveredEvent{
		OrderID:     updated.ID.Hex(),
		DeliveredAt: now,
	})

	return &updated, nil
}

// ListOrders returns every order with the owner's id and name joined in.
// Admin gate runs at the route.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.OrderDetail, error) {
	orders, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	owners := make(map[primitive.ObjectID]*domain.User)
	details := make([]domain.OrderDetail, 0, len(orders))
	for _, order := range orders {
		owner, ok := owners[order.UserID]
		if !ok {
			owner, err = s.users.FindByID(ctx, order.UserID)
			if err != nil {
				return nil, err
			}
			owners[order.UserID] = owner
		}

		detail := domain.OrderDetail{
			Order: order,
			User:  domain.OrderOwner{ID: order.UserID},
		}
		if owner != nil {
			detail.User.Name = owner.Name
		}
		details = append(details, detail)
	}

	return details, nil
}

func (s *OrderService) publish(ctx context.Context, pattern string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, pattern, event); err != nil {
		s.log.Error("failed to publish event", zap.String("pattern", pattern), zap.Error(err))
	}
}
