package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"proshop-api/internal/domain"
)

// Find methods return (nil, nil) when the document is absent; services
// translate that into their not-found sentinels. Insert assigns the id
// on the passed entity.

type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error)
	FindAll(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
}

type UserRepository interface {
	Insert(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	Insert(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	Search(ctx context.Context, keyword string, page, pageSize int) ([]domain.Product, int64, error)
	FindTop(ctx context.Context, limit int) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
