package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"proshop-api/internal/domain"
	"proshop-api/internal/repository"
)

type orderRepo struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) repository.OrderRepository {
	return &orderRepo{col: db.Collection("orders")}
}

func (r *orderRepo) Insert(ctx context.Context, order *domain.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, order)
	return err
}

func (r *orderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	var o domain.Order
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	return r.find(ctx, bson.M{"user": userID})
}

func (r *orderRepo) FindAll(ctx context.Context) ([]domain.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *orderRepo) find(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.Order
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the whole document. Callers pass a freshly built
// snapshot, never a shared mutable entity.
func (r *orderRepo) Update(ctx context.Context, order *domain.Order) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	return err
}
