package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"proshop-api/internal/auth"
	"proshop-api/internal/domain"
	"proshop-api/internal/repository"
)

const (
	defaultPageSize = 8
	topProductLimit = 3
	productCacheTTL = time.Minute
)

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
}

type ProductService struct {
	products    repository.ProductRepository
	redisClient *redis.Client
	log         *zap.Logger
}

func NewProductService(products repository.ProductRepository, log *zap.Logger) *ProductService {
	return &ProductService{products: products, log: log}
}

// SetRedisClient enables the product detail cache. The service works
// without it.
func (s *ProductService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

func (s *ProductService) ListProducts(ctx context.Context, keyword string, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}

	products, total, err := s.products.Search(ctx, keyword, page, defaultPageSize)
	if err != nil {
		return nil, err
	}

	pages := int((total + defaultPageSize - 1) / defaultPageSize)
	if products == nil {
		products = []domain.Product{}
	}
	return &ProductPage{Products: products, Page: page, Pages: pages}, nil
}

func (s *ProductService) GetProductByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	cacheKey := fmt.Sprintf("product:%s", id.Hex())

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var p domain.Product
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return &p, nil
			}
		}
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(product); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return product, nil
}

// CreateProduct inserts a placeholder the admin edits afterwards.
func (s *ProductService) CreateProduct(ctx context.Context, principal auth.Principal) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		Name:        "Sample name",
		Image:       "/images/sample.jpg",
		Brand:       "Sample brand",
		Category:    "Sample category",
		Description: "Sample description",
		Reviews:     []domain.Review{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

type UpdateProductInput struct {
	Name         string
	Price        float64
	Image        string
	Brand        string
	Category     string
	Description  string
	CountInStock int
}

func (s *ProductService) UpdateProduct(ctx context.Context, id primitive.ObjectID, in UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	updated := *product
	updated.Name = in.Name
	updated.Price = in.Price
	updated.Image = in.Image
	updated.Brand = in.Brand
	updated.Category = in.Category
	updated.Description = in.Description
	updated.CountInStock = in.CountInStock
	updated.UpdatedAt = time.Now()

	if err := s.products.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, id)
	return &updated, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrProductNotFound
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx, id)
	return nil
}

// CreateReview appends the principal's review and recomputes the
// aggregate rating. One review per user per product.
func (s *ProductService) CreateReview(ctx context.Context, principal auth.Principal, id primitive.ObjectID, rating int, comment string) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	for _, review := range product.Reviews {
		if review.UserID == principal.ID {
			return nil, domain.ErrAlreadyReviewed
		}
	}

	now := time.Now()
	updated := *product
	updated.Reviews = append(append([]domain.Review(nil), product.Reviews...), domain.Review{
		ID:        primitive.NewObjectID(),
		UserID:    principal.ID,
		Name:      principal.Name,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
	})
	updated.NumReviews = len(updated.Reviews)

	var sum int
	for _, review := range updated.Reviews {
		sum += review.Rating
	}
	updated.Rating = float64(sum) / float64(len(updated.Reviews))
	updated.UpdatedAt = now

	if err := s.products.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, id)
	return &updated, nil
}

func (s *ProductService) TopProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.FindTop(ctx, topProductLimit)
}

func (s *ProductService) invalidateCache(ctx context.Context, id primitive.ObjectID) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, fmt.Sprintf("product:%s", id.Hex())).Err(); err != nil {
		s.log.Warn("failed to invalidate product cache", zap.String("productId", id.Hex()), zap.Error(err))
	}
}
