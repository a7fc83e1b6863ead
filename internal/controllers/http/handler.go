package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"proshop-api/internal/auth"
	"proshop-api/internal/domain"
	"proshop-api/internal/services"
)

type Handler struct {
	orders   *services.OrderService
	users    *services.UserService
	products *services.ProductService
	tokens   *auth.TokenManager
	rdb      *redis.Client
	log      *zap.Logger
}

func NewHandler(orders *services.OrderService, users *services.UserService, products *services.ProductService, tokens *auth.TokenManager, rdb *redis.Client, log *zap.Logger) *Handler {
	return &Handler{
		orders:   orders,
		users:    users,
		products: products,
		tokens:   tokens,
		rdb:      rdb,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	users := api.Group("/users")
	users.POST("", h.Register)
	users.POST("/login", h.Login)
	users.POST("/logout", h.Logout)
	users.GET("/profile", h.Authenticate(), h.GetProfile)
	users.PUT("/profile", h.Authenticate(), h.UpdateProfile)
	users.GET("", h.Authenticate(), h.RequireAdmin(), h.ListUsers)
	users.GET("/:id", h.Authenticate(), h.RequireAdmin(), h.GetUser)
	users.PUT("/:id", h.Authenticate(), h.RequireAdmin(), h.UpdateUser)
	users.DELETE("/:id", h.Authenticate(), h.RequireAdmin(), h.DeleteUser)

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/top", h.TopProducts)
	products.GET("/:id", h.GetProduct)
	products.POST("", h.Authenticate(), h.RequireAdmin(), h.CreateProduct)
	products.PUT("/:id", h.Authenticate(), h.RequireAdmin(), h.UpdateProduct)
	products.DELETE("/:id", h.Authenticate(), h.RequireAdmin(), h.DeleteProduct)
	products.POST("/:id/reviews", h.Authenticate(), h.CreateReview)

	orders := api.Group("/orders", h.Authenticate())
	orders.POST("", h.CreateOrder)
	orders.GET("/myorders", h.GetMyOrders)
	orders.GET("/:id", h.GetOrderByID)
	orders.PUT("/:id/pay", h.PayOrder)
	orders.PUT("/:id/deliver", h.RequireAdmin(), h.DeliverOrder)
	orders.GET("", h.RequireAdmin(), h.ListOrders)
}

// respondError maps domain sentinels onto HTTP statuses. Not-found is
// always 404, validation and state errors 400, the rest 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrAlreadyReviewed),
		errors.Is(err, domain.ErrAdminImmutable):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"message": err.Error()})
}
