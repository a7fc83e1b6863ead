package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"proshop-api/internal/domain"
	"proshop-api/internal/services"
)

const topProductsCacheKey = "products:top"

func (h *Handler) ListProducts(c *gin.Context) {
	keyword := c.Query("keyword")
	page, _ := strconv.Atoi(c.DefaultQuery("pageNumber", "1"))

	result, err := h.products.ListProducts(c.Request.Context(), keyword, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.respondError(c, domain.ErrProductNotFound)
		return
	}

	product, err := h.products.GetProductByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// TopProducts serves from redis when possible; the store result is
// cached with a short TTL and dropped on any catalog mutation.
func (h *Handler) TopProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if h.rdb != nil {
		if b, err := h.rdb.Get(ctx, topProductsCacheKey).Result(); err == nil {
			var products []domain.Product
			if err := json.Unmarshal([]byte(b), &products); err == nil {
				c.JSON(http.StatusOK, products)
				return
			}
		}
	}

	products, err := h.products.TopProducts(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	if h.rdb != nil {
		if data, err := json.Marshal(products); err == nil {
			h.rdb.Set(ctx, topProductsCacheKey, data, 30*time.Second)
		}
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	p, _ := principalFrom(c)

	product, err := h.products.CreateProduct(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateTopCache()
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.respondError(c, domain.ErrProductNotFound)
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), id, services.UpdateProductInput{
		Name:         req.Name,
		Price:        req.Price,
		Image:        req.Image,
		Brand:        req.Brand,
		Category:     req.Category,
		Description:  req.Description,
		CountInStock: req.CountInStock,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateTopCache()
	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.respondError(c, domain.ErrProductNotFound)
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateTopCache()
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (h *Handler) CreateReview(c *gin.Context) {
	p, _ := principalFrom(c)

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.respondError(c, domain.ErrProductNotFound)
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if _, err := h.products.CreateReview(c.Request.Context(), p, id, req.Rating, req.Comment); err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateTopCache()
	c.JSON(http.StatusCreated, gin.H{"message": "Review added"})
}

func (h *Handler) invalidateTopCache() {
	if h.rdb == nil {
		return
	}
	h.rdb.Del(context.Background(), topProductsCacheKey)
}
