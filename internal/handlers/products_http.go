package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"accountshop/internal/core"
	"accountshop/internal/models"
)

const (
	defaultOffset = 0
	defaultLimit  = 30
)

// Products exposes the catalog endpoints over the data-access layer.
type Products struct {
	core *core.Core
	log  *slog.Logger
}

func NewProducts(c *core.Core, log *slog.Logger) *Products {
	if log == nil {
		log = slog.Default()
	}
	return &Products{core: c, log: log}
}

// List handles GET /products/?fst_id&lst_id — listing by inclusive id range.
func (h *Products) List(c *gin.Context) {
	first, ok := queryUint(c, "fst_id")
	if !ok {
		return
	}
	last, ok := queryUint(c, "lst_id")
	if !ok {
		return
	}
	items, err := h.core.ProductsInRange(c.Request.Context(), first, last)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetItem handles GET /products/item/:id.
func (h *Products) GetItem(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	item, found, err := h.core.ProductByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found with the given id", "id": id})
		return
	}
	c.JSON(http.StatusOK, item)
}

// Sorted handles GET /products/:tags/sorted/:method?offset&limit.
func (h *Products) Sorted(c *gin.Context) {
	offset := queryIntDefault(c, "offset", defaultOffset)
	limit := queryIntDefault(c, "limit", defaultLimit)
	items, err := h.core.SortedProducts(c.Request.Context(), c.Param("method"), c.Param("tags"), offset, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// AddItem handles POST /products/add/item. Requires an authenticated user;
// the listing is owned by whoever posts it.
func (h *Products) AddItem(c *gin.Context) {
	user := mustCurrentUser(c)
	if user == nil {
		return
	}
	in := core.ProductInput{
		Name:        c.Query("name"),
		Price:       c.Query("price"),
		Description: c.Query("description"),
		Tags:        c.Query("tags"),
		MainImg:     c.Query("main_img"),
		RatingElo:   c.Query("rating_elo"),
		RatingName:  c.Query("rating_name"),
		UserID:      user.ID,
		Username:    c.Query("username"),
		Email:       c.Query("email"),
		Password:    c.Query("password"),
	}
	item, err := h.core.AddProduct(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// AddImage handles POST /products/add/images/.
func (h *Products) AddImage(c *gin.Context) {
	if mustCurrentUser(c) == nil {
		return
	}
	var in core.ImageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	image, err := h.core.AddImage(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image added", "image": image})
}

// Delete handles POST /products/delete/item?id=. A missing product is a 404,
// not a server error.
func (h *Products) Delete(c *gin.Context) {
	if mustCurrentUser(c) == nil {
		return
	}
	id, ok := queryUint(c, "id")
	if !ok {
		return
	}
	item, found, err := h.core.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "id": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted", "id": id, "product": item})
}

// Rework handles POST|PUT /products/rework/item/:id. Only the fields present
// in the request are overwritten.
func (h *Products) Rework(c *gin.Context) {
	user := mustCurrentUser(c)
	if user == nil {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	patch := core.ProductPatch{
		Name:        queryPtr(c, "name"),
		Price:       queryPtr(c, "price"),
		Description: queryPtr(c, "description"),
		Tags:        queryPtr(c, "tags"),
		MainImg:     queryPtr(c, "main_img"),
		RatingElo:   queryPtr(c, "rating_elo"),
		RatingName:  queryPtr(c, "rating_name"),
		Username:    queryPtr(c, "username"),
		Email:       queryPtr(c, "email"),
		Password:    queryPtr(c, "password"),
	}
	item, found, err := h.core.ReworkProduct(c.Request.Context(), id, patch, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "id": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product reworked", "id": id, "product": item})
}

// Buy handles GET /products/buy/item/:id. The listing is removed and an
// order row records what was bought.
func (h *Products) Buy(c *gin.Context) {
	user := mustCurrentUser(c)
	if user == nil {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	item, found, err := h.core.BuyProduct(c.Request.Context(), id, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "id": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product bought", "id": id, "product": item})
}

// fail maps core errors onto HTTP statuses. This is the single place where
// the taxonomy becomes status codes.
func (h *Products) fail(c *gin.Context, err error) {
	var (
		vErr  *core.ValidationError
		aErr  *core.AuthorizationError
		ioErr *core.InvalidOperationError
	)
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.As(err, &aErr):
		c.JSON(http.StatusForbidden, gin.H{"error": aErr.Error(), "id": aErr.ProductID})
	case errors.As(err, &ioErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": ioErr.Error()})
	default:
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func mustCurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil
	}
	return v.(*models.User)
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return uint(v), true
}

func queryUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return uint(v), true
}

func queryIntDefault(c *gin.Context, name string, def int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return def
}

// queryPtr reports a query parameter as present-or-absent, which is what a
// partial patch needs.
func queryPtr(c *gin.Context, name string) *string {
	if vs, ok := c.Request.URL.Query()[name]; ok && len(vs) > 0 {
		return &vs[0]
	}
	return nil
}
