package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"accountshop/internal/models"
)

// Sort methods accepted by SortedProducts.
const (
	SortDefault    = "default"
	SortRatingUp   = "rating_up"
	SortRatingDown = "rating_down"
	SortPriceUp    = "price_up"
	SortPriceDown  = "price_down"
)

// Core is the data-access layer over products and images. Every method runs
// one transactional unit of work against the store. A domain miss ("no such
// product") is reported through the found bool, never through the error.
type Core struct {
	db  *gorm.DB
	log *slog.Logger
}

func New(db *gorm.DB, log *slog.Logger) *Core {
	if log == nil {
		log = slog.Default()
	}
	return &Core{db: db, log: log}
}

// ProductsInRange returns products with first <= id <= last, images
// preloaded, ordered by id ascending. An empty range is not an error.
func (c *Core) ProductsInRange(ctx context.Context, first, last uint) ([]models.Product, error) {
	var items []models.Product
	err := c.db.WithContext(ctx).
		Preload("Images").
		Where("id BETWEEN ? AND ?", first, last).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("products in range: %w", err)
	}
	return items, nil
}

// ProductByID fetches a single product with its images. found is false when
// no row matches.
func (c *Core) ProductByID(ctx context.Context, id uint) (models.Product, bool, error) {
	var item models.Product
	err := c.db.WithContext(ctx).Preload("Images").First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Product{}, false, nil
	}
	if err != nil {
		return models.Product{}, false, fmt.Errorf("product by id: %w", err)
	}
	return item, true, nil
}

// ProductsByTags returns products whose tags field contains every token of
// tagExpr ("&"-joined) as a whole word. Offset and limit apply after
// filtering; no total count is reported.
func (c *Core) ProductsByTags(ctx context.Context, tagExpr string, offset, limit int) ([]models.Product, error) {
	var items []models.Product
	q := applyTagFilter(c.db.WithContext(ctx), tagExpr)
	err := q.Preload("Images").Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("products by tags: %w", err)
	}
	return items, nil
}

// SortedProducts is ProductsByTags plus an ordering picked from the fixed
// method set. An unknown method is a client error, not a crash.
func (c *Core) SortedProducts(ctx context.Context, method, tagExpr string, offset, limit int) ([]models.Product, error) {
	q := applyTagFilter(c.db.WithContext(ctx), tagExpr)

	switch method {
	case SortDefault:
		// store's natural order
	case SortRatingUp:
		q = q.Order(c.ratingExpr() + " ASC")
	case SortRatingDown:
		q = q.Order(c.ratingExpr() + " DESC")
	case SortPriceUp:
		q = q.Order("price ASC")
	case SortPriceDown:
		q = q.Order("price DESC")
	default:
		return nil, &InvalidOperationError{Op: "sort", Reason: fmt.Sprintf("unknown method %q", method)}
	}

	var items []models.Product
	err := q.Preload("Images").Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("sorted products: %w", err)
	}
	return items, nil
}

// ratingExpr extracts the integer rating from the game_rating JSON column.
func (c *Core) ratingExpr() string {
	if c.db.Dialector.Name() == "postgres" {
		return "CAST(game_rating->>'rating' AS integer)"
	}
	return "CAST(json_extract(game_rating, '$.rating') AS integer)"
}

// applyTagFilter ANDs a whole-word membership condition per "&"-joined token.
// Tags are space-delimited, so padding both sides with spaces gives word
// boundaries without regex.
func applyTagFilter(q *gorm.DB, tagExpr string) *gorm.DB {
	for _, tok := range strings.Split(tagExpr, "&") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		q = q.Where(`(' ' || tags || ' ') LIKE ? ESCAPE '\'`, "% "+escapeLike(tok)+" %")
	}
	return q
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ProductInput carries the fields of a new listing. Price and RatingElo
// arrive as strings (query parameters) and are coerced here.
type ProductInput struct {
	Name        string
	Price       string
	Description string
	Tags        string
	MainImg     string
	RatingElo   string
	RatingName  string
	UserID      uint
	Username    string
	Email       string
	Password    string
}

// AddProduct validates the input, inserts the product, and appends its id to
// the owner's product list. Both writes happen in one transaction: either
// the row and the owner's list update land together or neither does.
func (c *Core) AddProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	if err := in.validate(); err != nil {
		return models.Product{}, err
	}
	price, err := atoiField("price", in.Price)
	if err != nil {
		return models.Product{}, err
	}
	rating, err := atoiField("rating_elo", in.RatingElo)
	if err != nil {
		return models.Product{}, err
	}

	product := models.Product{
		Name:        in.Name,
		Price:       price,
		Description: in.Description,
		Tags:        in.Tags,
		MainImg:     in.MainImg,
		GameRating: datatypes.NewJSONType(models.GameRating{
			Rating:      rating,
			Description: in.RatingName,
		}),
		UserID:   in.UserID,
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	}

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.First(&owner, "id = ?", in.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Field: "id_user", Reason: "unknown user"}
			}
			return fmt.Errorf("load owner: %w", err)
		}
		if err := tx.Create(&product).Error; err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		owner.ProductIDs = append(owner.ProductIDs, product.ID)
		if err := tx.Save(&owner).Error; err != nil {
			return fmt.Errorf("update owner product list: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}

	created, _, err := c.ProductByID(ctx, product.ID)
	if err != nil {
		return models.Product{}, err
	}
	return created, nil
}

func (in ProductInput) validate() error {
	required := []struct {
		field, value string
	}{
		{"name", in.Name},
		{"price", in.Price},
		{"description", in.Description},
		{"tags", in.Tags},
		{"main_img", in.MainImg},
		{"rating_elo", in.RatingElo},
		{"rating_name", in.RatingName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Reason: "required"}
		}
	}
	if in.UserID == 0 {
		return &ValidationError{Field: "id_user", Reason: "required"}
	}
	return nil
}

func atoiField(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}

// ImageInput describes an image to attach to an existing product.
type ImageInput struct {
	Path        string `json:"path" binding:"required"`
	Description string `json:"description"`
	ProductID   uint   `json:"product_id" binding:"required"`
}

// AddImage inserts an image row. The product id is not checked here; a
// nonexistent product surfaces as a foreign-key violation from the store.
func (c *Core) AddImage(ctx context.Context, in ImageInput) (models.Image, error) {
	if strings.TrimSpace(in.Path) == "" {
		return models.Image{}, &ValidationError{Field: "path", Reason: "required"}
	}
	if in.ProductID == 0 {
		return models.Image{}, &ValidationError{Field: "product_id", Reason: "required"}
	}
	image := models.Image{
		Path:        in.Path,
		Description: in.Description,
		ProductID:   in.ProductID,
	}
	if err := c.db.WithContext(ctx).Create(&image).Error; err != nil {
		return models.Image{}, fmt.Errorf("insert image: %w", err)
	}
	return image, nil
}

// DeleteProduct removes a listing and its images. A missing product is a
// domain miss (found=false), not an error. The owner's denormalized product
// list is pruned best-effort: a failure there is logged and the deletion
// proceeds.
func (c *Core) DeleteProduct(ctx context.Context, id uint) (models.Product, bool, error) {
	var deleted models.Product
	found := false
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Product
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load product: %w", err)
		}
		found = true
		deleted = item
		c.pruneOwnerList(tx, item)
		return c.deleteRow(tx, item)
	})
	if err != nil {
		return models.Product{}, false, err
	}
	return deleted, found, nil
}

// deleteRow removes the product and its images inside tx. Images go
// explicitly, not just via the FK cascade, so the no-orphans guarantee does
// not depend on the store enforcing it.
func (c *Core) deleteRow(tx *gorm.DB, item models.Product) error {
	if err := tx.Where("product_id = ?", item.ID).Delete(&models.Image{}).Error; err != nil {
		return fmt.Errorf("delete images: %w", err)
	}
	if err := tx.Delete(&models.Product{}, item.ID).Error; err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// pruneOwnerList drops the product id from the owner's denormalized list.
// Best-effort: never blocks the deletion itself.
func (c *Core) pruneOwnerList(tx *gorm.DB, item models.Product) {
	var owner models.User
	if err := tx.First(&owner, "id = ?", item.UserID).Error; err != nil {
		c.log.Warn("prune owner product list: owner lookup failed",
			"product_id", item.ID, "user_id", item.UserID, "error", err)
		return
	}
	kept := owner.ProductIDs[:0]
	for _, pid := range owner.ProductIDs {
		if pid != item.ID {
			kept = append(kept, pid)
		}
	}
	owner.ProductIDs = kept
	if err := tx.Save(&owner).Error; err != nil {
		c.log.Warn("prune owner product list: save failed",
			"product_id", item.ID, "user_id", item.UserID, "error", err)
	}
}

// ProductPatch is the allow-listed set of mutable fields for ReworkProduct.
// Nil means "leave as is". Price and RatingElo are strings for the same
// coercion rules as AddProduct.
type ProductPatch struct {
	Name        *string
	Price       *string
	Description *string
	Tags        *string
	MainImg     *string
	RatingElo   *string
	RatingName  *string
	Username    *string
	Email       *string
	Password    *string
}

// ReworkProduct overwrites the supplied fields of a listing. Only the owner
// may rework; anyone else gets an AuthorizationError. The purchase-contact
// snapshot is recomputed preferring patch values over stored ones.
func (c *Core) ReworkProduct(ctx context.Context, id uint, patch ProductPatch, actingUserID uint) (models.Product, bool, error) {
	found := false
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Product
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load product: %w", err)
		}
		found = true
		if item.UserID != actingUserID {
			return &AuthorizationError{ProductID: id, UserID: actingUserID}
		}
		if err := applyPatch(&item, patch); err != nil {
			return err
		}
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("save product: %w", err)
		}
		return nil
	})
	if err != nil || !found {
		return models.Product{}, found, err
	}
	updated, _, err := c.ProductByID(ctx, id)
	return updated, true, err
}

func applyPatch(item *models.Product, patch ProductPatch) error {
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Price != nil {
		price, err := atoiField("price", *patch.Price)
		if err != nil {
			return err
		}
		item.Price = price
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Tags != nil {
		item.Tags = *patch.Tags
	}
	if patch.MainImg != nil {
		item.MainImg = *patch.MainImg
	}
	if patch.RatingElo != nil || patch.RatingName != nil {
		rating := item.GameRating.Data()
		if patch.RatingElo != nil {
			elo, err := atoiField("rating_elo", *patch.RatingElo)
			if err != nil {
				return err
			}
			rating.Rating = elo
		}
		if patch.RatingName != nil {
			rating.Description = *patch.RatingName
		}
		item.GameRating = datatypes.NewJSONType(rating)
	}
	// contact snapshot: patch wins over what was stored
	if patch.Username != nil {
		item.Username = *patch.Username
	}
	if patch.Email != nil {
		item.Email = *patch.Email
	}
	if patch.Password != nil {
		item.Password = *patch.Password
	}
	return nil
}

// BuyProduct records an order and removes the listing in one transaction.
// Buying your own listing is rejected. The returned product is the snapshot
// of what was bought; afterwards ProductByID on the same id misses.
func (c *Core) BuyProduct(ctx context.Context, id, buyerID uint) (models.Product, bool, error) {
	var bought models.Product
	found := false
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Product
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load product: %w", err)
		}
		found = true
		if item.UserID == buyerID {
			return &InvalidOperationError{Op: "buy", Reason: "cannot buy your own listing"}
		}
		order := models.Order{
			BuyerID:     buyerID,
			SellerID:    item.UserID,
			ProductID:   item.ID,
			ProductName: item.Name,
			PriceCents:  item.Price,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		bought = item
		c.pruneOwnerList(tx, item)
		return c.deleteRow(tx, item)
	})
	if err != nil {
		return models.Product{}, found, err
	}
	return bought, found, nil
}
