package core

import (
	"context"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"accountshop/internal/models"
)

func newTestCore(t *testing.T) (*Core, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// one connection so every session sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Image{}, &models.Order{},
	))
	return New(db, slog.Default()), db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, ownerID uint, name, tags string, price, rating int) models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Price:       price,
		Description: "desc " + name,
		Tags:        tags,
		MainImg:     "/img/" + name + ".png",
		GameRating:  datatypes.NewJSONType(models.GameRating{Rating: rating, Description: "tier"}),
		UserID:      ownerID,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestProductsInRange(t *testing.T) {
	c, db := newTestCore(t)
	u := seedUser(t, db, "seller")
	p1 := seedProduct(t, db, u.ID, "a", "rpg", 100, 1000)
	p2 := seedProduct(t, db, u.ID, "b", "rpg", 200, 1100)
	p3 := seedProduct(t, db, u.ID, "c", "rpg", 300, 1200)
	require.NoError(t, db.Create(&models.Image{Path: "/i/1.png", ProductID: p2.ID}).Error)

	items, err := c.ProductsInRange(context.Background(), p1.ID, p2.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, p1.ID, items[0].ID)
	assert.Equal(t, p2.ID, items[1].ID)
	assert.Len(t, items[1].Images, 1)

	items, err = c.ProductsInRange(context.Background(), p3.ID+100, p3.ID+200)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestProductByID(t *testing.T) {
	c, db := newTestCore(t)
	u := seedUser(t, db, "seller")
	p := seedProduct(t, db, u.ID, "a", "rpg", 100, 1000)
	require.NoError(t, db.Create(&models.Image{Path: "/i/1.png", ProductID: p.ID}).Error)

	item, found, err := c.ProductByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", item.Name)
	assert.Len(t, item.Images, 1)

	_, found, err = c.ProductByID(context.Background(), p.ID+99)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProductsByTags(t *testing.T) {
	c, db := newTestCore(t)
	u := seedUser(t, db, "seller")
	seedProduct(t, db, u.ID, "both", "rpg sale indie", 100, 1000)
	seedProduct(t, db, u.ID, "rpgOnly", "rpg indie", 200, 1100)
	seedProduct(t, db, u.ID, "substring", "rpgx sale", 300, 1200)

	items, err := c.ProductsByTags(context.Background(), "rpg&sale", 0, 30)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "both", items[0].Name)

	// whole-word only: "rpgx" must not satisfy token "rpg"
	items, err = c.ProductsByTags(context.Background(), "rpg", 0, 30)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.NotEqual(t, "substring", it.Name)
	}

	// offset/limit paging
	items, err = c.ProductsByTags(context.Background(), "rpg", 1, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSortedProducts(t *testing.T) {
	c, db := newTestCore(t)
	u := seedUser(t, db, "seller")
	seedProduct(t, db, u.ID, "cheapLow", "rpg", 100, 1500)
	seedProduct(t, db, u.ID, "midHigh", "rpg", 200, 2000)
	seedProduct(t, db, u.ID, "priceyMid", "rpg", 300, 1000)

	t.Run("price_up", func(t *testing.T) {
		items, err := c.SortedProducts(context.Background(), SortPriceUp, "rpg", 0, 30)
		require.NoError(t, err)
		require.Len(t, items, 3)
		for i := 1; i < len(items); i++ {
			assert.LessOrEqual(t, items[i-1].Price, items[i].Price)
		}
	})

	t.Run("price_down", func(t *testing.T) {
		items, err := c.SortedProducts(context.Background(), SortPriceDown, "rpg", 0, 30)
		require.NoError(t, err)
		require.Len(t, items, 3)
		for i := 1; i < len(items); i++ {
			assert.GreaterOrEqual(t, items[i-1].Price, items[i].Price)
		}
	})

	t.Run("rating_up", func(t *testing.T) {
		items, err := c.SortedProducts(context.Background(), SortRatingUp, "rpg", 0, 30)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "priceyMid", items[0].Name)
		assert.Equal(t, "midHigh", items[2].Name)
	})

	t.Run("rating_down", func(t *testing.T) {
		items, err := c.SortedProducts(context.Background(), SortRatingDown, "rpg", 0, 30)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "midHigh", items[0].Name)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := c.SortedProducts(context.Background(), "sideways", "rpg", 0, 30)
		var ioErr *InvalidOperationError
		require.ErrorAs(t, err, &ioErr)
	})
}

func TestAddProduct(t *testing.T) {
	c, db := newTestCore(t)
	u := seedUser(t, db, "seller")

	input := func() ProductInput {
		return ProductInput{
			Name:        "Game A",
			Price:       "1000",
			Description: "endgame account",
			Tags:        "rpg indie",
			MainImg:     "/img/a.png",
			RatingElo:   "1500",
			RatingName:  "Gold",
			UserID:      u.ID,
			Username:    "seller",
			Email:       "seller@example.com",
			Password:    "contact-pass",
		}
	}

	t.Run("creates product and updates owner list", func(t *testing.T) {
		item, err := c.AddProduct(context.Background(), input())
		require.NoError(t, err)
		assert.NotZero(t, item.ID)
		assert.Equal(t, 1000, item.Price)
		assert.Equal(t, 1500, item.GameRating.Data().Rating)
		assert.Equal(t, "Gold", item.GameRating.Data().Description)
		assert.Empty(t, item.Images)

		var owner models.User
		require.NoError(t, db.First(&owner, "id = ?", u.ID).Error)
		assert.Contains(t, []uint(owner.ProductIDs), item.ID)
	})

	t.Run("non-numeric price leaves no row behind", func(t *testing.T) {
		in := input()
		in.Name = "Broken"
		in.Price = "lots"
		_, err := c.AddProduct(context.Background(), in)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "price", vErr.Field)

		var cnt int64
		require.NoError(t, db.Model(&models.Product{}).Where("name = ?", "Broken").Count(&cnt).Error)
		assert.Zero(t, cnt)
	})

	t.Run("missing required field", func(t *testing.T) {
		in := input()
		in.Tags = ""
		_, err := c.AddProduct(context.Background(), in)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "tags", vErr.Field)
	})

	t.Run("unknown owner rolls back", func(t *testing.T) {
		in := input()
		in.Name = "Orphan"
		in.UserID = u.ID + 999
		_, err := c.AddProduct(context.Background(), in)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)

		var cnt int64
		require.NoError(t, db.Model(&models.Product{}).Where("name = ?", "Orphan").Count(&cnt).Error)
		assert.Zero(t, cnt)
	})
}

func TestAddImage(t *testing.T) {
	c, db := newTestCore(t)
	u := seedUser(t, db, "seller")
	p := seedProduct(t, db, u.ID, "a", "rpg", 100, 1000)

	img, err := c.AddImage(context.Background(), ImageInput{Path: "/i/x.png", Description: "screenshot", ProductID: p.ID})
	require.NoError(t, err)
	assert.NotZero(t, img.ID)

	_, err = c.AddImage(context.Background(), ImageInput{ProductID: p.ID})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestDeleteProduct(t *testing.T) {
	c, db := newTestCore(t)
	u := seedUser(t, db, "seller")

	t.Run("miss is a soft result", func(t *testing.T) {
		_, found, err := c.DeleteProduct(context.Background(), 4242)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("deletes images and prunes owner list", func(t *testing.T) {
		item, err := c.AddProduct(context.Background(), ProductInput{
			Name: "a", Price: "100", Description: "d", Tags: "rpg",
			MainImg: "/i/a.png", RatingElo: "1000", RatingName: "Silver", UserID: u.ID,
		})
		require.NoError(t, err)
		_, err = c.AddImage(context.Background(), ImageInput{Path: "/i/1.png", ProductID: item.ID})
		require.NoError(t, err)

		deleted, found, err := c.DeleteProduct(context.Background(), item.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, item.ID, deleted.ID)

		var imgCnt int64
		require.NoError(t, db.Model(&models.Image{}).Where("product_id = ?", item.ID).Count(&imgCnt).Error)
		assert.Zero(t, imgCnt, "no orphaned images")

		var owner models.User
		require.NoError(t, db.First(&owner, "id = ?", u.ID).Error)
		assert.NotContains(t, []uint(owner.ProductIDs), item.ID)

		_, found, err = c.ProductByID(context.Background(), item.ID)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func strPtr(s string) *string { return &s }

func TestReworkProduct(t *testing.T) {
	c, db := newTestCore(t)
	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")

	t.Run("miss is a soft result", func(t *testing.T) {
		_, found, err := c.ReworkProduct(context.Background(), 4242, ProductPatch{}, owner.ID)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("non-owner is rejected and nothing changes", func(t *testing.T) {
		p := seedProduct(t, db, owner.ID, "orig", "rpg", 100, 1000)
		_, _, err := c.ReworkProduct(context.Background(), p.ID, ProductPatch{Name: strPtr("hacked")}, other.ID)
		var aErr *AuthorizationError
		require.ErrorAs(t, err, &aErr)

		var fresh models.Product
		require.NoError(t, db.First(&fresh, "id = ?", p.ID).Error)
		assert.Equal(t, "orig", fresh.Name)
	})

	t.Run("owner patches only supplied fields", func(t *testing.T) {
		p := seedProduct(t, db, owner.ID, "keepme", "rpg", 100, 1000)
		updated, found, err := c.ReworkProduct(context.Background(), p.ID, ProductPatch{
			Price:     strPtr("250"),
			RatingElo: strPtr("1800"),
			Username:  strPtr("newcontact"),
		}, owner.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "keepme", updated.Name)
		assert.Equal(t, 250, updated.Price)
		assert.Equal(t, 1800, updated.GameRating.Data().Rating)
		assert.Equal(t, "tier", updated.GameRating.Data().Description)
		assert.Equal(t, "newcontact", updated.Username)
	})

	t.Run("non-numeric price patch", func(t *testing.T) {
		p := seedProduct(t, db, owner.ID, "p", "rpg", 100, 1000)
		_, _, err := c.ReworkProduct(context.Background(), p.ID, ProductPatch{Price: strPtr("free")}, owner.ID)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestBuyProduct(t *testing.T) {
	c, db := newTestCore(t)
	seller := seedUser(t, db, "seller")
	buyer := seedUser(t, db, "buyer")

	t.Run("miss is a soft result", func(t *testing.T) {
		_, found, err := c.BuyProduct(context.Background(), 4242, buyer.ID)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("self-purchase is rejected", func(t *testing.T) {
		p := seedProduct(t, db, seller.ID, "mine", "rpg", 100, 1000)
		_, _, err := c.BuyProduct(context.Background(), p.ID, seller.ID)
		var ioErr *InvalidOperationError
		require.ErrorAs(t, err, &ioErr)

		_, found, err := c.ProductByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.True(t, found, "listing survives a rejected purchase")
	})

	t.Run("purchase removes the listing and records an order", func(t *testing.T) {
		p := seedProduct(t, db, seller.ID, "wanted", "rpg", 500, 1000)
		bought, found, err := c.BuyProduct(context.Background(), p.ID, buyer.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "wanted", bought.Name)

		_, found, err = c.ProductByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.False(t, found)

		var order models.Order
		require.NoError(t, db.First(&order, "product_id = ?", p.ID).Error)
		assert.Equal(t, buyer.ID, order.BuyerID)
		assert.Equal(t, seller.ID, order.SellerID)
		assert.Equal(t, 500, order.PriceCents)
		assert.Equal(t, "wanted", order.ProductName)
	})
}

// Full catalog lifecycle: list, find by tag, get bought by someone else.
func TestCatalogLifecycle(t *testing.T) {
	c, db := newTestCore(t)
	seller := seedUser(t, db, "user1")
	buyer := seedUser(t, db, "user2")

	item, err := c.AddProduct(context.Background(), ProductInput{
		Name: "Game A", Price: "1000", Description: "fresh account",
		Tags: "rpg indie", MainImg: "/img/game-a.png",
		RatingElo: "1500", RatingName: "Gold", UserID: seller.ID,
	})
	require.NoError(t, err)

	items, err := c.ProductsByTags(context.Background(), "rpg", 0, 30)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Game A", items[0].Name)

	_, found, err := c.BuyProduct(context.Background(), item.ID, buyer.ID)
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = c.ProductByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.False(t, found, "listing is gone after purchase")
}
