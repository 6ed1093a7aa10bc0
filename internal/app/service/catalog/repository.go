package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/fatflowers/storefront/internal/models"
)

// Repository is the catalog collaborator boundary: batch product lookup for
// checkout-time validation and the atomic stock decrement used during
// reconciliation.
type Repository interface {
	GetProductsByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Product, error)
	// DecrementStockIfAvailable subtracts qty in a single conditional UPDATE
	// and reports whether enough stock remained. Stock can never go negative.
	DecrementStockIfAvailable(ctx context.Context, tx *gorm.DB, productID string, qty int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *repository) GetProductsByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Product, error) {
	var products []*models.Product
	if err := r.conn(tx).WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) DecrementStockIfAvailable(ctx context.Context, tx *gorm.DB, productID string, qty int64) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
