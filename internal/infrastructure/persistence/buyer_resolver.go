package persistence

import (
	"context"
	"errors"
	"time"

	appfiscal "github.com/bikeshop/backend/internal/application/fiscal"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer holds the fiscal identity printed on invoices. Workshop orders only
// carry the customer id; the fiscal fields live here.
type Customer struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:200;not null"`
	TaxID       string    `gorm:"column:nif;size:20;not null"`
	Street      string    `gorm:"size:300"`
	PostCode    string    `gorm:"size:10"`
	Town        string    `gorm:"size:100"`
	Province    string    `gorm:"size:100"`
	CountryCode string    `gorm:"size:3;not null;default:ESP"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// GormBuyerResolver resolves invoice buyers from the customers table
type GormBuyerResolver struct {
	db *gorm.DB
}

// NewGormBuyerResolver creates a new GormBuyerResolver
func NewGormBuyerResolver(db *gorm.DB) *GormBuyerResolver {
	return &GormBuyerResolver{db: db}
}

// Resolve implements fiscal.BuyerResolver
func (r *GormBuyerResolver) Resolve(ctx context.Context, customerID uuid.UUID) (appfiscal.Party, error) {
	var customer Customer
	err := r.db.WithContext(ctx).Where("id = ?", customerID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appfiscal.Party{}, shared.ErrNotFound
	}
	if err != nil {
		return appfiscal.Party{}, err
	}

	return appfiscal.Party{
		TaxID:       customer.TaxID,
		Name:        customer.Name,
		Address:     customer.Street,
		PostCode:    customer.PostCode,
		Town:        customer.Town,
		Province:    customer.Province,
		CountryCode: customer.CountryCode,
	}, nil
}

var _ appfiscal.BuyerResolver = (*GormBuyerResolver)(nil)
