package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

type CustomerRepo interface {
	GetByID(id uuid.UUID) (*models.Customer, error)
	FindByEmail(orgID uuid.UUID, email string) (*models.Customer, error)
	Create(customer *models.Customer) error
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepo {
	return &customerRepo{db: db}
}

func (r *customerRepo) GetByID(id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepo) FindByEmail(orgID uuid.UUID, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.
		Where("organization_id = ? AND email = ?", orgID, email).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepo) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}
