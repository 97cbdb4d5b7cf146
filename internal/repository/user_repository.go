package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskly/taskly-api/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateUser is returned when a unique username or email constraint is violated.
var ErrDuplicateUser = errors.New("user repository: username or email already exists")

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user. The database must be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func (r *GormUserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", ErrDuplicateUser, err)
		}
		return err
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier finds a user by email when identifier contains "@",
// otherwise by username. Exactly one column is consulted.
func (r *GormUserRepository) FindByIdentifier(identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		return r.FindByEmail(identifier)
	}
	return r.FindByUsername(identifier)
}
