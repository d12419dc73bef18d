package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendaflow/crm-api/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (r *UserRepository) List(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	var users []domain.User
	query := r.db.WithContext(ctx).Model(&domain.User{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("name ASC").Find(&users).Error
	return users, err
}

// EffectiveRoles returns the union of the roles stored on the user row and
// the active, unexpired role assignment rows. Revoked or expired assignments
// grant nothing.
func (r *UserRepository) EffectiveRoles(ctx context.Context, userID string) ([]domain.UserRoleType, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var assignments []domain.UserRole
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.UserRoleType]bool)
	var roles []domain.UserRoleType
	for _, role := range user.RoleTypes() {
		if !seen[role] {
			seen[role] = true
			roles = append(roles, role)
		}
	}
	for _, assignment := range assignments {
		if assignment.Role.IsValid() && !seen[assignment.Role] {
			seen[assignment.Role] = true
			roles = append(roles, assignment.Role)
		}
	}
	return roles, nil
}

func (r *UserRepository) AssignRole(ctx context.Context, assignment *domain.UserRole) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(assignment).Error
}

func (r *UserRepository) RemoveRole(ctx context.Context, userID string, role domain.UserRoleType) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&domain.UserRole{}).Error
}
