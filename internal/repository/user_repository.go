package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gipity/gipity-scaffold/internal/db"
	"github.com/gipity/gipity-scaffold/internal/model"
)

var (
	baseUserColumns     = []string{"id", "email", "role", "created_at", "updated_at"}
	extendedUserColumns = []string{"id", "email", "role", "first_name", "last_name", "created_at", "updated_at"}
)

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error
}

type userRepository struct {
	db      *gorm.DB
	columns []string
}

// NewUserRepository builds a GORM-backed repository. The column set is chosen
// from schema once; on databases without the name columns the names are
// neither read nor written.
func NewUserRepository(gdb *gorm.DB, schema db.Schema) UserRepository {
	columns := baseUserColumns
	if schema.UserNames {
		columns = extendedUserColumns
	}
	return &userRepository{db: gdb, columns: columns}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Select(r.columns).Create(user).Error
}

// Update writes the mutable profile columns. Role is intentionally excluded;
// see UpdateRole.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	columns := []string{"email", "updated_at"}
	if len(r.columns) == len(extendedUserColumns) {
		columns = append(columns, "first_name", "last_name")
	}
	res := r.db.WithContext(ctx).Model(user).Select(columns).Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select(r.columns).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select(r.columns).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND role = ?", id, model.RoleAdmin).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0)
	if err := r.db.WithContext(ctx).Select(r.columns).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateRole is the administrative path for changing a user's role.
func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
