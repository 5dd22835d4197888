package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

var ErrInvalidRole = apperr.Validation("role must be one of beneficiary, staff, admin")

// UserService is the admin view over the bank's users.
type UserService struct {
	db       *gorm.DB
	validate *validator.Validator
}

func NewUserService(db *gorm.DB, validate *validator.Validator) *UserService {
	return &UserService{db: db, validate: validate}
}

func (s *UserService) ListUsers(ctx context.Context, bankID, role string) ([]dto.UserResponse, error) {
	q := s.db.WithContext(ctx).Scopes(tenant.ForBank(bankID))
	if role != "" {
		switch role {
		case models.RoleBeneficiary, models.RoleStaff, models.RoleAdmin:
		default:
			return nil, ErrInvalidRole
		}
		q = q.Where("role = ?", role)
	}

	var users []models.User
	if err := q.Order("full_name ASC, email ASC").Find(&users).Error; err != nil {
		return nil, apperr.Store("list users", err)
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i]))
	}
	return out, nil
}

// UpdateUser applies an admin edit. Changing the community re-keys the
// user for beneficiary matching.
func (s *UserService) UpdateUser(ctx context.Context, sess tenant.Session, id uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Scopes(tenant.ForBank(sess.BankID)).First(&user, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB("load user", err, ErrUserNotFound)
	}

	if req.Role != nil {
		if user.ID == sess.UserID && *req.Role != models.RoleAdmin && user.Role == models.RoleAdmin {
			return nil, apperr.Validation("admins cannot remove their own admin role")
		}
		user.Role = *req.Role
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Community != nil {
		user.Community = strings.TrimSpace(*req.Community)
	}
	if req.FamilySize != nil {
		user.FamilySize = *req.FamilySize
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := db.Save(&user).Error; err != nil {
		return nil, apperr.Store("update user", err)
	}

	slog.Info("user updated", "bank_id", sess.BankID, "user_id", sess.UserID.String(), "target_id", user.ID.String(), "role", user.Role)
	resp := userResponse(&user)
	return &resp, nil
}
