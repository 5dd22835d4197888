package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

var (
	ErrEmailTaken         = apperr.Conflict("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrUnknownBank        = apperr.Validation("unknown food bank")
	ErrPasswordRequired   = apperr.Validation("password is required")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	registry *tenant.Registry
	validate *validator.Validator
}

func NewAuthService(db *gorm.DB, cfg *config.Config, registry *tenant.Registry, validate *validator.Validator) *AuthService {
	return &AuthService{db: db, cfg: cfg, registry: registry, validate: validate}
}

// Register signs up a beneficiary. Staff and admin roles are only granted
// by an admin afterwards.
func (s *AuthService) Register(ctx context.Context, bankID string, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if !s.registry.Exists(bankID) {
		return nil, ErrUnknownBank
	}
	req.Email = normalizeEmail(req.Email)
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Scopes(tenant.ForBank(bankID)).
		Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, apperr.Store("check email", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	familySize := req.FamilySize
	if familySize <= 0 {
		familySize = 1
	}
	user := models.User{
		ID:         uuid.New(),
		BankID:     bankID,
		Email:      req.Email,
		Password:   string(hash),
		Role:       models.RoleBeneficiary,
		FullName:   strings.TrimSpace(req.FullName),
		Community:  strings.TrimSpace(req.Community),
		FamilySize: familySize,
		Status:     models.StatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, apperr.Store("create user", err)
	}

	slog.Info("user registered", "bank_id", bankID, "user_id", user.ID.String())
	return s.generateTokenPair(db, bankID, &user)
}

func (s *AuthService) Login(ctx context.Context, bankID string, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Scopes(tenant.ForBank(bankID)).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Store("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != models.StatusActive {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(db, bankID, &user)
}

func (s *AuthService) Refresh(ctx context.Context, bankID string, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	db := s.db.WithContext(ctx)
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := db.Scopes(tenant.ForBank(bankID)).Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	// Refresh tokens are single use.
	if err := db.Model(&stored).Update("revoked", true).Error; err != nil {
		return nil, apperr.Store("revoke refresh token", err)
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := db.Scopes(tenant.ForBank(bankID)).First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, ErrInvalidToken
	}
	if user.Status != models.StatusActive {
		return nil, ErrInvalidToken
	}

	return s.generateTokenPair(db, bankID, &user)
}

func (s *AuthService) Logout(ctx context.Context, bankID string, req *dto.LogoutRequest) error {
	tokenHash := hashToken(req.RefreshToken)
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Scopes(tenant.ForBank(bankID)).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
	if err != nil {
		return apperr.Store("logout", err)
	}
	return nil
}

// DeleteAccount removes the caller's account after re-checking the password.
// Delivery records keep their snapshot of the beneficiary.
func (s *AuthService) DeleteAccount(ctx context.Context, sess tenant.Session, password string) error {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Scopes(tenant.ForBank(sess.BankID)).First(&user, "id = ?", sess.UserID).Error; err != nil {
		return apperr.FromDB("load user", err, ErrUserNotFound)
	}

	if password == "" {
		return ErrPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND bank_id = ?", user.ID, sess.BankID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		return apperr.Store("delete account", err)
	}

	slog.Info("account deleted", "bank_id", sess.BankID, "user_id", user.ID.String())
	return nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, sess tenant.Session) (*dto.UserResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Scopes(tenant.ForBank(sess.BankID)).First(&user, "id = ?", sess.UserID).Error; err != nil {
		return nil, apperr.FromDB("load user", err, ErrUserNotFound)
	}
	resp := userResponse(&user)
	return &resp, nil
}

func (s *AuthService) generateTokenPair(db *gorm.DB, bankID string, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(bankID, user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(db, bankID, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(bankID string, user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":     user.ID.String(),
		"email":   user.Email,
		"bank_id": bankID,
		"role":    user.Role,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(db *gorm.DB, bankID string, user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)
	record := models.RefreshToken{
		ID:        uuid.New(),
		BankID:    bankID,
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := db.Create(&record).Error; err != nil {
		return "", apperr.Store("store refresh token", err)
	}

	return rawToken, nil
}

func userResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		FullName:   u.FullName,
		Community:  u.Community,
		FamilySize: u.FamilySize,
		Status:     u.Status,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
