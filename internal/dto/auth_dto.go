package dto

import "github.com/google/uuid"

type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	FullName   string `json:"full_name" validate:"notblank,max=255"`
	Community  string `json:"community" validate:"max=255"`
	FamilySize int    `json:"family_size" validate:"min=0,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	FullName   string    `json:"full_name"`
	Community  string    `json:"community,omitempty"`
	FamilySize int       `json:"family_size"`
	Status     string    `json:"status"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// UpdateUserRequest is the admin edit of a user's role and profile. Nil
// fields are left untouched.
type UpdateUserRequest struct {
	Role       *string `json:"role" validate:"omitempty,oneof=beneficiary staff admin"`
	FullName   *string `json:"full_name" validate:"omitempty,max=255"`
	Community  *string `json:"community" validate:"omitempty,max=255"`
	FamilySize *int    `json:"family_size" validate:"omitempty,min=0,max=50"`
	Status     *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	BankCount int    `json:"bank_count"`
}
