package dto

import "github.com/sevasetu/backoffice/internal/models"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User        models.Profile `json:"user"`
	AccessToken string         `json:"accessToken"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type CreateDonationRequest struct {
	DevoteeName string `json:"devotee_name"`
	Amount      int64  `json:"amount"`
	Purpose     string `json:"purpose"`
}
