package storage

import (
	"context"
	"errors"

	"github.com/sevasetu/backoffice/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations needed by the access gate and
// the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// DonationStore backs the donation exemplar routes. The remaining back-office
// entities (expenses, shops, agreements, loans) follow the same shape and are
// owned by their own controllers.
type DonationStore interface {
	CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error)
	ListDonations(ctx context.Context, limit int) ([]models.Donation, error)
}
