package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new doctor profile. Returns ErrLicenseExists on a
	// duplicate license number.
	Create(ctx context.Context, d *Doctor) error

	// GetByID returns ErrDoctorNotFound when no row matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// GetByUserID retrieves the profile owned by an account.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)

	Update(ctx context.Context, id uuid.UUID, cmd *UpdateDoctorCommand) (*Doctor, error)

	List(ctx context.Context, q *ListDoctorsQuery) (*PagedDoctors, error)
}
