package directory

import (
	"context"
	"errors"

	"github.com/lqviet45/light-novel-BE/internal/domain"
)

var (
	// ErrNotFound means the directory has no such account.
	ErrNotFound = errors.New("identity not found")
	// ErrUnavailable covers timeouts, transport failures and upstream errors.
	ErrUnavailable = errors.New("identity directory unavailable")
)

// Directory is the read-mostly view of the user service the session
// lifecycle depends on.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByID(ctx context.Context, id int64) (*domain.Identity, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}
