package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/anonboard/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// AccountStore captures persistence operations needed by the dev stub handlers.
type AccountStore interface {
	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	FindByID(ctx context.Context, id int64) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	UpdateAccount(ctx context.Context, account models.Account) error
}
