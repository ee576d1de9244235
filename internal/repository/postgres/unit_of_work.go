package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"movix/internal/repository"
)

// UnitOfWork implements repository.UnitOfWork over *sql.DB.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinTx runs fn against transaction-scoped repositories. The transaction
// commits only when fn returns nil.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	repos := repository.TxRepos{
		Requests: NewRequestRepositoryWithTx(tx),
		Offers:   NewOfferRepositoryWithTx(tx),
	}

	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}
