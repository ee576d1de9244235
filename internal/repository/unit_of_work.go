package repository

import "context"

// TxRepos bundles the repositories that participate in one transaction.
type TxRepos struct {
	Requests RequestRepository
	Offers   OfferRepository
}

// UnitOfWork runs a function against transaction-scoped repositories,
// committing when it returns nil and rolling back otherwise. Offer
// acceptance depends on this to make the assignment all-or-nothing.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(repos TxRepos) error) error
}
