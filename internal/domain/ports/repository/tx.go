package repository

import "context"

// Tx is an opaque transaction handle passed through repositories. Concrete
// implementations type-assert it (e.g. pgx.Tx); nil means "use the pool".
type Tx any

// TransactionManager runs a callback inside a database transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
