package service

import "context"

// TransactionManager runs fn in one database transaction. A state change, its
// audit event and its outbox entry are written together or not at all. Calls
// made with a context that already carries a transaction join it.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
