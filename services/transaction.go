package services

import (
	"context"

	"github.com/google/uuid"
)

// TransactionMinter mints the opaque idempotency token correlated with one
// order-creation call. The token is request correlation only: its presence
// never proves a completed order.
type TransactionMinter interface {
	Mint(ctx context.Context, amount float64, currency string) (string, error)
}

// LocalTransactionMinter mints tokens locally. It never fails, which keeps
// token minting from ever blocking a checkout.
type LocalTransactionMinter struct{}

// Mint returns a fresh opaque token.
func (LocalTransactionMinter) Mint(_ context.Context, _ float64, _ string) (string, error) {
	return "txn_" + uuid.NewString(), nil
}
