package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// Invoice is a payment request issued by the wallet backend.
type Invoice struct {
	PaymentRequest string
	PaymentHash    string
	Amount         decimal.Decimal
}

// WalletClient is the wallet/payment collaborator. Authentication does not
// depend on it; it is consumed by the host application once a session
// identifies the user.
type WalletClient interface {
	Balance(ctx context.Context, username string) (decimal.Decimal, error)
	CreateInvoice(ctx context.Context, username string, amount decimal.Decimal, memo string) (*Invoice, error)
}
