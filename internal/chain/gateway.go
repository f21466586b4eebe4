// Package chain is the capability surface over the Sui ledger. The rest of
// the system only sees the Gateway interface; transaction construction and
// signing stay inside the implementation.
package chain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
)

// Verified is the result of looking up a transaction on chain.
type Verified struct {
	TxHash    string
	Confirmed bool
	Sender    string
	Amount    decimal.Decimal
	Currency  domain.Currency
}

// ContractState is the on-chain betting contract's accounting view.
type ContractState struct {
	TreasurySUI    decimal.Decimal
	TreasurySBETS  decimal.Decimal
	LiabilitySUI   decimal.Decimal
	LiabilitySBETS decimal.Decimal
}

// HoldersPage is one page of the token-holders enumeration.
type HoldersPage struct {
	Holders     []domain.Holder
	TotalSupply decimal.Decimal
	HasMore     bool
}

// Gateway is the chain capability consumed by the settlement, social, revenue
// and staking workers. Implementations must be safe for concurrent use;
// callers serialize payouts themselves to respect mempool pacing.
type Gateway interface {
	// Transfer sends amount of currency from the admin wallet to the given
	// address and returns the transaction hash.
	Transfer(ctx context.Context, to string, amount decimal.Decimal, currency domain.Currency) (string, error)

	// VerifyTransaction looks up a transaction by hash.
	VerifyTransaction(ctx context.Context, txHash string) (*Verified, error)

	// Balance reads a wallet's on-chain balance in the given currency.
	Balance(ctx context.Context, wallet string, currency domain.Currency) (decimal.Decimal, error)

	// State reads the betting contract's treasury and liability totals.
	State(ctx context.Context) (*ContractState, error)

	// Holders returns one page (0-based) of SBETS holders.
	Holders(ctx context.Context, page int) (*HoldersPage, error)

	// WithdrawTreasury moves amount of SBETS from the staking treasury object
	// to the admin wallet (first step of the two-step staking payout).
	WithdrawTreasury(ctx context.Context, amount decimal.Decimal) (string, error)
}
