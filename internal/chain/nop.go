package chain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
)

// NopGateway is an in-memory Gateway for tests and dry runs. Transfers succeed
// (or fail, when FailTransfers is set) without touching the network and every
// call is recorded.
type NopGateway struct {
	mu            sync.Mutex
	seq           atomic.Int64
	Transfers     []NopTransfer
	FailTransfers bool
	Verifications map[string]*Verified
	StateValue    ContractState
	HolderPages   []HoldersPage
}

// NopTransfer records one Transfer call.
type NopTransfer struct {
	To       string
	Amount   decimal.Decimal
	Currency domain.Currency
}

var _ Gateway = (*NopGateway)(nil)

// NewNopGateway creates an empty NopGateway.
func NewNopGateway() *NopGateway {
	return &NopGateway{Verifications: make(map[string]*Verified)}
}

// Transfer records the call and returns a synthetic digest.
func (g *NopGateway) Transfer(_ context.Context, to string, amount decimal.Decimal, currency domain.Currency) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailTransfers {
		return "", fmt.Errorf("nop gateway: transfers disabled")
	}
	g.Transfers = append(g.Transfers, NopTransfer{To: to, Amount: amount, Currency: currency})
	return fmt.Sprintf("nop-tx-%d", g.seq.Add(1)), nil
}

// VerifyTransaction returns a registered verification, or confirms unknown
// hashes by default.
func (g *NopGateway) VerifyTransaction(_ context.Context, txHash string) (*Verified, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.Verifications[txHash]; ok {
		return v, nil
	}
	return &Verified{TxHash: txHash, Confirmed: true}, nil
}

// Balance always returns zero.
func (g *NopGateway) Balance(context.Context, string, domain.Currency) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// State returns the configured state value.
func (g *NopGateway) State(context.Context) (*ContractState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	state := g.StateValue
	return &state, nil
}

// Holders serves the configured pages.
func (g *NopGateway) Holders(_ context.Context, page int) (*HoldersPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if page < 0 || page >= len(g.HolderPages) {
		return &HoldersPage{TotalSupply: decimal.NewFromInt(1)}, nil
	}
	p := g.HolderPages[page]
	return &p, nil
}

// WithdrawTreasury returns a synthetic digest.
func (g *NopGateway) WithdrawTreasury(context.Context, decimal.Decimal) (string, error) {
	return fmt.Sprintf("nop-withdraw-%d", g.seq.Add(1)), nil
}
