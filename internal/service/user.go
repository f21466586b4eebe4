package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/chain"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/domain"
)

// UserService covers wallet-keyed accounts: connect, deposits with tx-hash
// dedup, withdrawals, combined balances, referral bonding, and zkLogin salts.
type UserService struct {
	users   UserStore
	gateway chain.Gateway
	cfg     *config.Config
	logger  *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users UserStore, gateway chain.Gateway, cfg *config.Config, logger *slog.Logger) *UserService {
	return &UserService{users: users, gateway: gateway, cfg: cfg, logger: logger}
}

// ──────────────────────────────────────────────────────────────────────────────
// Connect
// ──────────────────────────────────────────────────────────────────────────────

// Connect ensures the user row exists, granting the one-time welcome bonus on
// first sight. An optional referrer bonds a pending referral.
func (s *UserService) Connect(ctx context.Context, wallet, referrer string) (*domain.User, error) {
	u, created, err := s.users.EnsureUser(ctx, wallet, s.cfg.Betting.WelcomeBonus)
	if err != nil {
		return nil, err
	}
	if created && referrer != "" &&
		domain.NormalizeWallet(referrer) != domain.NormalizeWallet(wallet) {
		if rerr := s.users.CreateReferral(ctx, referrer, wallet); rerr != nil {
			s.logger.Warn("referral bond failed", "referred", wallet, "err", rerr)
		}
	}
	return u, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Balance
// ──────────────────────────────────────────────────────────────────────────────

// Balance is the combined on-chain + platform view of a wallet.
type Balance struct {
	OnChainSUI    decimal.Decimal `json:"on_chain_sui"`
	OnChainSBETS  decimal.Decimal `json:"on_chain_sbets"`
	PlatformSUI   decimal.Decimal `json:"platform_sui"`
	PlatformSBETS decimal.Decimal `json:"platform_sbets"`
	Bonus         decimal.Decimal `json:"bonus"`
	FreeBets      int64           `json:"free_bets"`
}

// GetBalance combines on-chain balances with the platform-held balances.
// Chain read failures degrade to platform-only data rather than erroring.
func (s *UserService) GetBalance(ctx context.Context, wallet string) (*Balance, error) {
	u, err := s.users.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	b := &Balance{
		PlatformSUI:   u.BalanceSUI,
		PlatformSBETS: u.BalanceSBETS,
		Bonus:         u.BonusBalance,
		FreeBets:      u.FreeBetBalance,
	}
	if sui, cerr := s.gateway.Balance(ctx, wallet, domain.CurrencySUI); cerr == nil {
		b.OnChainSUI = sui
	} else {
		s.logger.Warn("on-chain SUI balance read failed", "wallet", wallet, "err", cerr)
	}
	if sbets, cerr := s.gateway.Balance(ctx, wallet, domain.CurrencySBETS); cerr == nil {
		b.OnChainSBETS = sbets
	}
	return b, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Deposit / withdraw
// ──────────────────────────────────────────────────────────────────────────────

// Deposit credits the platform balance for a verified on-chain transfer. The
// tx hash is consumed first, so a replay conflicts before any money moves.
func (s *UserService) Deposit(ctx context.Context, wallet string, amount decimal.Decimal, txHash string, currency domain.Currency, skipVerification bool) error {
	if !amount.IsPositive() || txHash == "" || !currency.IsValid() {
		return fmt.Errorf("user.Deposit: invalid deposit parameters")
	}

	if err := s.users.ConsumeTxHash(ctx, txHash, "deposit"); err != nil {
		return err
	}

	if !skipVerification {
		v, err := s.gateway.VerifyTransaction(ctx, txHash)
		if err != nil {
			return fmt.Errorf("user.Deposit: verify: %w", err)
		}
		if !v.Confirmed {
			return domain.ErrTxUnconfirmed
		}
	}

	if err := s.users.CreditBalance(ctx, wallet, amount, currency); err != nil {
		return err
	}
	s.logger.Info("deposit credited",
		"wallet", domain.NormalizeWallet(wallet), "amount", amount.String(), "currency", currency)
	return nil
}

// WithdrawResult reports how a withdrawal completed.
type WithdrawResult struct {
	Status string `json:"status"` // "completed" | "pending"
	TxHash string `json:"tx_hash,omitempty"`
}

// Withdraw debits the platform balance and optionally executes the on-chain
// transfer immediately. Without execution the withdrawal stays pending for
// the operator queue.
func (s *UserService) Withdraw(ctx context.Context, wallet string, amount decimal.Decimal, currency domain.Currency, executeOnChain bool) (*WithdrawResult, error) {
	if !amount.IsPositive() || !currency.IsValid() {
		return nil, fmt.Errorf("user.Withdraw: invalid withdrawal parameters")
	}

	if err := s.users.DebitBalance(ctx, wallet, amount, currency); err != nil {
		return nil, err
	}

	if !executeOnChain {
		return &WithdrawResult{Status: "pending"}, nil
	}

	txHash, err := s.gateway.Transfer(ctx, domain.NormalizeWallet(wallet), amount, currency)
	if err != nil {
		// Restore the debit: the transfer never happened.
		if cerr := s.users.CreditBalance(ctx, wallet, amount, currency); cerr != nil {
			s.logger.Error("CRITICAL: withdraw revert failed",
				"wallet", wallet, "amount", amount.String(), "err", cerr)
		}
		return nil, fmt.Errorf("user.Withdraw: transfer: %w", err)
	}
	return &WithdrawResult{Status: "completed", TxHash: txHash}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// zkLogin salt
// ──────────────────────────────────────────────────────────────────────────────

// ZkLoginSalt returns the deterministic salt for the subject of an OAuth
// id_token. The token's signature is the wallet's concern; the salt service
// only needs the identifying claims.
func (s *UserService) ZkLoginSalt(ctx context.Context, rawToken string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(rawToken, claims); err != nil {
		return "", fmt.Errorf("user.ZkLoginSalt: parse token: %w", err)
	}

	issuer, err := claims.GetIssuer()
	if err != nil || issuer == "" {
		return "", fmt.Errorf("user.ZkLoginSalt: token missing issuer")
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("user.ZkLoginSalt: token missing subject")
	}
	audiences, err := claims.GetAudience()
	if err != nil || len(audiences) == 0 {
		return "", fmt.Errorf("user.ZkLoginSalt: token missing audience")
	}

	fresh := make([]byte, 16)
	if _, err = rand.Read(fresh); err != nil {
		return "", fmt.Errorf("user.ZkLoginSalt: entropy: %w", err)
	}
	return s.users.GetOrCreateSalt(ctx, issuer, audiences[0], subject, hex.EncodeToString(fresh))
}
