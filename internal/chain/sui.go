package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/domain"
)

// Coin type tags on Sui mainnet.
const (
	coinTypeSUI   = "0x2::sui::SUI"
	coinTypeSBETS = "0xsbets::sbets::SBETS"
)

// mistPerSui converts between SUI display units and MIST base units. This is
// the only place base units appear; everything above the gateway works in
// token units.
var mistPerSui = decimal.NewFromInt(1_000_000_000)

// SuiGateway talks to a Sui fullnode over JSON-RPC and to the holders API.
// It implements Gateway.
type SuiGateway struct {
	cfg    *config.ChainConfig
	client *http.Client
	logger *slog.Logger
	reqID  atomic.Int64
}

var _ Gateway = (*SuiGateway)(nil)

// NewSuiGateway builds a SuiGateway from config.
func NewSuiGateway(cfg *config.Config, logger *slog.Logger) *SuiGateway {
	return &SuiGateway{
		cfg:    &cfg.Chain,
		client: &http.Client{Timeout: cfg.Chain.CallTimeout},
		logger: logger,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Gateway implementation
// ──────────────────────────────────────────────────────────────────────────────

// Transfer sends amount of currency from the admin wallet via the platform's
// Move entry point and returns the digest.
func (g *SuiGateway) Transfer(ctx context.Context, to string, amount decimal.Decimal, currency domain.Currency) (string, error) {
	coin := coinTypeSUI
	units := amount.Mul(mistPerSui)
	if currency == domain.CurrencySBETS {
		coin = coinTypeSBETS
		units = amount // SBETS has no sub-unit scaling
	}

	var resp struct {
		Digest string `json:"digest"`
		Effects struct {
			Status struct {
				Status string `json:"status"`
			} `json:"status"`
		} `json:"effects"`
	}
	err := g.rpc(ctx, "unsafe_paySui", []interface{}{
		g.cfg.AdminAddress,
		[]string{}, // input coins resolved by the node
		[]string{to},
		[]string{units.Truncate(0).String()},
		coin,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("chain.Transfer: %w", err)
	}
	if resp.Effects.Status.Status == "failure" {
		return "", fmt.Errorf("chain.Transfer: transaction failed on chain")
	}
	return resp.Digest, nil
}

// VerifyTransaction looks up a transaction digest.
func (g *SuiGateway) VerifyTransaction(ctx context.Context, txHash string) (*Verified, error) {
	var resp struct {
		Digest  string `json:"digest"`
		Effects struct {
			Status struct {
				Status string `json:"status"`
			} `json:"status"`
		} `json:"effects"`
		BalanceChanges []struct {
			Owner struct {
				AddressOwner string `json:"AddressOwner"`
			} `json:"owner"`
			CoinType string `json:"coinType"`
			Amount   string `json:"amount"`
		} `json:"balanceChanges"`
	}
	err := g.rpc(ctx, "sui_getTransactionBlock", []interface{}{
		txHash,
		map[string]bool{"showEffects": true, "showBalanceChanges": true},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("chain.VerifyTransaction: %w", err)
	}

	v := &Verified{
		TxHash:    resp.Digest,
		Confirmed: resp.Effects.Status.Status == "success",
	}
	for _, ch := range resp.BalanceChanges {
		raw, perr := strconv.ParseInt(ch.Amount, 10, 64)
		if perr != nil || raw >= 0 {
			continue
		}
		// The negative change identifies the sender side.
		v.Sender = ch.Owner.AddressOwner
		amt := decimal.NewFromInt(-raw)
		if ch.CoinType == coinTypeSUI {
			v.Currency = domain.CurrencySUI
			v.Amount = amt.Div(mistPerSui)
		} else {
			v.Currency = domain.CurrencySBETS
			v.Amount = amt
		}
	}
	return v, nil
}

// Balance reads a wallet's balance in the given currency.
func (g *SuiGateway) Balance(ctx context.Context, wallet string, currency domain.Currency) (decimal.Decimal, error) {
	coin := coinTypeSUI
	if currency == domain.CurrencySBETS {
		coin = coinTypeSBETS
	}
	var resp struct {
		TotalBalance string `json:"totalBalance"`
	}
	if err := g.rpc(ctx, "suix_getBalance", []interface{}{wallet, coin}, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("chain.Balance: %w", err)
	}
	total, err := decimal.NewFromString(resp.TotalBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain.Balance: parse %q: %w", resp.TotalBalance, err)
	}
	if currency == domain.CurrencySUI {
		total = total.Div(mistPerSui)
	}
	return total, nil
}

// State reads the betting contract's treasury and liability fields.
func (g *SuiGateway) State(ctx context.Context) (*ContractState, error) {
	var resp struct {
		Data struct {
			Content struct {
				Fields struct {
					TreasurySui    string `json:"treasury_sui"`
					TreasurySbets  string `json:"treasury_sbets"`
					LiabilitySui   string `json:"liability_sui"`
					LiabilitySbets string `json:"liability_sbets"`
				} `json:"fields"`
			} `json:"content"`
		} `json:"data"`
	}
	err := g.rpc(ctx, "sui_getObject", []interface{}{
		g.cfg.TreasuryObject,
		map[string]bool{"showContent": true},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("chain.State: %w", err)
	}

	f := resp.Data.Content.Fields
	state := &ContractState{}
	var perr error
	if state.TreasurySUI, perr = parseMist(f.TreasurySui); perr != nil {
		return nil, fmt.Errorf("chain.State: treasury_sui: %w", perr)
	}
	if state.TreasurySBETS, perr = parseUnits(f.TreasurySbets); perr != nil {
		return nil, fmt.Errorf("chain.State: treasury_sbets: %w", perr)
	}
	if state.LiabilitySUI, perr = parseMist(f.LiabilitySui); perr != nil {
		return nil, fmt.Errorf("chain.State: liability_sui: %w", perr)
	}
	if state.LiabilitySBETS, perr = parseUnits(f.LiabilitySbets); perr != nil {
		return nil, fmt.Errorf("chain.State: liability_sbets: %w", perr)
	}
	return state, nil
}

// Holders fetches one page of SBETS holders from the holders API.
func (g *SuiGateway) Holders(ctx context.Context, page int) (*HoldersPage, error) {
	url := fmt.Sprintf("%s?page=%d", g.cfg.HoldersURL, page)
	body, err := g.doGet(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("chain.Holders: %w", err)
	}

	var resp struct {
		TotalSupply string `json:"totalSupply"`
		HasMore     bool   `json:"hasMore"`
		Holders     []struct {
			Address string `json:"address"`
			Balance string `json:"balance"`
		} `json:"holders"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("chain.Holders: parse: %w", err)
	}

	supply, err := decimal.NewFromString(resp.TotalSupply)
	if err != nil || supply.IsZero() {
		return nil, fmt.Errorf("chain.Holders: bad total supply %q", resp.TotalSupply)
	}

	out := &HoldersPage{TotalSupply: supply, HasMore: resp.HasMore}
	hundred := decimal.NewFromInt(100)
	for _, h := range resp.Holders {
		bal, perr := decimal.NewFromString(h.Balance)
		if perr != nil {
			continue
		}
		out.Holders = append(out.Holders, domain.Holder{
			Wallet:     domain.NormalizeWallet(h.Address),
			Balance:    bal,
			Percentage: bal.Div(supply).Mul(hundred),
		})
	}
	return out, nil
}

// WithdrawTreasury moves SBETS from the staking treasury object to the admin
// wallet; step one of the staking payout path.
func (g *SuiGateway) WithdrawTreasury(ctx context.Context, amount decimal.Decimal) (string, error) {
	var resp struct {
		Digest string `json:"digest"`
	}
	err := g.rpc(ctx, "unsafe_moveCall", []interface{}{
		g.cfg.AdminAddress,
		g.cfg.PackageID,
		"staking",
		"withdraw_treasury",
		[]string{},
		[]interface{}{g.cfg.TreasuryObject, amount.Truncate(0).String()},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("chain.WithdrawTreasury: %w", err)
	}
	return resp.Digest, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Transport helpers
// ──────────────────────────────────────────────────────────────────────────────

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// rpc performs one JSON-RPC call and unmarshals the result into out.
func (g *SuiGateway) rpc(ctx context.Context, method string, params []interface{}, out interface{}) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      g.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.RPCURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var rpcResp rpcResponse
	if err = json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc %s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	g.logger.Debug("sui rpc", "method", method, "took", time.Since(start).Round(time.Millisecond))

	if out != nil {
		if err = json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("parse result: %w", err)
		}
	}
	return nil
}

// doGet performs an HTTP GET and returns the body bytes, or an error for any
// non-200 status code.
func (g *SuiGateway) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "suibets/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parseMist(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Div(mistPerSui), nil
}

func parseUnits(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
