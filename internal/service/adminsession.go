package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/domain"
)

// AdminSessions issues bearer tokens for the admin surface. Tokens live only
// in this process; privileged endpoints also accept the raw password for
// machine callers.
type AdminSessions struct {
	cfg *config.AdminConfig

	mu     sync.Mutex
	tokens map[string]time.Time // token → expiry
}

// NewAdminSessions creates the session store.
func NewAdminSessions(cfg *config.Config) *AdminSessions {
	return &AdminSessions{
		cfg:    &cfg.Admin,
		tokens: make(map[string]time.Time),
	}
}

// Login checks the password and mints a 32-byte session token.
func (a *AdminSessions) Login(password string) (string, error) {
	if !a.passwordOK(password) {
		return "", domain.ErrUnauthorized
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)

	a.mu.Lock()
	a.tokens[token] = time.Now().Add(a.cfg.SessionTTL)
	a.mu.Unlock()
	return token, nil
}

// Authorize accepts either a live session token or the password itself.
func (a *AdminSessions) Authorize(tokenOrPassword string) bool {
	if tokenOrPassword == "" {
		return false
	}
	a.mu.Lock()
	expiry, ok := a.tokens[tokenOrPassword]
	a.mu.Unlock()
	if ok && time.Now().Before(expiry) {
		return true
	}
	return a.passwordOK(tokenOrPassword)
}

// passwordOK compares in constant time and always rejects an unset password.
func (a *AdminSessions) passwordOK(password string) bool {
	if a.cfg.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
}

// Sweep drops expired tokens in one pass. RunSweeper calls it on the
// configured interval (5 minutes by default).
func (a *AdminSessions) Sweep() {
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	for token, expiry := range a.tokens {
		if now.After(expiry) {
			delete(a.tokens, token)
		}
	}
}

// RunSweeper loops Sweep on the configured interval.
func (a *AdminSessions) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}
