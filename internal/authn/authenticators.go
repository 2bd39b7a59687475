package authn

import (
	"context"
	"fmt"

	"github.com/ssvr/zoneserver/internal/config"
)

// UserCredentialRepository is the narrow persistence interface the
// password-file authenticator depends on. Concrete implementations
// (Postgres, in-memory for tests) live outside this package.
type UserCredentialRepository interface {
	// Lookup returns the raw stored value for a lower-cased user name
	// ("lock", "any", or an encoded digest) and whether an entry exists.
	Lookup(ctx context.Context, nameLower string) (value string, present bool, err error)
}

// PasswordFileAuthenticator is the password-file policy: the stored
// value for a name is "lock", "any", or an encoded digest.
type PasswordFileAuthenticator struct {
	repo UserCredentialRepository
	cfg  config.AuthConfig
}

// NewPasswordFileAuthenticator constructs the password-file policy.
func NewPasswordFileAuthenticator(repo UserCredentialRepository, cfg config.AuthConfig) *PasswordFileAuthenticator {
	return &PasswordFileAuthenticator{repo: repo, cfg: cfg}
}

// Authenticate implements Authenticator.
func (a *PasswordFileAuthenticator) Authenticate(ctx context.Context, req Request) (Result, error) {
	nameLower := lowerASCII(req.Name)

	value, present, err := a.repo.Lookup(ctx, nameLower)
	if err != nil {
		return Result{}, fmt.Errorf("looking up credentials for %q: %w", nameLower, err)
	}

	computed, err := Digest(req.Name, req.Password, a.cfg.HashAlgorithm, a.cfg.HashEncoding)
	if err != nil {
		return Result{}, fmt.Errorf("computing digest: %w", err)
	}

	res := EvaluatePasswordEntry(value, computed, a.cfg.AllowUnknown, present)
	if res.Code == CodeOK {
		res.SendName = req.Name
	}
	return res, nil
}

// BillingConn is the narrow interface to a (possibly down) billing
// server connection. A real implementation would speak the billing
// wire protocol; that protocol is outside this module's scope, so only
// the shape the authenticator depends on is defined here.
type BillingConn interface {
	// Connected reports whether the billing link is currently up.
	Connected() bool
	// Check asks the billing server to validate credentials, returning
	// its tri-state verdict.
	Check(ctx context.Context, nameLower, password string) (MatchResult, error)
}

// BillingAuthenticator is the billing-server policy: when the billing
// connection is down, it falls back to the password-file authenticator
// using the same Match/Mismatch/NotFound value rules.
type BillingAuthenticator struct {
	conn     BillingConn
	fallback *PasswordFileAuthenticator
}

// NewBillingAuthenticator constructs the billing-backed policy.
func NewBillingAuthenticator(conn BillingConn, fallback *PasswordFileAuthenticator) *BillingAuthenticator {
	return &BillingAuthenticator{conn: conn, fallback: fallback}
}

// Authenticate implements Authenticator.
func (a *BillingAuthenticator) Authenticate(ctx context.Context, req Request) (Result, error) {
	if !a.conn.Connected() {
		return a.fallback.Authenticate(ctx, req)
	}

	nameLower := lowerASCII(req.Name)
	m, err := a.conn.Check(ctx, nameLower, req.Password)
	if err != nil {
		return Result{}, fmt.Errorf("checking billing credentials for %q: %w", nameLower, err)
	}

	switch m {
	case Match:
		return Result{Code: CodeOK, Authenticated: true, SendName: req.Name}, nil
	case Mismatch:
		return Result{Code: CodeBadPassword}, nil
	case NotFound:
		if a.fallback != nil {
			return a.fallback.Authenticate(ctx, req)
		}
	}
	return Result{Code: CodeNoPermission}, nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
