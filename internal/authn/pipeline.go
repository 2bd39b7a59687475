package authn

import (
	"context"
	"fmt"
)

// Code is the result code of an authentication attempt.
type Code int

const (
	CodeOK Code = iota
	CodeBadName
	CodeBadPassword
	CodeNoPermission
	CodeCustomText
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeBadName:
		return "BadName"
	case CodeBadPassword:
		return "BadPassword"
	case CodeNoPermission:
		return "NoPermission"
	case CodeCustomText:
		return "CustomText"
	default:
		return "Unknown"
	}
}

// Request carries one login attempt.
type Request struct {
	Name           string
	Password       string
	CapabilityBits uint32
	VersionInfo    uint32
}

// Result is what Authenticate produces; it drives the player session's
// transition out of NeedAuth.
type Result struct {
	Code          Code
	CustomText    string
	Authenticated bool
	SendName      string
}

// Authenticator is one policy in the auth stack. Implementations
// must not promote the session themselves — only the pipeline does,
// based on the aggregate Result.
type Authenticator interface {
	Authenticate(ctx context.Context, req Request) (Result, error)
}

// Pipeline holds a configured, ordered stack of Authenticators. Only
// the first Authenticator in the stack answers a request (see
// Authenticate); later entries are not consulted. A non-OK code ends
// the request with no session promotion.
type Pipeline struct {
	stack []Authenticator
}

// NewPipeline builds a Pipeline from an ordered authenticator stack.
func NewPipeline(stack ...Authenticator) *Pipeline {
	return &Pipeline{stack: stack}
}

// Authenticate hands the request to the first configured authenticator.
// Only one policy answers a given request: the billing authenticator
// (when configured) owns its own password-file fallback internally for
// when its connection is down, rather than the pipeline layering
// policies on top of each other.
func (p *Pipeline) Authenticate(ctx context.Context, req Request) (Result, error) {
	if len(p.stack) == 0 {
		return Result{Code: CodeNoPermission}, fmt.Errorf("authn: empty authenticator stack")
	}

	res, err := p.stack[0].Authenticate(ctx, req)
	if err != nil {
		return Result{Code: CodeNoPermission}, fmt.Errorf("authn: authenticator failed: %w", err)
	}
	return res, nil
}

// passwordValue is the raw value stored for a user in the password
// mapping.
type passwordValue string

const (
	valueLock passwordValue = "lock"
	valueAny  passwordValue = "any"
)

// EvaluatePasswordEntry applies the value-semantics rules for a
// password-file-style entry: "lock", "any", or an encoded digest to
// compare against the computed one.
func EvaluatePasswordEntry(stored string, computed string, allowUnknown, present bool) Result {
	if !present {
		if allowUnknown {
			return Result{Code: CodeOK}
		}
		return Result{Code: CodeNoPermission}
	}

	switch passwordValue(stored) {
	case valueLock:
		return Result{Code: CodeNoPermission}
	case valueAny:
		return Result{Code: CodeOK, Authenticated: false}
	default:
		if stored == computed {
			return Result{Code: CodeOK, Authenticated: true}
		}
		return Result{Code: CodeBadPassword}
	}
}

// MatchResult is the tri-state outcome a billing authenticator's
// fallback comparison produces.
type MatchResult int

const (
	Match MatchResult = iota
	Mismatch
	NotFound
)
