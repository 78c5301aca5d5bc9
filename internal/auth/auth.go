// Package auth implements the access-control policy consulted at the top of
// every mutating payroll operation.
//
// Each component owns a Policy instance: an owner account fixed at
// construction plus an optional allow-list of service accounts granted
// mutation rights (the ledger store trusts exactly its allow-list and its
// owner). Checks return typed faults so callers surface a uniform
// AUTHORIZATION rejection.
package auth

import (
	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/fault"
)

// Policy is an owner plus an allow-list of privileged service accounts.
//
// The zero Policy denies everything; construct with NewPolicy.
type Policy struct {
	owner   asset.Account
	allowed map[asset.Account]bool
}

// NewPolicy creates a policy with the given owner and an empty allow-list.
func NewPolicy(owner asset.Account) *Policy {
	return &Policy{
		owner:   owner,
		allowed: make(map[asset.Account]bool),
	}
}

// Owner returns the owner account.
func (p *Policy) Owner() asset.Account {
	return p.owner
}

// Allow replaces the allow-list with the given accounts.
// Owner-only: the grant itself is access-controlled.
func (p *Policy) Allow(caller asset.Account, accounts ...asset.Account) error {
	if err := p.RequireOwner(caller, "setAllowedContract"); err != nil {
		return err
	}
	p.allowed = make(map[asset.Account]bool, len(accounts))
	for _, a := range accounts {
		if a.IsZero() {
			return fault.Validationf("setAllowedContract", "zero account in allow-list")
		}
		p.allowed[a] = true
	}
	return nil
}

// RequireOwner fails unless caller is the owner.
func (p *Policy) RequireOwner(caller asset.Account, op string) error {
	if caller != p.owner || caller.IsZero() {
		return fault.Authorizationf(op, "caller %q is not the owner", caller)
	}
	return nil
}

// RequireOwnerOrAllowed fails unless caller is the owner or on the
// allow-list.
func (p *Policy) RequireOwnerOrAllowed(caller asset.Account, op string) error {
	if caller == p.owner && !caller.IsZero() {
		return nil
	}
	if p.allowed[caller] {
		return nil
	}
	return fault.Authorizationf(op, "caller %q is neither owner nor allow-listed", caller)
}

// RequireSelf fails unless caller is exactly the given account.
// Used for self-only operations (the employee acting on their own record).
func RequireSelf(caller, want asset.Account, op string) error {
	if caller.IsZero() || caller != want {
		return fault.Authorizationf(op, "caller %q is not the affected account", caller)
	}
	return nil
}
