package payroll

import (
	"fmt"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/auth"
	"github.com/payhatch/payhatch/internal/chrono"
	"github.com/payhatch/payhatch/internal/engine"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/ledger"
	"github.com/payhatch/payhatch/internal/vault"
)

// Config is the one-time wiring for a payroll system.
//
// All cross-component references are fixed here, at construction: the vault
// learns the engine's account, the engine learns the facade's control
// state, and the ledger allow-lists the engine. None of these can be
// re-pointed after Wire returns.
type Config struct {
	// Owner is the administrative account for every owner-only operation.
	Owner asset.Account

	// EngineAccount and VaultAccount are the holding identities the two
	// components use with the value-transfer collaborators.
	EngineAccount asset.Account
	VaultAccount  asset.Account

	// Reference is the asset compensation is denominated in, pinned at
	// rate 1. It must appear in Tokens.
	Reference asset.ID

	// Tokens maps every wired asset, including the native pseudo-ID, to
	// its value-transfer collaborator.
	Tokens map[asset.ID]asset.Token

	// Clock defaults to the system clock.
	Clock chrono.Clock

	// TokenGen defaults to UUIDv7 call tokens.
	TokenGen event.TokenGenerator

	// Sinks receive committed notifications.
	Sinks []event.Sink
}

// System is a fully wired payroll: the facade plus its components, exposed
// for tests and operator tooling. External callers use the Facade.
type System struct {
	Policy   *auth.Policy
	Recorder *event.Recorder
	Registry *asset.Registry
	Store    *ledger.Store
	Vault    *vault.Vault
	Engine   *engine.Engine
	Facade   *Payroll
}

// Wire constructs and cross-links a payroll system.
//
// Fails closed on incomplete configuration: a system missing its owner,
// holding accounts, reference asset, or native token never comes up.
func Wire(cfg Config) (*System, error) {
	if cfg.Owner.IsZero() {
		return nil, fmt.Errorf("wire: owner account is required")
	}
	if cfg.EngineAccount.IsZero() || cfg.VaultAccount.IsZero() {
		return nil, fmt.Errorf("wire: engine and vault holding accounts are required")
	}
	if cfg.EngineAccount == cfg.VaultAccount {
		return nil, fmt.Errorf("wire: engine and vault must use distinct holding accounts")
	}
	if cfg.Reference.IsZero() {
		return nil, fmt.Errorf("wire: reference asset is required")
	}
	if _, ok := cfg.Tokens[cfg.Reference]; !ok {
		return nil, fmt.Errorf("wire: reference asset %q has no token", cfg.Reference)
	}
	if _, ok := cfg.Tokens[asset.Native]; !ok {
		return nil, fmt.Errorf("wire: native asset has no token")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = chrono.SystemClock{}
	}
	gen := cfg.TokenGen
	if gen == nil {
		gen = event.UUIDv7Generator{}
	}

	policy := auth.NewPolicy(cfg.Owner)
	rec := event.NewRecorder(clock, event.NewSequencer(), gen, cfg.Sinks...)
	registry := asset.NewRegistry(cfg.Tokens)
	store := ledger.NewStore(policy, rec)
	v := vault.New(policy, rec, clock, registry, cfg.VaultAccount)
	eng := engine.New(policy, rec, clock, registry, store, v, cfg.EngineAccount, cfg.Reference)
	facade := New(policy, rec, store, eng, v)

	if err := v.SetPayment(cfg.Owner, eng.Account()); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	if err := eng.BindControl(cfg.Owner, facade); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}

	// The allow-list grant is itself an audited operation.
	if err := facade.SetAllowedContract(cfg.Owner, eng.Account()); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}

	return &System{
		Policy:   policy,
		Recorder: rec,
		Registry: registry,
		Store:    store,
		Vault:    v,
		Engine:   eng,
		Facade:   facade,
	}, nil
}
