// Package appstate groups the gateway's process-wide shared state into a
// single value, the way original_source/src/state.rs does, instead of
// threading a GitHub client, store handle, signer and detector separately
// through every handler (spec.md §9).
package appstate

import (
	"context"
	"net/http"

	"github.com/ralt/pkgrelay/internal/config"
	"github.com/ralt/pkgrelay/internal/repository"
	"github.com/ralt/pkgrelay/internal/signer"
	"github.com/ralt/pkgrelay/internal/store"
	"github.com/ralt/pkgrelay/internal/upstream"
)

const aptCatalogURL = "https://repology.org/api/v1/project/apt"

// State bundles everything constructed once at bootstrap and shared,
// read-mostly, across every request.
type State struct {
	Config     *config.Config
	Store      *store.Store
	Signer     *signer.GPGSigner
	Repository *repository.Repository
}

// New wires config, store, upstream client and signer together, generating
// a signing key on first boot and persisting it for subsequent restarts.
func New(ctx context.Context, cfg *config.Config) (*State, error) {
	st, err := store.Connect(ctx, cfg.MongoURI(), "pkgrelay")
	if err != nil {
		return nil, err
	}

	sign, err := loadOrGenerateSigner(ctx, st, cfg.SignPassphrase)
	if err != nil {
		return nil, err
	}

	httpClient := http.DefaultClient
	up := upstream.New(cfg.GitHubPAT, httpClient)
	repo := repository.New(up, st, nil)

	detector, err := repository.Initialize(ctx, httpClient, aptCatalogURL)
	if err != nil {
		return nil, err
	}
	repo.SetDetector(detector)

	return &State{Config: cfg, Store: st, Signer: sign, Repository: repo}, nil
}

func loadOrGenerateSigner(ctx context.Context, st *store.Store, passphrase string) (*signer.GPGSigner, error) {
	armored, err := st.LoadSigningKey(ctx)
	if err != nil {
		return nil, err
	}
	if armored != nil {
		return signer.LoadSigner(armored, passphrase)
	}

	sign, err := signer.GenerateSigner()
	if err != nil {
		return nil, err
	}
	privateKey, err := sign.ArmoredPrivateKey()
	if err != nil {
		return nil, err
	}
	if err := st.SaveSigningKey(ctx, privateKey); err != nil {
		return nil, err
	}
	return sign, nil
}

// Close releases the store's connection pool on shutdown.
func (s *State) Close(ctx context.Context) error {
	return s.Store.Close(ctx)
}
