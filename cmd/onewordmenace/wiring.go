package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/config"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger/firestore"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger/postgres"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger/sqlite"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/reddit"
)

// openStore opens the ledger backend named in lc.
func openStore(ctx context.Context, lc config.LedgerConfig) (ledger.Store, error) {
	switch lc.Backend {
	case config.BackendFile, "":
		return ledger.OpenFileStore(lc.Path)
	case config.BackendSQLite:
		path := lc.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "ledger.db")
		}
		return sqlite.Open(path)
	case config.BackendPostgres:
		return postgres.Open(ctx, lc.DatabaseURL)
	case config.BackendFirestore:
		return firestore.Open(ctx, lc.FirestoreProject, lc.FirestoreCollection)
	case config.BackendMemory:
		return ledger.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", lc.Backend)
	}
}

func newRedditClient(ctx context.Context, o *rootOptions) *reddit.Client {
	rc := o.cfg.Reddit
	opts := []reddit.Option{reddit.WithLogger(o.logger)}
	if rc.BaseURL != "" {
		opts = append(opts, reddit.WithBaseURL(rc.BaseURL))
	}
	return reddit.New(ctx, reddit.Credentials{
		ClientID:     rc.ClientID,
		ClientSecret: rc.ClientSecret,
		RefreshToken: rc.RefreshToken,
		UserAgent:    rc.UserAgent,
	}, opts...)
}
