package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/glance/internal/config"
	"github.com/felixgeelhaar/glance/internal/credential"
	"github.com/felixgeelhaar/glance/internal/observe"
	"github.com/felixgeelhaar/glance/internal/store"
	"github.com/felixgeelhaar/glance/internal/ui"
)

func openStore(dir string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(
		filepath.Join(dir, "metadata.db"),
		filepath.Join(dir, "artifacts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}
	return st, nil
}

// loadSettings resolves file and environment settings, opens the store they
// point at and applies the values stored there.
func loadSettings() (*config.Settings, *store.SQLiteStore, error) {
	base, err := config.Load(config.Options{File: configFile, EnvFile: envFile})
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore(base.Store.Dir)
	if err != nil {
		return nil, nil, err
	}

	vault, err := credential.NewVault()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	stored, err := vault.Reveal(st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	settings, err := config.Load(config.Options{File: configFile, EnvFile: envFile, Overrides: stored})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return settings, st, nil
}

func newObserver(cmd *cobra.Command) *observe.Observer {
	if jsonLogs {
		return observe.NewJSON(cmd.ErrOrStderr(), verbose)
	}
	return observe.New(cmd.ErrOrStderr(), verbose)
}

// withRunner builds a Runner for cmd, runs fn and releases everything.
func withRunner(cmd *cobra.Command, fn func(*Runner) error) error {
	obs := newObserver(cmd)
	defer obs.Close()

	settings, st, err := loadSettings()
	if err != nil {
		return err
	}
	defer st.Close()

	filters, err := flagFilters()
	if err != nil {
		return err
	}

	r := NewRunner(obs, st, settings, ui.Printer{Out: cmd.ErrOrStderr(), Verbose: verbose})
	r.Out = cmd.OutOrStdout()
	r.Filters = filters
	r.Pages = pages
	return fn(r)
}
