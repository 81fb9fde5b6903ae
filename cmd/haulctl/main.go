// Command haulctl is the operator CLI: schema migrations, outbox inspection
// and manual sync.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
	"github.com/MrJamesThe3rd/haulbook/internal/config"
	"github.com/MrJamesThe3rd/haulbook/internal/logging"
	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

// app carries what every subcommand needs. cfg is loaded in the root
// PersistentPreRunE.
type app struct {
	cfg *config.Config
}

func (a *app) openOutbox() (*outbox.Store, error) {
	return outbox.Open(a.cfg.Client.OutboxPath, outbox.WithLeaseTTL(a.cfg.Client.LeaseTTL))
}

func (a *app) newEngine(store *outbox.Store) *syncer.Engine {
	client := apiclient.New(apiclient.Config{
		BaseURL: a.cfg.Client.APIURL,
		Token:   a.cfg.Client.APIToken,
		Timeout: a.cfg.Client.RequestTimeout,
	})

	return syncer.New(store, client, syncer.Options{
		PollInterval: a.cfg.Client.PollInterval,
		Prober:       client,
	})
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "haulctl",
		Short:         "Operate a haulbook installation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
			a.cfg = cfg

			return nil
		},
	}

	root.AddCommand(migrateCmd(a))
	root.AddCommand(queueCmd(a))
	root.AddCommand(syncCmd(a))
	root.AddCommand(tokenCmd(a))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "haulctl:", err)
		os.Exit(1)
	}
}
