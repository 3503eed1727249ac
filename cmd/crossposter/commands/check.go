package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crossposter/internal/adapters/publish"
	"crossposter/internal/adapters/telegram"
	"crossposter/internal/platform/config"
)

func newCheckCmd() *cobra.Command {
	var ping bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and list the enabled publishers in report order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return check(cmd.Context(), cmd.OutOrStdout(), config.New(), ping)
		},
	}
	cmd.Flags().BoolVar(&ping, "ping", false, "also call getMe with the bot token")
	return cmd
}

func check(ctx context.Context, out io.Writer, root config.Conf, ping bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := loadSettings(root)
	if err != nil {
		return err
	}
	pubs, err := publish.Build(s.Crosspost.Publishers, publish.FromConfig(root))
	if err != nil {
		return err
	}
	names := make([]string, 0, len(pubs))
	for _, p := range pubs {
		names = append(names, p.Name())
	}
	ledger := "off"
	if s.Crosspost.Ledger {
		ledger = "postgres"
	}

	w := func(k, v string) { _, _ = fmt.Fprintf(out, "%-12s %s\n", k+":", v) }
	w("tag", s.Crosspost.Tag)
	w("threshold", fmt.Sprintf("%d approvals within %s", s.Crosspost.Threshold, s.Crosspost.ExpiryWindow))
	w("ingestion", s.Telegram.Mode)
	w("ledger", ledger)
	w("publishers", strings.Join(names, ", "))

	if !ping {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	me, err := telegram.NewClient(s.Telegram, nil).GetMe(pctx)
	if err != nil {
		return err
	}
	w("bot", "@"+me.Username)
	return nil
}
