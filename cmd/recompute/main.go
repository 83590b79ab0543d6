// Command recompute runs one recompute and reconcile pass against the
// configured store and prints the resulting leaderboard.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	app "github.com/okian/festboard/internal/app"
	"github.com/okian/festboard/internal/config"
	"github.com/okian/festboard/internal/domain/types"
	"github.com/okian/festboard/pkg/logger"
)

type output struct {
	Written     int           `json:"written"`
	Skipped     int           `json:"skipped"`
	Failed      []string      `json:"failed"`
	Leaderboard []types.Entry `json:"leaderboard"`
}

func main() {
	asJSON := flag.Bool("json", false, "Print the report as JSON")
	dryRun := flag.Bool("dry-run", false, "Compute totals without writing them")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, *asJSON, *dryRun); err != nil {
		os.Stderr.WriteString("recompute: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, asJSON, dryRun bool) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWithWriter(os.Stderr, cfg.LogFormat == "json"); err != nil {
		return err
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	svc, err := app.FromConfig(ctx, cfg, logger.Get())
	if err != nil {
		return err
	}
	return recompute(ctx, svc, w, asJSON, dryRun)
}

func recompute(ctx context.Context, svc *app.Service, w io.Writer, asJSON, dryRun bool) error {
	var out output
	if dryRun {
		entries, err := svc.Standings(ctx)
		if err != nil {
			return err
		}
		out.Leaderboard = entries
	} else {
		// Start registers known teams and runs the pass.
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer svc.Stop()

		report, err := svc.Recompute(ctx)
		out.Written, out.Skipped, out.Failed = report.Written, report.Skipped, report.FailedTeams()
		if err != nil {
			_ = write(w, out, asJSON)
			return err
		}
		if out.Leaderboard, err = svc.Leaderboard(ctx, 0); err != nil {
			return err
		}
	}
	return write(w, out, asJSON)
}

func write(w io.Writer, out output, asJSON bool) error {
	if out.Failed == nil {
		out.Failed = []string{}
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "written=%d skipped=%d failed=%d\n", out.Written, out.Skipped, len(out.Failed))
	for _, team := range out.Failed {
		fmt.Fprintf(w, "  not written: %s\n", team)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTEAM\tTOTAL")
	for _, e := range out.Leaderboard {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", e.Rank, e.Team, e.Total)
	}
	return tw.Flush()
}
