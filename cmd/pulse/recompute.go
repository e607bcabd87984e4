package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuvraj-bhatia/virio-pulse/internal/services"
)

type recomputeOptions struct {
	clientID   string
	rangeDays  int
	allClients bool
	parallel   int
}

func newRecomputeCmd(root *rootOptions) *cobra.Command {
	opts := &recomputeOptions{}
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild attribution rollups",
		Long: "Rebuild attribution rollups for one client (one range, or 7, 30 and 90 days when --range is omitted) " +
			"or for every client with --all-clients.",
		Example: "  pulse recompute --client 141add05-4415-4938-b5a1-17e0d3171aff --range 30\n" +
			"  pulse recompute --all-clients --parallel 8",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return runRecompute(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.clientID, "client", "", "client id to recompute")
	cmd.Flags().IntVar(&opts.rangeDays, "range", 0, "window in days (7, 30 or 90); all three when omitted")
	cmd.Flags().BoolVar(&opts.allClients, "all-clients", false, "recompute every client")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0, "clients recomputed concurrently (default RECOMPUTE_PARALLELISM)")

	return cmd
}

func (o *recomputeOptions) validate() error {
	switch {
	case o.clientID == "" && !o.allClients:
		return errors.New("one of --client or --all-clients is required")
	case o.clientID != "" && o.allClients:
		return errors.New("--client and --all-clients are mutually exclusive")
	case o.allClients && o.rangeDays != 0:
		return errors.New("--range applies to --client only")
	case o.parallel < 0:
		return errors.New("--parallel must be >= 0")
	}
	return nil
}

func runRecompute(cmd *cobra.Command, root *rootOptions, opts *recomputeOptions) error {
	cfg, err := root.load(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	db, err := root.openDB(cfg)
	if err != nil {
		return err
	}
	svc := newService(db, cfg)

	if !opts.allClients {
		var results []services.RecomputeResult
		if opts.rangeDays == 0 {
			results, err = svc.RecomputeAll(ctx, opts.clientID)
		} else {
			var res services.RecomputeResult
			res, err = svc.Recompute(ctx, opts.clientID, opts.rangeDays)
			results = []services.RecomputeResult{res}
		}
		if err != nil {
			return fmt.Errorf("recompute %s: %w", opts.clientID, err)
		}
		return printResults(cmd.OutOrStdout(), []services.ClientRecompute{{ClientID: opts.clientID, Results: results}})
	}

	ids, err := svc.ClientIDs(ctx)
	if err != nil {
		return err
	}
	parallel := opts.parallel
	if parallel == 0 {
		parallel = cfg.Attribution.Parallelism
	}
	outs, runErr := svc.RecomputeClients(ctx, ids, parallel)
	if err := printResults(cmd.OutOrStdout(), outs); err != nil {
		return err
	}
	if runErr != nil {
		failed := 0
		for _, o := range outs {
			if o.Err != nil {
				failed++
			}
		}
		return fmt.Errorf("%d of %d clients failed: %w", failed, len(ids), runErr)
	}
	return nil
}

// printResults writes one row per (client, range); failed clients get one
// row carrying the error.
func printResults(w io.Writer, outs []services.ClientRecompute) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tRANGE\tROWS\tCOMPUTED_AT")
	for _, o := range outs {
		if o.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\terror: %v\n", o.ClientID, o.Err)
			continue
		}
		for _, r := range o.Results {
			fmt.Fprintf(tw, "%s\t%dd\t%d\t%s\n", o.ClientID, r.RangeDays, r.Rows, r.ComputedAt.UTC().Format(time.RFC3339))
		}
	}
	return tw.Flush()
}
