package main

import (
	"github.com/spf13/cobra"
)

func newRunsCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent analysis runs from the audit database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, store, err := c.openAudit()
			if err != nil {
				return err
			}
			defer closeDB(c, db)

			runs, err := store.ListRecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			printf(cmd, "%-36s %-8s %-9s %-7s %-8s %-20s %s\n", "ID", "VARIANT", "STATE", "CHUNKS", "DEGRADED", "STARTED", "REQUEST")
			for _, r := range runs {
				printf(cmd, "%-36s %-8s %-9s %-7d %-8d %-20s %s\n",
					r.ID, r.Variant, r.State, r.Chunks, r.Degraded, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Request)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")

	cmd.AddCommand(newRunsShowCmd(c))
	return cmd
}

func newRunsShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show every prompt and response of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := c.openAudit()
			if err != nil {
				return err
			}
			defer closeDB(c, db)

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			exchanges, err := store.ListExchanges(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			printf(cmd, "Run %s: %s, %s\n", run.ID, run.Variant, run.State)
			printf(cmd, "Request: %s\n", run.Request)
			if run.Reason != "" {
				printf(cmd, "Reason: %s\n", run.Reason)
			}
			for _, ex := range exchanges {
				status := "ok"
				if ex.Degraded {
					status = "degraded"
				}
				printf(cmd, "\n--- %s #%d (%s, %dms)\n", ex.Stage, ex.Index, status, ex.LatencyMS)
				printf(cmd, ">>> prompt\n%s\n<<< response\n%s\n", ex.Prompt, ex.Response)
			}
			return nil
		},
	}
}
