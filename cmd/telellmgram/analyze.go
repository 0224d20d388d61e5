package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgard/telellmgram/internal/analysis"
)

type analyzeFlags struct {
	media    []string
	from     string
	to       string
	sender   string
	keywords []string
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <single|topic|window|trend|user> [question...]",
		Short: "Run an analysis over the corpus",
		Long: `Run one analysis and print the result.

  single  one media, optionally limited to --from/--to
  topic   the messages of several media most relevant to the question
  window  what was discussed in one media between --from and --to
  trend   trending topics of one media between --from and --to
  user    the messages of one group member (--sender)

Dates are dd/mm/yy or dd/mm/yyyy.`,
		Example: `  telellmgram analyze single --media 3 "What do people think about the new law?"
  telellmgram analyze topic --media 1,2,5 "inflation"
  telellmgram analyze trend --media 2 --from 01/03/23 --to 07/03/23`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := analysis.ParseVariant(args[0])
			if err != nil {
				return err
			}
			req, err := flags.request(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			comps, err := c.newComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer comps.Close(c)

			report, err := comps.analyzer.Run(cmd.Context(), variant, req)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), analysis.Explain(err))
				return err
			}

			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&flags.media, "media", nil, "Media id, or a comma separated list for topic analysis")
	cmd.Flags().StringVar(&flags.from, "from", "", "First day of the range (dd/mm/yy)")
	cmd.Flags().StringVar(&flags.to, "to", "", "Last day of the range (dd/mm/yy)")
	cmd.Flags().StringVar(&flags.sender, "sender", "", "Sender id for user analysis")
	cmd.Flags().StringSliceVar(&flags.keywords, "keywords", nil, "Keywords for topic analysis instead of deriving them")
	_ = cmd.MarkFlagRequired("media")

	return cmd
}

func (f analyzeFlags) request(question string) (analysis.Request, error) {
	req := analysis.Request{
		Question: strings.TrimSpace(question),
		Start:    f.from,
		End:      f.to,
		SenderID: f.sender,
		Keywords: f.keywords,
	}
	for _, s := range f.media {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: media id %q is not a number", analysis.ErrInvalidRequest, s)
		}
		req.MediaIDs = append(req.MediaIDs, id)
	}
	return req, nil
}

func printReport(cmd *cobra.Command, r *analysis.Report) {
	names := make([]string, len(r.Media))
	for i, m := range r.Media {
		names[i] = m.Name
	}

	printf(cmd, "Run:      %s (%s)\n", r.RunID, r.Variant)
	printf(cmd, "Media:    %s\n", strings.Join(names, ", "))
	printf(cmd, "Range:    %s\n", r.Range)
	if len(r.Keywords) > 0 {
		note := ""
		if r.KeywordFallback {
			note = " (taken from the question)"
		}
		printf(cmd, "Keywords: %s%s\n", strings.Join(r.Keywords, ", "), note)
	}
	printf(cmd, "Messages: %d in %d chunks, %d mapped, %d degraded\n\n", r.Records, r.Chunks, r.Mapped, r.Degraded)
	printf(cmd, "%s\n", r.Text)
}
