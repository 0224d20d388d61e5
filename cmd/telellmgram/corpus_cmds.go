package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/edgard/telellmgram/internal/corpus"
	"github.com/edgard/telellmgram/internal/export"
)

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <export dir|result.json>...",
		Short: "Import Telegram chat exports into the corpus",
		Long: `Convert Telegram Desktop JSON exports into message tables and rewrite the
media index. Media ids are the chat ids found in the exports.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			im := export.NewImporter(c.cfg.Corpus.ImportDir, c.log)
			descs, err := im.Import(cmd.Context(), args)
			if err != nil {
				return err
			}

			printf(cmd, "Imported %d media into %s\n", len(descs), im.IndexPath())
			for _, d := range descs {
				printf(cmd, "%-6d %-8s %s\n", d.ID, d.Kind, d.Name)
			}
			return nil
		},
	}
}

func newMediaCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "media",
		Short: "List the media of the corpus with their message counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			index, records, err := c.openCorpus()
			if err != nil {
				return err
			}
			if index.Len() == 0 {
				printf(cmd, "No media imported\n")
				return nil
			}

			printf(cmd, "%-6s %-8s %-10s %-30s %s\n", "ID", "KIND", "MESSAGES", "NAME", "TABLE")
			for _, d := range index.All() {
				count := "?"
				recs, err := records.RecordsFor(cmd.Context(), d.ID)
				if err != nil {
					c.log.WarnContext(cmd.Context(), "Failed to read message table", "media_id", d.ID, "error", err)
				} else {
					count = strconv.Itoa(len(recs))
				}
				printf(cmd, "%-6d %-8s %-10s %-30s %s\n", d.ID, d.Kind, count, d.Name, d.Source)
			}
			return nil
		},
	}
}

func newMembersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "members <media_id>",
		Short: "List the senders of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("media id %q is not a number", args[0])
			}

			index, records, err := c.openCorpus()
			if err != nil {
				return err
			}
			desc, err := index.Lookup(id)
			if err != nil {
				return err
			}
			if desc.Kind != corpus.Group {
				return fmt.Errorf("media %d is a %s, only groups have members", id, desc.Kind)
			}

			recs, err := records.RecordsFor(cmd.Context(), id)
			if err != nil {
				return err
			}

			printf(cmd, "%-20s %-10s %s\n", "SENDER ID", "MESSAGES", "NAME")
			for _, s := range corpus.Senders(recs) {
				printf(cmd, "%-20s %-10d %s\n", s.ID, s.Messages, s.Name)
			}
			return nil
		},
	}
}
