package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/store/sqlitestore"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Annotation store utilities",
	}
	storeCmd.AddCommand(newStoreInitCommand(ctx))
	return storeCmd
}

func newStoreInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the corpus, layers, queues, and robot principals the robots expect",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.logger("store")
			if err != nil {
				return err
			}
			st, err := sqlitestore.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			cat, err := catalog.Ensure(cmd.Context(), st, cfg, logger)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"corpus", cat.Corpus.Name, cat.Corpus.ID},
				{"layer", cat.SubmissionShot.Name, cat.SubmissionShot.ID},
				{"layer", cat.EvidenceAll.Name, cat.EvidenceAll.ID},
				{"layer", cat.Mugshot.Name, cat.Mugshot.ID},
				{"layer", cat.Consensus.Name, cat.Consensus.ID},
				{"layer", cat.Unknown.Name, cat.Unknown.ID},
				{"layer", cat.LabelAll.Name, cat.LabelAll.ID},
			}
			for _, q := range queueList(cat) {
				rows = append(rows, []string{"queue", q.Name, q.ID})
			}
			rows = append(rows,
				[]string{"user", cat.RobotEvidence.Name, cat.RobotEvidence.ID},
				[]string{"user", cat.RobotLabel.Name, cat.RobotLabel.ID},
			)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Kind", "Name", "ID"}, rows, nil))
			fmt.Fprintf(out, "Store ready at %s\n", cfg.Store.Path)
			return nil
		},
	}
}
