package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the workflow queues",
	}
	queueCmd.AddCommand(newQueueLengthCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	return queueCmd
}

func newQueueLengthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "length",
		Short: "Show the number of pending items in every queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(cmd.Context(), "queue", func(env *robot.Env) error {
				rows := make([][]string, 0, 6)
				for _, q := range queueList(env.Catalog) {
					n, err := env.Backend.Length(cmd.Context(), q)
					if err != nil {
						return err
					}
					rows = append(rows, []string{q.Name, strconv.Itoa(n)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Queue", "Pending"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <queue>",
		Short: "Show pending items of one queue without removing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			return ctx.withEnv(cmd.Context(), "queue", func(env *robot.Env) error {
				q, ok := findQueue(env.Catalog, name)
				if !ok {
					return fmt.Errorf("unknown queue %q", name)
				}
				items, err := env.Backend.Items(cmd.Context(), q)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintf(out, "%s is empty\n", q.Name)
					return nil
				}
				rows := make([][]string, 0, len(items))
				for i, item := range items {
					if limit > 0 && i >= limit {
						break
					}
					rows = append(rows, []string{strconv.Itoa(i + 1), string(item)})
				}
				fmt.Fprintln(out, renderTable(out, []string{"#", "Item"}, rows, []columnAlignment{alignRight, alignLeft}))
				if len(rows) < len(items) {
					fmt.Fprintf(out, "%d of %d items shown\n", len(rows), len(items))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum items to show (0 for all)")
	return cmd
}

// queueList returns the workflow queues in pipeline order.
func queueList(cat *catalog.Catalog) []store.Queue {
	return []store.Queue{
		cat.Queues.SubmissionIn,
		cat.Queues.SubmissionEvidenceIn,
		cat.Queues.EvidenceIn,
		cat.Queues.EvidenceOut,
		cat.Queues.LabelIn,
		cat.Queues.LabelOut,
	}
}

func findQueue(cat *catalog.Catalog, name string) (store.Queue, bool) {
	for _, q := range queueList(cat) {
		if q.Name == name {
			return q, true
		}
	}
	return store.Queue{}, false
}
