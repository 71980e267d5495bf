package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"persondiscovery/internal/leaderboard"
	"persondiscovery/internal/robot"
)

func newLeaderboardCommand(ctx *commandContext) *cobra.Command {
	leaderboardCmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Leaderboard utilities",
	}
	leaderboardCmd.AddCommand(newLeaderboardShowCommand(ctx))
	return leaderboardCmd
}

func newLeaderboardShowCommand(ctx *commandContext) *cobra.Command {
	var viewer string
	var combined bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Score submissions now and print the leaderboard without publishing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(cmd.Context(), "leaderboard", func(env *robot.Env) error {
				board, err := leaderboard.New(env).Score(cmd.Context())
				if err != nil {
					return err
				}
				principals := env.Config.Principals
				as := strings.TrimSpace(viewer)
				if as == "" {
					as = principals.Organizer
				}
				view := leaderboard.View(board.Runs, as, principals)
				entries := view.Primary
				if combined {
					entries = view.Combined
				}

				rows := make([][]string, 0, len(entries))
				for i, entry := range entries {
					rows = append(rows, []string{strconv.Itoa(i + 1), entry.Team, entry.Run, entry.MAP})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"Rank", "Team", "Run", "MAP"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				))
				fmt.Fprintf(out, "%d queries over %d shots\n", board.Queries, board.Shots)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&viewer, "as", "", "Show the view of this team group (default: organizer)")
	cmd.Flags().BoolVar(&combined, "combined", false, "Show every run instead of primary runs only")
	return cmd
}
