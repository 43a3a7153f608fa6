// cmd/pipelinectl/matches.go
package main

import (
	"context"

	"github.com/spf13/cobra"

	"job-matcher/internal/app"
	"job-matcher/internal/matching"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score, decide and rank candidate/job matches",
}

var matchComputeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Score a candidate against a job from their newest matrices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		candidate, _ := cmd.Flags().GetString("candidate")
		job, _ := cmd.Flags().GetString("job")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Matching.ComputeMatch(ctx, candidate, job)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var matchDecideCmd = &cobra.Command{
	Use:   "decide MATCH_ID shortlist|reject",
	Short: "Shortlist or reject a match",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			m, changed, err := a.Matching.DecideMatch(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"match": m, "changed": changed})
		})
	},
}

var matchRankCmd = &cobra.Command{
	Use:   "rank",
	Short: "List a job's best matches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var q matching.RankQuery
		q.JobID, _ = cmd.Flags().GetString("job")
		q.MinScore, _ = cmd.Flags().GetInt("min-score")
		q.Decision, _ = cmd.Flags().GetString("decision")
		q.Limit, _ = cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			matches, source, err := a.Matching.RankJobMatches(ctx, q)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"source": source, "matches": matches})
		})
	},
}

var matrixCmd = &cobra.Command{
	Use:   "matrix candidate|job ID",
	Short: "Show the newest skill matrix of a candidate or job",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			var (
				v   interface{}
				err error
			)
			switch args[0] {
			case "candidate":
				v, err = a.Matrices.GetCandidateMatrix(ctx, args[1])
			case "job":
				v, err = a.Matrices.GetJobMatrix(ctx, args[1])
			default:
				return cmd.Usage()
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		})
	},
}

func init() {
	matchComputeCmd.Flags().String("candidate", "", "candidate id")
	matchComputeCmd.Flags().String("job", "", "job id")
	_ = matchComputeCmd.MarkFlagRequired("candidate")
	_ = matchComputeCmd.MarkFlagRequired("job")

	matchRankCmd.Flags().String("job", "", "job id")
	matchRankCmd.Flags().Int("min-score", 0, "lowest score to include")
	matchRankCmd.Flags().String("decision", "", "pending, shortlisted or rejected")
	matchRankCmd.Flags().Int("limit", 20, "maximum matches returned (at most 100)")
	_ = matchRankCmd.MarkFlagRequired("job")

	matchCmd.AddCommand(matchComputeCmd, matchDecideCmd, matchRankCmd)
	rootCmd.AddCommand(matchCmd, matrixCmd)
}
