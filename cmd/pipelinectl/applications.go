// cmd/pipelinectl/applications.go
package main

import (
	"context"

	"github.com/spf13/cobra"

	"job-matcher/internal/app"
	"job-matcher/internal/common/database"
	"job-matcher/internal/pipeline"
)

var applicationCmd = &cobra.Command{
	Use:     "application",
	Aliases: []string{"app"},
	Short:   "Create applications and move them through the pipeline",
}

var applicationCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open an application at the company's default stage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var req pipeline.CreateApplicationRequest
		req.CandidateID, _ = cmd.Flags().GetString("candidate")
		req.JobID, _ = cmd.Flags().GetString("job")
		req.Actor, _ = cmd.Flags().GetString("actor")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			created, err := a.Pipeline.CreateApplication(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, created)
		})
	},
}

var applicationMoveCmd = &cobra.Command{
	Use:   "move APPLICATION_ID STAGE_ID",
	Short: "Move an application to another stage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := pipeline.MoveRequest{ApplicationID: args[0], TargetStageID: args[1]}
		req.Actor, _ = cmd.Flags().GetString("actor")
		req.Automatic, _ = cmd.Flags().GetBool("automatic")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Pipeline.Move(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var applicationHistoryCmd = &cobra.Command{
	Use:   "history APPLICATION_ID",
	Short: "Print an application's stage transitions, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			history, err := a.Pipeline.History(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, history)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			applied, err := database.Migrate(ctx, a.DB)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"applied": applied})
		})
	},
}

func init() {
	applicationCreateCmd.Flags().String("candidate", "", "candidate id")
	applicationCreateCmd.Flags().String("job", "", "job id")
	_ = applicationCreateCmd.MarkFlagRequired("candidate")
	_ = applicationCreateCmd.MarkFlagRequired("job")

	for _, c := range []*cobra.Command{applicationCreateCmd, applicationMoveCmd} {
		c.Flags().String("actor", "", "who performs the change (default system)")
	}
	applicationMoveCmd.Flags().Bool("automatic", false, "treat the move as automation; terminal stages are then final")

	applicationCmd.AddCommand(applicationCreateCmd, applicationMoveCmd, applicationHistoryCmd)
	rootCmd.AddCommand(applicationCmd, migrateCmd)
}
