// cmd/pipelinectl/stages.go
package main

import (
	"context"

	"github.com/spf13/cobra"

	"job-matcher/internal/app"
	"job-matcher/internal/pipeline"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Inspect and edit a company's pipeline stages",
}

var stagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stages in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		company, _ := cmd.Flags().GetString("company")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			stages, err := a.Pipeline.ListStages(ctx, company)
			if err != nil {
				return err
			}
			return printJSON(cmd, stages)
		})
	},
}

var stagesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the configured default stages for a company that has none",
	RunE: func(cmd *cobra.Command, _ []string) error {
		company, _ := cmd.Flags().GetString("company")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			stages, err := a.Stages.EnsureDefaultStages(ctx, company)
			if err != nil {
				return err
			}
			return printJSON(cmd, stages)
		})
	},
}

var stagesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Append a stage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return mutate(cmd, pipeline.OpCreate, nil)
	},
}

var stagesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Rename, recolour or make a stage the default",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return mutate(cmd, pipeline.OpUpdate, nil)
	},
}

var stagesDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an empty, non-default stage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return mutate(cmd, pipeline.OpDelete, nil)
	},
}

var stagesReorderCmd = &cobra.Command{
	Use:   "reorder STAGE_ID...",
	Short: "Reorder stages; every stage of the company must be listed once",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, pipeline.OpReorder, args)
	},
}

func mutate(cmd *cobra.Command, op string, ordered []string) error {
	m := stageMutation(cmd, op)
	m.OrderedIDs = ordered
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		stages, err := a.Pipeline.MutateStages(ctx, m)
		if err != nil {
			return err
		}
		return printJSON(cmd, stages)
	})
}

// stageMutation reads only the flags the user set, so update leaves the rest alone.
func stageMutation(cmd *cobra.Command, op string) pipeline.StageMutation {
	flags := cmd.Flags()
	m := pipeline.StageMutation{Operation: op}
	m.CompanyID, _ = flags.GetString("company")
	if flags.Lookup("stage") != nil {
		m.StageID, _ = flags.GetString("stage")
	}
	if flags.Changed("name") {
		name, _ := flags.GetString("name")
		m.Name = &name
	}
	if flags.Changed("color") {
		color, _ := flags.GetString("color")
		m.Color = &color
	}
	if flags.Changed("default") {
		def, _ := flags.GetBool("default")
		m.IsDefault = &def
	}
	return m
}

func init() {
	for _, c := range []*cobra.Command{stagesListCmd, stagesSeedCmd, stagesCreateCmd, stagesUpdateCmd, stagesDeleteCmd, stagesReorderCmd} {
		c.Flags().String("company", "", "company id")
		_ = c.MarkFlagRequired("company")
		stagesCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{stagesCreateCmd, stagesUpdateCmd} {
		c.Flags().String("name", "", "stage name")
		c.Flags().String("color", "", "display colour")
		c.Flags().Bool("default", false, "make this the default stage for new applications")
	}
	for _, c := range []*cobra.Command{stagesUpdateCmd, stagesDeleteCmd} {
		c.Flags().String("stage", "", "stage id")
		_ = c.MarkFlagRequired("stage")
	}
	_ = stagesCreateCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(stagesCmd)
}
