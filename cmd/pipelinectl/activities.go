// cmd/pipelinectl/activities.go
package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"job-matcher/pkg/registry"
)

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Inspect the catalog of BPMN task types served by the worker manager",
}

var activitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List task types",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadActivities(cmd)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TASK TYPE\tCATEGORY\tTIMEOUT\tERROR CODES")
		for _, a := range reg.Activities {
			codes := make([]string, len(a.ErrorCodes))
			for i, c := range a.ErrorCodes {
				codes[i] = string(c)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.TaskType, a.Category, a.Timeout, strings.Join(codes, ","))
		}
		return w.Flush()
	},
}

var activitiesShowCmd = &cobra.Command{
	Use:   "show <task-type>",
	Short: "Show the variables a task type reads and completes with",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadActivities(cmd)
		if err != nil {
			return err
		}
		a, ok := reg.Find(args[0])
		if !ok {
			return fmt.Errorf("unknown task type %q", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n%s\n\n", a.DisplayName, a.Category, a.Description)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DIRECTION\tVARIABLE\tTYPE\tREQUIRED")
		printVariables(w, "in", a.Input)
		printVariables(w, "out", a.Output)
		return w.Flush()
	},
}

func printVariables(w io.Writer, direction string, v registry.Variables) {
	required := make(map[string]bool, len(v.Required))
	for _, name := range v.Required {
		required[name] = true
	}
	names := make([]string, 0, len(v.Properties))
	for name := range v.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", direction, name, v.Properties[name].Type, required[name])
	}
}

var activitiesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog for duplicate task types, bad timeouts and unknown error codes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadActivities(cmd)
		if err != nil {
			return err
		}
		problems := reg.Validate()
		for _, p := range problems {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d problems in activity registry", len(problems))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d activities valid\n", len(reg.Activities))
		return nil
	},
}

func loadActivities(cmd *cobra.Command) (*registry.ActivityRegistry, error) {
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		return registry.Default()
	}
	return registry.LoadRegistry(path)
}

func init() {
	for _, c := range []*cobra.Command{activitiesListCmd, activitiesShowCmd, activitiesValidateCmd} {
		c.Flags().String("path", "", "registry file (default is the built-in catalog)")
		activitiesCmd.AddCommand(c)
	}
	rootCmd.AddCommand(activitiesCmd)
}
