package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"smartstart/internal/app"
	"smartstart/internal/domain"
)

func linkCmd() *cobra.Command {
	link := &cobra.Command{
		Use:   "link",
		Short: "Parent/student links",
		Long:  "A parent requests a link; the student accepts or rejects it. Only accepted links expose summaries.",
	}
	link.AddCommand(linkRequestCmd())
	link.AddCommand(linkRespondCmd("accept", domain.LinkAccepted))
	link.AddCommand(linkRespondCmd("reject", domain.LinkRejected))
	return link
}

func linkRequestCmd() *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request a link from a parent to a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := requireStudent()
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				l, err := env.Engine.RequestLink(ctx, parentID, studentID)
				if err != nil {
					return err
				}
				return printLink(l)
			})
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "parent id")
	return cmd
}

func linkRespondCmd(verb, status string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <link-id>",
		Short: fmt.Sprintf("%s a pending link request", verb),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := requireStudent()
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				l, err := env.Engine.RespondLink(ctx, studentID, args[0], status)
				if err != nil {
					return err
				}
				return printLink(l)
			})
		},
	}
}

func childrenCmd() *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "children",
		Short: "Summaries for a parent's linked children",
		RunE: func(cmd *cobra.Command, args []string) error {
			if parentID == "" {
				return fmt.Errorf("--parent required")
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				kids, err := env.Engine.ChildrenSummaries(ctx, parentID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(kids)
				}
				if len(kids) == 0 {
					fmt.Println("no linked children")
					return nil
				}
				for i, k := range kids {
					if i > 0 {
						fmt.Println()
					}
					printSummary(k)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "parent id")
	return cmd
}

func printLink(l domain.ParentLink) error {
	if viper.GetBool("json") {
		return printJSON(l)
	}
	tw := newTable("ID", "Parent", "Student", "Status", "Updated")
	tw.AppendRow([]any{l.ID, l.ParentID, l.StudentID, l.Status, l.UpdatedAt})
	tw.Render()
	return nil
}
