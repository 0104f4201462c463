package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"smartstart/internal/app"
	"smartstart/internal/config"
	"smartstart/internal/domain"
	"smartstart/internal/engine"
)

type planFile struct {
	AvgHoursPerDay float64                  `json:"avg_hours_per_day" yaml:"avg_hours_per_day"`
	Assignments    []domain.AssignmentInput `json:"assignments" yaml:"assignments"`
}

// decodeFile reads JSON for .json files and YAML otherwise.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func planCmd() *cobra.Command {
	var file, nowFlag string
	var hours float64
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Recommend start dates for assignments in a file",
		Long:  "Scores the assignments listed in a YAML or JSON file without touching the workspace database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file required")
			}
			var in planFile
			if err := decodeFile(file, &in); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			avg := cfg.Scheduling.AvgHoursPerDay
			if in.AvgHoursPerDay != 0 {
				avg = in.AvgHoursPerDay
			}
			if cmd.Flags().Changed("hours") {
				avg = hours
			}
			now := time.Now().UTC()
			if nowFlag != "" {
				if now, err = time.Parse(time.RFC3339, nowFlag); err != nil {
					return fmt.Errorf("invalid --now: %w", err)
				}
			}
			recs, err := engine.ComputeSmartStart(now, in.Assignments, avg)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(recs)
			}
			titles := make(map[string]string, len(in.Assignments))
			dues := make(map[string]*time.Time, len(in.Assignments))
			for _, a := range in.Assignments {
				titles[a.ID] = a.Title
				dues[a.ID] = a.DueDate
			}
			tw := newTable("#", "Assignment", "Due", "Start", "Priority", "Complexity", "Hours", "Why")
			for _, r := range recs {
				tw.AppendRow([]any{r.PriorityRank, titles[r.AssignmentID], formatDue(dues[r.AssignmentID]),
					r.RecommendedStartDate.Local().Format("Mon Jan 2"), priorityLabel(r.Priority),
					r.ComplexityScore, r.EstimatedHours, r.Reasoning})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with an assignments list")
	cmd.Flags().Float64Var(&hours, "hours", 0, "study hours per day (overrides file and config)")
	cmd.Flags().StringVar(&nowFlag, "now", "", "reference time, RFC3339 (default: now)")
	return cmd
}

func healthCmd() *cobra.Command {
	var m domain.WorkloadMetrics
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Rate workload health from metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := engine.ValidateMetrics(m); err != nil {
				return err
			}
			res := engine.CalculateWorkloadHealth(m)
			if viper.GetBool("json") {
				return printJSON(res)
			}
			fmt.Printf("%s - %s\n", healthLabel(res.Health), res.Reason)
			return nil
		},
	}
	cmd.Flags().IntVar(&m.OverdueCount, "overdue", 0, "overdue assignments")
	cmd.Flags().IntVar(&m.AssignmentsDueThisWeek, "due-this-week", 0, "assignments due in the next 7 days")
	cmd.Flags().Float64Var(&m.CompletionRate, "completion", 100, "completion rate percent")
	return cmd
}

func syncCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Store a classroom pull and recompute recommendations",
		Long:  "Reads a YAML or JSON batch with student, courses, assignments and submissions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file required")
			}
			var batch domain.SyncBatch
			if err := decodeFile(file, &batch); err != nil {
				return err
			}
			if id := viper.GetString("student"); id != "" {
				batch.Student.ID = id
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				res, err := env.Engine.SyncAssignments(ctx, batch)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				printSuccess("synced %s: %d courses, %d assignments, %d submissions; %d recommendations",
					res.StudentID, res.Courses, res.Assignments, res.Submissions, len(res.Recommendations))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON sync batch")
	return cmd
}

func recommendationsCmd() *cobra.Command {
	var recompute bool
	cmd := &cobra.Command{
		Use:     "recommendations",
		Aliases: []string{"recs"},
		Short:   "Show the stored start plan for a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := requireStudent()
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if recompute {
					if _, err := env.Engine.RecomputeRecommendations(ctx, studentID); err != nil {
						return err
					}
				}
				recs, err := env.Engine.Recommendations(ctx, studentID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(recs)
				}
				tw := newTable("#", "Assignment", "Course", "Due", "Start", "Priority", "Hours", "Why")
				for _, r := range recs {
					tw.AppendRow([]any{r.PriorityRank, r.Title, r.CourseName, formatDue(r.DueDate),
						r.RecommendedStartDate.Local().Format("Mon Jan 2"), priorityLabel(r.Priority),
						r.EstimatedHours, r.Reasoning})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&recompute, "recompute", false, "recompute before listing")
	return cmd
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Record a progress snapshot for a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := requireStudent()
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				snap, err := env.Engine.TakeSnapshot(ctx, studentID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				printSuccess("snapshot %s: %d/%d done (%v%%), %d overdue, %d due this week",
					snap.ID, snap.CompletedAssignments, snap.TotalAssignments, snap.CompletionRate,
					snap.OverdueCount, snap.UpcomingCount)
				return nil
			})
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show workload health and interventions for a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := requireStudent()
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				sum, err := env.Engine.StudentSummary(ctx, studentID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sum)
				}
				printSummary(sum)
				return nil
			})
		},
	}
}

func gradeCmd() *cobra.Command {
	grade := &cobra.Command{Use: "grade", Short: "Manage subject grades"}
	grade.AddCommand(gradeSetCmd())
	return grade
}

func gradeSetCmd() *cobra.Command {
	var subject, trend string
	var avg float64
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a subject's average and trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := requireStudent()
			if err != nil {
				return err
			}
			g := domain.SubjectGrade{SubjectName: subject, Trend: domain.Trend(trend)}
			if cmd.Flags().Changed("avg") {
				g.AvgGrade = &avg
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				saved, err := env.Engine.SetSubjectGrade(ctx, studentID, g)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(saved)
				}
				printSuccess("%s updated", saved.SubjectName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject name")
	cmd.Flags().Float64Var(&avg, "avg", 0, "average grade percent")
	cmd.Flags().StringVar(&trend, "trend", "", "improving, stable or declining")
	return cmd
}
