package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"smartstart/internal/domain"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	titleColor   = color.New(color.FgMagenta, color.Bold)
	mutedColor   = color.New(color.FgCyan)
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSuccess(format string, args ...any) {
	successColor.Printf(format+"\n", args...)
}

func printError(err error) {
	errorColor.Fprintf(os.Stderr, "error: %v\n", err)
}

func printTitle(format string, args ...any) {
	titleColor.Printf(format+"\n", args...)
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func priorityLabel(p domain.PriorityClass) string {
	switch p {
	case domain.PriorityBehind:
		return errorColor.Sprint(p)
	case domain.PriorityStartNow:
		return warningColor.Sprint(p)
	case domain.PriorityStartSoon:
		return mutedColor.Sprint(p)
	default:
		return successColor.Sprint(p)
	}
}

func healthLabel(h domain.WorkloadHealth) string {
	switch h {
	case domain.HealthStressed:
		return errorColor.Sprint(h)
	case domain.HealthModerate:
		return warningColor.Sprint(h)
	default:
		return successColor.Sprint(h)
	}
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("Mon Jan 2 15:04")
}

func printSummary(s domain.StudentSummary) {
	name := s.Name
	if name == "" {
		name = s.ID
	}
	printTitle("%s (%s)", name, s.ID)
	fmt.Printf("Workload: %s - %s\n", healthLabel(s.WorkloadHealth), s.HealthReason)
	fmt.Printf("Due this week: %d  Overdue: %d  Completion: %s%%\n",
		s.Stats.AssignmentsDue, s.Stats.OverdueCount, fmt.Sprint(s.Stats.CompletionRate))
	if len(s.ImprovingSubjects) > 0 {
		fmt.Printf("Improving: %v\n", s.ImprovingSubjects)
	}
	if len(s.DecliningSubjects) > 0 {
		fmt.Printf("Declining: %v\n", s.DecliningSubjects)
	}
	for _, in := range s.Interventions {
		errorColor.Printf("! %s\n", in.Message)
		for _, d := range in.Details {
			fmt.Printf("    %s\n", d)
		}
	}
	for _, a := range s.AttentionItems {
		warningColor.Printf("- %s\n", a.Message)
	}
}
