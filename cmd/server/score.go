package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/mindbridge/internal/assessment"
	"github.com/soaringjerry/mindbridge/internal/catalog"
)

func newScoreCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "score <v1> ... <v9>",
		Short: "Score one set of PHQ-9 answers",
		Long: `Scores nine PHQ-9 answers given in question order, each 0-3.
Use "-" for a question that was not answered.`,
		Example: "  mindbridge score 1 1 1 1 1 0 0 0 0",
		RunE: func(cmd *cobra.Command, args []string) error {
			responses, err := parseResponses(args)
			if err != nil {
				return err
			}
			res, err := assessment.NewScorer(assessment.PHQ9()).ScoreResponses(responses)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(out, res, catalog.MustDefault())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func parseResponses(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		if a == "-" {
			out[i] = assessment.Unanswered
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("answer %d: %q is not a number", i+1, a)
		}
		out[i] = v
	}
	return out, nil
}

func severityColor(s assessment.Severity) *color.Color {
	switch s {
	case assessment.SeverityNoneMinimal:
		return color.New(color.FgGreen, color.Bold)
	case assessment.SeverityMild:
		return color.New(color.FgCyan, color.Bold)
	case assessment.SeverityModerate:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printResult(w io.Writer, res assessment.ScoreResult, cat *catalog.Catalog) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)

	bold.Fprintf(w, "%s score: %d/%d\n", res.QuestionnaireID, res.TotalScore, res.MaxScore)
	fmt.Fprint(w, "Severity: ")
	severityColor(res.Severity).Fprintln(w, res.Severity)
	fmt.Fprintf(w, "Action:   %s\n", res.Action)
	fmt.Fprintf(w, "\n%s\n", res.Interpretation())

	if res.SelfHarmItemEndorsed {
		red.Fprintln(w, "\nThe answer to question 9 needs attention. If you are in danger, call an emergency line now.")
	}
	if !res.Action.SurfaceCrisisSupport() && !res.SelfHarmItemEndorsed {
		return
	}
	support := cat.ForAction(assessment.SuggestUrgentSupport)
	if !res.SelfHarmItemEndorsed {
		support = cat.ForAction(res.Action)
	}
	fmt.Fprintln(w)
	for _, l := range support.EmergencyLines {
		red.Fprintf(w, "  %-28s %s (%s)\n", l.Name, l.Number, l.Hours)
	}
	for _, l := range support.MentalHealthLines {
		fmt.Fprintf(w, "  %-28s %s (%s)\n", l.Name, l.Number, l.Hours)
	}
}

func newQuestionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "Print the PHQ-9 questionnaire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printQuestionnaire(cmd.OutOrStdout(), assessment.PHQ9())
			return nil
		},
	}
}

func printQuestionnaire(w io.Writer, q assessment.Questionnaire) {
	cyan := color.New(color.FgCyan, color.Bold)
	faint := color.New(color.Faint)

	cyan.Fprintln(w, q.Title)
	fmt.Fprintln(w, q.Instruction)
	fmt.Fprintln(w)
	for _, qu := range q.Questions {
		fmt.Fprintf(w, "%2d. %s\n", qu.ID, qu.Prompt)
	}
	fmt.Fprintln(w)
	for _, o := range q.Options {
		fmt.Fprintf(w, "  %d = %s\n", o.Value, o.Label)
	}
	fmt.Fprintln(w)
	faint.Fprintln(w, q.Disclaimer)
}
