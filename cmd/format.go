package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/tutor-cli/internal/episode"
	"github.com/sells-group/tutor-cli/internal/model"
)

// decisionView is what the decide command reports.
type decisionView struct {
	Decision model.Decision `json:"decision"`
	Name     string         `json:"name"`
	Depth    int            `json:"depth"`
	Mastery  float64        `json:"mastery"`
}

// formatDecision writes a decision to w. A negative depth omits the
// learner context lines.
func formatDecision(out io.Writer, v decisionView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Concept:\t%s (%s)\n", v.Decision.Concept, v.Name)
	if v.Depth >= 0 {
		_, _ = fmt.Fprintf(w, "Depth:\t%d\n", v.Depth)
		_, _ = fmt.Fprintf(w, "Mastery:\t%.2f\n", v.Mastery)
	}
	_, _ = fmt.Fprintf(w, "Difficulty:\t%d\n", v.Decision.Difficulty)
	_, _ = fmt.Fprintf(w, "Target errors:\t%s\n", listOrNone(v.Decision.TargetErrors))
	_ = w.Flush()
}

// formatVerification writes a verdict to w.
func formatVerification(out io.Writer, res model.VerificationResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	verdict := "rejected"
	if res.Valid {
		verdict = "valid"
	}
	_, _ = fmt.Fprintf(w, "Verdict:\t%s\n", verdict)
	for _, r := range res.Reasons {
		_, _ = fmt.Fprintf(w, "  Reason:\t%s\n", r)
	}
	_, _ = fmt.Fprintf(w, "Misconceptions addressed:\t%s\n", listOrNone(res.Advisory.MatchedErrors))
	if res.Advisory.InvalidDifficulty {
		_, _ = fmt.Fprintln(w, "Warning:\tdifficulty is not an integer between 1 and 3")
	}
	_ = w.Flush()
}

// formatEpisode writes one episode result to w.
func formatEpisode(out io.Writer, res episode.Result) {
	if res.Decision.Concept != "" {
		formatDecision(out, decisionView{Decision: res.Decision, Name: res.ConceptName, Depth: -1})
	}
	if res.Verification != nil {
		formatVerification(out, *res.Verification)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if res.Attempt != nil {
		outcome := "success"
		if !res.Attempt.Success {
			outcome = "failure (" + res.Attempt.ErrorLabel + ")"
		}
		_, _ = fmt.Fprintf(w, "Learner attempt:\t%s\n", outcome)
	}
	if res.Evaluation != nil {
		_, _ = fmt.Fprintf(w, "Judge score:\t%.2f\n", res.Evaluation.OverallScore)
		if res.Evaluation.Feedback != "" {
			_, _ = fmt.Fprintf(w, "Judge feedback:\t%s\n", res.Evaluation.Feedback)
		}
	}
	if res.Accepted {
		_, _ = fmt.Fprintln(w, "Outcome:\taccepted")
	} else {
		_, _ = fmt.Fprintf(w, "Outcome:\trejected (%s)\n", res.RejectKind)
		if res.Err != nil {
			_, _ = fmt.Fprintf(w, "Error:\t%v\n", res.Err)
		}
	}
	_ = w.Flush()
}

// formatReport writes a run report to w.
func formatReport(out io.Writer, r *episode.Report) {
	s := r.Summary
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", truncateID(r.RunID))
	_, _ = fmt.Fprintf(w, "Episodes:\t%d/%d\n", r.Completed, r.Requested)
	if r.Stopped {
		_, _ = fmt.Fprintln(w, "Stopped:\tyes")
	}
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "Accepted:\t%d\n", s.Accepted)
		_, _ = fmt.Fprintf(w, "Rejected:\t%d\n", s.Rejected)
		for _, kind := range slices.Sorted(maps.Keys(s.RejectsByKind)) {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", kind, s.RejectsByKind[kind])
		}
		_, _ = fmt.Fprintf(w, "Acceptance rate:\t%.2f\n", s.AcceptanceRate)
		_, _ = fmt.Fprintf(w, "Average score:\t%.2f\n", s.AverageScore)
	}
	_, _ = fmt.Fprintf(w, "Learner attempts:\t%d\n", s.Attempts)
	_, _ = fmt.Fprintf(w, "Learner success rate:\t%.2f\n", s.SuccessRate)
	_ = w.Flush()

	if len(r.Mastery) == 0 {
		return
	}
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\nCONCEPT\tMASTERY")
	_, _ = fmt.Fprintln(w, "-------\t-------")
	for _, id := range slices.Sorted(maps.Keys(r.Mastery)) {
		_, _ = fmt.Fprintf(w, "%s\t%.2f\n", id, r.Mastery[id])
	}
	_ = w.Flush()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
