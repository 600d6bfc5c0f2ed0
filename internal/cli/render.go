package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/domain/stats"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))  // gray
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	fileStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
)

// renderer prints reports as aligned, tier-coloured text.
type renderer struct {
	out io.Writer
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func tierStyle(t scoring.Tier) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color()))
}

func (r *renderer) scored(results []scoredFile) {
	for i, res := range results {
		if i > 0 {
			r.printf("\n")
		}
		r.printf("%s\n", fileStyle.Render(res.File))
		if res.Error != "" {
			r.printf("  %s\n", errorStyle.Render("error: "+res.Error))
			continue
		}

		v := res.View
		title := v.PlayerName
		if v.Opponent != "" {
			title += " vs " + v.Opponent
		}
		if v.MatchDate != "" {
			title += " (" + v.MatchDate + ")"
		}
		r.printf("  %s\n", titleStyle.Render(title))
		r.printf("  %s %s  %s %s  %s %s  %s %d\n",
			labelStyle.Render("raw"), v.Summary.RawScore,
			labelStyle.Render("r90"), v.Summary.R90Score,
			labelStyle.Render("xg chain"), v.Summary.XGChain,
			labelStyle.Render("actions"), v.Summary.ActionCount,
		)
		r.actions(v.Summary.Actions)
		if len(v.Stats) > 0 {
			r.printf("  %s\n", labelStyle.Render("stats"))
			r.stats(v.Stats)
		}
	}
}

func (r *renderer) actions(rows []scoring.ActionRow) {
	if len(rows) == 0 {
		return
	}
	r.printf("  %s\n", labelStyle.Render(fmt.Sprintf("%4s  %6s  %7s  %-17s  %s", "#", "min", "score", "tier", "action")))
	for _, row := range rows {
		tier := tierStyle(row.Tier).Render(fmt.Sprintf("%-17s", row.Tier))
		r.printf("  %4d  %6s  %7s  %s  %s\n", row.ActionNumber, row.MinuteDisplay, row.ScoreDisplay, tier, actionLabel(row))
	}
}

func actionLabel(row scoring.ActionRow) string {
	switch {
	case row.Type != "" && row.Description != "":
		return row.Type + ": " + row.Description
	case row.Type != "":
		return row.Type
	default:
		return row.Description
	}
}

func (r *renderer) stats(entries []stats.Entry) {
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Key))
	}
	for _, e := range entries {
		r.printf("    %-*s  %s\n", width, e.Key, entryValue(e))
	}
}

func entryValue(e stats.Entry) string {
	var s string
	if e.Kind == stats.EntryPaired {
		s = fmt.Sprintf("%s/%s (%s%%)", number(e.Successful), number(e.Attempted), e.PercentageDisplay)
	} else if f, ok := model.AsNumber(e.Value); ok {
		s = number(f)
	} else {
		s = fmt.Sprint(e.Value)
	}
	if e.Per90 != nil {
		s += "  " + labelStyle.Render("per90 "+number(*e.Per90))
	}
	return s
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
