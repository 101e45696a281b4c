package tui

import (
	"fmt"
	"strings"

	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/narrator"
	"github.com/tatianab/mahes-quest/internal/progression"
	"github.com/tatianab/mahes-quest/internal/session"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func formatNumber(n int) string {
	return printer.Sprintf("%d", n)
}

func formatSigned(n int) string {
	if n > 0 {
		return "+" + formatNumber(n)
	}
	return formatNumber(n)
}

func formatFragments(f models.FragmentCounts) string {
	return fmt.Sprintf("Crown %d/10  Sash %d/9", f.Crown, f.Sash)
}

// formatLeaderboard renders a fixed-width ranking table.
func formatLeaderboard(entries []models.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-4s %-15s %9s %6s %8s  %s\n", "#", "NAME", "SCORE", "KARMA", "TIME", "ENDING")
	for i, e := range entries {
		fmt.Fprintf(&b, "%-4d %-15s %9s %6d %8s  %s\n",
			i+1, e.Name, formatNumber(e.Score), e.Karma,
			narrator.FormatPlayTime(e.Time), narrator.Describe(e.Ending).Badge)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRegions(regions []session.RegionStatus) string {
	var b strings.Builder
	for _, r := range regions {
		status := "locked"
		switch {
		case r.Unlocked && r.Completed == r.Total:
			status = "complete"
		case r.Unlocked:
			status = fmt.Sprintf("%d/%d", r.Completed, r.Total)
		}
		fmt.Fprintf(&b, "%d. %-16s [%s]\n", r.ID, r.Title, status)
		if r.Unlocked {
			fmt.Fprintf(&b, "   %s\n", r.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatEffect(e models.Effect) string {
	parts := []string{
		"Score " + formatSigned(e.Score),
		"Karma " + formatSigned(e.Karma),
	}
	if item := describeItem(e.Item); item != "" {
		parts = append(parts, item)
	}
	return strings.Join(parts, "  ")
}

func describeItem(item string) string {
	switch {
	case item == "":
		return ""
	case item == progression.HintItem:
		return "Found a hint"
	case strings.HasPrefix(item, "fragment_crown_"):
		return "Crown fragment " + strings.TrimPrefix(item, "fragment_crown_")
	case strings.HasPrefix(item, "fragment_sash_"):
		return "Sash fragment " + strings.TrimPrefix(item, "fragment_sash_")
	default:
		return "Found " + item
	}
}
