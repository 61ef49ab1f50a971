package ui

import (
	"fmt"
	"strings"
	"time"

	"inatscraper/pkg/scraper"
)

const (
	barFull  = "█"
	barEmpty = "░"
	barWidth = 20
)

// ProgressBar renders done/total as a fixed-width bar
func ProgressBar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat(barFull, filled) + strings.Repeat(barEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, total)
}

// PrintSummary prints the end-of-run totals and any failed species
func PrintSummary(s *scraper.Summary) {
	if s == nil {
		return
	}
	total := len(s.Results)

	PrintHighlight("Harvest summary")
	PrintInfo("Species", ProgressBar(s.Completed+s.Skipped, total))
	PrintInfo("Completed", fmt.Sprint(s.Completed))
	PrintInfo("Skipped", fmt.Sprint(s.Skipped))
	PrintInfo("Photos saved", fmt.Sprint(s.PhotosSaved))
	PrintInfo("API requests", fmt.Sprint(s.Requests))
	PrintInfo("Duration", s.Duration.Round(100 * time.Millisecond).String())

	if s.Failed == 0 {
		return
	}
	PrintWarning("Failed species", fmt.Sprint(s.Failed))
	for _, r := range s.Results {
		if r.Status != scraper.StatusFailed {
			continue
		}
		msg := r.Species.Name
		if r.Err != nil {
			msg += ": " + r.Err.Error()
		}
		emit(false, "  - "+Dim(msg))
	}
}
