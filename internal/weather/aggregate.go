package weather

import (
	"math"
	"time"
)

// MaxSummaryDays caps how many daily summaries Summarize emits regardless
// of how many days of raw data are available.
const MaxSummaryDays = 3

// Summarize collapses 3-hour-interval forecast samples into at most
// MaxSummaryDays per-day summaries. Samples are grouped by their UTC
// calendar date and days are emitted in first-seen order, which for a
// chronological feed is chronological order. Each summary carries the
// rounded high and low temperature of the day and the most frequent icon
// and description among the day's samples.
func Summarize(samples []ForecastSample) []DailySummary {
	type dayGroup struct {
		date  string
		temps []float64
		icons []string
		descs []string
	}

	groups := make(map[string]*dayGroup)
	var order []string

	for _, s := range samples {
		day := s.Timestamp.In(time.UTC).Format("2006-01-02")
		g, ok := groups[day]
		if !ok {
			g = &dayGroup{date: day}
			groups[day] = g
			order = append(order, day)
		}
		g.temps = append(g.temps, s.TempC)
		g.icons = append(g.icons, s.Icon)
		g.descs = append(g.descs, s.Description)
	}

	summaries := make([]DailySummary, 0, len(order))
	for _, day := range order {
		if len(summaries) >= MaxSummaryDays {
			break
		}
		g := groups[day]

		high, low := g.temps[0], g.temps[0]
		for _, t := range g.temps[1:] {
			if t > high {
				high = t
			}
			if t < low {
				low = t
			}
		}

		summaries = append(summaries, DailySummary{
			Date:        g.date,
			HighTempC:   int(math.Round(high)),
			LowTempC:    int(math.Round(low)),
			Icon:        mode(g.icons),
			Description: mode(g.descs),
		})
	}

	return summaries
}

// mode returns the most frequent value. On a tie the value whose first
// occurrence comes earliest in the input wins, keeping the result
// deterministic.
func mode(values []string) string {
	counts := make(map[string]int, len(values))
	best, bestCount := "", 0
	for _, v := range values {
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}
