package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/warp/campus-scheduler/campus"
)

// RiskLevel classifies engagement.
type RiskLevel string

const (
	RiskHigh    RiskLevel = "High risk" // engagement < 55
	RiskWatch   RiskLevel = "Watch"     // 55 <= engagement < 75
	RiskHealthy RiskLevel = "Healthy"
)

// Classify maps an engagement percentage to its risk level.
func Classify(engagement int) RiskLevel {
	switch {
	case engagement < 55:
		return RiskHigh
	case engagement < 75:
		return RiskWatch
	default:
		return RiskHealthy
	}
}

// RiskEntry is one flagged event.
type RiskEntry struct {
	Event             campus.EventID `json:"event"`
	EngagementPercent int            `json:"engagementPercent"`
	Level             RiskLevel      `json:"level"`
}

// RiskReport lists flagged events, lowest engagement first.
type RiskReport struct {
	Entries           []RiskEntry `json:"entries"`
	AverageEngagement int         `json:"averageEngagement"`
	EventsConsidered  int         `json:"eventsConsidered"`
}

// RiskReport flags every event whose engagement is below the healthy
// threshold. The average covers all events and is 0 when there are none.
func (e *Engine) RiskReport(events []campus.Event, regs []campus.Registration) RiskReport {
	rows := e.EventAnalytics(events, regs)
	report := RiskReport{Entries: []RiskEntry{}, EventsConsidered: len(rows)}
	if len(rows) == 0 {
		return report
	}

	sum := 0
	for _, row := range rows {
		sum += row.EngagementPercent
		level := Classify(row.EngagementPercent)
		if level == RiskHealthy {
			continue
		}
		report.Entries = append(report.Entries, RiskEntry{
			Event:             row.Event.ID(),
			EngagementPercent: row.EngagementPercent,
			Level:             level,
		})
	}
	report.AverageEngagement = int(math.Round(float64(sum) / float64(len(rows))))

	slices.SortStableFunc(report.Entries, func(a, b RiskEntry) int {
		if c := cmp.Compare(a.EngagementPercent, b.EngagementPercent); c != 0 {
			return c
		}
		return cmp.Compare(a.Event.Name, b.Event.Name)
	})
	return report
}
