package analytics

import "github.com/shopspring/decimal"

// Seed derives a reproducible integer from an event name and its position
// in the list: the sum of the name's code points plus 31*(index+1).
// It is a display aid, not a source of randomness.
func Seed(name string, index int) int {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return sum + 31*(index+1)
}

// Baseline ranges.
const (
	baseRegistrations   = 120
	registrationsSpread = 380 // registrations in [120, 499]
	baseAttendance      = 0.45
	attendanceSpread    = 50 // ratio in [0.45, 0.94]
	baseBudget          = 2000
	budgetStep          = 250
	budgetSteps         = 40 // need in [2000, 11750]
)

// Baseline is the synthetic starting point for one event.
type Baseline struct {
	Seed            int
	Registrations   int
	AttendanceRatio float64
	BudgetNeed      decimal.Decimal
}

// BaselineFor maps Seed(name, index) into the baseline ranges.
func BaselineFor(name string, index int) Baseline {
	s := Seed(name, index)
	return Baseline{
		Seed:            s,
		Registrations:   baseRegistrations + s%registrationsSpread,
		AttendanceRatio: baseAttendance + float64(s%attendanceSpread)/100,
		BudgetNeed:      decimal.NewFromInt(int64(baseBudget + budgetStep*(s%budgetSteps))),
	}
}
