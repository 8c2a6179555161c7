package analytics

import (
	"github.com/shopspring/decimal"
	"github.com/warp/campus-scheduler/campus"
)

// Allocation is the fixed budget for one category.
type Allocation struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// DefaultAllocations are used when none are configured.
var DefaultAllocations = []Allocation{
	{Category: "Marketing", Amount: decimal.NewFromInt(5000)},
	{Category: "Logistics", Amount: decimal.NewFromInt(15000)},
	{Category: "Security", Amount: decimal.NewFromInt(8000)},
	{Category: "Refreshments", Amount: decimal.NewFromInt(12000)},
}

func categoryNames(allocs []Allocation) []string {
	names := make([]string, len(allocs))
	for i, a := range allocs {
		names[i] = a.Category
	}
	return names
}

// BudgetLine is the rollup for one category.
type BudgetLine struct {
	Category  string          `json:"category"`
	Events    int             `json:"events"`
	Allocated decimal.Decimal `json:"allocated"`
	Spent     decimal.Decimal `json:"spent"`
	Variance  decimal.Decimal `json:"variance"`
}

// OverBudget reports whether spend exceeds the allocation.
func (l BudgetLine) OverBudget() bool {
	return l.Variance.IsNegative()
}

// BudgetRollup is the per-category budget view with totals.
type BudgetRollup struct {
	Lines          []BudgetLine    `json:"lines"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	TotalVariance  decimal.Decimal `json:"totalVariance"`
}

// Budget assigns events to categories round-robin by index and sums each
// event's synthetic budget need. Variance is allocated minus spent.
func (e *Engine) Budget(events []campus.Event) BudgetRollup {
	allocs := e.allocations()
	lines := make([]BudgetLine, len(allocs))
	for i, a := range allocs {
		lines[i] = BudgetLine{Category: a.Category, Allocated: a.Amount, Spent: decimal.Zero}
	}

	for i, ev := range events {
		line := &lines[i%len(lines)]
		line.Events++
		line.Spent = line.Spent.Add(BaselineFor(ev.Name, i).BudgetNeed)
	}

	rollup := BudgetRollup{Lines: lines, TotalAllocated: decimal.Zero, TotalSpent: decimal.Zero}
	for i := range lines {
		lines[i].Variance = lines[i].Allocated.Sub(lines[i].Spent)
		rollup.TotalAllocated = rollup.TotalAllocated.Add(lines[i].Allocated)
		rollup.TotalSpent = rollup.TotalSpent.Add(lines[i].Spent)
	}
	rollup.TotalVariance = rollup.TotalAllocated.Sub(rollup.TotalSpent)
	return rollup
}
