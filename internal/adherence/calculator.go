// Package adherence turns medication frequencies and the sparse set of days
// a dose was marked taken into expected counts and adherence rates. It does
// no I/O; callers load the data and pass "today" in.
package adherence

import (
	"math"
	"sort"

	"github.com/iliyamo/medication-adherence/internal/model"
)

// DashboardDays is the baseline window of the dashboard statistics.
const DashboardDays = 30

// ExpectedCount is the number of doses scheduled over days for freq.
func ExpectedCount(freq model.Frequency, days int) int {
	if days <= 0 {
		return 0
	}
	return days * freq.DosesPerDay()
}

// Rate returns actual/expected as a percentage rounded to two decimals.
// It is 0 when nothing was expected and is not capped at 100.
func Rate(actual, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	return math.Round(float64(actual)/float64(expected)*100*100) / 100
}

// Window returns the inclusive range [today-days, today].
func Window(today model.Date, days int) (start, end model.Date) {
	return today.AddDays(-days), today
}

// DateSet is the set of days a medication was marked taken. Membership is a
// map lookup; range counts binary-search a sorted copy.
type DateSet struct {
	days   map[model.Date]struct{}
	sorted []model.Date
}

// NewDateSet builds a set from ds; duplicates collapse.
func NewDateSet(ds ...model.Date) DateSet {
	s := DateSet{days: make(map[model.Date]struct{}, len(ds))}
	for _, d := range ds {
		s.Add(d)
	}
	return s
}

func (s *DateSet) Add(d model.Date) {
	if s.days == nil {
		s.days = make(map[model.Date]struct{})
	}
	if _, ok := s.days[d]; ok {
		return
	}
	s.days[d] = struct{}{}
	i := sort.Search(len(s.sorted), func(i int) bool { return !s.sorted[i].Before(d) })
	s.sorted = append(s.sorted, model.Date{})
	copy(s.sorted[i+1:], s.sorted[i:])
	s.sorted[i] = d
}

func (s DateSet) Has(d model.Date) bool {
	_, ok := s.days[d]
	return ok
}

// CountBetween counts members in the inclusive range [start, end].
func (s DateSet) CountBetween(start, end model.Date) int {
	lo := sort.Search(len(s.sorted), func(i int) bool { return !s.sorted[i].Before(start) })
	hi := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i].After(end) })
	if hi < lo {
		return 0
	}
	return hi - lo
}

// Sorted lists the members in ascending order.
func (s DateSet) Sorted() []model.Date {
	out := make([]model.Date, len(s.sorted))
	copy(out, s.sorted)
	return out
}

// Medication is the input of Compute: one medication and its taken days.
type Medication struct {
	ID        uint64
	Name      string
	Frequency model.Frequency
	Taken     DateSet
}

// MedicationStat is the per-medication line of a Report.
type MedicationStat struct {
	ID            uint64          `json:"id"`
	Name          string          `json:"name"`
	Frequency     model.Frequency `json:"frequency"`
	ExpectedCount int             `json:"expected_count"`
	ActualCount   int             `json:"actual_count"`
	AdherenceRate float64         `json:"adherence_rate"`
}

// Report is the result of Compute.
type Report struct {
	PeriodDays  int              `json:"period_days"`
	OverallRate float64          `json:"overall_adherence_rate"`
	Medications []MedicationStat `json:"medications"`
}

// Compute scores every medication over the window ending today. The overall
// rate weighs medications by their expected doses.
func Compute(meds []Medication, days int, today model.Date) Report {
	start, end := Window(today, days)
	r := Report{PeriodDays: days, Medications: make([]MedicationStat, 0, len(meds))}

	var totalExpected, totalActual int
	for _, m := range meds {
		expected := ExpectedCount(m.Frequency, days)
		actual := m.Taken.CountBetween(start, end)
		totalExpected += expected
		totalActual += actual
		r.Medications = append(r.Medications, MedicationStat{
			ID:            m.ID,
			Name:          m.Name,
			Frequency:     m.Frequency,
			ExpectedCount: expected,
			ActualCount:   actual,
			AdherenceRate: Rate(actual, expected),
		})
	}
	r.OverallRate = Rate(totalActual, totalExpected)
	return r
}

// DueToday counts the medications not yet marked taken today.
func DueToday(meds []Medication, today model.Date) int {
	n := 0
	for _, m := range meds {
		if !m.Taken.Has(today) {
			n++
		}
	}
	return n
}
