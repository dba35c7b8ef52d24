package adherence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/medication-adherence/internal/model"
)

func day(d int) model.Date { return model.NewDate(2024, time.May, d) }

func TestExpectedCount(t *testing.T) {
	cases := []struct {
		freq model.Frequency
		days int
		want int
	}{
		{model.OnceDaily, 30, 30},
		{model.TwiceDaily, 30, 60},
		{model.ThreeTimesDaily, 7, 21},
		{model.FourTimesDaily, 7, 28},
		{model.Every8Hours, 1, 3},
		{model.Every12Hours, 2, 4},
		{model.AsNeeded, 10, 10},
		{model.Frequency("hourly"), 5, 5},
		{model.TwiceDaily, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExpectedCount(c.freq, c.days), "%s x %d", c.freq, c.days)
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, 50.0, Rate(1, 2))
	assert.Equal(t, 33.33, Rate(1, 3))
	assert.Equal(t, 66.67, Rate(2, 3))
	assert.Equal(t, 0.0, Rate(5, 0))
	assert.Equal(t, 200.0, Rate(10, 5))
}

func TestWindowIsInclusive(t *testing.T) {
	start, end := Window(day(10), 7)
	assert.Equal(t, day(3), start)
	assert.Equal(t, day(10), end)

	start, _ = Window(model.NewDate(2024, time.March, 1), 1)
	assert.Equal(t, model.NewDate(2024, time.February, 29), start)
}

func TestDateSet(t *testing.T) {
	s := NewDateSet(day(5), day(1), day(5), day(9))
	assert.True(t, s.Has(day(1)))
	assert.False(t, s.Has(day(2)))
	assert.Equal(t, 2, s.CountBetween(day(1), day(5)))
	assert.Equal(t, 1, s.CountBetween(day(9), day(9)))
	assert.Equal(t, 0, s.CountBetween(day(9), day(1)))
	assert.Equal(t, 3, s.CountBetween(day(1), day(30)))
	assert.Equal(t, []model.Date{day(1), day(5), day(9)}, s.Sorted())

	var empty DateSet
	assert.False(t, empty.Has(day(1)))
	assert.Empty(t, empty.Sorted())
}

func TestComputeWeightsByDoses(t *testing.T) {
	meds := []Medication{
		{ID: 1, Name: "A", Frequency: model.OnceDaily, Taken: NewDateSet(day(8), day(9), day(10))},
		{ID: 2, Name: "B", Frequency: model.TwiceDaily, Taken: NewDateSet(day(10), day(1))},
	}
	r := Compute(meds, 3, day(10))

	assert.Equal(t, 3, r.PeriodDays)
	assert.Len(t, r.Medications, 2)
	assert.Equal(t, MedicationStat{ID: 1, Name: "A", Frequency: model.OnceDaily, ExpectedCount: 3, ActualCount: 3, AdherenceRate: 100}, r.Medications[0])
	assert.Equal(t, 6, r.Medications[1].ExpectedCount)
	assert.Equal(t, 1, r.Medications[1].ActualCount)
	assert.Equal(t, 16.67, r.Medications[1].AdherenceRate)
	// (3+1)/(3+6), not the mean of 100 and 16.67
	assert.Equal(t, 44.44, r.OverallRate)
}

func TestComputeSingleDayTwiceDaily(t *testing.T) {
	meds := []Medication{{ID: 1, Name: "Ibuprofen", Frequency: model.TwiceDaily, Taken: NewDateSet(day(10))}}
	r := Compute(meds, 1, day(10))
	assert.Equal(t, 2, r.Medications[0].ExpectedCount)
	assert.Equal(t, 1, r.Medications[0].ActualCount)
	assert.Equal(t, 50.0, r.Medications[0].AdherenceRate)
	assert.Equal(t, 50.0, r.OverallRate)
}

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil, 30, day(10))
	assert.Equal(t, 0.0, r.OverallRate)
	assert.NotNil(t, r.Medications)
	assert.Empty(t, r.Medications)
}

func TestDueToday(t *testing.T) {
	meds := []Medication{
		{ID: 1, Taken: NewDateSet(day(10))},
		{ID: 2, Taken: NewDateSet(day(9))},
		{ID: 3},
	}
	assert.Equal(t, 2, DueToday(meds, day(10)))
	assert.Equal(t, 0, DueToday(nil, day(10)))
}
