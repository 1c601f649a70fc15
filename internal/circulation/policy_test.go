package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"librarydesk/internal/catalog"
)

var fixedNow = time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC)

func fixedCalculator(opts ...CalculatorOption) *Calculator {
	opts = append([]CalculatorOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewCalculator(opts...)
}

func TestDueDate(t *testing.T) {
	calc := fixedCalculator()

	tests := []struct {
		name     string
		itemType catalog.ItemType
		year     int
		want     time.Time
	}{
		{"book", catalog.ItemTypeBook, 2020, fixedNow.AddDate(0, 0, 28)},
		{"book this year", catalog.ItemTypeBook, 2026, fixedNow.AddDate(0, 0, 28)},
		{"new release video", catalog.ItemTypeVideo, 2026, fixedNow.AddDate(0, 0, 3)},
		{"older video", catalog.ItemTypeVideo, 2019, fixedNow.AddDate(0, 0, 14)},
		{"future video", catalog.ItemTypeVideo, 2027, fixedNow.AddDate(0, 0, 14)},
		{"video unknown year", catalog.ItemTypeVideo, 0, fixedNow.AddDate(0, 0, 14)},
		{"vinyl", catalog.ItemTypeVinyl, 2026, fixedNow.AddDate(0, 0, 28)},
		{"unknown type", catalog.ItemType("ZINE"), 2026, fixedNow.AddDate(0, 0, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.DueDate(tt.itemType, tt.year))
		})
	}
}

func TestIsOverdue(t *testing.T) {
	calc := fixedCalculator()

	assert.True(t, calc.IsOverdue(fixedNow.Add(-time.Second)))
	assert.False(t, calc.IsOverdue(fixedNow))
	assert.False(t, calc.IsOverdue(fixedNow.Add(time.Hour)))
}

func TestDaysOverdue(t *testing.T) {
	calc := fixedCalculator()

	assert.Equal(t, 0, calc.DaysOverdue(fixedNow.AddDate(0, 0, 2)))
	assert.Equal(t, 0, calc.DaysOverdue(fixedNow))
	assert.Equal(t, 1, calc.DaysOverdue(fixedNow.Add(-time.Minute)))
	assert.Equal(t, 5, calc.DaysOverdue(fixedNow.AddDate(0, 0, -5)))
	assert.Equal(t, 6, calc.DaysOverdue(fixedNow.AddDate(0, 0, -5).Add(-time.Hour)))
}

func TestFine(t *testing.T) {
	calc := fixedCalculator()

	assert.Equal(t, 2.5, calc.Fine(fixedNow.AddDate(0, 0, -5)))
	assert.Equal(t, 0.0, calc.Fine(fixedNow.AddDate(0, 0, 5)))
	assert.Equal(t, 5.0, calc.FineAt(fixedNow.AddDate(0, 0, -5), 1))

	custom := fixedCalculator(WithFinePerDay(0.25))
	assert.Equal(t, 0.75, custom.Fine(fixedNow.AddDate(0, 0, -3)))
}

func TestCardExpired(t *testing.T) {
	calc := fixedCalculator()
	past := fixedNow.AddDate(0, -1, 0)
	future := fixedNow.AddDate(1, 0, 0)

	assert.False(t, calc.CardExpired(nil))
	assert.True(t, calc.CardExpired(&past))
	assert.False(t, calc.CardExpired(&future))
}

func TestNonVideoAlwaysFourWeeks(t *testing.T) {
	calc := fixedCalculator()
	types := []catalog.ItemType{
		catalog.ItemTypeBook, catalog.ItemTypeMagazine, catalog.ItemTypePeriodical,
		catalog.ItemTypeRecording, catalog.ItemTypeAudiobook, catalog.ItemTypeCD, catalog.ItemTypeVinyl,
	}

	rapid.Check(t, func(t *rapid.T) {
		itemType := rapid.SampledFrom(types).Draw(t, "itemType")
		year := rapid.IntRange(-1, 3000).Draw(t, "year")

		if got := calc.DueDate(itemType, year); !got.Equal(fixedNow.AddDate(0, 0, 28)) {
			t.Fatalf("due date for %s/%d = %s", itemType, year, got)
		}
	})
}

func TestFineIsDaysTimesRate(t *testing.T) {
	calc := fixedCalculator()

	rapid.Check(t, func(t *rapid.T) {
		offset := time.Duration(rapid.Int64Range(-int64(400*24*time.Hour), int64(400*24*time.Hour)).Draw(t, "offset"))
		rate := float64(rapid.IntRange(0, 400).Draw(t, "cents")) / 100
		due := fixedNow.Add(offset)

		days := calc.DaysOverdue(due)
		if days < 0 {
			t.Fatalf("negative days overdue: %d", days)
		}
		if fine := calc.FineAt(due, rate); fine != float64(days)*rate {
			t.Fatalf("fine %v != %d * %v", fine, days, rate)
		}
		if offset >= 0 && days != 0 {
			t.Fatalf("due date not in the past but %d days overdue", days)
		}
	})
}

func TestFineMonotonic(t *testing.T) {
	calc := fixedCalculator()

	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 1000).Draw(t, "a")
		b := rapid.IntRange(a, 1000).Draw(t, "b")

		earlier := fixedNow.Add(-time.Duration(b) * time.Hour)
		later := fixedNow.Add(-time.Duration(a) * time.Hour)
		if calc.Fine(earlier) < calc.Fine(later) {
			t.Fatalf("fine decreased: %v < %v", calc.Fine(earlier), calc.Fine(later))
		}
	})
}
