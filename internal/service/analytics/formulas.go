package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/analytics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// WeekdayIndex numbers weekdays Monday = 1 .. Sunday = 7.
func WeekdayIndex(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// BuildWeekdayProfile groups check-ins by calendar date in loc, counts distinct
// employees per date, then reduces each weekday to its rounded mean and maximum.
func BuildWeekdayProfile(checkIns []attendance.CheckIn, loc *time.Location) []analytics.WeekdayStat {
	perDate := make(map[string]map[string]struct{})
	weekdayOf := make(map[string]time.Weekday)
	for _, c := range checkIns {
		local := c.CheckIn.In(loc)
		key := local.Format(timeutil.DateLayout)
		if perDate[key] == nil {
			perDate[key] = make(map[string]struct{})
			weekdayOf[key] = local.Weekday()
		}
		perDate[key][c.EmployeeCode] = struct{}{}
	}

	counts := make(map[time.Weekday][]int)
	for key, employees := range perDate {
		counts[weekdayOf[key]] = append(counts[weekdayOf[key]], len(employees))
	}

	stats := make([]analytics.WeekdayStat, 0, len(weekdayOrder))
	for _, d := range weekdayOrder {
		stat := analytics.WeekdayStat{Weekday: d.String(), Index: WeekdayIndex(d)}
		if values := counts[d]; len(values) > 0 {
			sum, peak := 0, 0
			for _, v := range values {
				sum += v
				if v > peak {
					peak = v
				}
			}
			stat.Average = int(math.Round(float64(sum) / float64(len(values))))
			stat.Maximum = peak
			stat.SampledDays = len(values)
		}
		stats = append(stats, stat)
	}
	return stats
}

// AttendanceRate is round(present / totalExpected * 100) clamped to [0, 100],
// 0 when nothing is expected.
func AttendanceRate(present, totalExpected int) int {
	if totalExpected <= 0 {
		return 0
	}
	rate := int(math.Round(float64(present) / float64(totalExpected) * 100))
	return min(max(rate, 0), 100)
}

// Absentees is max(0, tee - actual).
func Absentees(tee, actualUniqueCheckIns int) int {
	if diff := tee - actualUniqueCheckIns; diff > 0 {
		return diff
	}
	return 0
}

// UniqueCheckIns counts distinct employees with a check-in.
func UniqueCheckIns(records []attendance.Record) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.HasCheckIn() {
			seen[r.EmployeeCode] = struct{}{}
		}
	}
	return len(seen)
}

// CountCheckIns counts records whose check-in satisfies the predicate.
func CountCheckIns(records []attendance.Record, day time.Time, predicate func(day, checkIn time.Time) bool) int {
	count := 0
	for _, r := range records {
		if r.HasCheckIn() && predicate(day, *r.CheckIn) {
			count++
		}
	}
	return count
}

// MissedPunchouts counts records with a check-in and no check-out.
func MissedPunchouts(records []attendance.Record) int {
	count := 0
	for _, r := range records {
		if r.HasCheckIn() && r.CheckOut == nil {
			count++
		}
	}
	return count
}

// WorkingHours aggregates completed shifts. Hours come from the punch delta.
type WorkingHours struct {
	Total     float64
	Completed int
	Overtime  float64
	Average   float64
}

func AggregateWorkingHours(records []attendance.Record, shiftHours float64) WorkingHours {
	shift := decimal.NewFromFloat(shiftHours)
	total, overtime := decimal.Zero, decimal.Zero
	completed := 0
	for _, r := range records {
		if !r.IsCompleted() || r.CheckOut.Before(*r.CheckIn) {
			continue
		}
		h := decimal.NewFromFloat(r.CheckOut.Sub(*r.CheckIn).Hours())
		total = total.Add(h)
		overtime = overtime.Add(decimal.Max(decimal.Zero, h.Sub(shift)))
		completed++
	}

	result := WorkingHours{
		Total:     total.Round(2).InexactFloat64(),
		Completed: completed,
		Overtime:  overtime.Round(2).InexactFloat64(),
	}
	if completed > 0 {
		result.Average = total.Div(decimal.NewFromInt(int64(completed))).Round(2).InexactFloat64()
	}
	return result
}

// DepartmentBreakdown joins active headcount with distinct present employees,
// sorted by department name.
func DepartmentBreakdown(headcount map[string]int, records []attendance.Record) []analytics.DepartmentStat {
	present := make(map[string]map[string]struct{})
	for _, r := range records {
		if !r.HasCheckIn() {
			continue
		}
		if present[r.Department] == nil {
			present[r.Department] = make(map[string]struct{})
		}
		present[r.Department][r.EmployeeCode] = struct{}{}
	}

	names := make(map[string]struct{})
	for d := range headcount {
		names[d] = struct{}{}
	}
	for d := range present {
		names[d] = struct{}{}
	}

	stats := make([]analytics.DepartmentStat, 0, len(names))
	for d := range names {
		stat := analytics.DepartmentStat{
			Department:     d,
			TotalEmployees: headcount[d],
			Present:        len(present[d]),
		}
		stat.Rate = AttendanceRate(stat.Present, stat.TotalEmployees)
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Department < stats[j].Department })
	return stats
}
