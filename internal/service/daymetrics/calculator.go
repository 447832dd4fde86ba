package daymetrics

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/shopspring/decimal"
)

var (
	scoreCeiling      = decimal.NewFromFloat(1.0)
	scoreFloor        = decimal.NewFromFloat(0.1)
	latePenalty       = decimal.NewFromFloat(0.1)
	earlyPenalty      = decimal.NewFromFloat(0.1)
	shortShiftPenalty = decimal.NewFromFloat(0.2)
	longShiftBonus    = decimal.NewFromFloat(0.1)
)

// Calculator turns one raw attendance record into a unified metrics tuple.
type Calculator struct {
	rules attendance.Rules
}

func NewCalculator(rules attendance.Rules) *Calculator {
	return &Calculator{rules: rules}
}

// Rules returns the policy the calculator applies
func (c *Calculator) Rules() attendance.Rules {
	return c.rules
}

// Calculate applies the per-record rules. It fails only for records that
// cannot be interpreted at all.
func (c *Calculator) Calculate(record attendance.Record) (metrics.DayMetrics, error) {
	if err := validate(record); err != nil {
		return metrics.DayMetrics{}, err
	}

	if record.CheckIn == nil {
		return metrics.DayMetrics{
			Status:            metrics.StatusAbsent,
			ProductivityScore: c.rules.AbsentProductivityScore,
		}, nil
	}

	day := c.rules.DayOf(record.Date)
	result := metrics.DayMetrics{
		Status: metrics.StatusIncomplete,
		IsLate: c.rules.IsLate(day, *record.CheckIn),
	}
	if record.CheckOut != nil {
		result.Status = metrics.StatusPresent
		result.IsEarlyDeparture = c.rules.IsEarlyDeparture(day, *record.CheckOut)
	}

	total, regular, overtime := c.hours(record)
	result.TotalHours = round(total)
	result.RegularHours = round(regular)
	result.OvertimeHours = round(overtime)
	if record.BreakHours != nil {
		result.BreakDuration = round(decimal.NewFromFloat(*record.BreakHours))
	}
	result.ProductivityScore = c.productivity(result.IsLate, result.IsEarlyDeparture, total)

	return result, nil
}

// hours prefers the upstream figures. Only when none were supplied and both
// punches exist are they derived from the punch delta.
func (c *Calculator) hours(record attendance.Record) (total, regular, overtime decimal.Decimal) {
	if record.TotalHours != nil || record.RegularHours != nil || record.OvertimeHours != nil {
		return fromPtr(record.TotalHours), fromPtr(record.RegularHours), fromPtr(record.OvertimeHours)
	}
	if !c.rules.DeriveHours || !record.IsCompleted() {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}

	total = decimal.NewFromFloat(record.CheckOut.Sub(*record.CheckIn).Hours())
	shift := decimal.NewFromFloat(c.rules.StandardShiftHours)
	regular = decimal.Min(total, shift)
	overtime = decimal.Max(decimal.Zero, total.Sub(shift))
	return total, regular, overtime
}

func (c *Calculator) productivity(isLate, isEarly bool, total decimal.Decimal) float64 {
	score := scoreCeiling
	if isLate {
		score = score.Sub(latePenalty)
	}
	if isEarly {
		score = score.Sub(earlyPenalty)
	}
	if total.LessThan(decimal.NewFromFloat(c.rules.StandardShiftHours)) {
		score = score.Sub(shortShiftPenalty)
	}
	if total.GreaterThanOrEqual(decimal.NewFromFloat(c.rules.BonusThresholdHours)) {
		score = score.Add(longShiftBonus)
	}
	score = decimal.Min(scoreCeiling, decimal.Max(scoreFloor, score))
	return score.Round(2).InexactFloat64()
}

func validate(record attendance.Record) error {
	if record.EmployeeCode == "" {
		return fmt.Errorf("%w: empty employee code", attendance.ErrMalformedRecord)
	}
	if record.Date.IsZero() {
		return fmt.Errorf("%w: employee %s has no date", attendance.ErrMalformedRecord, record.EmployeeCode)
	}
	if record.IsCompleted() && record.CheckOut.Before(*record.CheckIn) {
		return fmt.Errorf("%w: employee %s checked out before checking in", attendance.ErrMalformedRecord, record.EmployeeCode)
	}
	return nil
}

func fromPtr(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
