package attendance

import (
	"fmt"
	"time"
)

// Rules are the attendance policies shared by the formula library and the day
// metrics calculator. Clock offsets are measured from local midnight in Location.
type Rules struct {
	Location                *time.Location
	StandardStart           time.Duration
	GracePeriod             time.Duration
	GraceViolationThreshold time.Duration
	StandardEnd             time.Duration
	StandardShiftHours      float64
	BonusThresholdHours     float64
	LookbackDays            int
	FallbackTotalEmployees  int
	AbsentProductivityScore float64
	DeriveHours             bool
}

// DefaultRules mirrors the production policy: 09:00 start, 30 minute grace,
// 18:00 end, 8 hour shift, fixed UTC+5.
func DefaultRules() Rules {
	return Rules{
		Location:                time.FixedZone("UTC+5", 5*60*60),
		StandardStart:           9 * time.Hour,
		GracePeriod:             30 * time.Minute,
		GraceViolationThreshold: 30 * time.Minute,
		StandardEnd:             18 * time.Hour,
		StandardShiftHours:      8,
		BonusThresholdHours:     9,
		LookbackDays:            30,
		FallbackTotalEmployees:  350,
		AbsentProductivityScore: 1.0,
		DeriveHours:             true,
	}
}

// ParseClock converts HH:MM into an offset from midnight.
func ParseClock(clock string) (time.Duration, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: expected HH:MM", clock)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// on returns wall-clock offset on day's calendar date in the rules' zone.
func (r Rules) on(day time.Time, offset time.Duration) time.Time {
	d := day.In(r.Location)
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, r.Location)
}

// LateCutoff is the last on-time check-in instant for day.
func (r Rules) LateCutoff(day time.Time) time.Time {
	return r.on(day, r.StandardStart+r.GracePeriod)
}

// GraceViolationCutoff is the last check-in instant that is not a grace violation.
func (r Rules) GraceViolationCutoff(day time.Time) time.Time {
	return r.on(day, r.StandardStart+r.GraceViolationThreshold)
}

// EarlyDepartureCutoff is the standard end of day.
func (r Rules) EarlyDepartureCutoff(day time.Time) time.Time {
	return r.on(day, r.StandardEnd)
}

// IsLate reports a check-in strictly after start plus grace.
func (r Rules) IsLate(day, checkIn time.Time) bool {
	return checkIn.After(r.LateCutoff(day))
}

// IsGraceViolation reports a check-in strictly after start plus the violation threshold.
func (r Rules) IsGraceViolation(day, checkIn time.Time) bool {
	return checkIn.After(r.GraceViolationCutoff(day))
}

// IsEarlyDeparture reports a check-out strictly before the standard end.
func (r Rules) IsEarlyDeparture(day, checkOut time.Time) bool {
	return checkOut.Before(r.EarlyDepartureCutoff(day))
}

// DayOf resolves the calendar day t belongs to in the rules' zone.
func (r Rules) DayOf(t time.Time) time.Time {
	t = t.In(r.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.Location)
}
