package forthic

import "time"

// PositionedString - A string value that carries its source location
//
// STRING and DOT_SYMBOL tokens push positioned strings onto the stack.
// They decay to plain strings at Interpreter.StackPop/StackPeek, which
// records the location for later diagnostics; most word handlers never
// see one.
type PositionedString struct {
	str      string
	location *CodeLocation
}

// NewPositionedString creates a new PositionedString
func NewPositionedString(str string, location *CodeLocation) *PositionedString {
	return &PositionedString{
		str:      str,
		location: location,
	}
}

func (p *PositionedString) String() string {
	return p.str
}

// GetLocation returns the source location of the string
func (p *PositionedString) GetLocation() *CodeLocation {
	return p.location
}

// DecayValue converts a PositionedString to its plain string; all other
// values pass through unchanged
func DecayValue(val interface{}) interface{} {
	if ps, ok := val.(*PositionedString); ok {
		return ps.String()
	}
	return val
}

// PlainDate - A calendar date without a time-of-day component
//
// Produced by the date literal handler. The embedded time.Time is midnight
// in the handler's timezone.
type PlainDate struct {
	time.Time
}

// NewPlainDate creates a PlainDate at midnight in the given timezone
func NewPlainDate(year int, month time.Month, day int, loc *time.Location) PlainDate {
	return PlainDate{time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// ISODate formats the date as YYYY-MM-DD
func (d PlainDate) ISODate() string {
	return d.Format("2006-01-02")
}

// ClockTime - A time-of-day without a date component
//
// Produced by the time literal handler. The embedded time.Time uses the
// zero date (year 0, January 1).
type ClockTime struct {
	time.Time
}

// NewClockTime creates a ClockTime on the zero date
func NewClockTime(hours int, minutes int) ClockTime {
	return ClockTime{time.Date(0, 1, 1, hours, minutes, 0, 0, time.UTC)}
}
