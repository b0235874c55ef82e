// Package cftime decodes CF-convention time coordinates ("days since
// 1850-01-01") under the model calendars used in climate output, including
// those that time.Time cannot represent, such as 360_day and noleap.
package cftime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Calendar names a CF calendar.
type Calendar string

const (
	Standard           Calendar = "standard"
	ProlepticGregorian Calendar = "proleptic_gregorian"
	Julian             Calendar = "julian"
	NoLeap             Calendar = "noleap"
	AllLeap            Calendar = "all_leap"
	Day360             Calendar = "360_day"
)

var (
	// ErrCalendar indicates an unknown calendar name.
	ErrCalendar = errors.New("unsupported calendar")
	// ErrUnits indicates malformed or unsupported time units.
	ErrUnits = errors.New("unsupported time units")
)

// ParseCalendar normalises a calendar attribute, mapping the CF aliases.
// An empty name means standard.
func ParseCalendar(name string) (Calendar, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard", "gregorian":
		return Standard, nil
	case "proleptic_gregorian":
		return ProlepticGregorian, nil
	case "julian":
		return Julian, nil
	case "noleap", "365_day":
		return NoLeap, nil
	case "all_leap", "366_day":
		return AllLeap, nil
	case "360_day":
		return Day360, nil
	}
	return "", fmt.Errorf("%w: %q", ErrCalendar, name)
}

// Date is a calendar date and time of day in a given calendar.
type Date struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	Calendar             Calendar
}

// String formats d as an ISO-8601-like timestamp.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
}

// Before reports whether d is earlier than o. Both must share a calendar.
func (d Date) Before(o Date) bool {
	a := [6]int{d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second}
	b := [6]int{o.Year, o.Month, o.Day, o.Hour, o.Minute, o.Second}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

const secondsPerDay = 86400

var (
	cumDays     = [13]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}
	cumDaysLeap = [13]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}
)

// gregorianStart is the Julian day number of 1582-10-15, the first day of
// the Gregorian calendar in the standard calendar.
const gregorianStart = 2299161

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func julianDayNumber(y, m, d int64) int64 {
	a := (14 - m) / 12
	yy := y + 4800 - a
	mm := m + 12*a - 3
	return d + (153*mm+2)/5 + 365*yy + floorDiv(yy, 4) - 32083
}

func gregorianDayNumber(y, m, d int64) int64 {
	a := (14 - m) / 12
	yy := y + 4800 - a
	mm := m + 12*a - 3
	return d + (153*mm+2)/5 + 365*yy + floorDiv(yy, 4) - floorDiv(yy, 100) + floorDiv(yy, 400) - 32045
}

func fromJulianDayNumber(jdn int64) (int, int, int) {
	c := jdn + 32082
	d := floorDiv(4*c+3, 1461)
	e := c - floorDiv(1461*d, 4)
	m := floorDiv(5*e+2, 153)
	day := e - floorDiv(153*m+2, 5) + 1
	month := m + 3 - 12*(m/10)
	year := d - 4800 + m/10
	return int(year), int(month), int(day)
}

func fromGregorianDayNumber(jdn int64) (int, int, int) {
	l := jdn + 68569
	n := floorDiv(4*l, 146097)
	l = l - floorDiv(146097*n+3, 4)
	i := floorDiv(4000*(l+1), 1461001)
	l = l - floorDiv(1461*i, 4) + 31
	j := floorDiv(80*l, 2447)
	day := l - floorDiv(2447*j, 80)
	l = j / 11
	month := j + 2 - 12*l
	year := 100*(n-49) + i + l
	return int(year), int(month), int(day)
}

// dayNumber maps a date to a day count that increases by one per day.
func dayNumber(cal Calendar, y, m, d int) int64 {
	Y, M, D := int64(y), int64(m), int64(d)
	switch cal {
	case Day360:
		return (Y*12+(M-1))*30 + (D - 1)
	case NoLeap:
		return Y*365 + int64(cumDays[m-1]) + D - 1
	case AllLeap:
		return Y*366 + int64(cumDaysLeap[m-1]) + D - 1
	case Julian:
		return julianDayNumber(Y, M, D)
	case ProlepticGregorian:
		return gregorianDayNumber(Y, M, D)
	default:
		if y > 1582 || (y == 1582 && (m > 10 || (m == 10 && d >= 15))) {
			return gregorianDayNumber(Y, M, D)
		}
		return julianDayNumber(Y, M, D)
	}
}

func monthOf(cum [13]int, doy int) (int, int) {
	for m := 1; m <= 12; m++ {
		if doy < cum[m] {
			return m, doy - cum[m-1] + 1
		}
	}
	return 12, doy - cum[11] + 1
}

func fromDayNumber(cal Calendar, n int64) (int, int, int) {
	switch cal {
	case Day360:
		months := floorDiv(n, 30)
		return int(floorDiv(months, 12)), int(months-12*floorDiv(months, 12)) + 1, int(n-30*months) + 1
	case NoLeap:
		y := floorDiv(n, 365)
		m, d := monthOf(cumDays, int(n-365*y))
		return int(y), m, d
	case AllLeap:
		y := floorDiv(n, 366)
		m, d := monthOf(cumDaysLeap, int(n-366*y))
		return int(y), m, d
	case Julian:
		return fromJulianDayNumber(n)
	case ProlepticGregorian:
		return fromGregorianDayNumber(n)
	default:
		if n >= gregorianStart {
			return fromGregorianDayNumber(n)
		}
		return fromJulianDayNumber(n)
	}
}

// Units is a parsed "<unit> since <reference>" string.
type Units struct {
	Seconds   float64 // Length of one unit in seconds
	Reference Date
}

var unitSeconds = map[string]float64{
	"days": secondsPerDay, "day": secondsPerDay, "d": secondsPerDay,
	"hours": 3600, "hour": 3600, "hrs": 3600, "hr": 3600, "h": 3600,
	"minutes": 60, "minute": 60, "mins": 60, "min": 60,
	"seconds": 1, "second": 1, "secs": 1, "sec": 1, "s": 1,
}

// ParseUnits parses a CF time units attribute in calendar cal.
func ParseUnits(units string, cal Calendar) (Units, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return Units{}, fmt.Errorf("%w: %q", ErrUnits, units)
	}
	secs, ok := unitSeconds[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return Units{}, fmt.Errorf("%w: %q", ErrUnits, units)
	}
	ref, err := parseReference(strings.TrimSpace(parts[1]), cal)
	if err != nil {
		return Units{}, fmt.Errorf("%w: %q: %v", ErrUnits, units, err)
	}
	return Units{Seconds: secs, Reference: ref}, nil
}

// parseReference accepts "Y-M-D", "Y-M-D h:m:s" and "Y-M-DTh:m:s" with an
// optional fractional second and a trailing "Z" or "UTC".
func parseReference(s string, cal Calendar) (Date, error) {
	s = strings.TrimSuffix(strings.TrimSuffix(s, " UTC"), "Z")
	s = strings.Replace(s, "T", " ", 1)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Date{}, errors.New("empty reference date")
	}

	date := strings.Split(fields[0], "-")
	if len(date) != 3 {
		return Date{}, fmt.Errorf("bad date %q", fields[0])
	}
	var ymd [3]int
	for i, p := range date {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("bad date %q", fields[0])
		}
		ymd[i] = v
	}

	var hms [3]int
	if len(fields) > 1 {
		clock := strings.Split(fields[1], ":")
		for i := 0; i < len(clock) && i < 3; i++ {
			f, err := strconv.ParseFloat(clock[i], 64)
			if err != nil {
				return Date{}, fmt.Errorf("bad time %q", fields[1])
			}
			hms[i] = int(f)
		}
	}

	d := Date{Year: ymd[0], Month: ymd[1], Day: ymd[2], Hour: hms[0], Minute: hms[1], Second: hms[2], Calendar: cal}
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 || (cal == Day360 && d.Day > 30) {
		return Date{}, fmt.Errorf("date %s out of range", d)
	}
	return d, nil
}

// Decode converts an offset expressed in u to a date, rounding to the
// nearest second.
func (u Units) Decode(value float64) Date {
	ref := u.Reference
	base := dayNumber(ref.Calendar, ref.Year, ref.Month, ref.Day)*secondsPerDay +
		int64(ref.Hour*3600+ref.Minute*60+ref.Second)
	total := base + int64(math.Round(value*u.Seconds))

	days := floorDiv(total, secondsPerDay)
	sod := int(total - days*secondsPerDay)
	y, m, d := fromDayNumber(ref.Calendar, days)
	return Date{
		Year: y, Month: m, Day: d,
		Hour: sod / 3600, Minute: sod % 3600 / 60, Second: sod % 60,
		Calendar: ref.Calendar,
	}
}

// DecodeAll decodes every value in values.
func DecodeAll(values []float64, units, calendar string) ([]Date, error) {
	cal, err := ParseCalendar(calendar)
	if err != nil {
		return nil, err
	}
	u, err := ParseUnits(units, cal)
	if err != nil {
		return nil, err
	}
	dates := make([]Date, len(values))
	for i, v := range values {
		dates[i] = u.Decode(v)
	}
	return dates, nil
}
