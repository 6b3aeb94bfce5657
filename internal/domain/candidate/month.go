package candidate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Month is a month-precision date (YYYY-MM). Employment claims never carry
// day precision, so gap math operates on whole months.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM string into a Month.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MustParseMonth parses a YYYY-MM string and panics on failure. Test helper.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether the month is unset.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	return m.index() < other.index()
}

// MonthsUntil returns the number of whole months from m to other.
// Negative when other is earlier than m.
func (m Month) MonthsUntil(other Month) int {
	return other.index() - m.index()
}

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Month) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
