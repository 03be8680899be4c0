package finmath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const rupee = "₹"

// IST is the fixed display zone; India has no DST so a fixed offset is exact.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// FormatCurrency renders amount as whole rupees with Indian digit grouping,
// e.g. 150000 -> "₹1,50,000".
func FormatCurrency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return rupee + "0"
	}
	v := math.Round(amount)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + rupee + groupIndian(strconv.FormatFloat(v, 'f', 0, 64))
}

// groupIndian inserts separators after the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

var ErrInvalidTimestamp = errors.New("invalid timestamp")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // backend isoformat() without zone, UTC
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339, zone-less ISO timestamps (read as UTC) and plain dates.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// FormatTime renders t as DD/MM/YYYY in IST.
func FormatTime(t time.Time) string { return t.In(IST).Format("02/01/2006") }

// FormatDate renders an ISO timestamp as DD/MM/YYYY in IST.
func FormatDate(iso string) (string, error) {
	t, err := ParseTimestamp(iso)
	if err != nil {
		return "", err
	}
	return FormatTime(t), nil
}

// FormatRelativeTime buckets the distance between iso and now. Anything a
// week or older falls back to FormatDate.
func FormatRelativeTime(iso string, now time.Time) (string, error) {
	t, err := ParseTimestamp(iso)
	if err != nil {
		return "", err
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now", nil
	case d < time.Hour:
		return ago(int(d/time.Minute), "min"), nil
	case d < 24*time.Hour:
		return ago(int(d/time.Hour), "hour"), nil
	case d < 7*24*time.Hour:
		return ago(int(d/(24*time.Hour)), "day"), nil
	}
	return FormatTime(t), nil
}

func ago(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
