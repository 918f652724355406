package maintenance

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const requestNumberPrefix = "MR"

// maxNumberingAttempts bounds renumbering after unique index collisions.
const maxNumberingAttempts = 5

var requestNumberPattern = regexp.MustCompile(`^MR-(\d{4})(\d{2})-(\d{4,})$`)

// MonthPrefix is the request number prefix for the month of t, like MR-202610.
func MonthPrefix(t time.Time) string {
	return fmt.Sprintf("%s-%04d%02d", requestNumberPrefix, t.Year(), int(t.Month()))
}

// FormatRequestNumber renders sequence seq of the month of t.
func FormatRequestNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("%s-%04d", MonthPrefix(t), seq)
}

// ParseRequestNumber splits a request number into its year, month and sequence.
func ParseRequestNumber(number string) (year int, month time.Month, seq int64, err error) {
	m := requestNumberPattern.FindStringSubmatch(number)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("malformed request number %q", number)
	}
	year, _ = strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm < 1 || mm > 12 {
		return 0, 0, 0, fmt.Errorf("malformed request number %q: month %d", number, mm)
	}
	seq, err = strconv.ParseInt(m[3], 10, 64)
	if err != nil || seq < 1 {
		return 0, 0, 0, fmt.Errorf("malformed request number %q", number)
	}
	return year, time.Month(mm), seq, nil
}
