package transfer

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	datetimePattern1 = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}$`)
	datetimePattern2 = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}:\d{2} [APap][Mm]$`)
)

// acqDatetimeLayout is how acquisition timestamps are rendered back out; it
// is also one of the two accepted input forms.
const acqDatetimeLayout = "2006-01-02T15:04:05"

// ParseAcqDatetime parses an acquisition timestamp string. Exactly two forms
// are accepted: "YYYY-MM-DD HH:mm:ss" (space or 'T' separator) and
// "M/D/YYYY H:mm:ss AM|PM". Anything else is an error naming both forms.
func ParseAcqDatetime(s string) (time.Time, error) {
	switch {
	case datetimePattern1.MatchString(s):
		layout := "2006-01-02 15:04:05"
		if s[10] == 'T' {
			layout = acqDatetimeLayout
		}
		return time.Parse(layout, s)
	case datetimePattern2.MatchString(s):
		return time.Parse("1/2/2006 3:04:05 PM", strings.ToUpper(s))
	default:
		return time.Time{}, fmt.Errorf("incorrect datetime format, should be YYYY-MM-DD HH:mm:ss or MM/DD/YYYY I:MM:SS P")
	}
}
