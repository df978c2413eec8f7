package listing

import (
	"strings"
	"time"
)

var modTimeLayouts = []string{
	"Jan 2 2006",
	"01-02-06 03:04PM",
	"01-02-2006 03:04PM",
	"01-02-06 15:04",
	"01-02-2006 15:04",
}

// ModTime interprets LastModified relative to now. Unix listings omit the
// year for recent files; such stamps are placed in the latest year that
// does not put them in the future. The zero time is returned when the stamp
// is not understood.
func (e Entry) ModTime(now time.Time) time.Time {
	s := strings.Join(strings.Fields(e.LastModified), " ")
	if s == "" {
		return time.Time{}
	}

	if t, err := time.ParseInLocation("Jan 2 15:04", s, time.UTC); err == nil {
		t = t.AddDate(now.Year(), 0, 0)
		if t.After(now.Add(24 * time.Hour)) {
			t = t.AddDate(-1, 0, 0)
		}
		return t
	}
	for _, layout := range modTimeLayouts {
		if t, err := time.ParseInLocation(layout, strings.ToUpper(s), time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
