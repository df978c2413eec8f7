package listing

import (
	"strconv"
	"strings"
)

var months = map[string]bool{
	"jan": true, "feb": true, "mar": true, "apr": true, "may": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "oct": true, "nov": true, "dec": true,
}

// ParseLine turns one raw LIST line into an Entry. It understands Unix
// "ls -l" output (with or without a group column) and DOS/IIS listings.
// ok is false for anything else, including blank lines and the "." and ".."
// pseudo entries.
func ParseLine(raw string) (Entry, bool) {
	line := strings.TrimRight(raw, "\r\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Entry{}, false
	}

	var (
		e  Entry
		ok bool
	)
	if isDOSDate(fields[0]) {
		e, ok = parseDOS(line, fields)
	} else {
		e, ok = parseUnix(line, fields)
	}
	if !ok || e.Name == "" || e.Name == "." || e.Name == ".." {
		return Entry{}, false
	}
	return e, true
}

// parseUnix handles
//
//	drwxr-xr-x 1 owner group 4096 Jan 02 15:04 name
//	-rw-r--r-- 1 owner 1024 Jan 02 2023 name
func parseUnix(line string, fields []string) (Entry, bool) {
	if len(fields) < 8 || !isUnixMode(fields[0]) {
		return Entry{}, false
	}

	// The month column sits at index 5 with a group column, 4 without.
	for _, m := range []int{5, 4} {
		if len(fields) < m+4 || !months[strings.ToLower(fields[m])] {
			continue
		}
		size, err := strconv.ParseInt(fields[m-1], 10, 64)
		if err != nil || size < 0 {
			continue
		}
		if !isDay(fields[m+1]) || !isTimeOrYear(fields[m+2]) {
			continue
		}

		name := afterFields(line, m+3)
		kind := KindFile
		switch fields[0][0] {
		case 'd':
			kind = KindDir
		case 'l', 'L':
			if i := strings.Index(name, " -> "); i >= 0 {
				name = name[:i]
			}
		}

		e := Entry{
			Name:         name,
			Kind:         kind,
			LastModified: fields[m] + " " + fields[m+1] + " " + fields[m+2],
		}
		if kind == KindFile {
			e.Size = size
			e.HasSize = true
		}
		return e, true
	}
	return Entry{}, false
}

// parseDOS handles
//
//	01-15-24  03:04PM       <DIR>          docs
//	01-15-2024  03:04PM          1234 notes.txt
func parseDOS(line string, fields []string) (Entry, bool) {
	if len(fields) < 4 || !isDOSTime(fields[1]) {
		return Entry{}, false
	}

	e := Entry{
		Name:         afterFields(line, 3),
		LastModified: fields[0] + " " + fields[1],
	}
	if strings.EqualFold(fields[2], "<DIR>") {
		e.Kind = KindDir
		return e, true
	}

	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || size < 0 {
		return Entry{}, false
	}
	e.Kind = KindFile
	e.Size = size
	e.HasSize = true
	return e, true
}

// afterFields returns the remainder of line after skipping n
// whitespace-separated fields, preserving inner spacing of the rest.
func afterFields(line string, n int) string {
	rest := line
	for i := 0; i < n; i++ {
		rest = strings.TrimLeft(rest, " \t")
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = rest[idx:]
	}
	return strings.TrimLeft(rest, " \t")
}

// isUnixMode accepts symbolic modes (drwxr-xr-x) and the 3 or 4 digit octal
// modes some servers print instead. Octal modes carry no type, so those
// entries are files.
func isUnixMode(s string) bool {
	if len(s) == 3 || len(s) == 4 {
		return strings.Trim(s, "01234567") == ""
	}
	if len(s) < 10 {
		return false
	}
	if !strings.ContainsRune("-dlLbcpsD", rune(s[0])) {
		return false
	}
	for _, c := range s[1:10] {
		if !strings.ContainsRune("-rwxsStTl", c) {
			return false
		}
	}
	return true
}

func isDay(s string) bool {
	d, err := strconv.Atoi(s)
	return err == nil && d >= 1 && d <= 31
}

func isTimeOrYear(s string) bool {
	if len(s) == 4 {
		_, err := strconv.Atoi(s)
		return err == nil
	}
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return false
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	return err1 == nil && err2 == nil && hh >= 0 && hh < 24 && mm >= 0 && mm < 60
}

// isDOSDate matches MM-DD-YY and MM-DD-YYYY.
func isDOSDate(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}
	if len(parts[2]) != 2 && len(parts[2]) != 4 {
		return false
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	return true
}

// isDOSTime matches HH:MMAM, HH:MMPM and 24-hour HH:MM.
func isDOSTime(s string) bool {
	u := strings.ToUpper(s)
	u = strings.TrimSuffix(strings.TrimSuffix(u, "AM"), "PM")
	return isTimeOrYear(u) && strings.Contains(u, ":")
}
