package subtitle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseTimestamp accepts HH:MM:SS,mmm (SRT), [HH:]MM:SS.mmm (WebVTT) and
// H:MM:SS.cc (ASS). The fractional part may use one to three digits.
func parseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	sep := strings.LastIndexAny(value, ",.")
	if sep < 0 {
		return 0, fmt.Errorf("timestamp %q has no fractional seconds", value)
	}
	clock, frac := value[:sep], value[sep+1:]
	if len(frac) == 0 || len(frac) > 3 || !isDigits(frac) {
		return 0, fmt.Errorf("timestamp %q has malformed fractional seconds", value)
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("timestamp %q is not [H:]MM:SS", value)
	}
	fields := make([]int, len(parts))
	for i, part := range parts {
		if !isDigits(part) {
			return 0, fmt.Errorf("timestamp %q has non-numeric field %q", value, part)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", value, err)
		}
		fields[i] = n
	}
	var hours, minutes, seconds int
	if len(fields) == 3 {
		hours, minutes, seconds = fields[0], fields[1], fields[2]
	} else {
		minutes, seconds = fields[0], fields[1]
	}
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("timestamp %q is out of range", value)
	}
	millis, _ := strconv.Atoi(frac)
	for i := len(frac); i < 3; i++ {
		millis *= 10
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// parseTiming splits a "start --> end [settings]" line.
func parseTiming(line string) (time.Duration, time.Duration, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("timing line %q has no --> separator", strings.TrimSpace(line))
	}
	endFields := strings.Fields(right)
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("timing line %q has no end time", strings.TrimSpace(line))
	}
	start, err := parseTimestamp(left)
	if err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}
	end, err := parseTimestamp(endFields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

// FormatTimestamp renders d as HH:MM:SS,mmm.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Millisecond)
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
