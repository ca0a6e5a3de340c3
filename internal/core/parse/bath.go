package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	fullBathRe = regexp.MustCompile(`(\d+)\s*F`)
	halfBathRe = regexp.MustCompile(`(\d+)\s*H`)
	digitsRe   = regexp.MustCompile(`^\d+$`)
)

// BathScore parses a combined bathroom value: "3F 1H", "3:1", or a bare
// number of full baths. Score is full + 0.5*half. Unrecognized input yields
// (nil, 0, 0).
func BathScore(raw string) (*float64, int, int) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return nil, 0, 0
	}

	var full, half int

	fm := fullBathRe.FindStringSubmatch(s)
	hm := halfBathRe.FindStringSubmatch(s)

	switch {
	case fm != nil || hm != nil:
		if fm != nil {
			full, _ = strconv.Atoi(fm[1])
		}
		if hm != nil {
			half, _ = strconv.Atoi(hm[1])
		}

	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		f, errF := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errF != nil || errH != nil {
			return nil, 0, 0
		}
		full, half = f, h

	case digitsRe.MatchString(s):
		full, _ = strconv.Atoi(s)

	default:
		return nil, 0, 0
	}

	score := float64(full) + 0.5*float64(half)
	return &score, full, half
}

// BathScoreFromCounts scores separate full/half bathroom fields, as found on
// candidate-pool records. Unparseable counts degrade to zero, never fail.
func BathScoreFromCounts(fullRaw, halfRaw string) (*float64, int, int) {
	full := parseBathCount(fullRaw)
	half := parseBathCount(halfRaw)
	score := float64(full) + 0.5*float64(half)
	return &score, full, half
}

func parseBathCount(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
