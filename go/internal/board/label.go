package board

import (
	"regexp"
	"strings"
)

var (
	// "20260213-001 Reserved seat ..." style labels
	lotLabelPattern = regexp.MustCompile(`^(\d{8}-\d+)\s+(.+)$`)
	// "20260130 sku ..." style labels
	dateLabelPattern = regexp.MustCompile(`^(\d{8})\s+(.+)$`)
)

// SeatLabel is a seat label split into its display lines.
type SeatLabel struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// SplitSeatLabel separates an embedded date or lot code from the descriptive
// suffix. Labels matching neither shape are returned whole as the primary line.
func SplitSeatLabel(label string) SeatLabel {
	s := strings.TrimSpace(label)
	for _, pattern := range []*regexp.Regexp{lotLabelPattern, dateLabelPattern} {
		if m := pattern.FindStringSubmatch(s); m != nil {
			return SeatLabel{Primary: m[1], Secondary: m[2]}
		}
	}
	return SeatLabel{Primary: s}
}

// Text joins both lines with a newline, or returns the primary line alone.
func (l SeatLabel) Text() string {
	if l.Secondary == "" {
		return l.Primary
	}
	return l.Primary + "\n" + l.Secondary
}
