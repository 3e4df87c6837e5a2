package collector

import (
	"fmt"
	"regexp"
	"strings"
)

var displayRe = regexp.MustCompile(`Display\s+\(([^)]+)\):\s+(\d+x\d+)\s+@\s+(\d+(?:\.\d+)?)\s+Hz\s+in\s+(\d+)"\s+\[([^\]]+)\]`)

// ParseDisplays formats every display line of fastfetch output as
// `[location] model: WxH @ Hz Hz in size"` and joins them with ", ".
// It returns "N/A" when no display is listed.
func ParseDisplays(out string) string {
	matches := displayRe.FindAllStringSubmatch(out, -1)
	if len(matches) == 0 {
		return notAvailable
	}

	displays := make([]string, 0, len(matches))
	for _, m := range matches {
		model, res, hz, size, location := m[1], m[2], m[3], m[4], m[5]
		displays = append(displays, fmt.Sprintf("[%s] %s: %s @ %s Hz in %s\"", location, model, res, hz, size))
	}
	return strings.Join(displays, ", ")
}
