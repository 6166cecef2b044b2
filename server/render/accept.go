package render

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

const defaultQuality = 100

type acceptEntry struct {
	contentType string
	quality     int
}

//ParseAcceptHeader negotiates the ordered list of acceptable content types
//from an HTTP Accept header: entries are grouped by explicit quality value
//descending, ties are broken by declaration order, and entries without a
//quality parameter weigh 100.
func ParseAcceptHeader(header string) []string {
	entries := make([]acceptEntry, 0)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		segments := strings.Split(part, ";")
		entry := acceptEntry{contentType: strings.TrimSpace(segments[0]), quality: defaultQuality}
		for _, segment := range segments[1:] {
			segment = strings.TrimSpace(segment)
			if strings.HasPrefix(segment, "q=") {
				if quality, err := strconv.ParseFloat(segment[2:], 64); err == nil {
					entry.quality = int(math.Round(quality * 100))
				}
			}
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].quality > entries[b].quality
	})

	contentTypes := make([]string, len(entries))
	for i, entry := range entries {
		contentTypes[i] = entry.contentType
	}
	return contentTypes
}
