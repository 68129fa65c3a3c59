package source

import (
	"regexp"
	"strings"
)

// bannerRe matches bundle delimiter banners such as
// "==================== START: .bmad-core/agents/tdd.md ====================".
var bannerRe = regexp.MustCompile(`(?m)^=+ (START|END): (\S+) =+[ \t]*\r?$`)

// Section is one document embedded in a bundle.
type Section struct {
	Path    string
	Content string
}

// SplitBundle returns the sections of a bundle in order of appearance. A
// section runs from its START banner to the matching END banner, or to the
// next START banner when the END is missing.
func SplitBundle(content string) []Section {
	matches := bannerRe.FindAllStringSubmatchIndex(content, -1)

	var (
		sections []Section
		open     string
		start    int
		inside   bool
	)
	closeSection := func(end int) {
		body := strings.Trim(content[start:end], "\r\n")
		sections = append(sections, Section{Path: strings.TrimPrefix(open, "./"), Content: body})
		inside = false
	}

	for _, m := range matches {
		kind := content[m[2]:m[3]]
		name := content[m[4]:m[5]]

		switch kind {
		case "START":
			if inside {
				closeSection(m[0])
			}
			open = name
			start = m[1]
			inside = true
		case "END":
			if inside && name == open {
				closeSection(m[0])
			}
		}
	}
	if inside {
		closeSection(len(content))
	}
	return sections
}
