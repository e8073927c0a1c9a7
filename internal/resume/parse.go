// Package resume splits extracted resume text into the sections the intake
// flow uses. Parsing is best effort: unrecognised text lands nowhere and an
// empty result is valid.
package resume

import (
	"regexp"
	"strings"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

type section int

const (
	sectionNone section = iota
	sectionEducation
	sectionSkills
	sectionExperience
)

var headings = []struct {
	re  *regexp.Regexp
	sec section
}{
	{regexp.MustCompile(`(?i)^(education|academics?|academic (background|details|qualifications?)|qualifications?)\s*:?\s*(.*)$`), sectionEducation},
	{regexp.MustCompile(`(?i)^((technical |key |core )?skills?( set| summary)?|technologies|tools)\s*:?\s*(.*)$`), sectionSkills},
	{regexp.MustCompile(`(?i)^((work |professional )?experience|internships?|projects?|employment( history)?)\s*:?\s*(.*)$`), sectionExperience},
}

// maxHeadingLen keeps long prose lines that merely start with "Skills" from
// being read as headings.
const maxHeadingLen = 40

// Parse assigns each line of text to the most recent heading above it. Text
// on the heading line after a colon belongs to that section.
func Parse(text string) domain.ResumeFields {
	var edu, sk, exp []string
	cur := sectionNone
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sec, rest, ok := heading(line); ok {
			cur = sec
			if rest == "" {
				continue
			}
			line = rest
		}
		switch cur {
		case sectionEducation:
			edu = append(edu, line)
		case sectionSkills:
			sk = append(sk, line)
		case sectionExperience:
			exp = append(exp, line)
		}
	}
	return domain.ResumeFields{
		Education:  strings.Join(edu, "\n"),
		Skills:     strings.Join(sk, "\n"),
		Experience: strings.Join(exp, "\n"),
	}
}

func heading(line string) (section, string, bool) {
	for _, h := range headings {
		m := h.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rest := strings.TrimSpace(m[len(m)-1])
		head := strings.TrimSpace(strings.TrimSuffix(line[:len(line)-len(m[len(m)-1])], ":"))
		if len(head) > maxHeadingLen {
			continue
		}
		// A heading without a colon must stand alone on its line.
		if rest != "" && !strings.Contains(line[:len(line)-len(m[len(m)-1])], ":") {
			continue
		}
		return h.sec, rest, true
	}
	return sectionNone, "", false
}
