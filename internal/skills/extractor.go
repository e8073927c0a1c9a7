// Package skills pulls canonical skill tokens out of free-text profile fields.
package skills

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxSkills caps the number of skills sent to the recommender.
const MaxSkills = 20

// Dictionaries are the keyword lists scanned in experience and education text.
type Dictionaries struct {
	Technical []string `yaml:"technical"`
	Domain    []string `yaml:"domain"`
}

// DefaultDictionaries returns the built-in keyword lists.
func DefaultDictionaries() Dictionaries {
	return Dictionaries{
		Technical: []string{
			// languages
			"python", "java", "javascript", "typescript", "kotlin", "swift", "golang", "rust",
			"ruby", "php", "scala", "sql",
			// data stores
			"mysql", "postgresql", "mongodb", "redis", "firebase",
			// web
			"html", "css", "react", "angular", "vue", "node.js", "express", "django", "flask",
			"spring", "spring boot", ".net", "rest api", "graphql", "microservices",
			// mobile
			"flutter", "react native", "android", "ios",
			// cloud and devops
			"aws", "azure", "gcp", "google cloud", "docker", "kubernetes", "jenkins", "terraform",
			"ansible", "git", "github", "linux", "ci/cd", "devops",
			// ml and data
			"machine learning", "deep learning", "artificial intelligence", "data analysis",
			"pandas", "numpy", "tensorflow", "pytorch", "scikit-learn", "nlp", "computer vision",
			"tableau", "power bi", "excel",
		},
		Domain: []string{
			"computer science", "information technology", "data science", "artificial intelligence",
			"machine learning", "cyber security", "cybersecurity", "information security",
			"software engineering", "electronics", "networking", "cloud computing",
			"data analytics", "robotics", "internet of things", "blockchain",
		},
	}
}

// Extractor scans profile text against fixed dictionaries.
type Extractor struct {
	technical []string
	domain    []string
}

// New builds an Extractor; an empty list falls back to its default.
func New(d Dictionaries) *Extractor {
	def := DefaultDictionaries()
	if len(d.Technical) == 0 {
		d.Technical = def.Technical
	}
	if len(d.Domain) == 0 {
		d.Domain = def.Domain
	}
	return &Extractor{technical: lowerAll(d.Technical), domain: lowerAll(d.Domain)}
}

var (
	lineSplit  = regexp.MustCompile(`\r?\n`)
	tokenSplit = regexp.MustCompile(`[,;|\-]`)
	digitsOnly = regexp.MustCompile(`^\d+$`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Extract returns at most MaxSkills normalized, case-insensitively unique skills.
// Skills text comes first, then experience matches, then education matches.
// The result is never nil.
func (e *Extractor) Extract(skillsText, experienceText, educationText string) []string {
	raw := make([]string, 0, 32)
	raw = append(raw, splitSkills(skillsText)...)
	raw = append(raw, matchKeywords(experienceText, e.technical)...)
	raw = append(raw, matchKeywords(educationText, e.domain)...)
	return Clean(raw)
}

// Clean normalizes tokens, drops short and repeated ones and applies MaxSkills.
func Clean(tokens []string) []string {
	out := make([]string, 0, MaxSkills)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		n := Normalize(t)
		if len(n) <= 2 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
		if len(out) == MaxSkills {
			break
		}
	}
	return out
}

// Normalize lowercases s, strips everything but letters, digits and spaces and
// collapses runs of whitespace.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, s)
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func splitSkills(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, line := range lineSplit.Split(text, -1) {
		for _, tok := range tokenSplit.Split(line, -1) {
			tok = strings.TrimSpace(tok)
			if len(tok) <= 2 || digitsOnly.MatchString(tok) {
				continue
			}
			out = append(out, tok)
		}
	}
	return out
}

func matchKeywords(text string, keywords []string) []string {
	s := strings.ToLower(text)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, k := range keywords {
		if strings.Contains(s, k) {
			out = append(out, k)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

var std = New(DefaultDictionaries())

// Extract runs the default Extractor.
func Extract(skillsText, experienceText, educationText string) []string {
	return std.Extract(skillsText, experienceText, educationText)
}
