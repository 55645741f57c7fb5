// Package extract implements cascading CSS-selector extraction over parsed
// HTML. Source markup drifts over time, so every field is described by an
// ordered list of candidate selectors with optional minimum-length floors,
// and container discovery picks whichever selector matches the most nodes.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is one selector attempt within a field cascade. If Attr is set
// the attribute value is taken, with the node text as fallback. Floor is the
// rune count the value must exceed to be accepted.
type Candidate struct {
	Selector string
	Attr     string
	Floor    int
}

// FieldSpec is an ordered cascade of candidates for a single field.
type FieldSpec struct {
	Name       string
	Candidates []Candidate
}

var digitRun = regexp.MustCompile(`\d+`)

// Text runs the cascade against the given selection and returns the first
// accepted value, or "" when no candidate matches.
func Text(sel *goquery.Selection, spec FieldSpec) string {
	for _, c := range spec.Candidates {
		node := sel.Find(c.Selector).First()
		if node.Length() == 0 {
			continue
		}
		val := strings.TrimSpace(node.Text())
		if val == "" && c.Attr != "" {
			if attr, ok := node.Attr(c.Attr); ok {
				val = strings.TrimSpace(attr)
			}
		}
		if val != "" && utf8.RuneCountInString(val) > c.Floor {
			return val
		}
	}
	return ""
}

// Attr returns the named attribute of the first node matching the cascade.
func Attr(sel *goquery.Selection, spec FieldSpec, attr string) string {
	for _, c := range spec.Candidates {
		node := sel.Find(c.Selector).First()
		if node.Length() == 0 {
			continue
		}
		if val, ok := node.Attr(attr); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// Number runs the cascade and returns the first digit run found in an
// accepted value. Returns 0 when nothing numeric matches.
func Number(sel *goquery.Selection, spec FieldSpec) int {
	for _, c := range spec.Candidates {
		node := sel.Find(c.Selector).First()
		if node.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(node.Text())
		if m := digitRun.FindString(text); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return n
			}
		}
	}
	return 0
}

// BestContainers evaluates each container selector against the document and
// returns the matches of whichever selector found the most nodes, together
// with the winning selector. Ties go to the earlier selector.
func BestContainers(doc *goquery.Document, selectors []string) (*goquery.Selection, string) {
	var best *goquery.Selection
	bestSel := ""
	bestCount := 0
	for _, s := range selectors {
		matches := doc.Find(s)
		if matches.Length() > bestCount {
			best = matches
			bestSel = s
			bestCount = matches.Length()
		}
	}
	return best, bestSel
}

// CountMatches counts the distinct nodes matched by the union of the given
// selectors. The stabilization loop uses this as its growth signal.
func CountMatches(doc *goquery.Document, selectors []string) int {
	return doc.Find(strings.Join(selectors, ", ")).Length()
}

// VocabularyContainers is the last-resort container scan: div and li nodes
// whose own text mentions the comment-indicator vocabulary.
func VocabularyContainers(doc *goquery.Document, vocab *regexp.Regexp) *goquery.Selection {
	return doc.Find("div, li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return vocab.MatchString(s.Text())
	})
}

// ContainerText is the whole-container fallback for a missing content field:
// the container's trimmed text, accepted only above the given floor.
func ContainerText(sel *goquery.Selection, floor int) string {
	text := strings.TrimSpace(sel.Text())
	if utf8.RuneCountInString(text) > floor {
		return text
	}
	return ""
}
