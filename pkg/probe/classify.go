// Package probe walks a numeric identifier space with plain HTTP requests,
// classifying each page and recording the keepers.
package probe

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/YaPengJi1/pachong/pkg/models"
)

// pageMarkers distinguish a real timeline page from error shells. Any single
// hit is enough.
var pageMarkers = []string{"更新至", "全部", "时间倒序"}

var (
	dateLongPattern    = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	dateCompactPattern = regexp.MustCompile(`更新至(\d{8})`)
	titleTagPattern    = regexp.MustCompile(`<title>(.*?)</title>`)
)

// HasMarkers reports whether the page carries any timeline marker.
func HasMarkers(content string) bool {
	for _, m := range pageMarkers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

// ExtractUpdateDate pulls the page's update date. The create-time element is
// preferred; the whole document is scanned as a fallback. Two formats are
// understood: "2025年9月10日" and the compact "更新至20250910".
func ExtractUpdateDate(content string) (time.Time, bool) {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		if elem := doc.Find("p.create-time").First(); elem.Length() > 0 {
			if d, ok := parseDate(strings.TrimSpace(elem.Text())); ok {
				return d, true
			}
		}
	}
	return parseDate(content)
}

func parseDate(text string) (time.Time, bool) {
	if m := dateLongPattern.FindStringSubmatch(text); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := dateCompactPattern.FindStringSubmatch(text); m != nil {
		return buildDate(m[1][:4], m[1][4:6], m[1][6:8])
	}
	return time.Time{}, false
}

func buildDate(y, mo, d string) (time.Time, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(mo)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// ExtractTitle returns the page title, "Unknown" when none is present.
func ExtractTitle(content string) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			return title
		}
	}
	if m := titleTagPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "Unknown"
}

// Verdict is the classification of one probed page.
type Verdict struct {
	Class      models.Classification
	Reason     models.FilterReason
	Title      string
	UpdateDate time.Time
}

// Classifier applies the marker check and the minimum-date policy.
type Classifier struct {
	minDate time.Time
}

func NewClassifier(minDate time.Time) *Classifier {
	return &Classifier{minDate: minDate}
}

// Classify inspects fetched page content. Pages without markers are invalid;
// marker-bearing pages with an old or unparsable date are filtered; the rest
// are valid with title and date attached.
func (c *Classifier) Classify(content string) Verdict {
	if !HasMarkers(content) {
		return Verdict{Class: models.ClassInvalid}
	}
	date, ok := ExtractUpdateDate(content)
	if !ok {
		return Verdict{Class: models.ClassFiltered, Reason: models.FilterUnparsableDate}
	}
	if date.Before(c.minDate) {
		return Verdict{Class: models.ClassFiltered, Reason: models.FilterDateTooOld, UpdateDate: date}
	}
	return Verdict{
		Class:      models.ClassValid,
		Title:      ExtractTitle(content),
		UpdateDate: date,
	}
}
