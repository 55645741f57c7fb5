// Package translate renders Chinese event titles into English identifiers.
// Lookups go through a curated dictionary first (exact, then substring
// match), falling back to the normalized original text, with every result
// memoized in a persistent cache.
package translate

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// dictionary maps known event titles to English renderings. Substring hits
// let a dated or suffixed variant of a known title reuse its translation.
var dictionary = map[string]string{
	"2023年10月巴以冲突":          "October 2023 Israel Palestine Conflict",
	"抗日战争暨反法西斯战争胜利80周年":     "80th Anniversary of Victory in the Anti Japanese War and World Anti Fascist War",
	"美国所谓对等关税政策":            "US Reciprocal Tariff Policy",
	"新西兰央行降息周期开启":           "New Zealand Central Bank Interest Rate Cut Cycle Begins",
	"特朗普与普京谈判美俄乌三方会晤":       "Trump Putin Negotiations US Russia Ukraine Tripartite Meeting",
}

// NormalizeEnglish converts a rendering into identifier form: trimmed, with
// spaces replaced by underscores.
func NormalizeEnglish(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), " ", "_")
}

// Translator resolves titles through the dictionary and cache.
type Translator struct {
	cache Cache
	log   *logrus.Entry
}

func NewTranslator(cache Cache, log *logrus.Logger) *Translator {
	return &Translator{cache: cache, log: log.WithField("component", "translate")}
}

// Translate returns the normalized English rendering of a title. Empty input
// yields "". Unknown titles fall back to the normalized original text, which
// keeps downstream identifiers stable even without a dictionary hit.
func (t *Translator) Translate(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}

	if cached, ok := t.cache.Get(title); ok {
		return NormalizeEnglish(cached)
	}

	if eng, ok := dictionary[title]; ok {
		t.store(title, eng)
		return NormalizeEnglish(eng)
	}
	for key, eng := range dictionary {
		if strings.Contains(title, key) {
			t.store(title, eng)
			return NormalizeEnglish(eng)
		}
	}

	t.log.WithField("title", title).Debug("No dictionary entry, keeping original text")
	return NormalizeEnglish(title)
}

func (t *Translator) store(title, eng string) {
	if err := t.cache.Set(title, eng); err != nil {
		t.log.WithError(err).Warn("Could not persist translation")
	}
}
