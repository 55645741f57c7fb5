package probe

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaPengJi1/pachong/pkg/config"
	"github.com/YaPengJi1/pachong/pkg/models"
	"github.com/YaPengJi1/pachong/pkg/store"
	"github.com/YaPengJi1/pachong/pkg/translate"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestClassify(t *testing.T) {
	c := NewClassifier(mustDate(t, "2025-01-01"))

	tests := []struct {
		name    string
		content string
		class   models.Classification
		reason  models.FilterReason
		date    string
	}{
		{
			name:    "marker with long date is valid",
			content: `<html><head><title>某事件</title></head><body><p class="create-time">更新至2025年3月5日 10:08</p></body></html>`,
			class:   models.ClassValid,
			date:    "2025-03-05",
		},
		{
			name:    "compact date before cutoff is filtered",
			content: `<html><body>更新至20241201</body></html>`,
			class:   models.ClassFiltered,
			reason:  models.FilterDateTooOld,
			date:    "2024-12-01",
		},
		{
			name:    "marker without a date is filtered",
			content: `<html><body>时间倒序</body></html>`,
			class:   models.ClassFiltered,
			reason:  models.FilterUnparsableDate,
		},
		{
			name:    "no markers is invalid",
			content: `<html><body>页面不存在</body></html>`,
			class:   models.ClassInvalid,
		},
		{
			name:    "single digit month and day",
			content: `<html><body>更新至2025年9月8日</body></html>`,
			class:   models.ClassValid,
			date:    "2025-09-08",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := c.Classify(tc.content)
			assert.Equal(t, tc.class, v.Class)
			assert.Equal(t, tc.reason, v.Reason)
			if tc.date != "" {
				assert.Equal(t, tc.date, v.UpdateDate.Format("2006-01-02"))
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "某事件", ExtractTitle(`<html><head><title>某事件</title></head></html>`))
	assert.Equal(t, "Unknown", ExtractTitle(`<html><body></body></html>`))
}

// fakeGetter serves canned content keyed by identifier.
type fakeGetter struct {
	mu    sync.Mutex
	pages map[int]string
	hits  []int
}

func (g *fakeGetter) Get(ctx context.Context, url string) (string, error) {
	var id int
	if _, err := fmt.Sscanf(url[strings.LastIndex(url, "=")+1:], "%d", &id); err != nil {
		return "", err
	}
	g.mu.Lock()
	g.hits = append(g.hits, id)
	g.mu.Unlock()
	if page, ok := g.pages[id]; ok {
		return page, nil
	}
	return "", fmt.Errorf("connection refused")
}

func validPage(title, date string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body><p class="create-time">更新至%s</p></body></html>`, title, date)
}

func newProber(t *testing.T, getter *fakeGetter, ledgerPath string, batchSize int) (*Prober, *store.CandidateLedger) {
	t.Helper()
	log := quietLogger()
	ledger, err := store.OpenCandidateLedger(ledgerPath, log)
	require.NoError(t, err)

	cfg := config.ProbeConfig{
		URLTemplate: "https://example.test/vein?record_id=%d",
		Concurrency: 4,
		BatchSize:   batchSize,
	}
	classifier := NewClassifier(mustDate(t, "2025-01-01"))
	tr := translate.NewTranslator(translate.NewMemoryCache(), log)
	return NewProber(getter, classifier, tr, ledger, cfg, log), ledger
}

func TestProberRun(t *testing.T) {
	getter := &fakeGetter{pages: map[int]string{
		1: validPage("美国所谓对等关税政策", "2025年3月5日"),
		2: `<html><body>无特征页面</body></html>`,
		3: validPage("旧事件", "2024年1月1日"),
		5: validPage("另一事件", "2025年6月1日"),
	}}
	path := filepath.Join(t.TempDir(), "results.csv")
	p, ledger := newProber(t, getter, path, 2)

	sum, err := p.Run(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Checked)
	assert.Equal(t, 2, sum.Valid)
	assert.Equal(t, 1, sum.Filtered)
	assert.Equal(t, 2, sum.Invalid) // no-marker page and failed request
	assert.Equal(t, 2, ledger.Count())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[1][0], "record_id=1")
	assert.Equal(t, "US_Reciprocal_Tariff_Policy", rows[1][2])
	assert.Equal(t, "2025-03-05", rows[1][3])
	assert.Contains(t, rows[2][0], "record_id=5")
}

func TestProberSkipsKnownIdentifiers(t *testing.T) {
	getter := &fakeGetter{pages: map[int]string{
		1: validPage("事件一", "2025年3月5日"),
		2: validPage("事件二", "2025年4月5日"),
	}}
	path := filepath.Join(t.TempDir(), "results.csv")

	p, _ := newProber(t, getter, path, 100)
	_, err := p.Run(context.Background(), 1, 2)
	require.NoError(t, err)

	// A fresh prober over the same ledger re-checks nothing.
	getter2 := &fakeGetter{pages: getter.pages}
	p2, _ := newProber(t, getter2, path, 100)
	sum, err := p2.Run(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Checked)
	assert.Equal(t, 2, sum.Skipped)
	assert.Empty(t, getter2.hits)
}

func TestProberInvalidRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	p, _ := newProber(t, &fakeGetter{}, path, 10)
	_, err := p.Run(context.Background(), 10, 1)
	require.Error(t, err)
}

func TestProberContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "results.csv")
	p, _ := newProber(t, &fakeGetter{pages: map[int]string{}}, path, 10)
	_, err := p.Run(ctx, 1, 100)
	require.Error(t, err)
}
