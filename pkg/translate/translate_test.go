package translate

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestNormalizeEnglish(t *testing.T) {
	assert.Equal(t, "US_Reciprocal_Tariff_Policy", NormalizeEnglish("  US Reciprocal Tariff Policy "))
	assert.Equal(t, "", NormalizeEnglish("   "))
}

func TestTranslate(t *testing.T) {
	tr := NewTranslator(NewMemoryCache(), quietLogger())

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"exact dictionary hit", "美国所谓对等关税政策", "US_Reciprocal_Tariff_Policy"},
		{"substring hit", "关于2023年10月巴以冲突的最新进展", "October_2023_Israel_Palestine_Conflict"},
		{"unknown title keeps original", "某个未知事件", "某个未知事件"},
		{"empty input", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tr.Translate(tc.title))
		})
	}
}

func TestTranslateUsesCache(t *testing.T) {
	cache := NewMemoryCache()
	require.NoError(t, cache.Set("自定义事件", "Custom Override"))

	tr := NewTranslator(cache, quietLogger())
	assert.Equal(t, "Custom_Override", tr.Translate("自定义事件"))
}

func TestTranslatePopulatesCache(t *testing.T) {
	cache := NewMemoryCache()
	tr := NewTranslator(cache, quietLogger())

	tr.Translate("新西兰央行降息周期开启")
	got, ok := cache.Get("新西兰央行降息周期开启")
	require.True(t, ok)
	assert.Equal(t, "New Zealand Central Bank Interest Rate Cut Cycle Begins", got)
}

func TestBadgerCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cache, err := NewBadgerCache(dir, quietLogger())
	require.NoError(t, err)
	require.NoError(t, cache.Set("事件", "Event"))

	got, ok := cache.Get("事件")
	assert.True(t, ok)
	assert.Equal(t, "Event", got)
	require.NoError(t, cache.Close())

	// Reopen and verify persistence.
	cache, err = NewBadgerCache(dir, quietLogger())
	require.NoError(t, err)
	defer cache.Close()

	got, ok = cache.Get("事件")
	assert.True(t, ok)
	assert.Equal(t, "Event", got)

	_, ok = cache.Get("缺失")
	assert.False(t, ok)
}

func writeLedger(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	return path
}

func TestFilterCSV(t *testing.T) {
	input := writeLedger(t, [][]string{
		{"url", "title_chinese", "title_english", "update_date", "found_time"},
		{"http://a", "美国所谓对等关税政策", "", "2025-06-01", "2025-06-02 10:00:00"},
		{"http://b", "旧事件", "", "2024-01-01", "2025-06-02 10:00:00"},
		{"http://c", "坏日期", "", "not-a-date", "2025-06-02 10:00:00"},
	})
	output := filepath.Join(t.TempDir(), "out.csv")

	tr := NewTranslator(NewMemoryCache(), quietLogger())
	start, _ := time.Parse("2006-01-02", "2025-05-01")
	end, _ := time.Parse("2006-01-02", "2025-09-11")

	kept, err := FilterCSV(input, output, start, end, tr, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, kept)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "http://a", rows[1][0])
	assert.Equal(t, "US_Reciprocal_Tariff_Policy", rows[1][2])
}

func TestFilterCSVMissingColumn(t *testing.T) {
	input := writeLedger(t, [][]string{
		{"url", "title_chinese", "update_date"},
		{"http://a", "事件", "2025-06-01"},
	})
	output := filepath.Join(t.TempDir(), "out.csv")

	tr := NewTranslator(NewMemoryCache(), quietLogger())
	_, err := FilterCSV(input, output, time.Time{}, time.Now(), tr, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title_english")
}
