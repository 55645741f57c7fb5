package seeds

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func writeSeeds(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seeds.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	return path
}

func TestRead(t *testing.T) {
	path := writeSeeds(t, [][]string{
		{"title", "url"},
		{"甲", "http://a"},
		{"乙", ""},
		{"丙", "http://c"},
		{"丁", "http://d"},
	})

	seeds, err := Read(path, "url", 1, 0, quietLogger())
	require.NoError(t, err)
	require.Len(t, seeds, 3)
	assert.Equal(t, Seed{Row: 1, URL: "http://a"}, seeds[0])
	assert.Equal(t, Seed{Row: 3, URL: "http://c"}, seeds[1])
	assert.Equal(t, Seed{Row: 4, URL: "http://d"}, seeds[2])
}

func TestReadRowWindow(t *testing.T) {
	path := writeSeeds(t, [][]string{
		{"url"},
		{"http://a"},
		{"http://b"},
		{"http://c"},
	})

	seeds, err := Read(path, "url", 2, 2, quietLogger())
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "http://b", seeds[0].URL)
}

func TestReadMissingColumn(t *testing.T) {
	path := writeSeeds(t, [][]string{
		{"title", "link"},
		{"甲", "http://a"},
	})

	_, err := Read(path, "url", 1, 0, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"url"`)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.csv"), "url", 1, 0, quietLogger())
	require.Error(t, err)
}
