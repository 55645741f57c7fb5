package store

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaPengJi1/pachong/pkg/models"
	"github.com/YaPengJi1/pachong/pkg/utils"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func sampleRoot() models.RootDocument {
	return models.RootDocument{
		Name:              "测试事件",
		LastUpdate:        "更新至2025年6月1日",
		DeclaredItemCount: 2,
		HarvestedAt:       models.Now(),
	}
}

func sampleEvents() []models.SubEvent {
	return []models.SubEvent{
		{ID: "event_1", Title: "第一条", Link: "http://a", Time: "6月1日"},
		{ID: "event_2", Title: "第二条", Link: "http://b", Time: "6月2日"},
	}
}

func TestSaveTimelineShape(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDataStore(dir, quietLogger())
	require.NoError(t, err)

	require.NoError(t, s.SaveTimeline(sampleRoot(), sampleEvents()))

	data, err := os.ReadFile(filepath.Join(dir, "level1_data.json"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s.RunID(), got["run_id"])
	assert.EqualValues(t, 2, got["total_sub_events"])
	core := got["core_info"].(map[string]any)
	assert.Equal(t, "测试事件", core["core_event_name"])
	assert.Len(t, got["sub_events"], 2)
	assert.NotEmpty(t, got["scrape_time"])
}

func TestAppendCommentRewritesLedgerAndCSV(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDataStore(dir, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.SaveTimeline(sampleRoot(), sampleEvents()))

	c1 := models.Comment{
		EventTitle: "第一条", EventID: "event_1", EventURL: "http://a",
		Index: 1, AuthorID: "张三", Content: "评论内容一", HarvestedAt: models.Now(),
	}
	require.NoError(t, s.AppendComment(c1))
	require.NoError(t, s.AppendComment(models.PlaceholderComment(sampleEvents()[1])))
	assert.Equal(t, 2, s.CommentCount())

	var ledger map[string]any
	data, err := os.ReadFile(filepath.Join(dir, "level2_data.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ledger))
	assert.Equal(t, "测试事件", ledger["core_event_name"])
	assert.EqualValues(t, 2, ledger["total_comments"])

	csvPath := filepath.Join(dir, utils.SanitizeFilename("测试事件")+"_comments.csv")
	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "第一条", rows[1][0])
	assert.Equal(t, "评论内容一", rows[1][5])
	// Placeholder row keeps alignment with an empty content cell.
	assert.Equal(t, "第二条", rows[2][0])
	assert.Equal(t, "", rows[2][5])
}

func TestLoadPriorStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDataStore(dir, quietLogger())
	require.NoError(t, err)

	root := sampleRoot()
	events := sampleEvents()
	require.NoError(t, s.SaveTimeline(root, events))

	written := []models.Comment{
		{EventTitle: "第一条", EventID: "event_1", Index: 1, Content: "先", HarvestedAt: models.Now()},
		{EventTitle: "第一条", EventID: "event_1", Index: 3, Content: "后", HarvestedAt: models.Now()},
		models.PlaceholderComment(events[1]),
	}
	for _, c := range written {
		require.NoError(t, s.AppendComment(c))
	}

	// A fresh store over the same directory sees the run's output intact
	// and in append order.
	reopened, err := NewDataStore(dir, quietLogger())
	require.NoError(t, err)
	gotRoot, gotEvents, gotComments, err := reopened.LoadPriorState()
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, events, gotEvents)
	assert.Equal(t, written, gotComments)
}

func TestLoadPriorStateMissingLedgers(t *testing.T) {
	s, err := NewDataStore(t.TempDir(), quietLogger())
	require.NoError(t, err)

	root, events, comments, err := s.LoadPriorState()
	require.NoError(t, err)
	assert.True(t, root.IsEmpty())
	assert.Empty(t, events)
	assert.Empty(t, comments)
}

func TestCombine(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDataStore(dir, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.SaveTimeline(sampleRoot(), sampleEvents()))
	require.NoError(t, s.AppendComment(models.Comment{
		EventTitle: "第一条", EventID: "event_1", Index: 1, Content: "评论",
	}))

	combined, err := s.Combine()
	require.NoError(t, err)
	assert.Equal(t, 2, combined.Statistics.TotalSubEvents)
	assert.Equal(t, 1, combined.Statistics.TotalComments)
	assert.Equal(t, 1, combined.Statistics.EventsWithComments)
	assert.FileExists(t, filepath.Join(dir, "combined_data.json"))
}

func TestCombineMissingHalf(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDataStore(dir, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.SaveTimeline(sampleRoot(), sampleEvents()))

	_, err = s.Combine()
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrLedgerUnavailable)
}

func candidate(id int, title string) models.CandidateRecord {
	return models.CandidateRecord{
		ID:              id,
		URL:             "https://events.baidu.com/search/vein?platform=pc&record_id=" + strconv.Itoa(id),
		TitleNative:     title,
		TitleTranslated: "Title",
		UpdateDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		DiscoveredAt:    time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestCandidateLedgerAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	l, err := OpenCandidateLedger(path, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, l.Count())

	// Out-of-order input is written ascending.
	require.NoError(t, l.Append([]models.CandidateRecord{
		candidate(30, "乙"), candidate(10, "甲"),
	}))
	assert.True(t, l.Known(10))
	assert.True(t, l.Known(30))
	assert.False(t, l.Known(20))

	f, err := os.Open(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(f).ReadAll()
	f.Close()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[1][0], "record_id=10")
	assert.Contains(t, rows[2][0], "record_id=30")
	assert.Equal(t, "2025-06-01", rows[1][3])

	// Reopen: prior discoveries are known and duplicates are skipped.
	l, err = OpenCandidateLedger(path, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Count())

	require.NoError(t, l.Append([]models.CandidateRecord{candidate(10, "甲"), candidate(20, "丙")}))
	assert.Equal(t, 3, l.Count())
}

func TestCandidateLedgerCustomURLTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	prior := "url,title_chinese,title_english,update_date,found_time\n" +
		"https://example.com/vein/2025/detail/42,标题,Title,2025-06-01,2025-06-02T00:00:00Z\n" +
		"https://example.com/vein/unknown,另一个,Other,2025-06-01,2025-06-02T00:00:00Z\n"
	require.NoError(t, os.WriteFile(path, []byte(prior), 0644))

	l, err := OpenCandidateLedger(path, quietLogger())
	require.NoError(t, err)
	// Without a record_id parameter the last digit run in the URL is the
	// identifier; rows with no digits at all are not skippable.
	assert.True(t, l.Known(42))
	assert.False(t, l.Known(2025))
	assert.Equal(t, 1, l.Count())
}

func TestCandidateLedgerCleansNULBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	dirty := "url,title_chinese,title_english,update_date,found_time\n" +
		"https://x?record_id=5,标\x00题,Title,2025-06-01,2025-06-02T00:00:00Z\n"
	require.NoError(t, os.WriteFile(path, []byte(dirty), 0644))

	l, err := OpenCandidateLedger(path, quietLogger())
	require.NoError(t, err)
	assert.True(t, l.Known(5))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\x00")
}
