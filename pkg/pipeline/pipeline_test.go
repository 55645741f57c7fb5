package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaPengJi1/pachong/pkg/config"
	"github.com/YaPengJi1/pachong/pkg/fetch"
	"github.com/YaPengJi1/pachong/pkg/harvest"
	"github.com/YaPengJi1/pachong/pkg/models"
	"github.com/YaPengJi1/pachong/pkg/render"
	"github.com/YaPengJi1/pachong/pkg/stabilize"
	"github.com/YaPengJi1/pachong/pkg/store"
)

// fakeBrowser serves canned DOMs keyed by URL through a single page.
type fakeBrowser struct {
	pages    map[string]string
	loadErrs map[string]error
}

func (b *fakeBrowser) NewPage(ctx context.Context) (render.Page, error) {
	return &fakePage{browser: b}, nil
}
func (b *fakeBrowser) Close() error { return nil }

type fakePage struct {
	browser *fakeBrowser
	current string
}

func (p *fakePage) Load(ctx context.Context, url string) error {
	if err := p.browser.loadErrs[url]; err != nil {
		return err
	}
	p.current = url
	return nil
}

func (p *fakePage) HTML() (string, error) {
	html, ok := p.browser.pages[p.current]
	if !ok {
		return "<html><body></body></html>", nil
	}
	return html, nil
}

func (p *fakePage) ScrollToBottom() error                         { return nil }
func (p *fakePage) FindAndClick(selectors []string) (bool, error) { return false, nil }
func (p *fakePage) WaitForBody(ctx context.Context) error         { return nil }
func (p *fakePage) Close() error                                  { return nil }

const rootURL = "http://root"

func timelinePage() string {
	return `<html><head><title>核心事件</title></head><body>
		<p class="create-time">更新至2025年6月3日</p>
		<span class="count">2</span>
		<div class="item">
			<span class="time">6月1日</span>
			<a class="content-link" href="http://ev1">事件一</a>
		</div>
		<div class="item">
			<span class="time">6月2日</span>
			<a class="content-link" href="http://ev2">事件二</a>
		</div>
	</body></html>`
}

func commentPage(content string) string {
	return fmt.Sprintf(`<html><body>
		<div class="xcp-item">
			<h5 class="user-bar-uname">网友甲</h5>
			<span class="type-text">%s</span>
		</div>
	</body></html>`, content)
}

func newPipeline(t *testing.T, browser *fakeBrowser) (*Pipeline, string) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	dir := t.TempDir()
	st, err := store.NewDataStore(dir, log)
	require.NoError(t, err)

	stab := stabilize.NewController(stabilize.Config{StableThreshold: 2, MaxRounds: 10}, log)
	h := harvest.NewHarvester(stab, config.HarvestConfig{CommentScrolls: 1}, log)
	pacer := fetch.NewPacer(0, log)
	return New(browser, h, st, pacer, log), dir
}

func TestRunFullPipeline(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]string{
		rootURL:      timelinePage(),
		"http://ev1": commentPage("第一条评论的完整内容"),
		"http://ev2": "<html><body><p>没有讨论区</p></body></html>",
	}}
	p, dir := newPipeline(t, browser)

	result, err := p.Run(context.Background(), rootURL)
	require.NoError(t, err)

	assert.Equal(t, models.StateDone, result.State)
	assert.Equal(t, "核心事件", result.Root.Name)
	require.Len(t, result.SubEvents, 2)
	assert.Equal(t, 1, result.TotalComments)
	assert.Zero(t, result.FailedEvents)
	require.NotNil(t, result.Combined)

	// Event two produced a placeholder, so both ledger halves stay aligned.
	assert.Equal(t, 2, result.Combined.Statistics.TotalComments)
	assert.Equal(t, 2, result.Combined.Statistics.EventsWithComments)

	data, err := os.ReadFile(filepath.Join(dir, "level2_data.json"))
	require.NoError(t, err)
	var ledger struct {
		Comments []models.Comment `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(data, &ledger))
	require.Len(t, ledger.Comments, 2)
	assert.False(t, ledger.Comments[0].IsPlaceholder())
	assert.True(t, ledger.Comments[1].IsPlaceholder())
	assert.Equal(t, "事件二", ledger.Comments[1].EventTitle)
}

func TestRunAbortsOnEmptyRoot(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]string{
		rootURL: "<html><body></body></html>",
	}}
	p, _ := newPipeline(t, browser)

	result, err := p.Run(context.Background(), rootURL)
	require.Error(t, err)
	assert.Equal(t, models.StateAborted, result.State)
}

func TestRunAbortsOnEmptyTimeline(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]string{
		rootURL: `<html><head><title>核心事件</title></head><body>
			<p class="create-time">更新至2025年6月3日</p>
		</body></html>`,
	}}
	p, _ := newPipeline(t, browser)

	result, err := p.Run(context.Background(), rootURL)
	require.Error(t, err)
	assert.Equal(t, models.StateAborted, result.State)
	assert.Equal(t, "核心事件", result.Root.Name)
}

func TestRunAbsorbsCommentPageFailure(t *testing.T) {
	browser := &fakeBrowser{
		pages: map[string]string{
			rootURL:      timelinePage(),
			"http://ev2": commentPage("第二个事件下的评论内容"),
		},
		loadErrs: map[string]error{
			"http://ev1": fmt.Errorf("connection refused"),
		},
	}
	p, _ := newPipeline(t, browser)

	result, err := p.Run(context.Background(), rootURL)
	require.NoError(t, err)

	assert.Equal(t, models.StateDone, result.State)
	assert.Equal(t, 1, result.FailedEvents)
	assert.Equal(t, 1, result.TotalComments)
	// The failed event still gets a placeholder row.
	require.NotNil(t, result.Combined)
	assert.Equal(t, 2, result.Combined.Statistics.TotalComments)
}
