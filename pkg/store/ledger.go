package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/models"
	"github.com/YaPengJi1/pachong/pkg/utils"
)

var candidateHeader = []string{"url", "title_chinese", "title_english", "update_date", "found_time"}

var (
	recordIDPattern = regexp.MustCompile(`record_id=(\d+)`)
	ledgerDigitRun  = regexp.MustCompile(`\d+`)
)

// CandidateLedger is the prober's append-only discovery CSV. On open it
// reloads prior discoveries so re-runs skip known identifiers, scrubbing any
// NUL bytes left behind by an interrupted write.
type CandidateLedger struct {
	path  string
	log   *logrus.Entry
	known map[int]struct{}
}

// OpenCandidateLedger loads (or creates) the ledger at path.
func OpenCandidateLedger(path string, logger *logrus.Logger) (*CandidateLedger, error) {
	l := &CandidateLedger{
		path:  path,
		log:   logger.WithFields(logrus.Fields{"component": "ledger", "path": path}),
		known: make(map[int]struct{}),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		l.log.Info("No prior ledger found, starting fresh")
		if err := l.writeHeader(); err != nil {
			return nil, err
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w: %v", path, utils.ErrLedgerUnavailable, err)
	}

	cleaned := utils.StripNUL(string(data))
	if cleaned != string(data) {
		l.log.Warn("Ledger contained NUL bytes, rewriting cleaned copy")
		if err := os.WriteFile(path, []byte(cleaned), 0644); err != nil {
			return nil, fmt.Errorf("rewriting ledger %s: %w: %v", path, utils.ErrFilesystem, err)
		}
	}

	reader := csv.NewReader(strings.NewReader(cleaned))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w: %v", path, utils.ErrMalformedInput, err)
	}
	unparsed := 0
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if id, ok := extractRecordID(row[0]); ok {
			l.known[id] = struct{}{}
		} else {
			unparsed++
		}
	}
	if unparsed > 0 {
		l.log.WithField("rows", unparsed).
			Warn("Ledger rows without a recognizable record id will not be skipped on re-probe")
	}
	l.log.WithField("known", len(l.known)).Info("Loaded prior ledger")
	return l, nil
}

// Known reports whether the identifier was already recorded.
func (l *CandidateLedger) Known(id int) bool {
	_, ok := l.known[id]
	return ok
}

// Count returns the number of recorded identifiers.
func (l *CandidateLedger) Count() int { return len(l.known) }

// Append sorts the new discoveries by identifier and appends the unseen ones.
// Existing rows are never rewritten.
func (l *CandidateLedger) Append(records []models.CandidateRecord) error {
	if len(records) == 0 {
		return nil
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger %s for append: %w: %v", l.path, utils.ErrLedgerUnavailable, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	appended := 0
	for _, r := range records {
		if l.Known(r.ID) {
			continue
		}
		row := []string{
			utils.StripNUL(r.URL),
			utils.StripNUL(r.TitleNative),
			utils.StripNUL(r.TitleTranslated),
			r.UpdateDate.Format("2006-01-02"),
			r.DiscoveredAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("appending to ledger %s: %w: %v", l.path, utils.ErrFilesystem, err)
		}
		l.known[r.ID] = struct{}{}
		appended++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing ledger %s: %w: %v", l.path, utils.ErrFilesystem, err)
	}
	l.log.WithFields(logrus.Fields{"appended": appended, "total": len(l.known)}).
		Info("New discoveries appended")
	return nil
}

func (l *CandidateLedger) writeHeader() error {
	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("creating ledger %s: %w: %v", l.path, utils.ErrFilesystem, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(candidateHeader); err != nil {
		return fmt.Errorf("writing ledger header: %w: %v", utils.ErrFilesystem, err)
	}
	w.Flush()
	return w.Error()
}

// extractRecordID recovers the numeric identifier from a ledger URL. The
// default template carries a record_id query parameter; for custom templates
// the last digit run in the URL is taken as the identifier.
func extractRecordID(url string) (int, bool) {
	raw := ""
	if m := recordIDPattern.FindStringSubmatch(url); m != nil {
		raw = m[1]
	} else if runs := ledgerDigitRun.FindAllString(url, -1); len(runs) > 0 {
		raw = runs[len(runs)-1]
	}
	if raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}
