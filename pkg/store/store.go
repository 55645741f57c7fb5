// Package store owns the on-disk ledgers: the two-level harvest JSON files,
// the per-run comment CSV, the combined projection, and the prober's
// append-only candidate CSV.
package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/models"
	"github.com/YaPengJi1/pachong/pkg/utils"
)

const (
	timelineFile = "level1_data.json"
	commentsFile = "level2_data.json"
	combinedFile = "combined_data.json"
)

// timelineLedger is the serialized shape of the timeline harvest.
type timelineLedger struct {
	RunID          string              `json:"run_id"`
	CoreInfo       models.RootDocument `json:"core_info"`
	SubEvents      []models.SubEvent   `json:"sub_events"`
	TotalSubEvents int                 `json:"total_sub_events"`
	ScrapeTime     string              `json:"scrape_time"`
}

// commentLedger is the serialized shape of the comment harvest.
type commentLedger struct {
	RunID         string           `json:"run_id"`
	CoreEventName string           `json:"core_event_name"`
	Comments      []models.Comment `json:"comments"`
	TotalComments int              `json:"total_comments"`
	ScrapeTime    string           `json:"scrape_time"`
}

type projectInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	RunID       string `json:"run_id"`
	CreateTime  string `json:"create_time"`
}

type combinedLedger struct {
	ProjectInfo projectInfo         `json:"project_info"`
	CoreEvent   models.RootDocument `json:"core_event"`
	SubEvents   []models.SubEvent   `json:"sub_events"`
	Comments    []models.Comment    `json:"comments"`
	Statistics  models.Statistics   `json:"statistics"`
}

// DataStore writes harvest results under a single output directory. The
// comment ledger is rewritten after every append so a crash mid-harvest
// loses at most the in-flight comment.
type DataStore struct {
	dir   string
	runID string
	log   *logrus.Entry

	mu       sync.Mutex
	coreName string
	comments []models.Comment
}

// NewDataStore creates the output directory and a store bound to it.
func NewDataStore(dir string, logger *logrus.Logger) (*DataStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create output directory %s: %w: %v", dir, utils.ErrFilesystem, err)
	}
	runID := uuid.NewString()
	return &DataStore{
		dir:   dir,
		runID: runID,
		log:   logger.WithFields(logrus.Fields{"component": "store", "run_id": runID}),
	}, nil
}

// RunID is the unique identifier stamped into every ledger of this run.
func (s *DataStore) RunID() string { return s.runID }

// SaveTimeline writes the timeline ledger and records the core event name
// used by subsequent comment writes.
func (s *DataStore) SaveTimeline(root models.RootDocument, events []models.SubEvent) error {
	s.mu.Lock()
	s.coreName = root.Name
	s.mu.Unlock()

	ledger := timelineLedger{
		RunID:          s.runID,
		CoreInfo:       root,
		SubEvents:      events,
		TotalSubEvents: len(events),
		ScrapeTime:     models.Now(),
	}
	if err := s.writeJSON(timelineFile, ledger); err != nil {
		return err
	}
	s.log.WithField("sub_events", len(events)).Info("Timeline ledger saved")
	return nil
}

// AppendComment adds one comment and rewrites both the JSON ledger and the
// per-event CSV table.
func (s *DataStore) AppendComment(c models.Comment) error {
	s.mu.Lock()
	s.comments = append(s.comments, c)
	comments := make([]models.Comment, len(s.comments))
	copy(comments, s.comments)
	coreName := s.coreName
	s.mu.Unlock()

	ledger := commentLedger{
		RunID:         s.runID,
		CoreEventName: coreName,
		Comments:      comments,
		TotalComments: len(comments),
		ScrapeTime:    models.Now(),
	}
	if err := s.writeJSON(commentsFile, ledger); err != nil {
		return err
	}
	return s.writeCommentsCSV(coreName, comments)
}

// LoadPriorState reads whatever a previous run left in the output
// directory. Either ledger may be absent; an absent timeline yields a
// zero-value root, an absent comment ledger yields no comments. Only a
// ledger that exists but cannot be parsed is an error.
func (s *DataStore) LoadPriorState() (models.RootDocument, []models.SubEvent, []models.Comment, error) {
	var root models.RootDocument
	var events []models.SubEvent
	var comments []models.Comment

	var tl timelineLedger
	switch err := s.readJSON(timelineFile, &tl); {
	case err == nil:
		root = tl.CoreInfo
		events = tl.SubEvents
	case errors.Is(err, utils.ErrLedgerUnavailable):
		s.log.Debug("No prior timeline ledger")
	default:
		return root, nil, nil, err
	}

	var cl commentLedger
	switch err := s.readJSON(commentsFile, &cl); {
	case err == nil:
		comments = cl.Comments
	case errors.Is(err, utils.ErrLedgerUnavailable):
		s.log.Debug("No prior comment ledger")
	default:
		return root, events, nil, err
	}

	return root, events, comments, nil
}

// CommentCount returns how many comments have been appended this run.
func (s *DataStore) CommentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.comments)
}

// Combine joins the two ledgers into the combined projection and writes it.
// Both halves must exist; a missing half is ErrLedgerUnavailable.
func (s *DataStore) Combine() (*models.CombinedDataset, error) {
	var tl timelineLedger
	if err := s.readJSON(timelineFile, &tl); err != nil {
		return nil, err
	}
	var cl commentLedger
	if err := s.readJSON(commentsFile, &cl); err != nil {
		return nil, err
	}

	withComments := make(map[string]struct{})
	for _, c := range cl.Comments {
		withComments[c.EventTitle] = struct{}{}
	}

	combined := combinedLedger{
		ProjectInfo: projectInfo{
			Name:        "pachong",
			Description: "timeline and comment harvester for event pages",
			Version:     "2.0.0",
			RunID:       s.runID,
			CreateTime:  models.Now(),
		},
		CoreEvent: tl.CoreInfo,
		SubEvents: tl.SubEvents,
		Comments:  cl.Comments,
		Statistics: models.Statistics{
			TotalSubEvents:     tl.TotalSubEvents,
			TotalComments:      cl.TotalComments,
			EventsWithComments: len(withComments),
			RootHarvestedAt:    tl.ScrapeTime,
			CommentHarvestedAt: cl.ScrapeTime,
		},
	}
	if err := s.writeJSON(combinedFile, combined); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"sub_events": combined.Statistics.TotalSubEvents,
		"comments":   combined.Statistics.TotalComments,
	}).Info("Combined ledger saved")

	return &models.CombinedDataset{
		Root:       combined.CoreEvent,
		SubEvents:  combined.SubEvents,
		Comments:   combined.Comments,
		Statistics: combined.Statistics,
	}, nil
}

func (s *DataStore) writeCommentsCSV(coreName string, comments []models.Comment) error {
	path := filepath.Join(s.dir, utils.SanitizeFilename(coreName)+"_comments.csv")
	tmp, err := os.CreateTemp(s.dir, ".comments-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp csv: %w: %v", utils.ErrFilesystem, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write([]string{"event_title", "event_time", "comment_index", "user_id", "comment_time", "comment_content", "user_location", "like_count"}); err != nil {
		tmp.Close()
		return fmt.Errorf("writing csv header: %w: %v", utils.ErrFilesystem, err)
	}
	for _, c := range comments {
		row := []string{
			c.EventTitle, c.EventTime, strconv.Itoa(c.Index), c.AuthorID,
			c.Time, c.Content, c.Location, strconv.Itoa(c.LikeCount),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("writing csv row: %w: %v", utils.ErrFilesystem, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing csv: %w: %v", utils.ErrFilesystem, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp csv: %w: %v", utils.ErrFilesystem, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing csv %s: %w: %v", path, utils.ErrFilesystem, err)
	}
	return nil
}

// writeJSON writes atomically via a temp file in the target directory.
func (s *DataStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w: %v", name, utils.ErrFilesystem, err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w: %v", name, utils.ErrFilesystem, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w: %v", name, utils.ErrFilesystem, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w: %v", name, utils.ErrFilesystem, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w: %v", path, utils.ErrFilesystem, err)
	}
	return nil
}

func (s *DataStore) readJSON(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading ledger %s: %w: %v", path, utils.ErrLedgerUnavailable, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing ledger %s: %w: %v", path, utils.ErrMalformedInput, err)
	}
	return nil
}
