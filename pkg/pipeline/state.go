package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/models"
)

// Result is the outcome of one harvest run.
type Result struct {
	State         models.PipelineState
	Root          models.RootDocument
	SubEvents     []models.SubEvent
	TotalComments int
	FailedEvents  int
	Combined      *models.CombinedDataset
}

// advance moves the run to the next lifecycle state, logging the transition.
func (r *Result) advance(state models.PipelineState, log *logrus.Entry) {
	log.WithFields(logrus.Fields{"from": r.State, "to": state}).Debug("Pipeline state change")
	r.State = state
}
