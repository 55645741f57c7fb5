package models

// Classification is the three-way verdict the prober assigns to a probed
// identifier.
type Classification string

const (
	// ClassValid marks a page with timeline markers and an acceptable date.
	ClassValid Classification = "valid"
	// ClassFiltered marks a page with timeline markers rejected by a policy
	// such as the minimum-date cutoff.
	ClassFiltered Classification = "filtered"
	// ClassInvalid marks a page without timeline markers, including error
	// pages and empty shells.
	ClassInvalid Classification = "invalid"
)

// FilterReason records why a marker-bearing page was not kept.
type FilterReason string

const (
	FilterDateTooOld     FilterReason = "date-too-old"
	FilterUnparsableDate FilterReason = "unparsable-date"
	FilterNone           FilterReason = ""
)

// PipelineState tracks the lifecycle of a single harvest run.
type PipelineState string

const (
	StateInit               PipelineState = "init"
	StateRootHarvested      PipelineState = "root_harvested"
	StateSubEventsHarvested PipelineState = "sub_events_harvested"
	StateCommentsHarvested  PipelineState = "comments_harvested"
	StateCombined           PipelineState = "combined"
	StateDone               PipelineState = "done"
	StateAborted            PipelineState = "aborted"
)
