// Package store persists presentations and their generation step records in
// SQLite. The step table is the single source of truth for whether a stage
// may run; all mutation goes through here or the pipeline, never through the
// renderer or compiler.
package store

import (
	"time"
)

// Step names one phase of the generation pipeline.
type Step string

const (
	StepResearch       Step = "research"
	StepManualResearch Step = "manual_research"
	StepSlides         Step = "slides"
	StepImages         Step = "images"
	StepCompiled       Step = "compiled"
	StepPptx           Step = "pptx"
)

// AllSteps lists every step in pipeline order. Each presentation is seeded
// with one pending record per step.
var AllSteps = []Step{
	StepResearch,
	StepManualResearch,
	StepSlides,
	StepImages,
	StepCompiled,
	StepPptx,
}

var stepSet = func() map[Step]struct{} {
	set := make(map[Step]struct{}, len(AllSteps))
	for _, s := range AllSteps {
		set[s] = struct{}{}
	}
	return set
}()

// ValidStep reports whether the name is a known pipeline step.
func ValidStep(s Step) bool {
	_, ok := stepSet[s]
	return ok
}

// Status is the lifecycle state of one step record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusError      Status = "error"
)

// downstream maps each step to the steps strictly after it. Research and
// manual research are alternative roots feeding the same chain.
var downstream = map[Step][]Step{
	StepResearch:       {StepSlides, StepImages, StepCompiled, StepPptx},
	StepManualResearch: {StepSlides, StepImages, StepCompiled, StepPptx},
	StepSlides:         {StepImages, StepCompiled, StepPptx},
	StepImages:         {StepCompiled, StepPptx},
	StepCompiled:       {StepPptx},
	StepPptx:           nil,
}

// Downstream returns the steps invalidated when the given step's input or
// result changes.
func Downstream(s Step) []Step {
	return downstream[s]
}

// upstreamAlternatives lists the dependency groups of a step: the step may
// run when every member of at least one group is completed.
var upstreamAlternatives = map[Step][][]Step{
	StepResearch:       nil,
	StepManualResearch: nil,
	StepSlides:         {{StepResearch}, {StepManualResearch}},
	StepImages:         {{StepSlides}},
	StepCompiled:       {{StepSlides, StepImages}},
	StepPptx:           {{StepCompiled}},
}

// UpstreamAlternatives exposes the dependency groups for a step.
func UpstreamAlternatives(s Step) [][]Step {
	return upstreamAlternatives[s]
}

// Presentation is one deck being generated.
type Presentation struct {
	ID        int64
	Name      string
	Topic     string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StepRecord is the persisted state of one (presentation, step) pair.
// Result is the step's opaque JSON payload; its shape depends on Step.
type StepRecord struct {
	ID             int64
	PresentationID int64
	Step           Step
	Status         Status
	Result         []byte
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
