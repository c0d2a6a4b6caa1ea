package scrape

import (
	"time"

	"github.com/IshaanNene/ChapterWatch/internal/types"
)

// Stage names the step of a link visit that failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageNavigate Stage = "navigate"
	StageExtract  Stage = "extract"
	StageStore    Stage = "store"
)

// Failure is a link the run gave up on under the skip policy.
type Failure struct {
	Index int
	Link  string
	Stage Stage
	Err   error
}

// Report summarizes a run.
type Report struct {
	Total     int
	Visited   int
	Extracted int
	Stored    int
	// Kept counts records the sink already held and left untouched.
	Kept     int
	Skipped  int
	Failures []Failure
	Records  []*types.BookRecord
	Elapsed  time.Duration
}
