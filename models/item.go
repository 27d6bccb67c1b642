package models

// Item is one image submitted for processing. Never mutated after enqueue.
type Item struct {
	Index   int    // position in the batch
	Name    string // display name, usually the original filename
	Payload []byte // image bytes
}

// Stage identifies one step of the per-item pipeline.
type Stage int

const (
	StageUpload Stage = iota
	StageInfer
	StageRender
)

// StageCount is the number of pipeline stages every item goes through.
const StageCount = 3

func (s Stage) String() string {
	switch s {
	case StageUpload:
		return "upload"
	case StageInfer:
		return "infer"
	case StageRender:
		return "render"
	default:
		return "unknown"
	}
}

// StepState is the status of a single stage.
type StepState int

const (
	StepPending StepState = iota
	StepProcessing
	StepSucceeded
	StepFailed
)

func (s StepState) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepProcessing:
		return "processing"
	case StepSucceeded:
		return "succeeded"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepStatus is emitted for every stage transition. Message is only set on failure.
type StepStatus struct {
	State   StepState `json:"state"`
	Message string    `json:"message,omitempty"`
}

// ArtifactRef points at a produced animation.
type ArtifactRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// ItemOutcome is the terminal record for one item.
type ItemOutcome struct {
	ItemIndex int          `json:"item_index"`
	ItemName  string       `json:"item_name"`
	Handle    string       `json:"handle,omitempty"` // set once upload succeeded
	Success   bool         `json:"success"`
	Artifact  *ArtifactRef `json:"artifact,omitempty"`
	Stage     string       `json:"stage,omitempty"` // failing stage
	Error     string       `json:"error,omitempty"`
}

// BatchResult holds one outcome per enqueued item, in enqueue order.
type BatchResult struct {
	Outcomes  []ItemOutcome `json:"outcomes"`
	Cancelled bool          `json:"cancelled"`
}

// Len returns the number of outcomes.
func (r BatchResult) Len() int {
	return len(r.Outcomes)
}
