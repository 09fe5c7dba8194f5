package analyzers

// Analysis is the model's free-text reply for one resource.
type Analysis struct {
	Description string `json:"description"`
}

// Outcome tags how a function analysis ended.
type Outcome string

const (
	// OutcomeSent means the request was made and a reply was received.
	OutcomeSent Outcome = "sent"
	// OutcomeSkipped means the prompt exceeded the budget and no request was made.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the request was made and the provider failed.
	OutcomeFailed Outcome = "failed"
)

// Result is the tagged outcome of a function analysis. Analysis is set only
// for OutcomeSent and Err only for OutcomeFailed.
type Result struct {
	Outcome      Outcome
	Analysis     *Analysis
	PromptTokens int
	MaxTokens    int
	Err          error
}

// Sent reports whether a reply was received.
func (r Result) Sent() bool { return r.Outcome == OutcomeSent }

// Description returns the reply text, or "" unless the outcome is sent.
func (r Result) Description() string {
	if r.Outcome != OutcomeSent || r.Analysis == nil {
		return ""
	}
	return r.Analysis.Description
}
