package workflow

import (
	"fmt"
	"slices"
	"strings"
)

// Retry stages with bounded automatic retries. Maxima mirror the defaults of
// the legacy workflow tool this machine replaced.
const (
	StageBCValidation = "bc_validation"
	StageExtraction   = "extraction"
	StageVendorMatch  = "vendor_match"
)

// DefaultRetryMaxima returns the per-stage retry limits applied when
// configuration provides none.
func DefaultRetryMaxima() map[string]int {
	return map[string]int{
		StageBCValidation: 3,
		StageExtraction:   2,
		StageVendorMatch:  2,
	}
}

// RetryPolicy tracks per-document retry counters against stage-specific
// maxima and decides between another correction loop and escalation.
type RetryPolicy struct {
	maxima        map[string]int
	locationCodes []string
}

// NewRetryPolicy creates a policy with the given per-stage maxima and the
// location-code whitelist. Missing maxima fall back to defaults.
func NewRetryPolicy(maxima map[string]int, locationCodes []string) *RetryPolicy {
	merged := DefaultRetryMaxima()
	for stage, limit := range maxima {
		if limit > 0 {
			merged[stage] = limit
		}
	}
	return &RetryPolicy{
		maxima:        merged,
		locationCodes: locationCodes,
	}
}

// Max returns the retry limit for a stage. Unknown stages return 0, which
// escalates on the first failure.
func (p *RetryPolicy) Max(stage string) int {
	return p.maxima[stage]
}

// RetryDecision is the outcome of recording a stage failure.
type RetryDecision struct {
	Stage     string `json:"stage"`
	Count     int    `json:"count"`
	Max       int    `json:"max"`
	Escalate  bool   `json:"escalate"`
	NextState Status `json:"next_state"`
}

// OnFailure increments the counter for a stage failure and decides the
// document's next state. Below the stage maximum the document routes back to
// the correction state; at or beyond it, the policy escalates. Escalation is
// terminal for the automatic pipeline.
func (p *RetryPolicy) OnFailure(stage string, priorCount int) (RetryDecision, error) {
	limit, ok := p.maxima[stage]
	if !ok {
		return RetryDecision{}, fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}

	count := priorCount + 1
	d := RetryDecision{
		Stage: stage,
		Count: count,
		Max:   limit,
	}

	if count >= limit {
		d.Escalate = true
		d.NextState = StatusEscalated
		return d, nil
	}

	d.NextState = StatusDataCorrectionPending
	return d, nil
}

// ValidateLocation checks a location code against the configured whitelist.
// An empty whitelist accepts every code. Matching is case-insensitive; a
// failed check feeds the same escalation path as retry exhaustion.
func (p *RetryPolicy) ValidateLocation(code string) error {
	if len(p.locationCodes) == 0 {
		return nil
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidLocation)
	}
	if slices.ContainsFunc(p.locationCodes, func(known string) bool {
		return strings.ToUpper(known) == code
	}) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidLocation, code)
}
