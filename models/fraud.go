package models

// FraudCheckResult is the risk engine's verdict for one submission attempt.
// It is recomputed on every attempt and never persisted with the order
// unless the order is actually placed, in which case it becomes an audit
// note.
type FraudCheckResult struct {
	RiskScore int      `json:"risk_score"`
	Reasons   []string `json:"reason"`
}

// AdmissionOutcome is the policy verdict derived from a risk result.
type AdmissionOutcome string

const (
	AdmissionAllow     AdmissionOutcome = "allow"
	AdmissionChallenge AdmissionOutcome = "challenge"
	AdmissionBlock     AdmissionOutcome = "block"
)

// AdmissionDecision maps a FraudCheckResult onto allow/challenge/block.
type AdmissionDecision struct {
	Outcome           AdmissionOutcome `json:"outcome"`
	Allowed           bool             `json:"allowed"`
	RequiresChallenge bool             `json:"requires_challenge"`
	RiskScore         int              `json:"risk_score"`
	Reasons           []string         `json:"reasons,omitempty"`
	Message           string           `json:"message,omitempty"`
}

// FraudAssessmentRequest carries the signals sent to the risk engine for
// one checkout submission.
type FraudAssessmentRequest struct {
	UserID    string  `json:"user_id"`
	Email     string  `json:"email"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	ItemCount int     `json:"item_count"`
	Country   string  `json:"country"`
}
