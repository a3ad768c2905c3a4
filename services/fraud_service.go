package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"checkout-service/models"

	"go.uber.org/zap"
)

// Admission thresholds. Scores at or above BlockThreshold are refused
// outright; scores in [ChallengeThreshold, BlockThreshold) require an
// explicit confirmation from the shopper.
const (
	DefaultChallengeThreshold = 50
	DefaultBlockThreshold     = 85
)

// RiskClient evaluates a checkout attempt and returns a risk score with
// qualitative reasons. It is consulted at most once per submission.
type RiskClient interface {
	Evaluate(ctx context.Context, req *models.FraudAssessmentRequest) (*models.FraudCheckResult, error)
}

// HTTPRiskClient calls an external risk engine over HTTP.
type HTTPRiskClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRiskClient creates a new HTTPRiskClient.
func NewHTTPRiskClient(baseURL string) *HTTPRiskClient {
	return &HTTPRiskClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Evaluate posts the attempt's signals to the engine's /assess endpoint.
func (c *HTTPRiskClient) Evaluate(ctx context.Context, req *models.FraudAssessmentRequest) (*models.FraudCheckResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assess", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("risk engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("risk engine returned status %d", resp.StatusCode)
	}

	var result models.FraudCheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("risk engine response malformed: %w", err)
	}
	return &result, nil
}

// AdmissionPolicy maps a risk result onto allow/challenge/block. When the
// engine itself fails, the policy fails open by default: availability is
// favored over strict screening, so a legitimate purchase is not lost to
// an outage. Deployments wanting the stricter posture set FailClosed.
type AdmissionPolicy struct {
	ChallengeThreshold int
	BlockThreshold     int
	FailClosed         bool
	Logger             *zap.Logger
}

// NewAdmissionPolicy creates a policy with the default thresholds.
func NewAdmissionPolicy(failClosed bool, logger *zap.Logger) *AdmissionPolicy {
	return &AdmissionPolicy{
		ChallengeThreshold: DefaultChallengeThreshold,
		BlockThreshold:     DefaultBlockThreshold,
		FailClosed:         failClosed,
		Logger:             logger,
	}
}

// Decide is a pure, deterministic function of the engine's result (and its
// error, for the fail-open/fail-closed branch).
func (p *AdmissionPolicy) Decide(result *models.FraudCheckResult, evalErr error) models.AdmissionDecision {
	if evalErr != nil || result == nil {
		if p.FailClosed {
			p.Logger.Warn("Risk engine unavailable, failing closed", zap.Error(evalErr))
			return models.AdmissionDecision{
				Outcome: models.AdmissionBlock,
				Allowed: false,
				Message: "We could not verify this purchase. Please try again later or contact support.",
			}
		}
		p.Logger.Warn("Risk engine unavailable, failing open", zap.Error(evalErr))
		return models.AdmissionDecision{
			Outcome: models.AdmissionAllow,
			Allowed: true,
		}
	}

	decision := models.AdmissionDecision{
		RiskScore: result.RiskScore,
		Reasons:   result.Reasons,
	}

	switch {
	case result.RiskScore >= p.BlockThreshold:
		decision.Outcome = models.AdmissionBlock
		decision.Allowed = false
		decision.Message = fmt.Sprintf(
			"This purchase was declined by our fraud screening (%s). Please contact support.",
			strings.Join(result.Reasons, ", "))
	case result.RiskScore >= p.ChallengeThreshold:
		decision.Outcome = models.AdmissionChallenge
		decision.Allowed = true
		decision.RequiresChallenge = true
		decision.Message = fmt.Sprintf(
			"This purchase needs an extra confirmation (%s). Review your order and confirm to continue.",
			strings.Join(result.Reasons, ", "))
	default:
		decision.Outcome = models.AdmissionAllow
		decision.Allowed = true
	}
	return decision
}
