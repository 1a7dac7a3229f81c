package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CrediPulse/internal/domain/models"
	"CrediPulse/internal/domain/repository"
	xhttp "CrediPulse/pkg/http"
)

// ErrScoringUnavailable is returned when the scoring dependency cannot be
// evaluated: the breaker is open, the call timed out, or the service
// answered with a server error. Callers must never conflate it with a deny.
var ErrScoringUnavailable = errors.New("scoring service unavailable")

// Client calls the external risk scoring service over HTTP with a bounded
// timeout.
type Client struct {
	http *xhttp.Client
	url  string
}

// NewClient creates a scoring client.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		http: xhttp.NewClient(xhttp.WithTimeout(timeout)),
		url:  url,
	}
}

type scoreRequest struct {
	UserID   string                `json:"user_id"`
	Features *models.FeatureVector `json:"features"`
}

type scoreResponse struct {
	RiskScore float64 `json:"risk_score"`
}

func (c *Client) Score(ctx context.Context, userID string, features *models.FeatureVector) (float64, error) {
	var resp scoreResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url + "/score",
		Body:   scoreRequest{UserID: userID, Features: features},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 {
			return 0, fmt.Errorf("scoring rejected request: %w", err)
		}
		return 0, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	if resp.RiskScore < 0 || resp.RiskScore > 1 {
		return 0, fmt.Errorf("scoring returned out-of-range score %.4f", resp.RiskScore)
	}
	return resp.RiskScore, nil
}

var _ repository.RiskScorer = (*Client)(nil)
