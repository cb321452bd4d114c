package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PredictionsAdapter fetches model predictions for fixtures.
type PredictionsAdapter struct {
	*Adapter
}

// NewPredictionsAdapter wraps the shared adapter for the predictions provider.
func NewPredictionsAdapter(a *Adapter) *PredictionsAdapter {
	return &PredictionsAdapter{Adapter: a}
}

// predictionsPayload is the predictions provider's wire format. Win
// probabilities arrive as percent strings ("45%").
type predictionsPayload struct {
	Response []struct {
		Fixture struct {
			ID int64 `json:"id"`
		} `json:"fixture"`
		Predictions struct {
			Advice  string `json:"advice"`
			Percent struct {
				Home string `json:"home"`
				Draw string `json:"draw"`
				Away string `json:"away"`
			} `json:"percent"`
		} `json:"predictions"`
		GeneratedAt string `json:"generated_at"` // RFC 3339
	} `json:"response"`
}

// ForFixture returns the model prediction for a fixture.
func (p *PredictionsAdapter) ForFixture(ctx context.Context, fixtureID int64) (Prediction, error) {
	query := url.Values{}
	query.Set("fixture", strconv.FormatInt(fixtureID, 10))

	preds, err := fetch(ctx, p.Adapter, "/predictions", query, parsePredictions)
	if err != nil {
		return Prediction{}, err
	}
	if len(preds) == 0 {
		return Prediction{}, fmt.Errorf("prediction for fixture %d: %w", fixtureID, ErrNotFound)
	}
	return preds[0], nil
}

func parsePredictions(body []byte) ([]Prediction, error) {
	var payload predictionsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	preds := make([]Prediction, 0, len(payload.Response))
	for _, r := range payload.Response {
		home, err := parsePercent(r.Predictions.Percent.Home)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: home percent: %w", r.Fixture.ID, err)
		}
		draw, err := parsePercent(r.Predictions.Percent.Draw)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: draw percent: %w", r.Fixture.ID, err)
		}
		away, err := parsePercent(r.Predictions.Percent.Away)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: away percent: %w", r.Fixture.ID, err)
		}

		generatedAt := time.Now().UTC()
		if ts, err := time.Parse(time.RFC3339, r.GeneratedAt); err == nil {
			generatedAt = ts.UTC()
		}

		preds = append(preds, Prediction{
			FixtureID:   r.Fixture.ID,
			Advice:      r.Predictions.Advice,
			HomeWinPct:  home,
			DrawPct:     draw,
			AwayWinPct:  away,
			GeneratedAt: generatedAt,
		})
	}
	return preds, nil
}

// parsePercent converts the provider's "45%" strings to a float.
func parsePercent(s string) (float64, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), "%")
	if trimmed == "" {
		return 0, fmt.Errorf("empty percent value")
	}
	return strconv.ParseFloat(trimmed, 64)
}
