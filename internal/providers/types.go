// Package providers contains the adapters that translate domain requests into
// resilient client calls plus cache lookups, and normalize each provider's
// payload into the internal schema. One adapter per upstream: fixtures and
// results, odds, predictions.
package providers

import "time"

// Fixture is the normalized shape for a scheduled or finished match.
type Fixture struct {
	ID        int64     `json:"id"`
	League    string    `json:"league"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	Kickoff   time.Time `json:"kickoff_utc"`
	Status    string    `json:"status"` // "scheduled", "live", "finished"
	HomeScore *int      `json:"home_score,omitempty"`
	AwayScore *int      `json:"away_score,omitempty"`
}

// OddsQuote is one bookmaker's decimal match-winner odds for a fixture.
type OddsQuote struct {
	FixtureID int64     `json:"fixture_id"`
	Bookmaker string    `json:"bookmaker"`
	Home      float64   `json:"home"`
	Draw      float64   `json:"draw"`
	Away      float64   `json:"away"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Prediction is the normalized model output for a fixture.
type Prediction struct {
	FixtureID   int64     `json:"fixture_id"`
	Advice      string    `json:"advice"`
	HomeWinPct  float64   `json:"home_win_pct"`
	DrawPct     float64   `json:"draw_pct"`
	AwayWinPct  float64   `json:"away_win_pct"`
	GeneratedAt time.Time `json:"generated_at"`
}
