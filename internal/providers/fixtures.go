package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// FixturesAdapter fetches scheduled fixtures and final results.
type FixturesAdapter struct {
	*Adapter
}

// NewFixturesAdapter wraps the shared adapter for the results provider.
func NewFixturesAdapter(a *Adapter) *FixturesAdapter {
	return &FixturesAdapter{Adapter: a}
}

// fixturesPayload is the results provider's wire format.
type fixturesPayload struct {
	Response []struct {
		Fixture struct {
			ID     int64  `json:"id"`
			Date   string `json:"date"` // RFC 3339
			Status struct {
				Short string `json:"short"` // "NS", "1H", "HT", "2H", "FT", ...
			} `json:"status"`
		} `json:"fixture"`
		League struct {
			Name string `json:"name"`
		} `json:"league"`
		Teams struct {
			Home struct {
				Name string `json:"name"`
			} `json:"home"`
			Away struct {
				Name string `json:"name"`
			} `json:"away"`
		} `json:"teams"`
		Goals struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"goals"`
	} `json:"response"`
}

// ByDate returns all fixtures kicking off on the given day.
func (f *FixturesAdapter) ByDate(ctx context.Context, date time.Time) ([]Fixture, error) {
	query := url.Values{}
	query.Set("date", date.UTC().Format("2006-01-02"))
	return fetch(ctx, f.Adapter, "/fixtures", query, parseFixtures)
}

// ByID returns a single fixture, scores included once it has finished.
func (f *FixturesAdapter) ByID(ctx context.Context, fixtureID int64) (Fixture, error) {
	query := url.Values{}
	query.Set("id", strconv.FormatInt(fixtureID, 10))

	fixtures, err := fetch(ctx, f.Adapter, "/fixtures", query, parseFixtures)
	if err != nil {
		return Fixture{}, err
	}
	if len(fixtures) == 0 {
		return Fixture{}, fmt.Errorf("fixture %d: %w", fixtureID, ErrNotFound)
	}
	return fixtures[0], nil
}

func parseFixtures(body []byte) ([]Fixture, error) {
	var payload fixturesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	fixtures := make([]Fixture, 0, len(payload.Response))
	for _, r := range payload.Response {
		kickoff, err := time.Parse(time.RFC3339, r.Fixture.Date)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: bad kickoff date %q: %w", r.Fixture.ID, r.Fixture.Date, err)
		}
		fixtures = append(fixtures, Fixture{
			ID:        r.Fixture.ID,
			League:    r.League.Name,
			HomeTeam:  r.Teams.Home.Name,
			AwayTeam:  r.Teams.Away.Name,
			Kickoff:   kickoff.UTC(),
			Status:    normalizeStatus(r.Fixture.Status.Short),
			HomeScore: r.Goals.Home,
			AwayScore: r.Goals.Away,
		})
	}
	return fixtures, nil
}

// normalizeStatus collapses the provider's status zoo into the three states
// the rest of the system cares about.
func normalizeStatus(short string) string {
	switch short {
	case "NS", "TBD", "PST":
		return "scheduled"
	case "1H", "HT", "2H", "ET", "P", "LIVE":
		return "live"
	case "FT", "AET", "PEN":
		return "finished"
	default:
		return "scheduled"
	}
}
