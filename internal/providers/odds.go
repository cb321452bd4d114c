package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// matchWinnerBet is the only market this service consumes.
const matchWinnerBet = "Match Winner"

// OddsAdapter fetches bookmaker odds for fixtures.
type OddsAdapter struct {
	*Adapter
}

// NewOddsAdapter wraps the shared adapter for the odds provider.
func NewOddsAdapter(a *Adapter) *OddsAdapter {
	return &OddsAdapter{Adapter: a}
}

// oddsPayload is the odds provider's wire format. Odds arrive as decimal
// strings, one bets list per bookmaker.
type oddsPayload struct {
	Response []struct {
		Fixture struct {
			ID int64 `json:"id"`
		} `json:"fixture"`
		Update     string `json:"update"` // RFC 3339
		Bookmakers []struct {
			Name string `json:"name"`
			Bets []struct {
				Name   string `json:"name"`
				Values []struct {
					Value string `json:"value"` // "Home", "Draw", "Away"
					Odd   string `json:"odd"`   // decimal odds
				} `json:"values"`
			} `json:"bets"`
		} `json:"bookmakers"`
	} `json:"response"`
}

// ForFixture returns every bookmaker's match-winner quote for a fixture.
func (o *OddsAdapter) ForFixture(ctx context.Context, fixtureID int64) ([]OddsQuote, error) {
	query := url.Values{}
	query.Set("fixture", strconv.FormatInt(fixtureID, 10))

	quotes, err := fetch(ctx, o.Adapter, "/odds", query, parseOdds)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("odds for fixture %d: %w", fixtureID, ErrNotFound)
	}
	return quotes, nil
}

func parseOdds(body []byte) ([]OddsQuote, error) {
	var payload oddsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	var quotes []OddsQuote
	for _, r := range payload.Response {
		fetchedAt := time.Now().UTC()
		if ts, err := time.Parse(time.RFC3339, r.Update); err == nil {
			fetchedAt = ts.UTC()
		}

		for _, bm := range r.Bookmakers {
			for _, bet := range bm.Bets {
				if bet.Name != matchWinnerBet {
					continue
				}
				quote := OddsQuote{
					FixtureID: r.Fixture.ID,
					Bookmaker: bm.Name,
					FetchedAt: fetchedAt,
				}
				for _, v := range bet.Values {
					odd, err := strconv.ParseFloat(v.Odd, 64)
					if err != nil {
						return nil, fmt.Errorf("bookmaker %s: bad odd %q: %w", bm.Name, v.Odd, err)
					}
					switch v.Value {
					case "Home":
						quote.Home = odd
					case "Draw":
						quote.Draw = odd
					case "Away":
						quote.Away = odd
					}
				}
				if quote.Home == 0 || quote.Draw == 0 || quote.Away == 0 {
					return nil, fmt.Errorf("bookmaker %s: incomplete match-winner market for fixture %d", bm.Name, r.Fixture.ID)
				}
				quotes = append(quotes, quote)
			}
		}
	}
	return quotes, nil
}
