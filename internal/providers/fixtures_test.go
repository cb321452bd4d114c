package providers

import (
	"testing"
	"time"
)

func TestParseFixtures(t *testing.T) {
	body := []byte(`{"response":[
	  {"fixture":{"id":42,"date":"2026-08-26T19:00:00Z","status":{"short":"FT"}},
	   "league":{"name":"La Liga"},
	   "teams":{"home":{"name":"Real Madrid"},"away":{"name":"Sevilla"}},
	   "goals":{"home":3,"away":1}}
	]}`)

	fixtures, err := parseFixtures(body)
	if err != nil {
		t.Fatalf("parseFixtures: %v", err)
	}
	if len(fixtures) != 1 {
		t.Fatalf("expected 1 fixture, got %d", len(fixtures))
	}

	f := fixtures[0]
	if f.ID != 42 || f.League != "La Liga" || f.HomeTeam != "Real Madrid" || f.AwayTeam != "Sevilla" {
		t.Fatalf("unexpected fixture: %+v", f)
	}
	if f.Status != "finished" {
		t.Fatalf("status = %q, want finished", f.Status)
	}
	want := time.Date(2026, 8, 26, 19, 0, 0, 0, time.UTC)
	if !f.Kickoff.Equal(want) {
		t.Fatalf("kickoff = %v, want %v", f.Kickoff, want)
	}
	if f.HomeScore == nil || *f.HomeScore != 3 || f.AwayScore == nil || *f.AwayScore != 1 {
		t.Fatalf("unexpected scores: %v %v", f.HomeScore, f.AwayScore)
	}
}

func TestParseFixtures_NilScoresBeforeKickoff(t *testing.T) {
	body := []byte(`{"response":[
	  {"fixture":{"id":7,"date":"2026-08-26T19:00:00Z","status":{"short":"NS"}},
	   "league":{"name":"Serie A"},
	   "teams":{"home":{"name":"Inter"},"away":{"name":"Milan"}},
	   "goals":{"home":null,"away":null}}
	]}`)

	fixtures, err := parseFixtures(body)
	if err != nil {
		t.Fatalf("parseFixtures: %v", err)
	}
	if fixtures[0].HomeScore != nil || fixtures[0].AwayScore != nil {
		t.Fatal("scores must be nil for a fixture that has not started")
	}
}

func TestParseFixtures_BadDate(t *testing.T) {
	body := []byte(`{"response":[
	  {"fixture":{"id":7,"date":"yesterday","status":{"short":"NS"}},
	   "league":{"name":"x"},
	   "teams":{"home":{"name":"a"},"away":{"name":"b"}},
	   "goals":{"home":null,"away":null}}
	]}`)

	if _, err := parseFixtures(body); err == nil {
		t.Fatal("expected error for malformed kickoff date")
	}
}

func TestParseFixtures_InvalidJSON(t *testing.T) {
	if _, err := parseFixtures([]byte(`{"response": [`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		short string
		want  string
	}{
		{"NS", "scheduled"},
		{"TBD", "scheduled"},
		{"PST", "scheduled"},
		{"1H", "live"},
		{"HT", "live"},
		{"2H", "live"},
		{"ET", "live"},
		{"LIVE", "live"},
		{"FT", "finished"},
		{"AET", "finished"},
		{"PEN", "finished"},
		{"WEIRD", "scheduled"},
	}
	for _, tc := range cases {
		if got := normalizeStatus(tc.short); got != tc.want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", tc.short, got, tc.want)
		}
	}
}
