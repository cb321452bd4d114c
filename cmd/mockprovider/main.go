// Package main provides a canned sports-data provider for local development
// and manual testing of the feed server. It serves fixture, odds and
// prediction payloads in the upstream wire format, and exposes control
// endpoints for simulating provider failures.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// failNext holds how many upcoming data requests should return 503.
// Set via POST /__fail/{n} to exercise retry and circuit breaker paths.
var failNext atomic.Int64

func main() {
	port := flag.Int("port", 3001, "port to listen on")
	name := flag.String("name", "mockprovider", "service name")
	flag.Parse()

	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", port)
	}

	// /__status/{code} returns an arbitrary HTTP status code.
	// Example: GET /__status/503 -> 503 Service Unavailable
	http.HandleFunc("/__status/", func(w http.ResponseWriter, r *http.Request) {
		codeStr := strings.TrimPrefix(r.URL.Path, "/__status/")
		code, err := strconv.Atoi(codeStr)
		if err != nil || code < 100 || code > 599 {
			code = 500
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"service":        *name,
			"requested_code": code,
			"message":        http.StatusText(code),
		})
	})

	// /__fail/{n} makes the next n data requests fail with 503.
	http.HandleFunc("/__fail/", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/__fail/"))
		if err != nil || n < 0 {
			http.Error(w, "bad count", http.StatusBadRequest)
			return
		}
		failNext.Store(int64(n))
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "failing next %d requests\n", n)
	})

	http.HandleFunc("/fixtures", dataHandler(fixturesBody))
	http.HandleFunc("/odds", dataHandler(oddsBody))
	http.HandleFunc("/predictions", dataHandler(predictionsBody))

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("%s listening on %s", *name, addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func dataHandler(body func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if failNext.Load() > 0 {
			failNext.Add(-1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, `{"error":"simulated outage"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, body())
	}
}

func fixturesBody() string {
	kickoff := time.Now().UTC().Truncate(time.Hour).Add(3 * time.Hour).Format(time.RFC3339)
	return `{"response":[
	  {"fixture":{"id":1001,"date":"` + kickoff + `","status":{"short":"NS"}},
	   "league":{"name":"Premier League"},
	   "teams":{"home":{"name":"Arsenal"},"away":{"name":"Chelsea"}},
	   "goals":{"home":null,"away":null}},
	  {"fixture":{"id":1002,"date":"` + kickoff + `","status":{"short":"FT"}},
	   "league":{"name":"Premier League"},
	   "teams":{"home":{"name":"Liverpool"},"away":{"name":"Everton"}},
	   "goals":{"home":2,"away":1}}
	]}`
}

func oddsBody() string {
	update := time.Now().UTC().Format(time.RFC3339)
	return `{"response":[
	  {"fixture":{"id":1001},"update":"` + update + `",
	   "bookmakers":[{"name":"Bet365","bets":[{"name":"Match Winner","values":[
	     {"value":"Home","odd":"2.10"},
	     {"value":"Draw","odd":"3.40"},
	     {"value":"Away","odd":"3.25"}
	   ]}]}]}
	]}`
}

func predictionsBody() string {
	generated := time.Now().UTC().Format(time.RFC3339)
	return `{"response":[
	  {"fixture":{"id":1001},
	   "predictions":{"advice":"Home or draw","percent":{"home":"45%","draw":"30%","away":"25%"}},
	   "generated_at":"` + generated + `"}
	]}`
}
