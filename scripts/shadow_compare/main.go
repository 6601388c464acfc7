// Command shadow_compare replays read-only requests against the Go API and the
// legacy Node/Supabase backend and reports status and body differences. Used
// during the cutover to verify endpoint parity before traffic is switched.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type targetsFile struct {
	Endpoints []endpoint `json:"endpoints"`
}

type result struct {
	Endpoint      endpoint
	GoStatus      int
	LegacyStatus  int
	StatusMatch   bool
	BodyMatch     bool
	Err           error
	GoLatency     time.Duration
	LegacyLatency time.Duration
}

func main() {
	var (
		goBase      string
		legacyBase  string
		targetsPath string
		bearerToken string
		timeout     time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "legacy API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "path to JSON targets file")
	flag.StringVar(&bearerToken, "token", os.Getenv("SHADOW_COMPARE_TOKEN"), "bearer token sent to both backends")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	endpoints, err := loadEndpoints(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	runner := &runner{
		client: &http.Client{Timeout: timeout},
		token:  bearerToken,
	}

	var (
		results  []result
		breaking int
		drift    int
	)
	for _, ep := range endpoints {
		res := runner.compare(goBase, legacyBase, ep)
		if res.Err != nil || !res.StatusMatch || !res.BodyMatch {
			if ep.Critical {
				breaking++
			} else {
				drift++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, drift)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadEndpoints(path string) ([]endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints defined in %s", path)
	}
	return file.Endpoints, nil
}

type runner struct {
	client *http.Client
	token  string
}

func (r *runner) compare(goBase, legacyBase string, ep endpoint) result {
	res := result{Endpoint: ep}

	goStatus, goBody, goLatency, err := r.fetch(goBase, ep)
	if err != nil {
		res.Err = fmt.Errorf("go request failed: %w", err)
		return res
	}
	legacyStatus, legacyBody, legacyLatency, err := r.fetch(legacyBase, ep)
	if err != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", err)
		return res
	}

	res.GoStatus = goStatus
	res.LegacyStatus = legacyStatus
	res.GoLatency = goLatency
	res.LegacyLatency = legacyLatency
	res.StatusMatch = goStatus == legacyStatus
	res.BodyMatch = bodiesEqual(goBody, legacyBody)
	return res
}

func (r *runner) fetch(base string, ep endpoint) (int, []byte, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(ep.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := ep.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, err
	}
	return resp.StatusCode, body, time.Since(start), nil
}

// bodiesEqual compares raw bytes first and falls back to normalized JSON so
// key ordering and integer formatting differences between backends do not
// count as drift.
func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []result) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Endpoint.Method, res.Endpoint.Path)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.GoLatency)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.LegacyLatency)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
		} else {
			fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Endpoint.Critical)
		}
	}
}
