package imagepipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// maxRangeQueryResponseBytes caps how much of a query_range response
// body this pipeline will buffer, guarding against a misbehaving or
// malicious metrics backend.
const maxRangeQueryResponseBytes = 5 << 20 // 5 MiB

// ErrQueryFailed wraps a range-query HTTP or decode failure.
type ErrQueryFailed struct {
	Cause error
}

func (e *ErrQueryFailed) Error() string { return "range query failed: " + e.Cause.Error() }
func (e *ErrQueryFailed) Unwrap() error { return e.Cause }

// series is one time series returned by a Prometheus range query.
type series struct {
	Metric map[string]string
	Points []point
}

type point struct {
	Timestamp float64
	Value     float64
}

// rangeQueryResponse mirrors the standard Prometheus HTTP API range
// query envelope (`{status, data: {resultType, result}}`).
type rangeQueryResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Values [][2]any          `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

// fetchRangeQuery executes the range query against baseURL and parses
// the response into series, keeping at most maxSeries in result order
// and discarding the rest.
func fetchRangeQuery(ctx context.Context, client *http.Client, baseURL, expr string, startUnix, endUnix int64, stepSeconds, maxSeries int) ([]series, error) {
	reqURL := buildRangeQueryURL(baseURL, expr, startUnix, endUnix, stepSeconds)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &ErrQueryFailed{Cause: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ErrQueryFailed{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRangeQueryResponseBytes))
	if err != nil {
		return nil, &ErrQueryFailed{Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ErrQueryFailed{Cause: fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))}
	}

	var parsed rangeQueryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ErrQueryFailed{Cause: fmt.Errorf("decode response: %w", err)}
	}
	if parsed.Status != "success" {
		return nil, &ErrQueryFailed{Cause: fmt.Errorf("query error: %s", parsed.Error)}
	}

	result := make([]series, 0, len(parsed.Data.Result))
	for i, r := range parsed.Data.Result {
		if i >= maxSeries {
			break
		}
		s := series{Metric: r.Metric, Points: make([]point, 0, len(r.Values))}
		for _, pair := range r.Values {
			ts, val, ok := decodeSamplePair(pair)
			if !ok {
				continue
			}
			s.Points = append(s.Points, point{Timestamp: ts, Value: val})
		}
		result = append(result, s)
	}
	return result, nil
}

// decodeSamplePair converts a Prometheus [timestamp, "value"] pair
// (timestamp is a JSON number, value is a JSON string per the wire
// format) into floats.
func decodeSamplePair(pair [2]any) (ts, val float64, ok bool) {
	tsNum, ok1 := pair[0].(float64)
	valStr, ok2 := pair[1].(string)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	v, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, 0, false
	}
	return tsNum, v, true
}
