// Package imagepipeline renders a small trend-graph PNG for an alert by
// extracting the originating query from its generatorURL, re-running it
// as a Prometheus range query, and rasterizing the result natively
// rather than fetching a pre-rendered PNG from a dashboard renderer.
package imagepipeline

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// ErrNoQuery is returned when an alert's generatorURL carries no
// extractable PromQL expression.
type ErrNoQuery struct {
	Reason string
}

func (e *ErrNoQuery) Error() string { return "no query: " + e.Reason }

// ExtractQuery returns the PromQL expression and the metrics-backend
// authority (scheme+host) implied by a.GeneratorURL, applying
// per-producer extraction rules.
func ExtractQuery(a *alert.Alert) (expr string, authority string, err error) {
	if a.GeneratorURL == "" {
		return "", "", &ErrNoQuery{Reason: "alert has no generatorURL"}
	}

	u, err := url.Parse(a.GeneratorURL)
	if err != nil || !u.IsAbs() {
		return "", "", &ErrNoQuery{Reason: "generatorURL is not an absolute URL"}
	}

	authority = u.Scheme + "://" + u.Host
	q := u.Query()

	switch a.Source() {
	case alert.SourcePrometheus:
		expr = firstPrometheusExpr(q)
	case alert.SourceGrafana:
		expr = q.Get("expr")
		if expr == "" {
			expr = q.Get("query")
		}
	default:
		expr = q.Get("expr")
	}

	if expr == "" {
		return "", "", &ErrNoQuery{Reason: "generatorURL carries no expression parameter"}
	}
	return expr, authority, nil
}

// firstPrometheusExpr returns g0.expr, the first Alertmanager-style
// graph expression parameter Prometheus embeds in its generatorURL.
// Additional g<i>.expr parameters exist for multi-series overlays but
// this pipeline renders only the primary series (max_series governs
// range-query results, not query-extraction fan-out).
func firstPrometheusExpr(q url.Values) string {
	if v := q.Get("g0.expr"); v != "" {
		return v
	}
	for key, vals := range q {
		if strings.HasPrefix(key, "g") && strings.HasSuffix(key, ".expr") && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// buildRangeQueryURL constructs the /api/v1/query_range request URL.
func buildRangeQueryURL(baseURL, expr string, startUnix, endUnix int64, stepSeconds int) string {
	v := url.Values{}
	v.Set("query", expr)
	v.Set("start", strconv.FormatInt(startUnix, 10))
	v.Set("end", strconv.FormatInt(endUnix, 10))
	v.Set("step", strconv.Itoa(stepSeconds))
	return fmt.Sprintf("%s/api/v1/query_range?%s", strings.TrimRight(baseURL, "/"), v.Encode())
}
