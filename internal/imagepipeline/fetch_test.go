package imagepipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRangeQuery_ParsesSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"resultType": "matrix",
				"result": [
					{"metric": {"instance": "h1"}, "values": [[100, "1.5"], [200, "2.5"]]},
					{"metric": {"instance": "h2"}, "values": [[100, "9"]]}
				]
			}
		}`))
	}))
	defer srv.Close()

	result, err := fetchRangeQuery(context.Background(), srv.Client(), srv.URL, "up", 0, 300, 60, 5)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "h1", result[0].Metric["instance"])
	assert.Len(t, result[0].Points, 2)
	assert.Equal(t, 1.5, result[0].Points[0].Value)
}

func TestFetchRangeQuery_RespectsMaxSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"result":[
			{"metric":{"i":"a"},"values":[[1,"1"]]},
			{"metric":{"i":"b"},"values":[[1,"1"]]},
			{"metric":{"i":"c"},"values":[[1,"1"]]}
		]}}`))
	}))
	defer srv.Close()

	result, err := fetchRangeQuery(context.Background(), srv.Client(), srv.URL, "up", 0, 1, 1, 2)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestFetchRangeQuery_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := fetchRangeQuery(context.Background(), srv.Client(), srv.URL, "up", 0, 1, 1, 5)
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*ErrQueryFailed))
}

func TestFetchRangeQuery_QueryErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","error":"bad promql"}`))
	}))
	defer srv.Close()

	_, err := fetchRangeQuery(context.Background(), srv.Client(), srv.URL, "up(", 0, 1, 1, 5)
	require.Error(t, err)
}
