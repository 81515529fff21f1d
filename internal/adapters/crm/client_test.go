package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/api/", WithToken("tok-123"), WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "not a url", "/relative/only"} {
		_, err := NewClient(base)
		assert.ErrorIs(t, err, ErrInvalidBaseURL, base)
	}
}

func TestListSalesPeople(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Equal(t, "sales", r.URL.Query().Get("role"))
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"id": 7, "name": "Ayu", "months_active": "3", "total_pipelines": 10,
			 "total_customers": null, "yearly_target": "n/a", "v1": 5, "close": 2.5,
			 "sales_achieved": "1500000"},
			{"id": "", "name": "ghost"},
			{"id": "u-2", "name": "Budi"}
		]`))
	})

	people, err := c.ListSalesPeople(context.Background())
	require.NoError(t, err)
	require.Len(t, people, 2)

	ayu := people[0]
	assert.Equal(t, "7", ayu.ID)
	assert.Equal(t, "Ayu", ayu.Name)
	assert.Equal(t, 3.0, ayu.Metrics.MonthsActive)
	assert.Equal(t, 10.0, ayu.Metrics.TotalPipelines)
	assert.Equal(t, 0.0, ayu.Metrics.TotalCustomers)
	assert.Equal(t, 0.0, ayu.Metrics.YearlyTarget)
	assert.Equal(t, 5.0, ayu.Metrics.V1)
	assert.Equal(t, 2.5, ayu.Metrics.Close)
	assert.Equal(t, 1_500_000.0, ayu.Metrics.SalesAchieved)

	assert.Equal(t, "u-2", people[1].ID)
	assert.Equal(t, 0.0, people[1].Metrics.MonthsActive)
}

func TestListSalesPeopleDataEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"id": "a", "name": "A", "v2": 4}]}`))
	})

	people, err := c.ListSalesPeople(context.Background())
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, 4.0, people[0].Metrics.V2)
}

func TestActivePipelines(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/u%201/pipelines", r.URL.EscapedPath())
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"data": [
			{"id": 1, "stage": 2, "status": "active", "contact": "Dewi", "institution": "SMA 1",
			 "created_at": "2024-05-01T10:00:00Z"},
			{"id": 2, "stage": "4", "created_at": "2024-05-02"},
			{"id": 3, "stage": null, "created_at": "yesterday"},
			{"id": 4, "stage": -2}
		]}`))
	})

	entries, err := c.ActivePipelines(context.Background(), "u 1")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, 2, entries[0].Stage)
	assert.Equal(t, "Dewi", entries[0].Contact)
	assert.Equal(t, "SMA 1", entries[0].Institution)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), entries[0].CreatedAt)

	assert.Equal(t, 4, entries[1].Stage)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), entries[1].CreatedAt)

	assert.Equal(t, 0, entries[2].Stage)
	assert.True(t, entries[2].CreatedAt.IsZero())
	assert.Equal(t, 0, entries[3].Stage)
}

func TestStatusErrors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := c.ListSalesPeople(context.Background())
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		})
		_, err := c.ActivePipelines(context.Background(), "x")
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Contains(t, err.Error(), "502")
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data": "nope"}`))
		})
		_, err := c.ListSalesPeople(context.Background())
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestRequestHonoursContext(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.ListSalesPeople(ctx)
	assert.ErrorIs(t, err, ErrRequest)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenFuncIsReadPerRequest(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	token := "first"
	c, err := NewClient(srv.URL, WithTokenFunc(func() string { return token }))
	require.NoError(t, err)

	_, err = c.ListSalesPeople(context.Background())
	require.NoError(t, err)
	token = ""
	_, err = c.ListSalesPeople(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Bearer first", ""}, seen)
}

func TestNumberDecoding(t *testing.T) {
	cases := map[string]float64{
		`12`:       12,
		`"7.5"`:    7.5,
		`" 3 "`:    3,
		`null`:     0,
		`"abc"`:    0,
		`true`:     0,
		`{"a":1}`:  0,
		`"NaN"`:    0,
		`"-Inf"`:   0,
		`-4`:       -4,
		`1e3`:      1000,
		`["1"]`:    0,
		`""`:       0,
		`"1,000"`:  0,
		`0.000001`: 0.000001,
	}
	for raw, want := range cases {
		var n Number
		require.NoError(t, json.Unmarshal([]byte(raw), &n), raw)
		assert.Equal(t, want, n.Float64(), raw)
	}
}

func TestListSalesPeopleSkipsUndecodableUser(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Ann","v1":"3"},{"id":2,"name":123,"v1":5}]`))
	})

	people, err := c.ListSalesPeople(context.Background())
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "1", people[0].ID)
	assert.Equal(t, "Ann", people[0].Name)
	assert.Equal(t, 3.0, people[0].Metrics.V1)
}

func TestActivePipelinesSkipsUndecodableEntry(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"id":1,"stage":3,"contact":{"name":"x"}},{"id":2,"stage":4}]}`))
	})

	entries, err := c.ActivePipelines(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].ID)
	assert.Equal(t, 4, entries[0].Stage)
}

func TestPipelineStageIsClamped(t *testing.T) {
	cases := map[string]int{
		`1e300`:  5,
		`-1e300`: 0,
		`6`:      5,
		`4.6`:    5,
		`2.4`:    2,
		`"NaN"`:  0,
	}
	for raw, want := range cases {
		var p Pipeline
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"stage":`+raw+`}`), &p), raw)
		assert.Equal(t, want, p.Entry().Stage, raw)
	}
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	body := []byte(strings.Repeat("a", maxErrorSnip-1) + strings.Repeat("é", 10))
	s := snippet(body)
	assert.True(t, utf8.ValidString(s))
	assert.True(t, strings.HasSuffix(s, "..."))
	assert.LessOrEqual(t, len(s), maxErrorSnip+len("..."))

	assert.Equal(t, "short", snippet([]byte("  short \n")))
}
