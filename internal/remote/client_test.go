package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walak/walak/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/logs", Options{
		Timeout:      time.Second,
		Retries:      2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
	})
}

func strp(s string) *string { return &s }

func TestListLogsArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/logs", r.URL.Path)
		io.WriteString(w, `[
			{"_id": {"$oid": "64a1"}, "date": "2025-06-01", "name": "yoga", "category": "health", "__v": 0},
			{"id": "b", "date": "2025-06-02T07:30", "name": "maya", "category": "friends", "subcategory": null},
			42
		]`)
	})

	logs, err := c.ListLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "64a1", logs[0].ID)
	assert.JSONEq(t, `0`, string(logs[0].Extra["__v"]))
	assert.Equal(t, "b", logs[1].ID)
	assert.Equal(t, "", logs[1].Subcategory)
}

func TestListLogsWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": [{"id": "a", "date": "2025-06-01", "name": "yoga", "category": "health"}]}`)
	})
	logs, err := c.ListLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "a", logs[0].ID)
}

func TestDecodeListRejectsGarbage(t *testing.T) {
	_, err := DecodeList([]byte(`{"count": 3}`))
	assert.Error(t, err)
	_, err = DecodeList([]byte(`not json`))
	assert.Error(t, err)
}

func TestCreateLog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var l store.Log
		require.NoError(t, json.NewDecoder(r.Body).Decode(&l))
		l.ID = "new-id"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(l)
	})

	got, err := c.CreateLog(context.Background(), store.Log{Date: "2025-06-01", Name: "yoga", Category: "health"})
	require.NoError(t, err)
	assert.Equal(t, "new-id", got.ID)
	assert.Equal(t, "yoga", got.Name)
}

func TestCreateLogAcceptsEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	in := store.Log{Date: "2025-06-01", Name: "yoga", Category: "health"}
	got, err := c.CreateLog(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, *got)
}

func TestCreateLogValidatesFirst(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	_, err := c.CreateLog(context.Background(), store.Log{Date: "2025-06-01", Category: "health"})
	assert.ErrorIs(t, err, store.ErrInvalidLog)
	assert.Zero(t, calls.Load())
}

func TestUpdateLogSendsOnlySetFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/logs/a%2Fb", r.URL.EscapedPath())
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"note": ""}`, string(body))
		io.WriteString(w, `{"date": "2025-06-01", "name": "yoga", "category": "health"}`)
	})

	got, err := c.UpdateLog(context.Background(), "a/b", store.LogPatch{Note: strp("")})
	require.NoError(t, err)
	assert.Equal(t, "a/b", got.ID)
}

func TestUpdateLogFetchesWhenNotEchoed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			io.WriteString(w, `"ok"`)
		case http.MethodGet:
			io.WriteString(w, `[{"id": "a", "date": "2025-06-01", "name": "cardio", "category": "health"}]`)
		}
	})
	got, err := c.UpdateLog(context.Background(), "a", store.LogPatch{Name: strp("cardio")})
	require.NoError(t, err)
	assert.Equal(t, "cardio", got.Name)
}

func TestDeleteLogNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})
	err := c.DeleteLog(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": "name is required"}`)
	})
	_, err := c.ListLogs(context.Background())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "name is required", se.Body)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `[]`)
	})
	logs, err := c.ListLogs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.ListLogs(context.Background())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateLogIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.CreateLog(context.Background(), store.Log{Date: "2025-06-01", Name: "yoga", Category: "health"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, int32(1), calls.Load())
}
