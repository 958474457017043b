package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/logging"
	"github.com/walak/walak/internal/store"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store errors onto status codes.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidLog):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Log.WithError(err).WithField("path", r.URL.Path).Error("store failure")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(r *http.Request, v json.Unmarshaler) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return v.UnmarshalJSON(data)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================
// Logs
// ============================================================

type bucketResponse struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	IDs   []string  `json:"ids"`
}

type viewResponse struct {
	Scope         string           `json:"scope"`
	Title         string           `json:"title"`
	Reference     time.Time        `json:"reference"`
	Searching     bool             `json:"searching"`
	LiteralSearch bool             `json:"literalSearch"`
	Logs          []store.Log      `json:"logs"`
	Buckets       []bucketResponse `json:"buckets,omitempty"`
	Total         int              `json:"total"`
	Skipped       int              `json:"skipped"`
}

var viewParams = []string{"scope", "offset", "list", "category", "q"}

// parseViewState reads the view query parameters. ok is false when none
// is present.
func parseViewState(r *http.Request) (v engine.ViewState, ok bool, err error) {
	q := r.URL.Query()
	for _, p := range viewParams {
		if q.Has(p) {
			ok = true
		}
	}
	if !ok {
		return v, false, nil
	}
	v = engine.ViewState{
		Scope:     engine.ParseScope(q.Get("scope")),
		ListScope: engine.ParseScope(q.Get("list")),
		Category:  q.Get("category"),
		Search:    q.Get("q"),
	}
	if raw := q.Get("offset"); raw != "" {
		if v.Offset, err = strconv.Atoi(raw); err != nil {
			return v, true, fmt.Errorf("offset must be an integer, got %q", raw)
		}
	}
	return v, true, nil
}

// listLogs returns the raw collection, or the computed view when any view
// parameter is given.
func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	v, isView, err := parseViewState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !isView {
		logs, err := s.repo.ListLogs(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if logs == nil {
			logs = []store.Log{}
		}
		writeJSON(w, http.StatusOK, logs)
		return
	}

	res, err := s.view(r.Context(), v)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	resp := viewResponse{
		Scope:         res.Frame.Scope.String(),
		Title:         res.Frame.Title,
		Reference:     res.Frame.Reference,
		Searching:     res.Searching,
		LiteralSearch: res.LiteralSearch,
		Logs:          make([]store.Log, len(res.Items)),
		Total:         res.Diagnostics.Total,
		Skipped:       res.Diagnostics.Skipped,
	}
	for i, it := range res.Items {
		resp.Logs[i] = it.Log
	}
	for _, b := range res.Buckets {
		br := bucketResponse{Key: b.Key, Label: b.Label, Start: b.Start, End: b.End, IDs: make([]string, len(b.Items))}
		for i, it := range b.Items {
			br.IDs[i] = it.ID
		}
		resp.Buckets = append(resp.Buckets, br)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createLog(w http.ResponseWriter, r *http.Request) {
	var l store.Log
	if err := decodeBody(r, &l); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.repo.CreateLog(r.Context(), l)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateLog(w http.ResponseWriter, r *http.Request) {
	var p store.LogPatch
	if err := decodeBody(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.repo.UpdateLog(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteLog(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteLog(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================
// Frames and statistics
// ============================================================

func (s *Server) frame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		var err error
		if offset, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("offset must be an integer, got %q", raw))
			return
		}
	}
	scope := engine.EffectiveScope(engine.ParseScope(q.Get("scope")), engine.ParseScope(q.Get("list")))
	f := engine.ResolveFrame(scope, offset, s.now().In(s.engine.Location()))
	writeJSON(w, http.StatusOK, map[string]any{
		"scope":     f.Scope.String(),
		"title":     f.Title,
		"reference": f.Reference,
	})
}

type monthResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type blockResponse struct {
	Key    string          `json:"key"`
	Total  int             `json:"total"`
	Last   *time.Time      `json:"last,omitempty"`
	Months []monthResponse `json:"months"`
}

type stackedResponse struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Counts []int  `json:"counts"`
}

type categoryResponse struct {
	Category  string            `json:"category"`
	Total     int               `json:"total"`
	Unmatched int               `json:"unmatched"`
	Last      *time.Time        `json:"last,omitempty"`
	Blocks    []blockResponse   `json:"blocks"`
	Stacked   []stackedResponse `json:"stacked"`
}

func toBlockResponse(b engine.BlockStats) blockResponse {
	out := blockResponse{Key: b.Key, Total: b.Total, Last: b.Last, Months: make([]monthResponse, len(b.Months))}
	for i, m := range b.Months {
		out.Months[i] = monthResponse{Key: m.Key, Label: m.Label, Count: m.Count}
	}
	return out
}

func (s *Server) monthsParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("months")
	if raw == "" {
		return s.defaultMonths, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("months must be a positive integer, got %q", raw)
	}
	return n, nil
}

func (s *Server) blockStats(w http.ResponseWriter, r *http.Request) {
	months, err := s.monthsParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, _, err := s.dataset(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	stats := s.engine.BlockStats(ds, chi.URLParam(r, "key"), s.now(), months)
	writeJSON(w, http.StatusOK, toBlockResponse(stats))
}

func (s *Server) categoryStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.engine.Taxonomy().Category(name); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown category %q", name))
		return
	}
	months, err := s.monthsParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, _, err := s.dataset(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	stats := s.engine.CategoryStats(ds, name, s.now(), months)
	resp := categoryResponse{
		Category:  stats.Category,
		Total:     stats.Total,
		Unmatched: stats.Unmatched,
		Last:      stats.Last,
		Blocks:    make([]blockResponse, len(stats.Blocks)),
		Stacked:   make([]stackedResponse, len(stats.Stacked)),
	}
	for i, b := range stats.Blocks {
		resp.Blocks[i] = toBlockResponse(b)
	}
	for i, m := range stats.Stacked {
		resp.Stacked[i] = stackedResponse{Key: m.Key, Label: m.Label, Counts: m.Counts}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) taxonomy(w http.ResponseWriter, r *http.Request) {
	type category struct {
		Name          string   `json:"name"`
		Icon          string   `json:"icon"`
		Color         string   `json:"color"`
		Blocks        []string `json:"blocks"`
		Subcategories []string `json:"subcategories,omitempty"`
	}
	cats := s.engine.Taxonomy().Categories
	out := make([]category, len(cats))
	for i, c := range cats {
		out[i] = category{Name: c.Name, Icon: c.Icon, Color: c.Color, Blocks: c.Blocks, Subcategories: c.Subcategories}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}
