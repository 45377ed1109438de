package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/region-cache/pkg/cache"
)

// MaxBatchParam is the query parameter selecting the eviction batch size.
const MaxBatchParam = "maxEntriesDeletedInOneBatch"

// Routes returns the admin HTTP API:
//
//	DELETE /regions?maxEntriesDeletedInOneBatch=N       evict every region
//	DELETE /regions/{id}?maxEntriesDeletedInOneBatch=N  evict a region
//	DELETE /regions/{id}/entries?uri=/path              remove one entry
//	GET    /config                                      configuration snapshot
//
// snapshot may be nil, in which case /config is not mounted.
func Routes(f *Facade, snapshot func() map[string]any) http.Handler {
	r := chi.NewRouter()
	r.Delete("/regions", f.handleEvictAll)
	r.Delete("/regions/{id}", f.handleEvict)
	r.Delete("/regions/{id}/entries", f.handleRemove)
	if snapshot != nil {
		r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(snapshot())
		})
	}
	return r
}

// maxBatchParam reads the batch size query parameter, defaulting to the
// engine's batch size.
func (f *Facade) maxBatchParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get(MaxBatchParam)
	if raw == "" {
		return f.DefaultMaxBatch(), true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("Parameter: '%s' should be an integer but was '%s'", MaxBatchParam, raw), http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func (f *Facade) handleEvictAll(w http.ResponseWriter, r *http.Request) {
	maxBatch, ok := f.maxBatchParam(w, r)
	if !ok {
		return
	}

	results, err := f.EvictAll(r.Context(), maxBatch, DefaultConcurrency)
	if errors.Is(err, cache.ErrInvalidArgument) {
		writeError(w, err)
		return
	}

	type regionJSON struct {
		Region  string `json:"region"`
		Removed int64  `json:"removed"`
		Error   string `json:"error,omitempty"`
	}
	body := make([]regionJSON, 0, len(results))
	for _, res := range results {
		rj := regionJSON{Region: res.Region, Removed: res.Removed}
		if res.Err != nil {
			rj.Error = res.Err.Error()
		}
		body = append(body, rj)
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (f *Facade) handleEvict(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	maxBatch, ok := f.maxBatchParam(w, r)
	if !ok {
		return
	}

	removed, err := f.EvictRegionBatched(r.Context(), id, maxBatch)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Evicted %d entries from region: %s with %s: %d\n", removed, id, MaxBatchParam, maxBatch)
}

func (f *Facade) handleRemove(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		http.Error(w, "Parameter: 'uri' not set", http.StatusBadRequest)
		return
	}
	if err := f.Remove(r.Context(), chi.URLParam(r, "id"), uri); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cache.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
