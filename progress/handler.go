package progress

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Handler exposes the tracker over HTTP:
//
//	GET /progress  current Snapshot as JSON
//	GET /healthz   200 OK
func Handler(t *Tracker) http.Handler {
	router := mux.NewRouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	GET.HandleFunc("/progress", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(t.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Name("progress")

	GET.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Name("healthz")

	return router
}
