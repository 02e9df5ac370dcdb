// Package httpapi exposes the assessment service over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	app "github.com/marcelomcerri-bot/feridas/internal/app"
	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
	"github.com/marcelomcerri-bot/feridas/internal/app/metrics"
	"github.com/marcelomcerri-bot/feridas/internal/app/services/assessment"
	"github.com/marcelomcerri-bot/feridas/internal/httputil"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

var errBodyTooLarge = errors.New("request body too large")

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// Options tune the router.
type Options struct {
	// StaticDir is served for every path the API does not claim. Empty
	// disables static serving.
	StaticDir string
}

// NewHandler returns a router exposing the wound assessment API.
func NewHandler(application *app.Application, log *logger.Logger, opts Options) *mux.Router {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyze-wound", h.analyzeWound).Methods(http.MethodPost)
	api.HandleFunc("/compare-wounds", h.compareWounds).Methods(http.MethodPost)
	api.HandleFunc("/analyses", h.listAnalyses).Methods(http.MethodGet)
	api.HandleFunc("/analyses/{id}", h.getAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/comparisons", h.listComparisons).Methods(http.MethodGet)
	api.HandleFunc("/comparisons/{id}", h.getComparison).Methods(http.MethodGet)
	// Unmatched /api paths answer in JSON instead of falling through to the
	// static index.
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "Not found")
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	if opts.StaticDir != "" {
		r.PathPrefix("/").Handler(spaHandler{dir: opts.StaticDir}).Methods(http.MethodGet, http.MethodHead)
	}
	return r
}

type analyzeRequest struct {
	ImageData string `json:"imageData"`
}

type compareRequest struct {
	BeforeImage string `json:"beforeImage"`
	AfterImage  string `json:"afterImage"`
}

func (h *handler) analyzeWound(w http.ResponseWriter, r *http.Request) {
	var payload analyzeRequest
	if !h.decode(w, r, &payload) {
		return
	}

	analysis, err := h.app.Assessments.Analyze(r.Context(), payload.ImageData)
	switch {
	case errors.Is(err, assessment.ErrImageRequired):
		httputil.BadRequest(w, "Image data is required")
	case err != nil:
		h.log.WithContext(r.Context()).WithError(err).Error("analyze wound")
		httputil.InternalError(w, "Failed to analyze wound")
	default:
		httputil.WriteJSON(w, http.StatusOK, analysis)
	}
}

func (h *handler) compareWounds(w http.ResponseWriter, r *http.Request) {
	var payload compareRequest
	if !h.decode(w, r, &payload) {
		return
	}

	comparison, err := h.app.Assessments.Compare(r.Context(), payload.BeforeImage, payload.AfterImage)
	switch {
	case errors.Is(err, assessment.ErrBothImagesRequired):
		httputil.BadRequest(w, "Both images are required")
	case err != nil:
		h.log.WithContext(r.Context()).WithError(err).Error("compare wounds")
		httputil.InternalError(w, "Failed to compare wounds")
	default:
		httputil.WriteJSON(w, http.StatusOK, comparison)
	}
}

func (h *handler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Assessments.ListAnalyses(r.Context())
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Error("list analyses")
		httputil.InternalError(w, "Failed to fetch analyses")
		return
	}
	if items == nil {
		items = []wound.Analysis{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	item, ok, err := h.app.Assessments.GetAnalysis(r.Context(), mux.Vars(r)["id"])
	switch {
	case err != nil:
		h.log.WithContext(r.Context()).WithError(err).Error("get analysis")
		httputil.InternalError(w, "Failed to fetch analyses")
	case !ok:
		httputil.NotFound(w, "Analysis not found")
	default:
		httputil.WriteJSON(w, http.StatusOK, item)
	}
}

func (h *handler) listComparisons(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Assessments.ListComparisons(r.Context())
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Error("list comparisons")
		httputil.InternalError(w, "Failed to fetch comparisons")
		return
	}
	if items == nil {
		items = []wound.Comparison{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *handler) getComparison(w http.ResponseWriter, r *http.Request) {
	item, ok, err := h.app.Assessments.GetComparison(r.Context(), mux.Vars(r)["id"])
	switch {
	case err != nil:
		h.log.WithContext(r.Context()).WithError(err).Error("get comparison")
		httputil.InternalError(w, "Failed to fetch comparisons")
	case !ok:
		httputil.NotFound(w, "Comparison not found")
	default:
		httputil.WriteJSON(w, http.StatusOK, item)
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	storageName, imageName := h.app.Assessments.Backends()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": storageName,
		"images":  imageName,
	})
}

// decode reads a JSON body into dst and writes the error reply itself when
// it cannot.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := decodeJSON(r.Body, dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errBodyTooLarge):
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	default:
		h.log.WithContext(r.Context()).WithError(err).Debug("invalid request body")
		httputil.BadRequest(w, "Invalid request body")
	}
	return false
}

// decodeJSON treats an empty body as an empty object.
func decodeJSON(body io.ReadCloser, dst any) error {
	if body == nil {
		return nil
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return err
	}
	return nil
}

// spaHandler serves files from dir and falls back to index.html for paths
// that do not exist, so client-side routes resolve.
type spaHandler struct {
	dir string
}

func (s spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.dir, filepath.Clean("/"+r.URL.Path))
	if _, err := os.Stat(path); err != nil {
		index := filepath.Join(s.dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
		return
	}
	http.FileServer(http.Dir(s.dir)).ServeHTTP(w, r)
}
