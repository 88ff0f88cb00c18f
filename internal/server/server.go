// Package server exposes the tracked data to the dashboard as a JSON API:
// the brand manifest, per-target daily series with moving averages, and
// authenticated mutations (add brand, refresh one target on demand).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"brandtrack-backend/internal/brands"
	"brandtrack-backend/internal/config"
	"brandtrack-backend/internal/scheduler"
	"brandtrack-backend/internal/scraper"
	"brandtrack-backend/internal/stats"
)

const (
	defaultMAShort = 5
	defaultMALong  = 20

	refreshTimeout = 5 * time.Minute
)

type Server struct {
	cfg    *config.Config
	sites  map[string]config.SiteConfig
	store  *stats.Store
	scrape scheduler.ScrapeFunc
}

func New(cfg *config.Config, sites map[string]config.SiteConfig, store *stats.Store, scrape scheduler.ScrapeFunc) *Server {
	return &Server{
		cfg:    cfg,
		sites:  sites,
		store:  store,
		scrape: scrape,
	}
}

// Router wires all routes with CORS handling.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/api/sites", s.handleSites).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/brands", s.handleBrands).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/brands", s.requireAuth(s.handleAddBrand)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/series", s.handleSeries).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/refresh", s.requireAuth(s.handleRefresh)).Methods(http.MethodPost, http.MethodOptions)
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.sites))
	for name := range s.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	manifest, err := brands.Load(s.cfg.BrandsFile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

type addBrandRequest struct {
	Site     string `json:"site"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
}

func (s *Server) handleAddBrand(w http.ResponseWriter, r *http.Request) {
	var req addBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := s.sites[req.Site]; !ok {
		http.Error(w, "unknown site", http.StatusBadRequest)
		return
	}

	manifest, err := brands.Load(s.cfg.BrandsFile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := manifest.Add(req.Site, req.Category, req.Brand); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err := brands.Save(s.cfg.BrandsFile, manifest); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Brand added", "site", req.Site, "category", req.Category, "brand", req.Brand)
	writeJSON(w, http.StatusCreated, manifest)
}

type seriesPoint struct {
	Date         string  `json:"date"`
	Count        int     `json:"count"`
	AveragePrice float64 `json:"average_price"`
	MinPrice     int     `json:"min_price"`
	MaxPrice     int     `json:"max_price"`
	MAShort      float64 `json:"ma_short"`
	MALong       float64 `json:"ma_long"`
}

type seriesResponse struct {
	Site    string        `json:"site"`
	Brand   string        `json:"brand"`
	MAShort int           `json:"ma_short_window"`
	MALong  int           `json:"ma_long_window"`
	Points  []seriesPoint `json:"points"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	site := r.URL.Query().Get("site")
	brand := r.URL.Query().Get("brand")
	if site == "" || brand == "" {
		http.Error(w, "site and brand query parameters are required", http.StatusBadRequest)
		return
	}
	maShort := queryInt(r, "ma_short", defaultMAShort)
	maLong := queryInt(r, "ma_long", defaultMALong)

	rows, err := s.store.Load(site, brand)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	averages := make([]float64, len(rows))
	for i, row := range rows {
		averages[i] = row.AveragePrice
	}
	short := stats.MovingAverage(averages, maShort)
	long := stats.MovingAverage(averages, maLong)

	resp := seriesResponse{
		Site:    site,
		Brand:   brand,
		MAShort: maShort,
		MALong:  maLong,
		Points:  make([]seriesPoint, len(rows)),
	}
	for i, row := range rows {
		resp.Points[i] = seriesPoint{
			Date:         row.Date.Format("2006-01-02"),
			Count:        row.Count,
			AveragePrice: row.AveragePrice,
			MinPrice:     row.MinPrice,
			MaxPrice:     row.MaxPrice,
			MAShort:      short[i],
			MALong:       long[i],
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	Site  string `json:"site"`
	Brand string `json:"brand"`
}

type refreshResponse struct {
	Updated bool         `json:"updated"`
	Daily   *stats.Daily `json:"daily,omitempty"`
	Message string       `json:"message,omitempty"`
}

// handleRefresh is the API form of the dashboard's per-target update button:
// scrape one site/brand now and persist the result.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	site, ok := s.sites[req.Site]
	if !ok {
		http.Error(w, "unknown site", http.StatusBadRequest)
		return
	}
	if req.Brand == "" {
		http.Error(w, "brand is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	prices, err := s.scrape(ctx, site, req.Brand)
	if errors.Is(err, scraper.ErrNoPrices) || (err == nil && len(prices) == 0) {
		// An empty search result is a valid answer, not an upstream failure.
		writeJSON(w, http.StatusOK, refreshResponse{Updated: false, Message: "no prices found"})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	daily, err := stats.Compute(req.Site, req.Brand, prices, time.Now().UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(daily); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Refreshed target", "site", req.Site, "brand", req.Brand, "count", daily.Count)
	writeJSON(w, http.StatusOK, refreshResponse{Updated: true, Daily: &daily})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
