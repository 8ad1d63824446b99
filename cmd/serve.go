package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/review"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review queue over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		router := newRouter(func() (*catalog.Arena, error) {
			return catalog.LoadCSV(cfg.Catalog.Path)
		}, cfg.Review.MaxRows)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the review API. The catalog is re-read per request so a
// tag or resolve run in another terminal shows up without a restart.
func newRouter(load func() (*catalog.Arena, error), defaultMaxRows int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/review", func(w http.ResponseWriter, req *http.Request) {
		arena, err := load()
		if err != nil {
			zap.L().Error("load catalog", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
			return
		}

		maxRows := defaultMaxRows
		if q := req.URL.Query().Get("max_rows"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max_rows must be a positive integer"})
				return
			}
			maxRows = n
		}

		entries := review.Build(arena, review.Config{MaxRows: maxRows})
		writeJSON(w, http.StatusOK, map[string]any{
			"count":   len(entries),
			"entries": entries,
		})
	})

	r.Get("/api/rows/{id}", func(w http.ResponseWriter, req *http.Request) {
		arena, err := load()
		if err != nil {
			zap.L().Error("load catalog", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
			return
		}

		row := arena.ByID(chi.URLParam(req, "id"))
		if row == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "row not found"})
			return
		}
		writeJSON(w, http.StatusOK, row)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
