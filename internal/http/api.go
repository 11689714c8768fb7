// Package httpapi serves the hub's admin API: service discovery,
// instance lifecycle, manual refresh and entity readouts.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/micro-ha/korea-connect/internal/hub"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
	"github.com/micro-ha/korea-connect/internal/registry"
	"github.com/micro-ha/korea-connect/internal/storage"
)

type API struct {
	hub      *hub.Hub
	store    *storage.Repository
	registry *registry.Registry
	logger   *slog.Logger
}

func New(h *hub.Hub, store *storage.Repository, reg *registry.Registry, logger *slog.Logger) *API {
	return &API{hub: h, store: store, registry: reg, logger: logger}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverJSON)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(stripIngressPrefix)
	r.Use(requestLogger(a.logger))

	r.Get("/healthz", a.health)
	r.Route("/api", func(api chi.Router) {
		api.Get("/services", a.listServices)
		api.Get("/instances", a.listInstances)
		api.Post("/instances", a.createInstance)
		api.Delete("/instances/{id}", a.deleteInstance)
		api.Post("/instances/{id}/refresh", a.refreshInstance)
		api.Get("/instances/{id}/entities", a.listEntities)
	})
	return r
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "instances": len(a.hub.List())})
}

type serviceView struct {
	ID              string                     `json:"id"`
	Name            string                     `json:"name"`
	IntervalSec     int                        `json:"default_interval_sec"`
	CredentialForms []registry.CredentialField `json:"credential_fields"`
	SensorCount     int                        `json:"sensor_count"`
}

func (a *API) listServices(w http.ResponseWriter, _ *http.Request) {
	descriptors := a.registry.All()
	items := make([]serviceView, 0, len(descriptors))
	for _, d := range descriptors {
		items = append(items, serviceView{
			ID:              d.ID,
			Name:            d.Name,
			IntervalSec:     int(d.DefaultInterval.Seconds()),
			CredentialForms: d.CredentialFields,
			SensorCount:     len(d.Sensors),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type instanceView struct {
	ID          string              `json:"id"`
	Service     string              `json:"service"`
	Name        string              `json:"name"`
	IntervalSec int                 `json:"interval_sec"`
	State       integration.State   `json:"state"`
	Outcome     integration.Outcome `json:"last_outcome"`
	Available   bool                `json:"available"`
}

func (a *API) listInstances(w http.ResponseWriter, _ *http.Request) {
	runtimes := a.hub.List()
	items := make([]instanceView, 0, len(runtimes))
	for _, rt := range runtimes {
		items = append(items, instanceView{
			ID:          rt.Instance.ID,
			Service:     rt.Instance.Service,
			Name:        rt.Instance.Name,
			IntervalSec: rt.Instance.IntervalSec,
			State:       rt.Coordinator.State(),
			Outcome:     rt.Coordinator.LastOutcome(),
			Available:   rt.Projection.Available(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createInstanceInput struct {
	Service     string            `json:"service"`
	Name        string            `json:"name"`
	Credentials model.Credentials `json:"credentials"`
	IntervalSec int               `json:"interval_sec"`
}

func (a *API) createInstance(w http.ResponseWriter, r *http.Request) {
	var payload createInstanceInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}

	desc, ok := a.registry.Lookup(payload.Service)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_service", "Unknown service id "+payload.Service)
		return
	}
	if err := desc.ValidateCredentials(payload.Credentials); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_credentials", err.Error())
		return
	}

	instance := model.Instance{
		ID:          uuid.NewString(),
		Service:     payload.Service,
		Name:        strings.TrimSpace(payload.Name),
		Credentials: payload.Credentials,
		IntervalSec: payload.IntervalSec,
	}
	if instance.Name == "" {
		instance.Name = desc.Name
	}
	if instance.IntervalSec <= 0 {
		instance.IntervalSec = int(desc.DefaultInterval.Seconds())
	}

	// The setup probe runs a synchronous login+fetch; configuration
	// problems surface here instead of on the first scheduled cycle.
	if err := a.hub.Setup(r.Context(), instance); err != nil {
		writeError(w, http.StatusUnprocessableEntity, string(integration.KindOf(err)), err.Error())
		return
	}

	if err := a.store.Save(r.Context(), instance); err != nil {
		a.hub.Teardown(instance.ID)
		writeError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": instance.ID})
}

func (a *API) deleteInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Instance not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	a.hub.Teardown(id)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) refreshInstance(w http.ResponseWriter, r *http.Request) {
	rt, ok := a.hub.Instance(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Instance not found")
		return
	}
	rt.TriggerRefresh()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (a *API) listEntities(w http.ResponseWriter, r *http.Request) {
	rt, ok := a.hub.Instance(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Instance not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": rt.Projection.Available(),
		"state":     rt.Coordinator.State(),
		"values":    rt.Projection.Values(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// RunServer starts and gracefully stops the HTTP server with context
// cancellation.
func RunServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "err", err)
			return err
		}
		return nil
	}
}
