/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Loads the built-in YAML scenarios into the store so the planner UI and
	the grid have something realistic to show. Each scenario is a small
	roster built around one edge case of the rule set.

HOW LOADING WORKS:
 1. Reset the store (clear all data)
 2. Apply the scenario (base code space + its own rows)
 3. Reload the term mapping from the new special codes
 4. Drop the validation cache and preload the scenario month

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/s1-rest-across-month

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - scenario/: file format and the built-in data
  - handlers.go: Cache coherence on writes
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/scenario"
)

// ListScenarios returns the built-in scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := scenario.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read scenarios", err)
		return
	}
	out := make([]ScenarioDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toScenarioDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, err := scenario.Builtin(current)
	if err != nil {
		writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
		return
	}
	writeJSON(w, http.StatusOK, toScenarioDTO(s))
}

// LoadScenario replaces the store contents with a built-in scenario.
// POST /api/scenarios/{id}
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := scenario.Builtin(id)
	if err != nil {
		writeDomainError(w, "Unknown scenario", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.currentScenario = ""
	if err := h.load(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = s.ID

	h.Log.WithFields(logrus.Fields{"scenario": s.ID, "month": s.Month}).Info("Scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": s.ID})
}

// ResetDatabase clears every table.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.Terms.Invalidate()
	h.Cache.InvalidateAll()
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// load runs with h.mu held.
func (h *Handler) load(ctx context.Context, s *scenario.Scenario) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := s.Apply(ctx, h.Store); err != nil {
		return err
	}
	if err := h.Terms.Reload(ctx, h.Store); err != nil {
		return err
	}
	h.Cache.InvalidateAll()

	period, err := s.Period()
	if err != nil {
		return err
	}
	return h.Cache.PreloadMonth(ctx, period.Start.Year(), period.Start.Month(), nil)
}

func toScenarioDTO(s *scenario.Scenario) ScenarioDTO {
	return ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description, Month: s.Month}
}

