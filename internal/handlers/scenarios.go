package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/mauv0809/portfolio-backtest/internal/backtest"
	"github.com/mauv0809/portfolio-backtest/internal/db"
	"github.com/mauv0809/portfolio-backtest/internal/models"
)

// ScenarioHandler handles saved-scenario endpoints. It is only registered
// when a database is configured.
type ScenarioHandler struct {
	repo *db.Repository
	svc  *backtest.Service
}

// NewScenarioHandler creates a new scenario handler.
func NewScenarioHandler(repo *db.Repository, svc *backtest.Service) *ScenarioHandler {
	return &ScenarioHandler{repo: repo, svc: svc}
}

type scenarioPayload struct {
	Name string `json:"name"`
	simulationPayload
}

// CreateScenario handles POST /api/scenarios
// The request is validated before it is stored so every saved scenario is runnable.
// @Summary Save a scenario
// @Description Validates and stores a named simulation request
// @Tags scenarios
// @Accept json
// @Produce json
// @Success 201 {object} models.Scenario
// @Failure 400 {object} ErrorResponse
// @Router /api/scenarios [post]
func (h *ScenarioHandler) CreateScenario(c echo.Context) error {
	var payload scenarioPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if payload.Name == "" {
		return errorJSON(c, &backtest.ValidationError{Field: "name", Reason: "is required"})
	}

	req, err := payload.toRequest()
	if err != nil {
		return errorJSON(c, err)
	}
	if err := backtest.Validate(req); err != nil {
		return errorJSON(c, err)
	}

	scenario := models.ScenarioFromRequest(payload.Name, req)
	if err := h.repo.CreateScenario(c.Request().Context(), scenario); err != nil {
		log.Printf("Error creating scenario: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save scenario"})
	}

	return c.JSON(http.StatusCreated, scenario)
}

// ListScenarios handles GET /api/scenarios
// @Summary List saved scenarios
// @Tags scenarios
// @Produce json
// @Success 200 {array} models.Scenario
// @Router /api/scenarios [get]
func (h *ScenarioHandler) ListScenarios(c echo.Context) error {
	scenarios, err := h.repo.ListScenarios(c.Request().Context())
	if err != nil {
		log.Printf("Error listing scenarios: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list scenarios"})
	}
	if scenarios == nil {
		scenarios = []models.Scenario{}
	}
	return c.JSON(http.StatusOK, scenarios)
}

// GetScenario handles GET /api/scenarios/:id
// @Summary Get one scenario
// @Tags scenarios
// @Produce json
// @Param id path string true "Scenario id"
// @Success 200 {object} models.Scenario
// @Failure 404 {object} ErrorResponse
// @Router /api/scenarios/{id} [get]
func (h *ScenarioHandler) GetScenario(c echo.Context) error {
	scenario, err := h.fetch(c)
	if err != nil {
		return errorResponseFor(c, err)
	}
	return c.JSON(http.StatusOK, scenario)
}

// RunScenario handles POST /api/scenarios/:id/run
// Replays a saved scenario through the simulation service.
// @Summary Run a saved scenario
// @Tags scenarios
// @Produce json
// @Param id path string true "Scenario id"
// @Success 200 {object} models.SimulationResult
// @Failure 404 {object} ErrorResponse
// @Router /api/scenarios/{id}/run [post]
func (h *ScenarioHandler) RunScenario(c echo.Context) error {
	scenario, err := h.fetch(c)
	if err != nil {
		return errorResponseFor(c, err)
	}

	result, err := h.svc.Run(c.Request().Context(), scenario.ToRequest())
	if err != nil {
		log.Printf("Scenario %s run failed: %v", scenario.ID, err)
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteScenario handles DELETE /api/scenarios/:id
// @Summary Delete a scenario
// @Tags scenarios
// @Param id path string true "Scenario id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/scenarios/{id} [delete]
func (h *ScenarioHandler) DeleteScenario(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid scenario id"})
	}

	deleted, err := h.repo.DeleteScenario(c.Request().Context(), id)
	if err != nil {
		log.Printf("Error deleting scenario: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete scenario"})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "scenario not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

var errBadScenarioID = errors.New("invalid scenario id")

func (h *ScenarioHandler) fetch(c echo.Context) (*models.Scenario, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, errBadScenarioID
	}
	return h.repo.GetScenario(c.Request().Context(), id)
}

func errorResponseFor(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errBadScenarioID):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid scenario id"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "scenario not found"})
	default:
		log.Printf("Error fetching scenario: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch scenario"})
	}
}
