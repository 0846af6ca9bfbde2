package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/portfolio-backtest/internal/backtest"
	"github.com/mauv0809/portfolio-backtest/internal/marketdata"
)

// Handler serves the simulation endpoints.
type Handler struct {
	svc *backtest.Service
}

// New creates a new handler around the backtest service.
func New(svc *backtest.Service) *Handler {
	return &Handler{svc: svc}
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health returns application health status
// @Summary Health check
// @Description Returns the health status of the application
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// errorStatus maps the error taxonomy onto HTTP status codes: bad requests
// and configuration problems are the caller's fault, too little overlapping
// data is unprocessable, upstream market data failures are a bad gateway.
func errorStatus(err error) int {
	var (
		validationErr *backtest.ValidationError
		configErr     *backtest.ConfigurationError
		marketErr     *marketdata.Error
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &configErr):
		return http.StatusBadRequest
	case errors.Is(err, backtest.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.As(err, &marketErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(errorStatus(err), ErrorResponse{Error: err.Error()})
}
