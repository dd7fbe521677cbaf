package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/regatta-live/regata-server/internal/core"
	"github.com/regatta-live/regata-server/internal/store"
)

// RaceHandlers provides HTTP handlers for race records and lifecycle.
type RaceHandlers struct {
	hub   *core.Hub
	races store.RaceStore
	log   *zerolog.Logger
}

// NewRaceHandlers creates a new race handlers instance.
func NewRaceHandlers(hub *core.Hub, races store.RaceStore, logger *zerolog.Logger) *RaceHandlers {
	return &RaceHandlers{
		hub:   hub,
		races: races,
		log:   logger,
	}
}

// CreateRaceRequest represents the race creation request body.
type CreateRaceRequest struct {
	Name  string       `json:"name" binding:"required"`
	Buoys []store.Buoy `json:"buoys"`
}

// RaceResponse represents a race in API responses.
type RaceResponse struct {
	ID        string                        `json:"id"`
	Name      string                        `json:"name"`
	Buoys     []store.Buoy                  `json:"buoys,omitempty"`
	Positions map[string][]store.TrackPoint `json:"positions,omitempty"`
	StartTmst int64                         `json:"startTmst"`
	EndTmst   *int64                        `json:"endTmst"`
	Active    bool                          `json:"active"`
}

func raceResponse(race *store.Race) RaceResponse {
	return RaceResponse{
		ID:        race.ID,
		Name:      race.Name,
		Buoys:     race.Buoys,
		Positions: race.Positions,
		StartTmst: race.StartTmst,
		EndTmst:   race.EndTmst,
		Active:    race.Active,
	}
}

// Create handles race creation.
// POST /api/races
func (h *RaceHandlers) Create(c *gin.Context) {
	var req CreateRaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	race := &store.Race{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Buoys:     req.Buoys,
		StartTmst: time.Now().UnixMilli(),
	}
	if err := h.races.CreateRace(c.Request.Context(), race); err != nil {
		h.log.Error().Err(err).Str("name", req.Name).Msg("failed to create race")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("race_id", race.ID).Str("name", race.Name).Msg("race created")
	c.JSON(http.StatusCreated, raceResponse(race))
}

// List handles listing all races.
// GET /api/races
func (h *RaceHandlers) List(c *gin.Context) {
	races, err := h.races.ListRaces(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list races")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]RaceResponse, 0, len(races))
	for _, race := range races {
		resp = append(resp, raceResponse(race))
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles fetching one race with its full position history.
// GET /api/races/:id
func (h *RaceHandlers) Get(c *gin.Context) {
	race, err := h.races.GetRace(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "race not found"})
			return
		}
		h.log.Error().Err(err).Str("race_id", c.Param("id")).Msg("failed to get race")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, raceResponse(race))
}

// Activate marks a race as the single active one.
// POST /api/races/:id/activate
func (h *RaceHandlers) Activate(c *gin.Context) {
	raceID := c.Param("id")
	if err := h.hub.SetActiveRace(c.Request.Context(), raceID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "race not found"})
		case errors.Is(err, store.ErrRaceFinished):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "race already finished"})
		default:
			h.log.Error().Err(err).Str("race_id", raceID).Msg("failed to activate race")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("race_id", raceID).Msg("race activated")
	c.Status(http.StatusNoContent)
}
