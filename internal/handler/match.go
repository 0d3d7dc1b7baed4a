package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/match-slot-booking/internal/booking"
	"github.com/iliyamo/match-slot-booking/internal/model"
	"github.com/iliyamo/match-slot-booking/internal/repository"
)

// MatchHandler serves match management and the public availability
// endpoint.  Match writes go straight to the store; only capacity
// mutations need the booking service.
type MatchHandler struct {
	Store *repository.Store
	Svc   *booking.Service
}

func NewMatchHandler(store *repository.Store, svc *booking.Service) *MatchHandler {
	return &MatchHandler{Store: store, Svc: svc}
}

type createMatchReq struct {
	Title          string `json:"title"`
	StartsAt       string `json:"starts_at"` // RFC3339
	SlotPriceCents uint32 `json:"slot_price_cents"`
	PlayerCapacity int    `json:"player_capacity"`
	BufferCapacity int    `json:"buffer_capacity"`
}

type matchResp struct {
	ID             uint64 `json:"id"`
	Title          string `json:"title"`
	StartsAt       string `json:"starts_at"`
	SlotPriceCents uint32 `json:"slot_price_cents"`
	PlayerCapacity int    `json:"player_capacity"`
	BufferCapacity int    `json:"buffer_capacity"`
	Status         string `json:"status"`
}

func toMatchResp(m *model.Match) matchResp {
	return matchResp{
		ID:             m.ID,
		Title:          m.Title,
		StartsAt:       m.StartsAt.UTC().Format(time.RFC3339),
		SlotPriceCents: m.SlotPriceCents,
		PlayerCapacity: m.PlayerCapacity,
		BufferCapacity: m.BufferCapacity,
		Status:         m.Status,
	}
}

// Create registers a new match (organizer only).
func (h *MatchHandler) Create(c echo.Context) error {
	var req createMatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.PlayerCapacity <= 0 || req.BufferCapacity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and positive player_capacity required"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}

	m := &model.Match{
		Title:          req.Title,
		StartsAt:       startsAt.UTC(),
		SlotPriceCents: req.SlotPriceCents,
		PlayerCapacity: req.PlayerCapacity,
		BufferCapacity: req.BufferCapacity,
		LockedSlots:    map[string]model.SlotLock{},
		Status:         model.MatchScheduled,
	}
	if err := h.Store.CreateMatch(c.Request().Context(), m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create match failed"})
	}
	return c.JSON(http.StatusCreated, toMatchResp(m))
}

// List returns upcoming scheduled matches.
func (h *MatchHandler) List(c echo.Context) error {
	matches, err := h.Store.ListMatches(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list matches failed"})
	}
	out := make([]matchResp, 0, len(matches))
	for i := range matches {
		out = append(out, toMatchResp(&matches[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"matches": out})
}

// Availability reports the regular and waitlist counters for a match.
// Expired locks count as free even before the sweeper removes them.
func (h *MatchHandler) Availability(c echo.Context) error {
	matchID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid match id"})
	}
	av, err := h.Svc.GetAvailability(c.Request().Context(), matchID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, av)
}
