package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/match-slot-booking/internal/booking"
	"github.com/iliyamo/match-slot-booking/internal/model"
	"github.com/iliyamo/match-slot-booking/internal/repository"
)

// CheckoutHandler drives the lock/confirm/cancel flow and the waitlist
// endpoints.  All booking mutations go through the service so capacity
// accounting stays in one place.
type CheckoutHandler struct {
	Svc   *booking.Service
	Store *repository.Store
}

func NewCheckoutHandler(svc *booking.Service, store *repository.Store) *CheckoutHandler {
	return &CheckoutHandler{Svc: svc, Store: store}
}

type acquireLockReq struct {
	SlotCount int `json:"slot_count"`
}

type confirmReq struct {
	LockID        string `json:"lock_id"`
	DiscountCents uint32 `json:"discount_cents"`
}

type joinWaitlistReq struct {
	SlotsRequired int `json:"slots_required"`
}

type bookingResp struct {
	ID               uint64  `json:"id"`
	MatchID          uint64  `json:"match_id"`
	Status           string  `json:"status"`
	PaymentStatus    string  `json:"payment_status"`
	TotalSlots       int     `json:"total_slots"`
	TotalAmountCents uint32  `json:"total_amount_cents"`
	PaymentRef       *string `json:"payment_ref,omitempty"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:               b.ID,
		MatchID:          b.MatchID,
		Status:           b.Status,
		PaymentStatus:    b.PaymentStatus,
		TotalSlots:       b.TotalSlots,
		TotalAmountCents: b.TotalAmountCents,
		PaymentRef:       b.PaymentRef,
	}
}

// AcquireLock places a soft hold on slots of a match and opens a
// PENDING booking for checkout.
func (h *CheckoutHandler) AcquireLock(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	matchID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid match id"})
	}
	var req acquireLockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	handle, err := h.Svc.AcquireLock(c.Request().Context(), matchID, uid, req.SlotCount)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, handle)
}

// ReleaseLock voluntarily frees a hold before it expires.  Releasing an
// unknown or already-expired lock succeeds with no effect.
func (h *CheckoutHandler) ReleaseLock(c echo.Context) error {
	matchID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid match id"})
	}
	lockID := c.Param("lock_id")
	if lockID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lock_id required"})
	}
	if err := h.Svc.ReleaseLock(c.Request().Context(), matchID, lockID); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Confirm finalizes a PENDING booking while its lock is still alive.
// Confirming an already-confirmed booking returns it unchanged.
func (h *CheckoutHandler) Confirm(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req confirmReq
	if err := c.Bind(&req); err != nil || req.LockID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lock_id required"})
	}

	b, err := h.Svc.ConfirmBooking(c.Request().Context(), bookingID, req.LockID, uid, req.DiscountCents)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Cancel cancels a booking.  Confirmed bookings release their slots and
// trigger waitlist promotion; pending bookings drop their lock.
func (h *CheckoutHandler) Cancel(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.CancelBooking(c.Request().Context(), bookingID, uid)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// JoinWaitlist enqueues the user for slots once the regular pool is
// exhausted.
func (h *CheckoutHandler) JoinWaitlist(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	matchID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid match id"})
	}
	var req joinWaitlistReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	entry, err := h.Svc.JoinWaitlist(c.Request().Context(), matchID, uid, req.SlotsRequired)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"entry_id":       entry.ID,
		"match_id":       entry.MatchID,
		"slots_required": entry.SlotsRequired,
		"status":         entry.Status,
		"created_at":     entry.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// LeaveWaitlist removes the user's active entry for a match.
func (h *CheckoutHandler) LeaveWaitlist(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	matchID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid match id"})
	}
	if err := h.Svc.LeaveWaitlist(c.Request().Context(), matchID, uid); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MyBookings lists the caller's bookings, newest first, with their slot
// numbers and match titles.
func (h *CheckoutHandler) MyBookings(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rows, err := h.Store.ListBookingsByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	type item struct {
		bookingResp
		MatchTitle  string `json:"match_title"`
		SlotNumbers []int  `json:"slot_numbers"`
		CreatedAt   string `json:"created_at"`
	}
	out := make([]item, 0, len(rows))
	for i := range rows {
		out = append(out, item{
			bookingResp: toBookingResp(&rows[i].Booking),
			MatchTitle:  rows[i].MatchTitle,
			SlotNumbers: rows[i].SlotNumbers,
			CreatedAt:   rows[i].CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}
