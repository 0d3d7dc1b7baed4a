package booking

// memStore is an in-memory Store used by the package tests.  A single
// mutex held for the whole transaction stands in for the match row
// lock, and a pre-transaction snapshot gives the same all-or-nothing
// rollback the database provides.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

type memTxKey struct{}

type memState struct {
	matches  map[uint64]*model.Match
	bookings map[uint64]*model.Booking
	slots    []model.BookingSlot
	waitlist []model.WaitlistEntry
}

type memStore struct {
	mu sync.Mutex
	st memState

	nextBookingID uint64
	nextSlotID    uint64
	nextEntryID   uint64

	// txDelay stalls each transaction while holding the lock, for
	// exercising the transaction deadline.
	txDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{st: memState{
		matches:  make(map[uint64]*model.Match),
		bookings: make(map[uint64]*model.Booking),
	}}
}

// addMatch seeds a match outside any transaction.
func (s *memStore) addMatch(m *model.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.LockedSlots == nil {
		m.LockedSlots = make(map[string]model.SlotLock)
	}
	if m.Version == 0 {
		m.Version = 1
	}
	s.st.matches[m.ID] = copyMatch(m)
}

func copyMatch(m *model.Match) *model.Match {
	c := *m
	c.LockedSlots = make(map[string]model.SlotLock, len(m.LockedSlots))
	for id, lock := range m.LockedSlots {
		nums := make([]int, len(lock.SlotNumbers))
		copy(nums, lock.SlotNumbers)
		lock.SlotNumbers = nums
		c.LockedSlots[id] = lock
	}
	return &c
}

func (st memState) clone() memState {
	c := memState{
		matches:  make(map[uint64]*model.Match, len(st.matches)),
		bookings: make(map[uint64]*model.Booking, len(st.bookings)),
		slots:    append([]model.BookingSlot(nil), st.slots...),
		waitlist: append([]model.WaitlistEntry(nil), st.waitlist...),
	}
	for id, m := range st.matches {
		c.matches[id] = copyMatch(m)
	}
	for id, b := range st.bookings {
		cb := *b
		c.bookings[id] = &cb
	}
	return c
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.txDelay > 0 {
		select {
		case <-time.After(s.txDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// lock takes the store mutex for callers outside a transaction.
func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) GetMatch(ctx context.Context, matchID uint64) (*model.Match, error) {
	defer s.lock(ctx)()
	m, ok := s.st.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (s *memStore) GetMatchForUpdate(ctx context.Context, matchID uint64) (*model.Match, error) {
	return s.GetMatch(ctx, matchID)
}

func (s *memStore) SaveMatch(ctx context.Context, m *model.Match) error {
	defer s.lock(ctx)()
	stored, ok := s.st.matches[m.ID]
	if !ok {
		return ErrMatchNotFound
	}
	if stored.Version != m.Version {
		return ErrConcurrentModification
	}
	c := copyMatch(m)
	c.Version++
	s.st.matches[m.ID] = c
	m.Version++
	return nil
}

func (s *memStore) MatchIDsWithLocks(ctx context.Context) ([]uint64, error) {
	defer s.lock(ctx)()
	var ids []uint64
	for id, m := range s.st.matches {
		if len(m.LockedSlots) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) CountActiveSlots(ctx context.Context, matchID uint64) (int, error) {
	defer s.lock(ctx)()
	n := 0
	for _, sl := range s.st.slots {
		if sl.MatchID == matchID && sl.Status == model.SlotActive {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ActiveSlotNumbers(ctx context.Context, matchID uint64) ([]int, error) {
	defer s.lock(ctx)()
	var nums []int
	for _, sl := range s.st.slots {
		if sl.MatchID == matchID && sl.Status == model.SlotActive {
			nums = append(nums, sl.SlotNumber)
		}
	}
	sort.Ints(nums)
	return nums, nil
}

func (s *memStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	defer s.lock(ctx)()
	s.nextBookingID++
	b.ID = s.nextBookingID
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	cb := *b
	s.st.bookings[b.ID] = &cb
	return nil
}

func (s *memStore) GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	defer s.lock(ctx)()
	b, ok := s.st.bookings[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cb := *b
	return &cb, nil
}

func (s *memStore) UpdateBooking(ctx context.Context, b *model.Booking) error {
	defer s.lock(ctx)()
	if _, ok := s.st.bookings[b.ID]; !ok {
		return ErrBookingNotFound
	}
	cb := *b
	cb.UpdatedAt = time.Now().UTC()
	s.st.bookings[b.ID] = &cb
	return nil
}

func (s *memStore) CreateBookingSlots(ctx context.Context, bookingID, matchID uint64, slotNumbers []int) error {
	defer s.lock(ctx)()
	for _, num := range slotNumbers {
		s.nextSlotID++
		s.st.slots = append(s.st.slots, model.BookingSlot{
			ID:         s.nextSlotID,
			BookingID:  bookingID,
			MatchID:    matchID,
			SlotNumber: num,
			Status:     model.SlotActive,
			CreatedAt:  time.Now().UTC(),
		})
	}
	return nil
}

func (s *memStore) ActiveSlotsByBooking(ctx context.Context, bookingID uint64) ([]model.BookingSlot, error) {
	defer s.lock(ctx)()
	var out []model.BookingSlot
	for _, sl := range s.st.slots {
		if sl.BookingID == bookingID && sl.Status == model.SlotActive {
			out = append(out, sl)
		}
	}
	return out, nil
}

func (s *memStore) ReleaseBookingSlots(ctx context.Context, bookingID uint64) ([]int, error) {
	defer s.lock(ctx)()
	var nums []int
	for i := range s.st.slots {
		if s.st.slots[i].BookingID == bookingID && s.st.slots[i].Status == model.SlotActive {
			s.st.slots[i].Status = model.SlotReleased
			nums = append(nums, s.st.slots[i].SlotNumber)
		}
	}
	sort.Ints(nums)
	return nums, nil
}

func (s *memStore) CreateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	defer s.lock(ctx)()
	s.nextEntryID++
	e.ID = s.nextEntryID
	s.st.waitlist = append(s.st.waitlist, *e)
	return nil
}

func (s *memStore) ActiveWaitlist(ctx context.Context, matchID uint64) ([]model.WaitlistEntry, error) {
	defer s.lock(ctx)()
	var out []model.WaitlistEntry
	for _, e := range s.st.waitlist {
		if e.MatchID == matchID && e.Status == model.WaitlistActive {
			out = append(out, e)
		}
	}
	// Slice order is insertion order, which matches created_at ASC.
	return out, nil
}

func (s *memStore) WaitlistReserved(ctx context.Context, matchID uint64) (int, error) {
	defer s.lock(ctx)()
	sum := 0
	for _, e := range s.st.waitlist {
		if e.MatchID == matchID && e.Status == model.WaitlistActive {
			sum += e.SlotsRequired
		}
	}
	return sum, nil
}

func (s *memStore) ActiveWaitlistEntryByUser(ctx context.Context, matchID, userID uint64) (*model.WaitlistEntry, error) {
	defer s.lock(ctx)()
	for _, e := range s.st.waitlist {
		if e.MatchID == matchID && e.UserID == userID && e.Status == model.WaitlistActive {
			ce := e
			return &ce, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateWaitlistStatus(ctx context.Context, entryID uint64, status string) error {
	defer s.lock(ctx)()
	for i := range s.st.waitlist {
		if s.st.waitlist[i].ID == entryID {
			s.st.waitlist[i].Status = status
			return nil
		}
	}
	return ErrEntryNotFound
}

// entryStatus reads an entry's current status for assertions.
func (s *memStore) entryStatus(entryID uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.st.waitlist {
		if e.ID == entryID {
			return e.Status
		}
	}
	return ""
}

// bookingStatus reads a booking's current status for assertions.
func (s *memStore) bookingStatus(bookingID uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.st.bookings[bookingID]; ok {
		return b.Status
	}
	return ""
}

var _ Store = (*memStore)(nil)
