package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/models"
)

// fakeStore is an in-memory stand-in for the Postgres store. The dbx
// executor arguments are ignored. GetEventForUpdate takes rowLock and
// RunInTx releases it when the transaction ends, so concurrent callers
// serialize on the locked read exactly like FOR UPDATE.
type fakeStore struct {
	mu       sync.Mutex
	events   map[string]*models.Event
	bookings map[string]*models.Booking
	tickets  map[string][]models.Ticket
	coupons  map[string]*models.Coupon

	rowLock sync.Mutex
	rowHeld bool

	incrementUsageErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   make(map[string]*models.Event),
		bookings: make(map[string]*models.Booking),
		tickets:  make(map[string][]models.Ticket),
		coupons:  make(map[string]*models.Coupon),
	}
}

func (f *fakeStore) couponKey(code, eventID string) string {
	return strings.ToUpper(code) + ":" + eventID
}

func (f *fakeStore) addEvent(event *models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *event
	f.events[event.ID] = &copied
}

func (f *fakeStore) addCoupon(coupon *models.Coupon) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *coupon
	copied.Code = strings.ToUpper(coupon.Code)
	f.coupons[f.couponKey(coupon.Code, coupon.EventID)] = &copied
}

func (f *fakeStore) eventSeats(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id].AvailableSeats
}

func (f *fakeStore) couponUsage(code, eventID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.coupons[f.couponKey(code, eventID)].CurrentUsages
}

func (f *fakeStore) bookingStatus(id string) models.BookingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id].Status
}

func (f *fakeStore) RunInTx(ctx context.Context, fn func(tx *dbx.Tx) error) error {
	err := fn(nil)

	// Only the rowLock holder can have set rowHeld, and only its own
	// transaction end clears it.
	f.mu.Lock()
	held := f.rowHeld
	f.rowHeld = false
	f.mu.Unlock()
	if held {
		f.rowLock.Unlock()
	}
	return err
}

func (f *fakeStore) DB() dbx.Builder {
	return nil
}

func (f *fakeStore) GetEvent(ctx context.Context, ex dbx.Builder, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, status.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (f *fakeStore) GetEventForUpdate(ctx context.Context, tx *dbx.Tx, id string) (*models.Event, error) {
	f.rowLock.Lock()
	event, err := f.GetEvent(ctx, nil, id)
	if err != nil {
		f.rowLock.Unlock()
		return nil, err
	}
	f.mu.Lock()
	f.rowHeld = true
	f.mu.Unlock()
	return event, nil
}

func (f *fakeStore) UpdateEventSeats(ctx context.Context, tx *dbx.Tx, id string, availableSeats int, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return status.ErrEventNotFound
	}
	event.AvailableSeats = availableSeats
	event.Version = version
	return nil
}

func (f *fakeStore) InsertBooking(ctx context.Context, ex dbx.Builder, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeStore) GetBooking(ctx context.Context, ex dbx.Builder, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok {
		return nil, status.ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (f *fakeStore) UpdateBookingStatus(ctx context.Context, ex dbx.Builder, id string, bookingStatus models.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok {
		return status.ErrBookingNotFound
	}
	booking.Status = bookingStatus
	return nil
}

func (f *fakeStore) SetBookingPaymentIntent(ctx context.Context, ex dbx.Builder, id, paymentIntentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok {
		return status.ErrBookingNotFound
	}
	booking.PaymentIntentID = paymentIntentID
	return nil
}

func (f *fakeStore) InsertTickets(ctx context.Context, ex dbx.Builder, tickets []models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tickets {
		f.tickets[t.BookingID] = append(f.tickets[t.BookingID], t)
	}
	return nil
}

func (f *fakeStore) ListTicketsByBooking(ctx context.Context, ex dbx.Builder, bookingID string) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Ticket(nil), f.tickets[bookingID]...), nil
}

func (f *fakeStore) ListBookingsByUser(ctx context.Context, ex dbx.Builder, userID string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListBookingsByEvent(ctx context.Context, ex dbx.Builder, eventID string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.EventID == eventID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertCoupon(ctx context.Context, ex dbx.Builder, coupon *models.Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *coupon
	copied.Code = strings.ToUpper(coupon.Code)
	f.coupons[f.couponKey(coupon.Code, coupon.EventID)] = &copied
	return nil
}

func (f *fakeStore) GetCoupon(ctx context.Context, ex dbx.Builder, code, eventID string) (*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	coupon, ok := f.coupons[f.couponKey(code, eventID)]
	if !ok {
		return nil, status.ErrCouponNotFound
	}
	copied := *coupon
	return &copied, nil
}

func (f *fakeStore) IncrementCouponUsage(ctx context.Context, ex dbx.Builder, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementUsageErr != nil {
		return f.incrementUsageErr
	}
	for _, c := range f.coupons {
		if c.ID == id {
			c.CurrentUsages++
			return nil
		}
	}
	return status.ErrCouponNotFound
}

func (f *fakeStore) DecrementCouponUsage(ctx context.Context, ex dbx.Builder, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.coupons {
		if c.ID == id {
			if c.CurrentUsages > 0 {
				c.CurrentUsages--
			}
			return nil
		}
	}
	return status.ErrCouponNotFound
}

func (f *fakeStore) ListCouponsByEvent(ctx context.Context, ex dbx.Builder, eventID string) ([]models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Coupon
	for _, c := range f.coupons {
		if c.EventID == eventID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	changes []models.SeatChange
}

func (b *fakeBroadcaster) PublishSeatChange(change models.SeatChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, change)
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []models.BookingConfirmation
}

func (n *fakeNotifier) EnqueueBookingConfirmation(ctx context.Context, confirmation models.BookingConfirmation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, confirmation)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmations)
}

// fakeGateway is a scriptable payment provider.
type fakeGateway struct {
	mu           sync.Mutex
	createErr    error
	confirmErr   error
	confirmOK    bool
	refundOK     bool
	createCalls  int
	confirmCalls int
	refundCalls  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{confirmOK: true, refundOK: true}
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*models.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	id := fmt.Sprintf("pi_test_%d", g.createCalls)
	return &models.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       amount,
		Currency:     currency,
		Status:       "pending",
		Metadata:     metadata,
	}, nil
}

func (g *fakeGateway) ConfirmPayment(ctx context.Context, paymentIntentID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirmCalls++
	if g.confirmErr != nil {
		return false, g.confirmErr
	}
	return g.confirmOK, nil
}

func (g *fakeGateway) Refund(ctx context.Context, paymentIntentID string, amount decimal.Decimal) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	return g.refundOK, nil
}
