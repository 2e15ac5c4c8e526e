package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
)

// memDB is an in-memory stand-in for Postgres. Every store method takes the same mutex,
// which models the row locks and conditional updates the repositories rely on.
type memDB struct {
	mu  sync.Mutex
	now func() time.Time

	hotelOwners map[uuid.UUID]uuid.UUID
	rooms       map[uuid.UUID]models.HotelRoom
	tours       map[uuid.UUID]models.Tour
	guides      map[uuid.UUID]bool
	schedules   map[uuid.UUID]*models.Schedule
	bookings    map[uuid.UUID]*models.Booking
	bills       map[uuid.UUID]*models.Bill
	vouchers    map[uuid.UUID]*models.Voucher
	userVoucher map[uuid.UUID]uuid.UUID // bill -> voucher
	codes       map[uuid.UUID]*models.QRPayment
	refunds     map[uuid.UUID]*models.Refund
	audits      []models.PaymentAudit
}

func newMemDB(now func() time.Time) *memDB {
	return &memDB{
		now:         now,
		hotelOwners: map[uuid.UUID]uuid.UUID{},
		rooms:       map[uuid.UUID]models.HotelRoom{},
		tours:       map[uuid.UUID]models.Tour{},
		guides:      map[uuid.UUID]bool{},
		schedules:   map[uuid.UUID]*models.Schedule{},
		bookings:    map[uuid.UUID]*models.Booking{},
		bills:       map[uuid.UUID]*models.Bill{},
		vouchers:    map[uuid.UUID]*models.Voucher{},
		userVoucher: map[uuid.UUID]uuid.UUID{},
		codes:       map[uuid.UUID]*models.QRPayment{},
		refunds:     map[uuid.UUID]*models.Refund{},
	}
}

// ---- seeding helpers ----

func (m *memDB) addHotel(ownerID uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.hotelOwners[id] = ownerID
	return id
}

func (m *memDB) addRoom(hotelID uuid.UUID, name string, price float64) uuid.UUID {
	id := uuid.New()
	m.rooms[id] = models.HotelRoom{ID: id, HotelID: hotelID, Name: name, Price: price}
	return id
}

func (m *memDB) addTour(name string, price float64, maxGuests int) uuid.UUID {
	id := uuid.New()
	m.tours[id] = models.Tour{ID: id, Name: name, Price: price, MaxGuests: maxGuests}
	return id
}

func (m *memDB) addGuide() uuid.UUID {
	id := uuid.New()
	m.guides[id] = true
	return id
}

func (m *memDB) addSchedule(tourID, guideID uuid.UUID, start, end time.Time, capacity, current int) uuid.UUID {
	id := uuid.New()
	m.schedules[id] = &models.Schedule{
		ID: id, TourID: tourID, GuideID: guideID, StartTime: start, EndTime: end,
		Capacity: capacity, CurrentBookings: current, Status: models.ScheduleStatusActive,
	}
	return id
}

func (m *memDB) addVoucher(percent float64, start, end time.Time) uuid.UUID {
	id := uuid.New()
	m.vouchers[id] = &models.Voucher{ID: id, Code: "SAVE", Percent: percent, StartDate: start, EndDate: end}
	return id
}

func (m *memDB) bill(id uuid.UUID) models.Bill {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bills[id]
}

func (m *memDB) booking(id uuid.UUID) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bookings[id]
}

func (m *memDB) schedule(id uuid.UUID) models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.schedules[id]
}

func (m *memDB) auditEvents() []models.PaymentEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]models.PaymentEventType, len(m.audits))
	for i, a := range m.audits {
		events[i] = a.EventType
	}
	return events
}

func (m *memDB) holdsRoom(roomID uuid.UUID, in, out time.Time) bool {
	for _, b := range m.bookings {
		if b.Kind != models.BookingKindHotel || !b.Status.HoldsInventory() {
			continue
		}
		if !models.Overlaps(b.CheckIn, b.CheckOut, in, out) {
			continue
		}
		for _, id := range b.RoomIDs {
			if id == roomID {
				return true
			}
		}
	}
	return false
}

func (m *memDB) supersedeCodes(billID uuid.UUID) {
	for _, qr := range m.codes {
		if qr.BillID == billID && qr.Status == models.QRPaymentPending {
			qr.Status = models.QRPaymentSuperseded
		}
	}
}

func (m *memDB) billForBooking(bookingID uuid.UUID) *models.Bill {
	for _, b := range m.bills {
		if b.BookingID == bookingID {
			return b
		}
	}
	return nil
}

// ---- ScheduleStore ----

type fakeSchedules struct{ *memDB }

func (f fakeSchedules) GetByID(_ context.Context, id uuid.UUID) (*models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f fakeSchedules) GetTour(_ context.Context, tourID uuid.UUID) (*models.Tour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tours[tourID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f fakeSchedules) guideOverlaps(guideID uuid.UUID, start, end time.Time, exclude uuid.UUID) bool {
	for _, s := range f.schedules {
		if s.ID == exclude || s.GuideID != guideID || s.Status == models.ScheduleStatusRemoved {
			continue
		}
		if models.Overlaps(s.StartTime, s.EndTime, start, end) {
			return true
		}
	}
	return false
}

func (f fakeSchedules) CreateWithOverlapCheck(_ context.Context, s *models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.guides[s.GuideID] {
		return models.NewNotFoundError("tour guide not found")
	}
	if f.guideOverlaps(s.GuideID, s.StartTime, s.EndTime, uuid.Nil) {
		return models.NewConflictError("tour guide already has a schedule in this time range")
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Status = models.ScheduleStatusActive
	cp := *s
	f.schedules[s.ID] = &cp
	return nil
}

func (f fakeSchedules) UpdateWithOverlapCheck(_ context.Context, s *models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.guideOverlaps(s.GuideID, s.StartTime, s.EndTime, s.ID) {
		return models.NewConflictError("tour guide already has a schedule in this time range")
	}
	stored, ok := f.schedules[s.ID]
	if !ok || stored.Status != models.ScheduleStatusActive || stored.CurrentBookings > s.Capacity {
		return models.NewStateError("schedule changed concurrently, reload and try again")
	}
	stored.StartTime, stored.EndTime, stored.Capacity = s.StartTime, s.EndTime, s.Capacity
	s.CurrentBookings = stored.CurrentBookings
	return nil
}

func (f fakeSchedules) Remove(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok || s.Status != models.ScheduleStatusActive || s.CurrentBookings != 0 {
		return false, nil
	}
	s.Status = models.ScheduleStatusRemoved
	return true, nil
}

func (f fakeSchedules) ListBookable(_ context.Context, tourID uuid.UUID, from, to time.Time, guests int) ([]models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Schedule{}
	for _, s := range f.schedules {
		if s.TourID != tourID || s.Status != models.ScheduleStatusActive {
			continue
		}
		if s.StartTime.Before(from) || !s.StartTime.Before(to) || s.Remaining() < guests {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f fakeSchedules) ListByGuide(_ context.Context, guideID uuid.UUID, from, to time.Time) ([]models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Schedule{}
	for _, s := range f.schedules {
		if s.GuideID == guideID && s.Status != models.ScheduleStatusRemoved && models.Overlaps(s.StartTime, s.EndTime, from, to) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f fakeSchedules) MarkCompleted(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.schedules {
		if s.Status == models.ScheduleStatusActive && !s.EndTime.After(now) {
			s.Status = models.ScheduleStatusCompleted
			n++
		}
	}
	return n, nil
}

// ---- RoomStore ----

type fakeRooms struct{ *memDB }

func (f fakeRooms) GetRoomsByIDs(_ context.Context, ids []uuid.UUID) ([]models.HotelRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.HotelRoom{}
	for _, id := range ids {
		if r, ok := f.rooms[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f fakeRooms) GetHotelOwnerID(_ context.Context, hotelID uuid.UUID) (*uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.hotelOwners[hotelID]
	if !ok {
		return nil, nil
	}
	return &owner, nil
}

func (f fakeRooms) IsRoomAvailable(_ context.Context, roomID uuid.UUID, in, out time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.holdsRoom(roomID, in, out), nil
}

func (f fakeRooms) UnavailableRooms(_ context.Context, ids []uuid.UUID, in, out time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var taken []uuid.UUID
	for _, id := range ids {
		if f.holdsRoom(id, in, out) {
			taken = append(taken, id)
		}
	}
	return taken, nil
}

// ---- BookingStore ----

type fakeBookings struct{ *memDB }

func (f fakeBookings) insert(booking *models.Booking, bill *models.Bill) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	booking.CreatedAt = f.now()
	cp := *booking
	cp.RoomIDs = append([]uuid.UUID(nil), booking.RoomIDs...)
	f.bookings[booking.ID] = &cp

	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	if bill.Status == "" {
		bill.Status = models.BillStatusPending
	}
	bill.BookingID = booking.ID
	for i := range bill.Details {
		bill.Details[i].ID = uuid.New()
		bill.Details[i].BillID = bill.ID
	}
	billCopy := *bill
	billCopy.Details = append([]models.BillDetail(nil), bill.Details...)
	f.bills[bill.ID] = &billCopy
}

func (f fakeBookings) CreateHotelBooking(_ context.Context, booking *models.Booking, bill *models.Bill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range booking.RoomIDs {
		if _, ok := f.rooms[id]; !ok {
			return models.NewNotFoundError("one or more rooms do not exist")
		}
		if f.holdsRoom(id, booking.CheckIn, booking.CheckOut) {
			return models.NewConflictError("rooms not available for the selected dates")
		}
	}
	f.insert(booking, bill)
	return nil
}

func (f fakeBookings) CreateTourBooking(_ context.Context, booking *models.Booking, bill *models.Bill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[*booking.ScheduleID]
	if !ok || s.Status != models.ScheduleStatusActive || !s.StartTime.After(f.now()) ||
		s.CurrentBookings+booking.Guests > s.Capacity {
		return models.NewConflictError("not enough places left on this schedule")
	}
	s.CurrentBookings += booking.Guests
	f.insert(booking, bill)
	return nil
}

func (f fakeBookings) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f fakeBookings) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f fakeBookings) MarkCheckedIn(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.BookingStatusConfirmed || b.CheckIn.After(at) {
		return false, nil
	}
	b.Status = models.BookingStatusCheckedIn
	b.CheckedInAt = &at
	return true, nil
}

func (f fakeBookings) MarkCheckedOut(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.BookingStatusCheckedIn {
		return false, nil
	}
	b.Status = models.BookingStatusCheckedOut
	b.CheckedOutAt = &at
	return true, nil
}

func (f fakeBookings) Cancel(_ context.Context, booking *models.Booking, reason *string, at time.Time) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[booking.ID]
	if !ok || !b.Status.CustomerCancellable() {
		return false, false, nil
	}
	b.Status = models.BookingStatusCancelled
	b.CancellationReason = reason
	b.CancelledAt = &at

	if b.Kind == models.BookingKindTour && b.ScheduleID != nil {
		if s, ok := f.schedules[*b.ScheduleID]; ok {
			s.CurrentBookings = max(s.CurrentBookings-b.Guests, 0)
		}
	}
	billCancelled := false
	if bill := f.billForBooking(b.ID); bill != nil {
		if bill.Status == models.BillStatusPending {
			bill.Status = models.BillStatusCancelled
			billCancelled = true
		}
		f.supersedeCodes(bill.ID)
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancellationReason = reason
	booking.CancelledAt = &at
	return true, billCancelled, nil
}

// ---- BillStore ----

type fakeBills struct{ *memDB }

func (f fakeBills) GetByID(_ context.Context, id uuid.UUID) (*models.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	cp.Details = nil
	return &cp, nil
}

func (f fakeBills) GetByBookingID(_ context.Context, bookingID uuid.UUID) (*models.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.billForBooking(bookingID)
	if b == nil {
		return nil, nil
	}
	cp := *b
	cp.Details = nil
	return &cp, nil
}

func (f fakeBills) GetDetails(_ context.Context, billID uuid.UUID) ([]models.BillDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[billID]
	if !ok {
		return []models.BillDetail{}, nil
	}
	return append([]models.BillDetail(nil), b.Details...), nil
}

func (f fakeBills) ApplyVoucher(_ context.Context, billID, voucherID, _ uuid.UUID, newTotal float64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[billID]
	if !ok || b.VoucherID != nil || b.Status != models.BillStatusPending {
		return false, nil
	}
	b.VoucherID = &voucherID
	b.TotalPrice = newTotal
	b.UpdatedAt = at
	f.userVoucher[billID] = voucherID
	f.supersedeCodes(billID)
	return true, nil
}

func (f fakeBills) RemoveVoucher(_ context.Context, billID uuid.UUID, at time.Time) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[billID]
	if !ok || b.VoucherID == nil || b.Status != models.BillStatusPending {
		return 0, false, nil
	}
	b.VoucherID = nil
	b.TotalPrice = b.OriginalPrice
	b.UpdatedAt = at
	delete(f.userVoucher, billID)
	f.supersedeCodes(billID)
	return b.TotalPrice, true, nil
}

// ---- VoucherStore ----

type fakeVouchers struct{ *memDB }

func (f fakeVouchers) GetByID(_ context.Context, id uuid.UUID) (*models.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vouchers[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

// ---- QRPaymentStore ----

type fakeCodes struct{ *memDB }

func (f fakeCodes) Create(_ context.Context, qr *models.QRPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supersedeCodes(qr.BillID)
	if qr.ID == uuid.Nil {
		qr.ID = uuid.New()
	}
	qr.Status = models.QRPaymentPending
	qr.CreatedAt = f.now()
	cp := *qr
	f.codes[qr.ID] = &cp
	return nil
}

func (f fakeCodes) GetByCodeHash(_ context.Context, codeHash string) (*models.QRPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, qr := range f.codes {
		if qr.CodeHash == codeHash {
			cp := *qr
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeCodes) GetLatestByBill(_ context.Context, billID uuid.UUID) (*models.QRPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// at most one code per bill is pending and it is always the newest
	var latest *models.QRPayment
	for _, qr := range f.codes {
		if qr.BillID != billID {
			continue
		}
		if qr.Status == models.QRPaymentPending {
			latest = qr
			break
		}
		if latest == nil || qr.CreatedAt.After(latest.CreatedAt) {
			latest = qr
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f fakeCodes) ConfirmPayment(_ context.Context, qr *models.QRPayment, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// timestamptz keeps microseconds
	at = at.Truncate(time.Microsecond)
	stored, ok := f.codes[qr.ID]
	if !ok || stored.Status != models.QRPaymentPending || !stored.ExpiresAt.After(at) {
		return false, nil
	}
	bill, ok := f.bills[stored.BillID]
	if !ok || bill.Status != models.BillStatusPending || bill.TotalPrice != models.RoundMoney(stored.Amount) {
		return false, models.NewStateError("bill is no longer payable with this code")
	}
	stored.Status = models.QRPaymentPaid
	stored.PaidAt = &at
	bill.Status = models.BillStatusPaid
	bill.PaidAt = &at
	if b, ok := f.bookings[bill.BookingID]; ok && b.Status == models.BookingStatusPending {
		b.Status = models.BookingStatusConfirmed
	}
	return true, nil
}

func (f fakeCodes) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, qr := range f.codes {
		if qr.Status == models.QRPaymentPending && qr.IsExpiredAt(now) {
			qr.Status = models.QRPaymentExpired
			n++
		}
	}
	return n, nil
}

// ---- RefundStore ----

type fakeRefunds struct{ *memDB }

func (f fakeRefunds) Create(_ context.Context, refund *models.Refund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.refunds {
		if r.BillID == refund.BillID && r.Status == models.RefundStatusPending {
			return models.NewConflictError("a refund request is already pending for this bill")
		}
	}
	refund.ID = uuid.New()
	refund.Status = models.RefundStatusPending
	refund.Version = 1
	refund.CreatedAt = f.now()
	cp := *refund
	f.refunds[refund.ID] = &cp
	return nil
}

func (f fakeRefunds) GetPendingByBill(_ context.Context, billID uuid.UUID) (*models.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.refunds {
		if r.BillID == billID && r.Status == models.RefundStatusPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeRefunds) ListPending(_ context.Context, limit int) ([]models.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Refund{}
	for _, r := range f.refunds {
		if r.Status == models.RefundStatusPending {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeRefunds) resolve(refund *models.Refund, status models.RefundStatus, approverID uuid.UUID, note *string, at time.Time) bool {
	stored, ok := f.refunds[refund.ID]
	if !ok || stored.Status != models.RefundStatusPending || stored.Version != refund.Version {
		return false
	}
	stored.Status = status
	stored.Version++
	stored.ResolvedBy = &approverID
	stored.ResolutionNote = note
	stored.ResolvedAt = &at
	return true
}

func (f fakeRefunds) Approve(_ context.Context, refund *models.Refund, approverID uuid.UUID, refundPrice float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bill, ok := f.bills[refund.BillID]
	if !ok || bill.Status != models.BillStatusPaid {
		return models.NewStateError("bill is no longer refundable")
	}
	if !f.resolve(refund, models.RefundStatusApproved, approverID, nil, at) {
		return models.NewConflictError("refund request was already resolved")
	}
	bill.Status = models.BillStatusRefunded
	bill.RefundPrice = &refundPrice
	return nil
}

func (f fakeRefunds) Reject(_ context.Context, refund *models.Refund, approverID uuid.UUID, note *string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolve(refund, models.RefundStatusRejected, approverID, note, at), nil
}

// ---- PaymentAuditor ----

type fakeAuditor struct{ *memDB }

func (f fakeAuditor) Log(_ context.Context, audit *models.PaymentAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	audit.ID = uuid.New()
	audit.CreatedAt = f.now()
	f.audits = append(f.audits, *audit)
	return nil
}

// ---- PendingRefundIndex ----

type fakeIndex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.Refund
	gets    int
	hits    int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: map[uuid.UUID]models.Refund{}}
}

func (f *fakeIndex) Get(_ context.Context, billID uuid.UUID) (*models.Refund, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	r, ok := f.entries[billID]
	if !ok {
		return nil, false, nil
	}
	f.hits++
	return &r, true, nil
}

func (f *fakeIndex) Put(_ context.Context, refund *models.Refund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[refund.BillID] = *refund
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, billID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, billID)
	return nil
}

// ---- fixture ----

var testNow = time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *memDB
	clock    time.Time
	authz    *Authorizer
	index    *fakeIndex
	schedule *ScheduleAvailabilityService
	billing  *BillingService
	orch     *BookingOrchestratorService
	payments *QRPaymentService
	refunds  *RefundService
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newFixture() *fixture {
	f := &fixture{clock: testNow, authz: NewAuthorizer(), index: newFakeIndex()}
	now := func() time.Time { return f.clock }
	f.db = newMemDB(now)
	logger := quietLogger()

	schedules := fakeSchedules{f.db}
	rooms := fakeRooms{f.db}
	bookings := fakeBookings{f.db}
	bills := fakeBills{f.db}
	auditor := fakeAuditor{f.db}

	f.schedule = NewScheduleAvailabilityService(schedules, f.authz, logger)
	f.schedule.now = now

	f.billing = NewBillingService(bills, fakeVouchers{f.db}, bookings, rooms, schedules, f.authz, auditor,
		BillingConfig{DepositRate: 0.2, Currency: "USD"}, logger)
	f.billing.now = now

	f.orch = NewBookingOrchestratorService(bookings, bills, rooms, schedules, f.billing, f.authz, auditor, "USD", logger)
	f.orch.now = now

	f.payments = NewQRPaymentService(fakeCodes{f.db}, bills, bookings, rooms, schedules, f.authz, auditor,
		QRPaymentConfig{CodeTTL: 15 * time.Minute, HashKey: []byte("0123456789abcdef0123456789abcdef"), Currency: "USD"}, logger)
	f.payments.now = now

	f.refunds = NewRefundService(bills, fakeRefunds{f.db}, bookings, rooms, schedules, f.authz,
		FullRefundPolicy{}, f.index, auditor, "USD", logger)
	f.refunds.now = now

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func customer() models.Principal {
	return models.Principal{UserID: uuid.New(), Role: models.RoleCustomer}
}

func principal(role models.Role) models.Principal {
	return models.Principal{UserID: uuid.New(), Role: role}
}
