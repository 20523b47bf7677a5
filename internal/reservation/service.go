package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"hotel-reservation-backend/internal/availability"
	"hotel-reservation-backend/internal/model"
	"hotel-reservation-backend/internal/notification"
	"hotel-reservation-backend/internal/payment"
	"hotel-reservation-backend/internal/store"
)

// BookingRequest is a guest's request for a stay on a room.
type BookingRequest struct {
	ClientID    int64
	RoomID      int64
	CheckIn     time.Time
	CheckOut    time.Time
	Observation string
}

// CallbackURLs are where the payment provider sends the guest back.
type CallbackURLs struct {
	Success string
	Cancel  string
}

// SweepResult lists the reservations a sweep finalized.
type SweepResult struct {
	Finalized []int64
}

// Service runs the reservation lifecycle. Every state change happens in one
// transaction holding row locks on the room and the reservation.
type Service struct {
	store     store.Store
	gateway   payment.Gateway
	publisher notification.Publisher
	clock     Clock
	policy    Policy
}

// NewService creates a reservation service. A nil clock means the system clock.
func NewService(s store.Store, gateway payment.Gateway, publisher notification.Publisher, clock Clock, policy Policy) *Service {
	if clock == nil {
		clock = RealClock{}
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &Service{store: s, gateway: gateway, publisher: publisher, clock: clock, policy: policy}
}

// HoldJobName names the job that releases an unpaid reservation.
func HoldJobName(reservationID int64) string {
	return "release-hold-" + strconv.FormatInt(reservationID, 10)
}

// ActivationJobName names the job that activates a scheduled stay.
func ActivationJobName(reservationID int64) string {
	return "activate-reservation-" + strconv.FormatInt(reservationID, 10)
}

func (s *Service) today() time.Time {
	return availability.DateOf(s.clock.Now(), s.policy.Location)
}

// CreateReservation validates a fresh booking and stores it as Initiated.
// The hold is released by a job if no payment completes within the patience
// window.
func (s *Service) CreateReservation(ctx context.Context, req BookingRequest) (*model.Reservation, error) {
	now := s.clock.Now().UTC()
	today := s.today()

	var created *model.Reservation
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		room, err := tx.LockRoom(ctx, req.RoomID)
		if err != nil {
			return roomError(err)
		}

		clientID := req.ClientID
		held, err := tx.CountReservations(ctx, store.ReservationFilter{ClientID: &clientID, Statuses: availability.Blocking})
		if err != nil {
			return err
		}
		blocking, err := tx.FindReservations(ctx, store.ReservationFilter{RoomID: &room.ID, Statuses: availability.Blocking})
		if err != nil {
			return err
		}

		violations := Validate(Candidate{
			CheckIn:              req.CheckIn,
			CheckOut:             req.CheckOut,
			Today:                today,
			Room:                 *room,
			Blocking:             blocking,
			ClientHasReservation: held > 0,
		}, s.policy)
		if violations.Len() > 0 {
			return &ValidationError{Violations: violations}
		}

		r := newReservation(req, room, now)
		if err := tx.CreateReservation(ctx, r); err != nil {
			return err
		}
		if err := s.armHold(ctx, tx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, s.classify(ctx, req.RoomID, FieldCheckin, err)
	}

	log.Printf("[reservation] created id=%d room=%s client=%d %s..%s amount_cents=%d",
		created.ID, created.RoomNumber, req.ClientID,
		created.CheckIn.Format(time.DateOnly), created.CheckOut.Format(time.DateOnly), created.AmountCents)
	return created, nil
}

// ScheduleFutureStay books a stay on a room that another guest currently
// occupies. The new reservation starts Initiated, linked to the client.
func (s *Service) ScheduleFutureStay(ctx context.Context, req BookingRequest) (*model.Scheduling, error) {
	now := s.clock.Now().UTC()
	today := s.today()

	var link *model.Scheduling
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		room, err := tx.LockRoom(ctx, req.RoomID)
		if err != nil {
			return roomError(err)
		}
		blocking, err := tx.FindReservations(ctx, store.ReservationFilter{RoomID: &room.ID, Statuses: availability.Blocking})
		if err != nil {
			return err
		}

		violations := ValidateSchedule(Candidate{
			CheckIn:  req.CheckIn,
			CheckOut: req.CheckOut,
			Today:    today,
			Room:     *room,
			Blocking: blocking,
		}, s.policy)
		if violations.Len() > 0 {
			return &ValidationError{Violations: violations}
		}

		r := newReservation(req, room, now)
		if err := tx.CreateReservation(ctx, r); err != nil {
			return err
		}
		clientID := req.ClientID
		l := &model.Scheduling{ClientID: &clientID, ReservationID: r.ID, CreatedAt: now}
		if err := tx.CreateScheduling(ctx, l); err != nil {
			return err
		}
		if err := s.armHold(ctx, tx, r); err != nil {
			return err
		}
		l.Reservation = r
		link = l
		return nil
	})
	if err != nil {
		return nil, s.classify(ctx, req.RoomID, FieldReservation, err)
	}

	log.Printf("[reservation] scheduled id=%d room=%s client=%d check_in=%s",
		link.ReservationID, link.Reservation.RoomNumber, req.ClientID, link.Reservation.CheckIn.Format(time.DateOnly))
	return link, nil
}

// OpenPayment opens a checkout session for an Initiated reservation and moves
// it to Processing. Calling it again while Processing returns the same URL.
func (s *Service) OpenPayment(ctx context.Context, reservationID int64, urls CallbackURLs) (string, error) {
	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return "", reservationError(err)
	}
	if r.Status == model.StatusProcessing {
		if p, err := s.store.GetPayment(ctx, reservationID); err == nil && p.Status == model.PaymentProcessing && p.CheckoutURL != "" {
			return p.CheckoutURL, nil
		}
	}
	if r.Status != model.StatusInitiated {
		return "", fmt.Errorf("%w: reservation %d is %s", ErrInvalidTransition, r.ID, r.Status)
	}

	expires := r.CreatedAt.Add(s.policy.Patience)
	if !s.clock.Now().Before(expires) {
		return "", ErrHoldExpired
	}

	ref := uuid.NewString()
	urls = urls.withToken(ref)
	checkout, err := s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		Reference:   ref,
		SuccessURL:  urls.Success,
		CancelURL:   urls.Cancel,
		AmountCents: r.AmountCents,
		Description: fmt.Sprintf("Room %s, %d nights", r.RoomNumber, r.Nights()),
		ExpiresAt:   expires,
	})
	if err != nil {
		log.Printf("[reservation] checkout failed id=%d err=%v", r.ID, err)
		return "", err
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		locked, room, err := lockPair(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if locked.Status != model.StatusInitiated {
			return fmt.Errorf("%w: reservation %d is %s", ErrInvalidTransition, locked.ID, locked.Status)
		}
		if room == nil {
			return ErrRoomNotFound
		}

		scheduled, err := hasScheduling(ctx, tx, locked.ID)
		if err != nil {
			return err
		}

		var violations []Violation
		if !scheduled && !room.Available {
			v, _ := roomAvailable(Candidate{Room: *room}, s.policy)
			violations = append(violations, v)
		}
		holding, err := tx.FindReservations(ctx, store.ReservationFilter{RoomID: &room.ID, Statuses: availability.Holding, ExcludeID: locked.ID})
		if err != nil {
			return err
		}
		if len(availability.Conflicts(holding, availability.StayOf(*locked), availability.Holding...)) > 0 {
			violations = append(violations, unavailableDate(FieldCheckin, holding))
		}
		if len(violations) > 0 {
			return &ValidationError{Violations: newViolations(violations...)}
		}

		if err := moveTo(locked, model.StatusProcessing); err != nil {
			return err
		}
		if err := tx.UpdateReservationState(ctx, locked); err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, &model.Payment{
			ReservationID:   locked.ID,
			Status:          model.PaymentProcessing,
			AmountCents:     locked.AmountCents,
			Provider:        s.gateway.Name(),
			ExternalRef:     ref,
			CheckoutURL:     checkout.URL,
			ProviderPayload: datatypes.JSON(checkout.Raw),
		}); err != nil {
			return err
		}
		if _, err := tx.RefreshRoomAvailability(ctx, room.ID); err != nil {
			return err
		}
		return s.armHold(ctx, tx, locked)
	})
	if err != nil {
		return "", s.classify(ctx, derefID(r.RoomID), FieldCheckin, err)
	}

	log.Printf("[reservation] payment opened id=%d provider=%s ref=%s", r.ID, s.gateway.Name(), ref)
	return checkout.URL, nil
}

// OnPaymentSuccess completes the payment. Fresh bookings become Active,
// scheduled ones become Scheduled with an activation job at check-in. A
// payment that is no longer processing leaves the reservation unchanged.
// token must be the reference handed out on the callback URLs.
func (s *Service) OnPaymentSuccess(ctx context.Context, reservationID int64, token string) (*model.Reservation, error) {
	var (
		out  *model.Reservation
		kind string
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		r, room, err := lockPair(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		out = r

		p, err := tx.GetPayment(ctx, r.ID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: reservation %d has no payment session", ErrInvalidTransition, r.ID)
		}
		if err != nil {
			return err
		}
		if !tokenMatches(p, token) {
			return fmt.Errorf("%w: reservation %d", ErrPaymentToken, r.ID)
		}
		if p.Status != model.PaymentProcessing {
			return nil
		}
		if p.AmountCents != r.AmountCents {
			return fmt.Errorf("%w: payment %d cents, reservation %d cents", ErrPaymentAmountMismatch, p.AmountCents, r.AmountCents)
		}

		scheduled, err := hasScheduling(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		if scheduled {
			if err := moveTo(r, model.StatusScheduled); err != nil {
				return err
			}
			if _, err := tx.EnqueueJob(ctx, &model.ScheduledJob{
				Name:          ActivationJobName(r.ID),
				Kind:          model.JobActivateReservation,
				ReservationID: r.ID,
				RunAt:         s.startOfDay(r.CheckIn),
			}); err != nil {
				return err
			}
			kind = notification.KindReservationScheduled
		} else {
			if room != nil {
				blocking, err := tx.FindReservations(ctx, store.ReservationFilter{RoomID: &room.ID, Statuses: availability.Blocking, ExcludeID: r.ID})
				if err != nil {
					return err
				}
				if len(availability.Conflicts(blocking, availability.StayOf(*r))) > 0 {
					return &ValidationError{Violations: newViolations(unavailableDate(FieldCheckin, blocking))}
				}
			}
			if err := moveTo(r, model.StatusActive); err != nil {
				return err
			}
			kind = notification.KindReservationConfirmed
		}

		if err := tx.UpdateReservationState(ctx, r); err != nil {
			return err
		}
		p.Status = model.PaymentFinalized
		if err := tx.UpdatePaymentStatus(ctx, p); err != nil {
			return err
		}
		if room != nil {
			if _, err := tx.RefreshRoomAvailability(ctx, room.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var roomID int64
		if out != nil {
			roomID = derefID(out.RoomID)
		}
		return nil, s.classify(ctx, roomID, FieldCheckin, reservationError(err))
	}

	if kind != "" {
		log.Printf("[reservation] payment confirmed id=%d status=%s", out.ID, out.Status)
		s.notify(ctx, kind, out, false)
	}
	return out, nil
}

// OnPaymentCancel cancels an unpaid reservation. Cancelling twice is a no-op.
// Like OnPaymentSuccess it requires the payment's callback token.
func (s *Service) OnPaymentCancel(ctx context.Context, reservationID int64, token string) (*model.Reservation, error) {
	var (
		out       *model.Reservation
		cancelled bool
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		r, room, err := lockPair(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		out = r

		p, err := tx.GetPayment(ctx, r.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if !tokenMatches(p, token) {
			return fmt.Errorf("%w: reservation %d", ErrPaymentToken, r.ID)
		}
		if r.Status == model.StatusCancelled || (p != nil && p.Status == model.PaymentFinalized) {
			return nil
		}
		if err := moveTo(r, model.StatusCancelled); err != nil {
			return err
		}
		cancelled = true
		return s.cancel(ctx, tx, r, room, p)
	})
	if err != nil {
		return nil, reservationError(err)
	}

	if cancelled {
		log.Printf("[reservation] payment cancelled id=%d", out.ID)
		s.notify(ctx, notification.KindReservationCancelled, out, false)
	}
	return out, nil
}

// ReleaseHold cancels a reservation whose payment did not complete in time.
// Missing or already settled reservations are left alone.
func (s *Service) ReleaseHold(ctx context.Context, reservationID int64) error {
	var released *model.Reservation
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		r, room, err := lockPair(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		p, err := tx.GetPayment(ctx, r.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if p != nil && p.Status == model.PaymentFinalized {
			return nil
		}
		if r.Status != model.StatusInitiated && r.Status != model.StatusProcessing {
			return nil
		}
		if err := moveTo(r, model.StatusCancelled); err != nil {
			return err
		}
		released = r
		return s.cancel(ctx, tx, r, room, p)
	})
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[reservation] hold release skipped, reservation %d is gone", reservationID)
		return nil
	}
	if err != nil {
		return err
	}

	if released != nil {
		log.Printf("[reservation] hold released id=%d", released.ID)
		s.notify(ctx, notification.KindReservationCancelled, released, false)
	}
	return nil
}

// cancel writes a transition to Cancelled along with the payment and room.
func (s *Service) cancel(ctx context.Context, tx store.Store, r *model.Reservation, room *model.Room, p *model.Payment) error {
	if err := tx.UpdateReservationState(ctx, r); err != nil {
		return err
	}
	if p != nil && p.Status == model.PaymentProcessing {
		p.Status = model.PaymentCancelled
		if err := tx.UpdatePaymentStatus(ctx, p); err != nil {
			return err
		}
	}
	if room != nil {
		if _, err := tx.RefreshRoomAvailability(ctx, room.ID); err != nil {
			return err
		}
	}
	return nil
}

// SweepCompleted finalizes every active reservation whose checkout date has
// arrived. Each reservation is finalized in its own transaction; failures
// are collected and the sweep goes on.
func (s *Service) SweepCompleted(ctx context.Context) (SweepResult, error) {
	today := s.today()
	due, err := s.store.FindReservations(ctx, store.ReservationFilter{
		Statuses:           []model.ReservationStatus{model.StatusActive},
		ActiveOnly:         true,
		CheckOutOnOrBefore: &today,
	})
	if err != nil {
		return SweepResult{}, err
	}

	var (
		result SweepResult
		errs   []error
	)
	for _, candidate := range due {
		var done *model.Reservation
		err := s.store.WithTx(ctx, func(tx store.Store) error {
			r, room, err := lockPair(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			ok, err := finalize(ctx, tx, r, room, today)
			if ok {
				done = r
			}
			return err
		})
		if err != nil {
			log.Printf("[reservation][sweep] failed to finalize id=%d: %v", candidate.ID, err)
			errs = append(errs, fmt.Errorf("reservation %d: %w", candidate.ID, err))
			continue
		}
		if done != nil {
			result.Finalized = append(result.Finalized, done.ID)
			s.notify(ctx, notification.KindReservationFinished, done, true)
		}
	}

	if len(result.Finalized) > 0 {
		log.Printf("[reservation][sweep] finalized %d reservations", len(result.Finalized))
	}
	return result, errors.Join(errs...)
}

// finalize moves a due Active reservation to Finalized. It reports false when
// the reservation is not due or no longer active.
func finalize(ctx context.Context, tx store.Store, r *model.Reservation, room *model.Room, today time.Time) (bool, error) {
	if r.Status != model.StatusActive || !r.Active || r.CheckOut.After(today) {
		return false, nil
	}
	if err := moveTo(r, model.StatusFinalized); err != nil {
		return false, err
	}
	if err := tx.UpdateReservationState(ctx, r); err != nil {
		return false, err
	}
	if room != nil {
		if _, err := tx.RefreshRoomAvailability(ctx, room.ID); err != nil {
			return false, err
		}
	}
	return true, nil
}

// ActivateScheduled turns a Scheduled stay Active on its check-in date,
// finalizing the room's previous guest first when that stay is over.
func (s *Service) ActivateScheduled(ctx context.Context, reservationID int64) error {
	today := s.today()

	var (
		activated *model.Reservation
		finished  []*model.Reservation
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		r, room, err := lockPair(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if r.Status != model.StatusScheduled {
			return nil
		}
		if r.CheckIn.After(today) {
			return fmt.Errorf("%w: reservation %d starts %s", ErrTooEarly, r.ID, r.CheckIn.Format(time.DateOnly))
		}

		if room != nil {
			previous, err := tx.FindReservations(ctx, store.ReservationFilter{
				RoomID:             &room.ID,
				Statuses:           []model.ReservationStatus{model.StatusActive},
				ActiveOnly:         true,
				CheckOutOnOrBefore: &today,
				ExcludeID:          r.ID,
			})
			if err != nil {
				return err
			}
			for i := range previous {
				prev := previous[i]
				ok, err := finalize(ctx, tx, &prev, nil, today)
				if err != nil {
					return err
				}
				if ok {
					finished = append(finished, &prev)
				}
			}
		}

		if err := moveTo(r, model.StatusActive); err != nil {
			return err
		}
		if err := tx.UpdateReservationState(ctx, r); err != nil {
			return err
		}
		if room != nil {
			if _, err := tx.RefreshRoomAvailability(ctx, room.ID); err != nil {
				return err
			}
		}
		activated = r
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[reservation] activation skipped, reservation %d is gone", reservationID)
		return nil
	}
	if err != nil {
		return err
	}

	for _, prev := range finished {
		s.notify(ctx, notification.KindReservationFinished, prev, true)
	}
	if activated != nil {
		log.Printf("[reservation] scheduled stay activated id=%d room=%s", activated.ID, activated.RoomNumber)
		s.notify(ctx, notification.KindReservationActivated, activated, true)
	}
	return nil
}

func (s *Service) armHold(ctx context.Context, tx store.Store, r *model.Reservation) error {
	_, err := tx.EnqueueJob(ctx, &model.ScheduledJob{
		Name:          HoldJobName(r.ID),
		Kind:          model.JobReleaseHold,
		ReservationID: r.ID,
		RunAt:         r.CreatedAt.Add(s.policy.Patience),
	})
	return err
}

// startOfDay is midnight of a stored date in the hotel's time zone.
func (s *Service) startOfDay(date time.Time) time.Time {
	d := date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.policy.Location)
}

func newReservation(req BookingRequest, room *model.Room, now time.Time) *model.Reservation {
	clientID := req.ClientID
	roomID := room.ID
	stay := availability.Stay{CheckIn: req.CheckIn, CheckOut: req.CheckOut}
	return &model.Reservation{
		ClientID:        &clientID,
		RoomID:          &roomID,
		RoomNumber:      room.Number,
		DailyPriceCents: room.DailyPriceCents,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Observation:     req.Observation,
		AmountCents:     int64(stay.Nights()) * room.DailyPriceCents,
		Status:          model.StatusInitiated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// lockPair locks the reservation's room, then the reservation, always in that
// order. The room is nil when it has been deleted.
func lockPair(ctx context.Context, tx store.Store, reservationID int64) (*model.Reservation, *model.Room, error) {
	r, err := tx.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, nil, err
	}
	var room *model.Room
	if r.RoomID != nil {
		room, err = tx.LockRoom(ctx, *r.RoomID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, nil, err
		}
	}
	locked, err := tx.LockReservation(ctx, reservationID)
	if err != nil {
		return nil, nil, err
	}
	return locked, room, nil
}

func hasScheduling(ctx context.Context, tx store.Store, reservationID int64) (bool, error) {
	_, err := tx.GetScheduling(ctx, reservationID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	}
	return false, err
}

// classify turns a storage conflict into the same violation the validator
// reports for overlapping dates.
func (s *Service) classify(ctx context.Context, roomID int64, field string, err error) error {
	if !errors.Is(err, store.ErrConflict) {
		return err
	}
	var blocking []model.Reservation
	if roomID != 0 {
		found, ferr := s.store.FindReservations(ctx, store.ReservationFilter{RoomID: &roomID, Statuses: availability.Blocking})
		if ferr == nil {
			blocking = found
		}
	}
	log.Printf("[reservation] overlap rejected by database room=%d: %v", roomID, err)
	return &ValidationError{Violations: newViolations(unavailableDate(field, blocking))}
}

func roomError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrRoomNotFound
	}
	return err
}

func reservationError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
