package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"emergency-service/internal/config"
	"emergency-service/internal/events"
	"emergency-service/internal/logging"
	"emergency-service/internal/models"
)

// Store is the durable record of emergencies and their confirmations. All
// mutations are conditional at the store: status writes refuse terminal
// records and confirmation inserts are write-if-absent keyed by
// (emergency, responder), so concurrent callers cannot violate the
// invariants with a read-then-write race. Implementations return the
// package's sentinel errors for invariant violations.
type Store interface {
	CreateEmergency(ctx context.Context, e models.Emergency) error
	GetEmergency(ctx context.Context, id string) (models.Emergency, error)
	// UpdateEmergencyStatus sets status/updated_by/updated_at and bumps the
	// version. Refused with ErrInvalidState on terminal records.
	UpdateEmergencyStatus(ctx context.Context, id, status, actor string) error
	// ClearEmergency is UpdateEmergencyStatus to "cleared" plus
	// cleared_at/cleared_by, kept separate because clearing is audited.
	ClearEmergency(ctx context.Context, id, actor string) error
	// ListActiveEmergencies returns status=active records oldest first.
	ListActiveEmergencies(ctx context.Context) ([]models.Emergency, error)
	// InsertConfirmation inserts iff absent and touches the parent's
	// updated_at. Duplicate inserts return ErrAlreadyConfirmed and must not
	// overwrite the original timestamp.
	InsertConfirmation(ctx context.Context, emergencyID string, c models.Confirmation) error
}

// Directory resolves responder contacts and actor roles from the user
// registry. Failures surface as ErrDirectoryUnavailable rather than an
// empty result.
type Directory interface {
	ResponderEmails(ctx context.Context) ([]string, error)
	Role(ctx context.Context, userID string) (string, error)
}

// DispatchResult reports the outcome of a best-effort alert dispatch.
// Dispatch never fails the surrounding operation.
type DispatchResult struct {
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// Dispatcher sends an emergency alert to recipients. Transport failures are
// absorbed and reported in the result.
type Dispatcher interface {
	Dispatch(ctx context.Context, e models.Emergency, recipients []string) DispatchResult
}

// Result is the outcome of a state-changing operation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TriggerResult is the outcome of triggering an SOS.
type TriggerResult struct {
	Success     bool           `json:"success"`
	EmergencyID string         `json:"emergency_id"`
	Message     string         `json:"message"`
	Dispatch    DispatchResult `json:"dispatch"`
}

// Service implements the emergency SOS lifecycle: trigger, status
// transitions, clearing, and responder confirmations. Dependencies are
// injected so tests can substitute an in-memory store.
type Service struct {
	store      Store
	dir        Directory
	dispatcher Dispatcher
	hub        *events.Hub
	logger     *logging.Logger
	cfg        config.Config
}

// New constructs a Service.
func New(store Store, dir Directory, dispatcher Dispatcher, hub *events.Hub, logger *logging.Logger, cfg config.Config) *Service {
	return &Service{
		store:      store,
		dir:        dir,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
		cfg:        cfg,
	}
}

// Logger exposes the Service's logger to the Kafka consumer or caller.
func (s *Service) Logger() *logging.Logger {
	return s.logger
}

// Trigger creates an active Emergency from input, applying defaults for
// absent fields, then dispatches alerts to recipients best-effort. The
// record write is the source of truth: a failed dispatch never fails the
// trigger, it is reported separately in the result.
func (s *Service) Trigger(ctx context.Context, input models.EmergencyInput, recipients []string) (TriggerResult, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	now := time.Now().UTC()
	e := models.Emergency{
		ID:                 uuid.NewString(),
		DeviceID:           input.DeviceID,
		Status:             models.StatusActive,
		Type:               input.Type,
		Location:           input.Location,
		PatientStatus:      input.PatientStatus,
		Description:        input.Description,
		TriggeredBy:        input.TriggeredBy,
		CreatedAt:          now,
		UpdatedAt:          now,
		RespondersNotified: len(recipients),
		Confirmations:      map[string]models.Confirmation{},
		Version:            1,
	}
	s.applyTriggerDefaults(&e, now)
	e.Latitude, e.Longitude = s.triggerCoordinates(input)

	if err := s.store.CreateEmergency(ctx, e); err != nil {
		return TriggerResult{}, s.storeErr(err)
	}
	s.logger.Infof("Emergency %s created (device=%s, responders=%d)", e.ID, e.DeviceID, len(recipients))

	res := DispatchResult{Delivered: false, Reason: "no_recipients"}
	if len(recipients) > 0 {
		res = s.dispatcher.Dispatch(ctx, e, recipients)
		if !res.Delivered {
			s.logger.Warnf("Emergency %s dispatch degraded: %s", e.ID, res.Reason)
		}
	}

	s.publish(events.EmergencyCreated, e)

	return TriggerResult{
		Success:     true,
		EmergencyID: e.ID,
		Message:     fmt.Sprintf("Emergency triggered! %d responders notified.", len(recipients)),
		Dispatch:    res,
	}, nil
}

// Clear transitions an emergency to cleared, recording who cleared it.
// Only admin, hospital, and ambulance roles may clear.
func (s *Service) Clear(ctx context.Context, id, actor string) (Result, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	if err := s.authorize(ctx, actor); err != nil {
		return Result{}, err
	}
	if err := s.store.ClearEmergency(ctx, id, actor); err != nil {
		return Result{}, s.storeErr(err)
	}
	s.logger.Infof("Emergency %s cleared by %s", id, actor)
	s.publishByID(ctx, events.EmergencyCleared, id)

	return Result{Success: true, Message: "Emergency SOS cleared successfully"}, nil
}

// UpdateStatus transitions an emergency to newStatus. Same-status updates
// are idempotent no-ops that still refresh updated_at. Only admin, hospital,
// and ambulance roles may update status.
func (s *Service) UpdateStatus(ctx context.Context, id, newStatus, actor string) (Result, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	if !models.ValidStatus(newStatus) {
		return Result{}, fmt.Errorf("%w: invalid status %q", ErrInvalidArgument, newStatus)
	}
	if err := s.authorize(ctx, actor); err != nil {
		return Result{}, err
	}
	if err := s.store.UpdateEmergencyStatus(ctx, id, newStatus, actor); err != nil {
		return Result{}, s.storeErr(err)
	}
	s.logger.Infof("Emergency %s status updated to %s by %s", id, newStatus, actor)
	s.publishByID(ctx, events.EmergencyUpdated, id)

	return Result{Success: true, Message: fmt.Sprintf("Emergency status updated to %s", newStatus)}, nil
}

// Confirm records a responder's acknowledgement. At most one confirmation
// per responder is accepted; duplicates fail with ErrAlreadyConfirmed and
// confirmations against terminal emergencies with ErrInvalidState.
func (s *Service) Confirm(ctx context.Context, id, responderID, responderEmail string) (Result, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	if responderID == "" {
		return Result{}, fmt.Errorf("%w: responder id is required", ErrInvalidArgument)
	}
	c := models.Confirmation{
		ResponderID:    responderID,
		ResponderEmail: responderEmail,
		ConfirmedAt:    time.Now().UTC(),
		Status:         models.ConfirmationAcknowledged,
	}
	if err := s.store.InsertConfirmation(ctx, id, c); err != nil {
		return Result{}, s.storeErr(err)
	}
	s.logger.Infof("Emergency %s confirmed by responder %s", id, responderID)
	s.publishByID(ctx, events.EmergencyConfirmed, id)

	return Result{Success: true, Message: "Emergency signal confirmed successfully"}, nil
}

// Get returns the emergency with the given id.
func (s *Service) Get(ctx context.Context, id string) (models.Emergency, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	e, err := s.store.GetEmergency(ctx, id)
	if err != nil {
		return models.Emergency{}, s.storeErr(err)
	}
	return e, nil
}

// ListActive returns active emergencies oldest first, for FIFO triage.
func (s *Service) ListActive(ctx context.Context) ([]models.Emergency, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	list, err := s.store.ListActiveEmergencies(ctx)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return list, nil
}

// ResponderEmails resolves the current notifiable responder addresses.
func (s *Service) ResponderEmails(ctx context.Context) ([]string, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()
	return s.dir.ResponderEmails(ctx)
}

// applyTriggerDefaults fills absent trigger fields the way the dashboard
// does: synthesized device id, fixed placeholder location, configured
// fallback coordinates, "Critical" patient status.
func (s *Service) applyTriggerDefaults(e *models.Emergency, now time.Time) {
	if e.TriggeredBy == "" {
		e.TriggeredBy = "admin"
	}
	if e.DeviceID == "" {
		e.DeviceID = fmt.Sprintf("%s-trigger-%d", e.TriggeredBy, now.UnixMilli())
	}
	if e.Type == "" {
		e.Type = models.DefaultEmergencyType
	}
	if e.Location == "" {
		e.Location = models.DefaultLocation
	}
	if e.PatientStatus == "" {
		e.PatientStatus = models.DefaultPatientStatus
	}
	if e.Description == "" {
		e.Description = fmt.Sprintf("Emergency SOS triggered by %s", e.TriggeredBy)
	}
}

// triggerCoordinates resolves input coordinates, each falling back to the
// configured point when absent or out of range.
func (s *Service) triggerCoordinates(input models.EmergencyInput) (lat, lng float64) {
	lat = s.cfg.Emergency.FallbackLatitude
	lng = s.cfg.Emergency.FallbackLongitude
	if input.Latitude != nil && *input.Latitude >= -90 && *input.Latitude <= 90 {
		lat = *input.Latitude
	}
	if input.Longitude != nil && *input.Longitude >= -180 && *input.Longitude <= 180 {
		lng = *input.Longitude
	}
	return lat, lng
}

// authorize checks that the actor's registry role may manage emergencies.
func (s *Service) authorize(ctx context.Context, actor string) error {
	if actor == "" {
		return fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	role, err := s.dir.Role(ctx, actor)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: unknown actor %s", ErrPermissionDenied, actor)
		}
		return err
	}
	if !models.CanManageEmergencies(role) {
		return fmt.Errorf("%w: only hospital/ambulance/admin may clear or update emergencies", ErrPermissionDenied)
	}
	return nil
}

// deadline applies the configured per-operation timeout unless the caller
// already set one.
func (s *Service) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.cfg.Emergency.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.Emergency.OpTimeout)
}

// storeErr maps low-level failures onto the error taxonomy. Sentinels pass
// through; deadline expiry becomes ErrTimeout; anything else is a storage
// error.
func (s *Service) storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrAlreadyConfirmed),
		errors.Is(err, ErrInvalidArgument):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}

// publish sends an event for an emergency snapshot already in hand.
func (s *Service) publish(eventType string, e models.Emergency) {
	if s.hub != nil {
		s.hub.Publish(events.Event{Type: eventType, Emergency: e})
	}
}

// publishByID re-reads the record so subscribers see the post-change
// snapshot. A failed read only costs the notification.
func (s *Service) publishByID(ctx context.Context, eventType, id string) {
	if s.hub == nil {
		return
	}
	e, err := s.store.GetEmergency(ctx, id)
	if err != nil {
		s.logger.Warnf("Event publish skipped, re-read of %s failed: %v", id, err)
		return
	}
	s.hub.Publish(events.Event{Type: eventType, Emergency: e})
}
