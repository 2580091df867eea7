package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
)

type Service struct {
	repo   Repository
	tx     db.TxManager
	events events.Publisher
}

func NewService(repo Repository, tx db.TxManager) *Service {
	return &Service{repo: repo, tx: tx, events: events.Nop{}}
}

// WithPublisher sets where lifecycle events are sent once committed.
func (s *Service) WithPublisher(p events.Publisher) *Service {
	s.events = p
	return s
}

func eventData(a *Appointment) map[string]any {
	return map[string]any{
		"appointment_id":   a.ID,
		"patient_id":       a.PatientID,
		"doctor_id":        a.DoctorID,
		"appointment_date": a.AppointmentDate,
		"status":           a.Status,
	}
}

func cleanDescription(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// Create books a pending appointment after checking that both the patient
// and the doctor exist.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	const op = "appointment.Create"

	if in.PatientID <= 0 || in.DoctorID <= 0 {
		return nil, apperr.Validation(op, "patient_id and doctor_id are required")
	}
	when, ok := ParseDateTime(in.AppointmentDate)
	if !ok {
		return nil, apperr.Validation(op, "appointment_date must be an RFC 3339 date-time")
	}

	a := &Appointment{
		PatientID:       in.PatientID,
		DoctorID:        in.DoctorID,
		AppointmentDate: when,
		Status:          StatusPending,
		Description:     cleanDescription(in.Description),
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.PatientExists(ctx, in.PatientID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(op, "patient not found")
		}
		if ok, err = s.repo.DoctorExists(ctx, in.DoctorID); err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(op, "doctor not found")
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.events, events.New(events.AppointmentCreated, eventData(a)))
	return a, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*View, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a patch under a row lock. Status changes follow
// CanTransition and a terminal appointment cannot be rescheduled.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (*Appointment, error) {
	const op = "appointment.Update"

	if p.Status != nil && !p.Status.Valid() {
		return nil, apperr.Validation(op, "unknown status %q", *p.Status)
	}
	var when *time.Time
	if p.AppointmentDate != nil {
		t, ok := ParseDateTime(*p.AppointmentDate)
		if !ok {
			return nil, apperr.Validation(op, "appointment_date must be an RFC 3339 date-time")
		}
		when = &t
	}

	var out *Appointment
	var from Status
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.Lock(ctx, id)
		if err != nil {
			return err
		}

		from = a.Status
		if p.Status != nil {
			if !CanTransition(from, *p.Status) {
				return apperr.InvalidTransition(op, string(from), string(*p.Status))
			}
			a.Status = *p.Status
		}
		if when != nil {
			if from.Terminal() {
				return &apperr.Error{
					Kind:    apperr.KindInvalidTransition,
					Op:      op,
					Message: "cannot reschedule a " + string(from) + " appointment",
				}
			}
			a.AppointmentDate = *when
		}
		if p.Description != nil {
			a.Description = cleanDescription(p.Description)
		}

		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		if from != a.Status {
			log.Ctx(ctx).Info().
				Int64("appointment_id", a.ID).
				Str("from", string(from)).
				Str("to", string(a.Status)).
				Msg("appointment status changed")
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from != out.Status {
		data := eventData(out)
		data["from"] = from
		events.Emit(ctx, s.events, events.New(events.AppointmentStatusChanged, data))
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, id int64) (*Appointment, error) {
	status := StatusCancelled
	return s.Update(ctx, id, Patch{Status: &status})
}

// Delete removes an appointment that has no examination recorded.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var deleted *Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		has, err := s.repo.HasExamination(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return apperr.Conflict("appointment.Delete", "appointment has an examination recorded")
		}
		deleted = a
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	events.Emit(ctx, s.events, events.New(events.AppointmentDeleted, eventData(deleted)))
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*View, error) {
	ok, err := s.repo.PatientExists(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("appointment.ListByPatient", "patient not found")
	}
	return nonNil(s.repo.ListByPatient(ctx, patientID))
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID int64) ([]*View, error) {
	ok, err := s.repo.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("appointment.ListByDoctor", "doctor not found")
	}
	return nonNil(s.repo.ListByDoctor(ctx, doctorID))
}

// ListAll returns every appointment, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status *Status) ([]*View, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.Validation("appointment.ListAll", "unknown status %q", *status)
	}
	return nonNil(s.repo.List(ctx, status))
}

func nonNil(items []*View, err error) ([]*View, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*View{}
	}
	return items, nil
}
