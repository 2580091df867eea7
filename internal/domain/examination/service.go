package examination

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
)

// DoctorDirectory resolves a doctor from the id of its user account.
type DoctorDirectory interface {
	GetUserByID(ctx context.Context, id int64) (*identity.User, error)
	GetDoctorByNationalID(ctx context.Context, nationalID string) (*identity.Doctor, error)
}

type Service struct {
	repo         Repository
	appointments Appointments
	doctors      DoctorDirectory
	tx           db.TxManager
	events       events.Publisher
}

func NewService(repo Repository, appointments Appointments, doctors DoctorDirectory, tx db.TxManager) *Service {
	return &Service{repo: repo, appointments: appointments, doctors: doctors, tx: tx, events: events.Nop{}}
}

// WithPublisher sets where examination events are sent once committed.
func (s *Service) WithPublisher(p events.Publisher) *Service {
	s.events = p
	return s
}

func notes(p *string) string {
	if p == nil {
		return DefaultNotes
	}
	if v := strings.TrimSpace(*p); v != "" {
		return v
	}
	return DefaultNotes
}

// Create records the examination of an appointment. A pending appointment
// is marked completed in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Examination, error) {
	const op = "examination.Create"

	e := &Examination{
		AppointmentID: in.AppointmentID,
		Diagnosis:     strings.TrimSpace(in.Diagnosis),
		Treatment:     strings.TrimSpace(in.Treatment),
		Notes:         notes(in.Notes),
	}
	if e.Diagnosis == "" {
		return nil, apperr.Validation(op, "diagnosis is required")
	}
	if e.Treatment == "" {
		return nil, apperr.Validation(op, "treatment is required")
	}
	if e.AppointmentID <= 0 {
		return nil, apperr.Validation(op, "appointment_id is required")
	}

	var completed *appointment.Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.Lock(ctx, e.AppointmentID)
		if err != nil {
			return err
		}
		exists, err := s.repo.ExistsForAppointment(ctx, a.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict(op, "appointment already has an examination")
		}
		if a.Status == appointment.StatusCancelled {
			return &apperr.Error{
				Kind:    apperr.KindInvalidTransition,
				Op:      op,
				Message: "cannot record an examination for a cancelled appointment",
			}
		}

		if err := s.repo.Create(ctx, e); err != nil {
			return err
		}
		if a.Status == appointment.StatusPending {
			a.Status = appointment.StatusCompleted
			if err := s.appointments.Update(ctx, a); err != nil {
				return err
			}
			log.Ctx(ctx).Info().
				Int64("appointment_id", a.ID).
				Int64("examination_id", e.ID).
				Msg("appointment completed by examination")
			completed = a
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.events, events.New(events.ExaminationRecorded, map[string]any{
		"examination_id": e.ID,
		"appointment_id": e.AppointmentID,
	}))
	if completed != nil {
		events.Emit(ctx, s.events, events.New(events.AppointmentStatusChanged, map[string]any{
			"appointment_id": completed.ID,
			"patient_id":     completed.PatientID,
			"doctor_id":      completed.DoctorID,
			"from":           appointment.StatusPending,
			"status":         completed.Status,
		}))
	}
	return e, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Detail, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, p Patch) (*Examination, error) {
	const op = "examination.Update"

	var diagnosis, treatment string
	if p.Diagnosis != nil {
		if diagnosis = strings.TrimSpace(*p.Diagnosis); diagnosis == "" {
			return nil, apperr.Validation(op, "diagnosis must not be empty")
		}
	}
	if p.Treatment != nil {
		if treatment = strings.TrimSpace(*p.Treatment); treatment == "" {
			return nil, apperr.Validation(op, "treatment must not be empty")
		}
	}

	var out *Examination
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		if p.Diagnosis != nil {
			e.Diagnosis = diagnosis
		}
		if p.Treatment != nil {
			e.Treatment = treatment
		}
		if p.Notes != nil {
			e.Notes = notes(p.Notes)
		}
		if err := s.repo.Update(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// Delete removes an examination. The appointment keeps its status.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ListByDoctor returns the examinations of the doctor whose user account is
// userID.
func (s *Service) ListByDoctor(ctx context.Context, userID int64) ([]*Detail, error) {
	const op = "examination.ListByDoctor"

	u, err := s.doctors.GetUserByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound(op, "doctor not found")
	}
	if err != nil {
		return nil, err
	}
	d, err := s.doctors.GetDoctorByNationalID(ctx, u.NationalID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound(op, "doctor not found")
	}
	if err != nil {
		return nil, err
	}
	return nonNil(s.repo.ListByDoctor(ctx, d.ID))
}

func (s *Service) List(ctx context.Context) ([]*Detail, error) {
	return nonNil(s.repo.List(ctx))
}

func nonNil(items []*Detail, err error) ([]*Detail, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Detail{}
	}
	return items, nil
}
