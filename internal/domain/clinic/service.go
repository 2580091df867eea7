package clinic

import (
	"context"
	"strings"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

type Service struct {
	clinics Repository
	tx      db.TxManager
}

func NewService(clinics Repository, tx db.TxManager) *Service {
	return &Service{clinics: clinics, tx: tx}
}

func normalize(op string, in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return in, apperr.Validation(op, "name is required")
	}
	if in.Address == "" {
		return in, apperr.Validation(op, "address is required")
	}
	if in.Phone != nil && strings.TrimSpace(*in.Phone) == "" {
		in.Phone = nil
	}
	return in, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Clinic, error) {
	in, err := normalize("clinic.Create", in)
	if err != nil {
		return nil, err
	}
	c := &Clinic{Name: in.Name, Address: in.Address, Phone: in.Phone}
	if err := s.clinics.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Clinic, error) {
	return s.clinics.GetByID(ctx, id)
}

// Update replaces the clinic's fields. A missing clinic fails with NotFound
// before any write is attempted.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Clinic, error) {
	in, err := normalize("clinic.Update", in)
	if err != nil {
		return nil, err
	}

	var out *Clinic
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.clinics.Lock(ctx, id)
		if err != nil {
			return err
		}
		c.Name, c.Address, c.Phone = in.Name, in.Address, in.Phone
		if err := s.clinics.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// Delete removes a clinic that no doctor belongs to.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.clinics.Lock(ctx, id); err != nil {
			return err
		}
		n, err := s.clinics.CountDoctors(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("clinic.Delete", "clinic has %d doctor(s) assigned", n)
		}
		return s.clinics.Delete(ctx, id)
	})
}

// List returns every clinic. The result is never nil.
func (s *Service) List(ctx context.Context) ([]*Clinic, error) {
	items, err := s.clinics.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Clinic{}
	}
	return items, nil
}
