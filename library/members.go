package library

import (
	"context"
	"errors"
	"strings"
)

// MemberUpdate carries the editable fields of a member. A non-nil Profile is
// created if the member has none, or replaces the existing one's fields.
type MemberUpdate struct {
	Name    string
	Email   string
	Phone   string
	Profile *Profile
}

// MemberManager is guarded CRUD over members and their optional profile,
// with email uniqueness.
type MemberManager struct {
	store Store
	settings
}

// NewMemberManager returns a member manager over store.
func NewMemberManager(store Store, opts ...Option) *MemberManager {
	return &MemberManager{store: store, settings: newSettings(opts)}
}

// CreateMember registers a member, stamping the registration date, and
// stores its profile in the same transaction when one is given.
func (m *MemberManager) CreateMember(ctx context.Context, in Member) (*Member, error) {
	in.ID = 0
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateMember(in.Name, in.Email, in.Profile); err != nil {
		return nil, err
	}
	in.RegistrationDate = m.today()

	var created *Member
	err := m.store.RunInTx(ctx, func(tx Records) error {
		if err := emailFree(ctx, tx, in.Email); err != nil {
			return err
		}
		saved, err := tx.SaveMember(ctx, &in)
		if err != nil {
			if errors.Is(err, errUniqueViolation) {
				return ErrDuplicateEmail
			}
			return err
		}
		if in.Profile != nil {
			p := *in.Profile
			p.ID = 0
			p.MemberID = saved.ID
			if saved.Profile, err = tx.SaveProfile(ctx, &p); err != nil {
				return err
			}
		}
		created = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "member created", attrMemberID, created.ID)
	return created, nil
}

// GetMember fetches a member with its profile.
func (m *MemberManager) GetMember(ctx context.Context, id int64) (*Member, error) {
	member, err := m.store.FindMemberByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, memberErr(id, ErrMemberNotFound))
	}
	if member.Profile, err = findProfile(ctx, m.store, id); err != nil {
		return nil, err
	}
	return member, nil
}

// ListMembers returns all members with their profiles, ordered by id.
func (m *MemberManager) ListMembers(ctx context.Context) ([]Member, error) {
	members, err := m.store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].Profile, err = findProfile(ctx, m.store, members[i].ID); err != nil {
			return nil, err
		}
	}
	return members, nil
}

// UpdateMember edits a member. The email is checked for uniqueness only when
// it changes; the registration date is never touched.
func (m *MemberManager) UpdateMember(ctx context.Context, id int64, u MemberUpdate) (*Member, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	u.Phone = strings.TrimSpace(u.Phone)
	if err := validateMember(u.Name, u.Email, u.Profile); err != nil {
		return nil, err
	}

	var updated *Member
	err := m.store.RunInTx(ctx, func(tx Records) error {
		current, err := tx.FindMemberByID(ctx, id)
		if err != nil {
			return orNotFound(err, memberErr(id, ErrMemberNotFound))
		}
		if current.Email != u.Email {
			if err := emailFree(ctx, tx, u.Email); err != nil {
				return err
			}
		}

		current.Name, current.Email, current.Phone = u.Name, u.Email, u.Phone
		saved, err := tx.SaveMember(ctx, current)
		if err != nil {
			if errors.Is(err, errUniqueViolation) {
				return ErrDuplicateEmail
			}
			return err
		}

		profile, err := findProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		if u.Profile != nil {
			p := *u.Profile
			p.MemberID = id
			p.ID = 0
			if profile != nil {
				p.ID = profile.ID
			}
			if profile, err = tx.SaveProfile(ctx, &p); err != nil {
				return err
			}
		}
		saved.Profile = profile
		updated = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMember removes a member with no active loans. Deletion order is
// returned loans, profile, member, all in one transaction.
func (m *MemberManager) DeleteMember(ctx context.Context, id int64) error {
	err := m.store.RunInTx(ctx, func(tx Records) error {
		if _, err := tx.FindMemberByID(ctx, id); err != nil {
			return orNotFound(err, memberErr(id, ErrMemberNotFound))
		}

		active, err := tx.FindLoansByMemberAndState(ctx, id, LoanActive)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return memberErr(id, ErrMemberHasActiveLoans)
		}

		if _, err := tx.DeleteLoans(ctx, LoanFilter{MemberID: id, State: LoanReturned}); err != nil {
			return err
		}
		if err := tx.DeleteProfileByMember(ctx, id); err != nil {
			return err
		}
		return orNotFound(tx.DeleteMember(ctx, id), memberErr(id, ErrMemberNotFound))
	})
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "member deleted", attrMemberID, id)
	return nil
}

// findProfile returns the member's profile, or nil when it has none.
func findProfile(ctx context.Context, r Records, memberID int64) (*Profile, error) {
	p, err := r.FindProfileByMember(ctx, memberID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	return p, err
}

func emailFree(ctx context.Context, tx Records, email string) error {
	_, err := tx.FindMemberByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case errors.Is(err, ErrRecordNotFound):
		return nil
	default:
		return err
	}
}

func validateMember(name, email string, p *Profile) error {
	switch {
	case name == "":
		return invalid("name", "is required")
	case email == "":
		return invalid("email", "is required")
	case !strings.Contains(email, "@"):
		return invalid("email", "must contain @")
	}
	if p == nil {
		return nil
	}
	p.Address = strings.TrimSpace(p.Address)
	p.City = strings.TrimSpace(p.City)
	p.PostalCode = strings.TrimSpace(p.PostalCode)
	p.ReadingPreferences = strings.TrimSpace(p.ReadingPreferences)
	switch {
	case p.Address == "":
		return invalid("address", "is required")
	case p.City == "":
		return invalid("city", "is required")
	case p.PostalCode == "":
		return invalid("postal code", "is required")
	}
	return nil
}
