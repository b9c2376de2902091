package station

//go:generate mockgen -destination=../mocks/mock_station_store.go -package=mocks -mock_names=Store=MockStationStore github.com/ovaphlow/pitchfork/service-charging-go/internal/station Store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station/entity"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/utilities"
)

// Store is the persistence contract of the station repository. Get, Update
// and Delete return an error wrapping sql.ErrNoRows for an unknown id.
type Store interface {
	Insert(ctx context.Context, s *entity.Station) error
	Get(ctx context.Context, id string) (*entity.Station, error)
	List(ctx context.Context, f entity.Filter) ([]entity.Station, error)
	Update(ctx context.Context, id string, p entity.Patch) (*entity.Station, error)
	Delete(ctx context.Context, id string) (*entity.Station, error)
}

var (
	errInvalidID = apperr.InvalidIdentifier("Invalid station ID")
	errNotFound  = apperr.NotFound("Charging station not found")
	errNotOwner  = apperr.Forbidden("Only the station owner can modify it")
)

// Service validates station writes and tags them with their owner.
type Service struct {
	store     Store
	ownerOnly bool
	now       func() time.Time
}

type Option func(*Service)

// WithOwnerOnlyMutations restricts update and delete to the creator.
func WithOwnerOnlyMutations(on bool) Option {
	return func(s *Service) { s.ownerOnly = on }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// timestamp is truncated to what timestamptz stores.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CheckID rejects identifiers that cannot name a station: empty, the
// literal "undefined", or not shaped like a KSUID.
func CheckID(id string) error {
	if id == "" || id == "undefined" || !utilities.IsKSUID(id) {
		return errInvalidID
	}
	return nil
}

func storeErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound
	}
	return apperr.Internal(err)
}

// Create validates in and stores it as a new station owned by ownerID.
func (s *Service) Create(ctx context.Context, in Input, ownerID string) (*entity.Station, error) {
	st, err := in.Station()
	if err != nil {
		return nil, err
	}
	now := s.timestamp()
	st.ID = utilities.NewKSUID()
	st.CreatedBy = ownerID
	st.CreatedAt = now
	st.UpdatedAt = now
	if err := s.store.Insert(ctx, &st); err != nil {
		return nil, apperr.Internal(err)
	}
	return &st, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Station, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return st, nil
}

// List returns the stations matching f, newest first.
func (s *Service) List(ctx context.Context, f entity.Filter) ([]entity.Station, error) {
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// Update applies the supplied fields of in to station id. The patch is
// validated before the record is looked up.
func (s *Service) Update(ctx context.Context, id string, in Input, callerID string) (*entity.Station, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	p, err := in.Patch()
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, id, callerID); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.timestamp()
	st, err := s.store.Update(ctx, id, p)
	if err != nil {
		return nil, storeErr(err)
	}
	return st, nil
}

// Delete removes station id and returns its last state.
func (s *Service) Delete(ctx context.Context, id string, callerID string) (*entity.Station, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, id, callerID); err != nil {
		return nil, err
	}
	st, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return st, nil
}

// authorize is a no-op unless owner-only mutations are enabled.
func (s *Service) authorize(ctx context.Context, id, callerID string) error {
	if !s.ownerOnly {
		return nil
	}
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if st.CreatedBy != callerID {
		return errNotOwner
	}
	return nil
}
