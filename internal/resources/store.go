package resources

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/coachdesk/internal/domain"
	"github.com/vadiminshakov/coachdesk/internal/forms"
	"github.com/vadiminshakov/coachdesk/internal/selector"
	"github.com/vadiminshakov/coachdesk/internal/slice"
)

// ErrUnknownResource no resource is registered under the name.
var ErrUnknownResource = errors.New("unknown resource")

const refreshParallelism = 4

// StoreConfig configures NewStore.
type StoreConfig struct {
	PageSize  int
	Notifier  slice.Notifier
	Logger    *zap.Logger
	Changes   *slice.Broadcaster
	Validator *forms.Validator
}

// Store owns one slice per backend collection.
type Store struct {
	Locations        *slice.Slice[domain.Location]
	Courses          *slice.Slice[domain.Course]
	Batches          *slice.Slice[domain.Batch]
	Students         *slice.Slice[domain.Student]
	BankAccounts     *slice.Slice[domain.BankAccount]
	BankTransactions *slice.Slice[domain.BankTransaction]
	Fees             *slice.Slice[domain.Fee]
	Payments         *slice.Slice[domain.Payment]
	Cashbook         *slice.Slice[domain.CashbookEntry]
	DirectorLedger   *slice.Slice[domain.DirectorLedgerEntry]
	Users            *slice.Slice[domain.User]
	Reports          *slice.Slice[domain.Report]

	cfg     StoreConfig
	req     Requester
	handles map[string]Handle
	logger  *zap.Logger
}

// NewStore wires every resource to req.
func NewStore(req Requester, cfg StoreConfig) *Store {
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Validator == nil {
		cfg.Validator = forms.NewValidator()
	}
	s := &Store{cfg: cfg, req: req, handles: make(map[string]Handle), logger: cfg.Logger}

	s.Locations = register(s, Locations, func() domain.Location {
		return domain.Location{Status: domain.StatusActive}
	})
	s.Courses = register(s, Courses, func() domain.Course {
		return domain.Course{DurationMonths: 1, Status: domain.StatusActive}
	})
	s.Batches = register(s, Batches, func() domain.Batch {
		return domain.Batch{StartDate: domain.Today(), Capacity: 30, Status: domain.StatusActive}
	})
	s.Students = register(s, Students, func() domain.Student {
		return domain.Student{AdmissionDate: domain.Today(), Status: domain.StatusActive}
	})
	s.BankAccounts = register(s, BankAccounts, func() domain.BankAccount {
		return domain.BankAccount{IsActive: true}
	})
	s.BankTransactions = register(s, BankTransactions, func() domain.BankTransaction {
		return domain.BankTransaction{Type: domain.EntryCredit, Date: domain.Today()}
	})
	s.Fees = register(s, Fees, func() domain.Fee {
		return domain.Fee{DueDate: domain.Today(), Status: domain.FeePending}
	})
	s.Payments = register(s, Payments, func() domain.Payment {
		return domain.Payment{Method: domain.PaymentCash, PaidAt: domain.Today()}
	})
	s.Cashbook = register(s, Cashbook, func() domain.CashbookEntry {
		return domain.CashbookEntry{
			Date:        domain.Today(),
			Type:        domain.EntryIncome,
			Category:    domain.CategoryOther,
			PaymentMode: domain.PaymentCash,
		}
	})
	s.DirectorLedger = register(s, DirectorLedger, func() domain.DirectorLedgerEntry {
		return domain.DirectorLedgerEntry{Date: domain.Today(), Type: domain.EntryCredit}
	})
	s.Users = register(s, Users, func() domain.User {
		return domain.User{Role: domain.RoleStaff, IsActive: true}
	})
	s.Reports = register[domain.Report](s, Reports, nil)

	return s
}

func register[T Record](s *Store, name string, defaults func() T) *slice.Slice[T] {
	desc := descriptors[name]
	var gw slice.Gateway[T] = NewRESTGateway[T](desc, s.req)
	if desc.ReadOnly {
		gw = readOnly[T]{NewRESTGateway[T](desc, s.req)}
	}

	opts := desc.sliceOptions()
	opts.Notifier = s.cfg.Notifier
	opts.Logger = s.logger.With(zap.String("resource", name))
	opts.Changes = s.cfg.Changes
	sl := slice.New[T](gw, opts)

	s.handles[name] = &handle[T]{
		desc:      desc,
		s:         sl,
		validator: s.cfg.Validator,
		defaults:  defaults,
		pageSize:  s.cfg.PageSize,
	}
	return sl
}

// Handle returns the named resource.
func (s *Store) Handle(name string) (Handle, error) {
	h, ok := s.handles[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownResource, name)
	}
	return h, nil
}

// Handles returns every resource ordered by name.
func (s *Store) Handles() []Handle {
	out := make([]Handle, 0, len(s.handles))
	for _, h := range s.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Descriptor().Name < out[j].Descriptor().Name })
	return out
}

// Refresh re-fetches the named resources, or all of them, with their last params.
// Each slice settles on its own; the first error is returned after all finished.
func (s *Store) Refresh(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = Names()
	}
	handles := make([]Handle, 0, len(names))
	for _, name := range names {
		h, err := s.Handle(name)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}

	var g errgroup.Group
	g.SetLimit(refreshParallelism)
	for _, h := range handles {
		g.Go(func() error {
			if err := Wait(ctx, h.Fetch(ctx, h.Params())); err != nil {
				return errors.Wrapf(err, "refresh %s", h.Descriptor().Name)
			}
			return nil
		})
	}
	return g.Wait()
}

// Loader returns the option source of the pickers.
func (s *Store) Loader() *PickerLoader {
	return &PickerLoader{
		locations: NewRESTGateway[domain.Location](descriptors[Locations], s.req),
		batches:   NewRESTGateway[domain.Batch](descriptors[Batches], s.req),
		students:  NewRESTGateway[domain.Student](descriptors[Students], s.req),
		users:     NewRESTGateway[domain.User](descriptors[Users], s.req),
	}
}

// pickerLimit caps option lists of the selector.
const pickerLimit = "100"

// PickerLoader lists active options straight from the gateways so pickers do not
// disturb the page shown in the resource tables. It satisfies selector.Loader.
type PickerLoader struct {
	locations *RESTGateway[domain.Location]
	batches   *RESTGateway[domain.Batch]
	students  *RESTGateway[domain.Student]
	users     *RESTGateway[domain.User]
}

var _ selector.Loader = (*PickerLoader)(nil)

func (l *PickerLoader) Locations(ctx context.Context) ([]domain.Location, error) {
	page, err := l.locations.List(ctx, slice.Params{
		"status": domain.StatusActive.String(),
		"limit":  pickerLimit,
	})
	return page.Items, err
}

func (l *PickerLoader) Batches(ctx context.Context, locationID string) ([]domain.Batch, error) {
	page, err := l.batches.List(ctx, slice.Params{
		"locationId": locationID,
		"status":     domain.StatusActive.String(),
		"limit":      pickerLimit,
	})
	return page.Items, err
}

func (l *PickerLoader) Students(ctx context.Context, batchID string) ([]domain.Student, error) {
	page, err := l.students.List(ctx, slice.Params{
		"batchId": batchID,
		"status":  domain.StatusActive.String(),
		"limit":   pickerLimit,
	})
	return page.Items, err
}

func (l *PickerLoader) Directors(ctx context.Context) ([]domain.User, error) {
	page, err := l.users.List(ctx, slice.Params{
		"role":  domain.RoleDirector.String(),
		"limit": pickerLimit,
	})
	return page.Items, err
}
