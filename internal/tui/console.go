package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coachdesk/internal/domain"
	"github.com/vadiminshakov/coachdesk/internal/forms"
	"github.com/vadiminshakov/coachdesk/internal/notify"
	"github.com/vadiminshakov/coachdesk/internal/resources"
	"github.com/vadiminshakov/coachdesk/internal/selector"
	"github.com/vadiminshakov/coachdesk/internal/slice"
	"github.com/vadiminshakov/coachdesk/pkg/debounce"
)

var (
	errQuit = errors.New("quit")
	// errNoOptions a picker has nothing to offer, e.g. a batch without students.
	errNoOptions = errors.New("no options available")
)

// cashbook fields picked through the cascading selector instead of free text
var cashbookLinks = []string{"category", "locationId", "batchId", "studentId", "directorId"}

// Console runs the interactive session.
type Console struct {
	store     *resources.Store
	changes   *slice.Broadcaster
	feed      *notify.Feed
	debouncer *debounce.Debouncer
	cascade   *selector.Cascade
	picker    *resources.PickerLoader
	out       io.Writer
	logger    *zap.Logger
}

// NewConsole wires the console. changes must be the broadcaster the store publishes to.
func NewConsole(store *resources.Store, changes *slice.Broadcaster, feed *notify.Feed,
	debouncer *debounce.Debouncer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	picker := store.Loader()
	return &Console{
		store:     store,
		changes:   changes,
		feed:      feed,
		debouncer: debouncer,
		cascade:   selector.NewCascade(picker, logger),
		picker:    picker,
		out:       os.Stdout,
		logger:    logger,
	}
}

// Run loops over resource selection and browsing until the user quits.
func (c *Console) Run(ctx context.Context) error {
	for {
		name, err := c.pickResource(ctx)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if name == "" {
			return nil
		}
		h, err := c.store.Handle(name)
		if err != nil {
			return err
		}
		if err := c.browse(ctx, h); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

func (c *Console) pickResource(ctx context.Context) (string, error) {
	var name string
	opts := make([]huh.Option[string], 0, len(c.store.Handles())+1)
	for _, h := range c.store.Handles() {
		opts = append(opts, huh.NewOption(h.Descriptor().Title, h.Descriptor().Name))
	}
	opts = append(opts, huh.NewOption("Quit", ""))

	fmt.Fprint(c.out, "\033[H\033[2J")
	fmt.Fprintln(c.out, Header("coachdesk"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Open").
				Options(opts...).
				Value(&name),
		),
	).RunWithContext(ctx)
	return name, err
}

func (c *Console) browse(ctx context.Context, h resources.Handle) error {
	search := resources.NewSearch(ctx, h, c.debouncer, nil)
	defer search.Close()
	search.Page(1)

	for {
		sub := c.changes.Subscribe()
		model, err := tea.NewProgram(
			NewBrowser(h, search, sub, c.feed),
			tea.WithContext(ctx),
			tea.WithAltScreen(),
		).Run()
		c.changes.Unsubscribe(sub)
		if err != nil {
			return errors.Wrap(err, "browser")
		}

		res := model.(Browser).Result()
		switch res.Action {
		case ActionQuit:
			return errQuit
		case ActionBack:
			return nil
		case ActionAdd, ActionEdit:
			if err := c.edit(ctx, h, res.ID); err != nil {
				return err
			}
		case ActionDelete:
			if err := c.remove(ctx, h, res.ID); err != nil {
				return err
			}
		}
	}
}

func (c *Console) edit(ctx context.Context, h resources.Handle, id string) error {
	form, err := h.Form(id)
	if err != nil {
		fmt.Fprintln(c.out, errStyle.Render(err.Error()))
		return nil
	}
	defer form.Close()

	var skip []string
	if entry, ok := form.Values().(*domain.CashbookEntry); ok {
		if err := c.pickCashbookLinks(ctx, entry); err != nil {
			return c.abandon(err)
		}
		skip = cashbookLinks
	}

	fields, err := BuildFields(form.Values(), skip...)
	if err != nil {
		return err
	}
	for {
		fmt.Fprint(c.out, "\033[H\033[2J")
		fmt.Fprintln(c.out, Header(form.Title()))
		if err := huh.NewForm(fields.Group()).RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if err := fields.Apply(); err != nil {
			fmt.Fprintln(c.out, errStyle.Render(err.Error()))
			continue
		}

		p, err := form.Submit(ctx)
		var fe forms.FieldErrors
		if errors.As(err, &fe) {
			fmt.Fprintln(c.out, FieldErrors(fe))
			if !c.confirm(ctx, "Fix the form?") {
				return nil
			}
			continue
		}
		if err != nil {
			return err
		}
		if err := resources.Wait(ctx, p); err != nil {
			c.logger.Debug("form submit failed", zap.String("resource", h.Descriptor().Name), zap.Error(err))
		}
		return nil
	}
}

func (c *Console) remove(ctx context.Context, h resources.Handle, id string) error {
	if !c.confirm(ctx, fmt.Sprintf("Delete %s %s?", h.Descriptor().Singular, id)) {
		return nil
	}
	if err := resources.Wait(ctx, h.Delete(ctx, id)); err != nil {
		c.logger.Debug("delete failed", zap.String("resource", h.Descriptor().Name), zap.Error(err))
	}
	return nil
}

func (c *Console) confirm(ctx context.Context, title string) bool {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok),
		),
	).RunWithContext(ctx)
	return err == nil && ok
}

// pickCashbookLinks walks the category dependent pickers and copies the choice into entry.
func (c *Console) pickCashbookLinks(ctx context.Context, entry *domain.CashbookEntry) error {
	c.cascade.Open(ctx)
	defer c.cascade.Close()

	category := entry.Category.String()
	if err := c.pick(ctx, "Category", categoryOptions(), &category); err != nil {
		return err
	}
	if err := c.cascade.SetCategory(domain.Category(category)); err != nil {
		return err
	}

	switch domain.Category(category) {
	case domain.CategoryStudentFee:
		locations, err := c.locations(ctx)
		if err != nil {
			return err
		}
		location := entry.LocationID
		if err := c.pick(ctx, "Location", locations, &location); err != nil {
			return err
		}
		if err := c.cascade.SelectLocation(location); err != nil {
			return err
		}

		batch := entry.BatchID
		if err := c.pick(ctx, "Batch", batchOptions(c.cascade.Selection().Batches), &batch); err != nil {
			return err
		}
		if err := c.cascade.SelectBatch(batch); err != nil {
			return err
		}

		student := entry.StudentID
		if err := c.pick(ctx, "Student", studentOptions(c.cascade.Selection().Students), &student); err != nil {
			return err
		}
		if err := c.cascade.SelectStudent(student); err != nil {
			return err
		}
	case domain.CategoryDirectorTransfer:
		director := entry.DirectorID
		if err := c.pick(ctx, "Director", directorOptions(c.cascade.Selection().Directors), &director); err != nil {
			return err
		}
		if err := c.cascade.SelectDirector(director); err != nil {
			return err
		}
	}

	c.cascade.Selection().Apply(entry)
	return nil
}

// abandon ends a dialog that could not proceed. The error is shown and the
// console goes back to the browser; only a cancelled session propagates.
func (c *Console) abandon(err error) error {
	switch {
	case errors.Is(err, huh.ErrUserAborted):
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	c.logger.Debug("dialog abandoned", zap.Error(err))
	fmt.Fprintln(c.out, errStyle.Render(err.Error()))
	return nil
}

func (c *Console) pick(ctx context.Context, title string, opts []huh.Option[string], value *string) error {
	if len(opts) == 0 {
		return errors.Wrapf(errNoOptions, "no %s available", title)
	}
	return huh.NewForm(
		huh.NewGroup(huh.NewSelect[string]().Title(title).Options(opts...).Value(value)),
	).RunWithContext(ctx)
}

func (c *Console) locations(ctx context.Context) ([]huh.Option[string], error) {
	locations, err := c.picker.Locations(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load locations")
	}
	opts := make([]huh.Option[string], 0, len(locations))
	for _, l := range locations {
		opts = append(opts, huh.NewOption(l.Name, l.ID))
	}
	return opts, nil
}

func categoryOptions() []huh.Option[string] {
	return huh.NewOptions(
		domain.CategoryStudentFee.String(),
		domain.CategoryDirectorTransfer.String(),
		domain.CategorySalary.String(),
		domain.CategoryRent.String(),
		domain.CategoryUtilities.String(),
		domain.CategoryMarketing.String(),
		domain.CategoryOther.String(),
	)
}

func batchOptions(batches []domain.Batch) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(batches))
	for _, b := range batches {
		opts = append(opts, huh.NewOption(b.Name, b.ID))
	}
	return opts
}

func studentOptions(students []domain.Student) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(students))
	for _, s := range students {
		opts = append(opts, huh.NewOption(s.Name, s.ID))
	}
	return opts
}

func directorOptions(directors []domain.User) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(directors))
	for _, d := range directors {
		opts = append(opts, huh.NewOption(d.Name, d.ID))
	}
	return opts
}
