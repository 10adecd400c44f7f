package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vadiminshakov/coachdesk/config"
	"github.com/vadiminshakov/coachdesk/internal/auth"
	"github.com/vadiminshakov/coachdesk/internal/clients"
	"github.com/vadiminshakov/coachdesk/internal/forms"
	"github.com/vadiminshakov/coachdesk/internal/notify"
	"github.com/vadiminshakov/coachdesk/internal/resources"
	"github.com/vadiminshakov/coachdesk/internal/slice"
	"github.com/vadiminshakov/coachdesk/internal/storage/tokenstore"
	"github.com/vadiminshakov/coachdesk/internal/tui"
	"github.com/vadiminshakov/coachdesk/internal/web"
	"github.com/vadiminshakov/coachdesk/pkg/debounce"
	"github.com/vadiminshakov/coachdesk/pkg/retrier"
)

const (
	feedSize        = 50
	changesBuffer   = 64
	expiryWarning   = 24 * time.Hour
	defaultInitPath = "coachdesk.yaml"
	logFileName     = "coachdesk.log"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	runSetupFunc     = tui.RunSetup      // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	in  io.Reader
	out io.Writer

	cfg    config.Config
	logger *zap.Logger
	tokens *tokenstore.Store
	client *clients.APIClient
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage: coachdesk [global flags] <command> [flags]")
	fmt.Fprintln(cli.out, "Commands:")
	fmt.Fprintln(cli.out, "  resources                         - list the known resources")
	fmt.Fprintln(cli.out, "  list <resource> [-page N] [-limit N] [-search S] [-filter k=v] [-json]")
	fmt.Fprintln(cli.out, "  create <resource> -data JSON      - create a record")
	fmt.Fprintln(cli.out, "  update <resource> <id> -data JSON - update a record, fields not given are kept")
	fmt.Fprintln(cli.out, "  delete <resource> <id>            - delete a record")
	fmt.Fprintln(cli.out, "  login -email EMAIL                - store a token, the password is prompted next")
	fmt.Fprintln(cli.out, "  logout                            - forget the stored token")
	fmt.Fprintln(cli.out, "  whoami                            - show the stored token's user")
	fmt.Fprintln(cli.out, "  tui                               - interactive console")
	fmt.Fprintln(cli.out, "  serve [-addr ADDR]                - local browser dashboard")
	fmt.Fprintln(cli.out, "  init [-path FILE]                 - write a config file interactively")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	cfg, rest, err := config.Get(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		cli.printUsage()
		return errHelp
	}
	cli.cfg = cfg

	cmd, cmdArgs := rest[0], rest[1:]
	if cmd == "init" {
		return cli.initConfig(cmdArgs)
	}

	if err := cli.setup(ctx, cmd); err != nil {
		return err
	}
	defer func() { _ = cli.logger.Sync() }()

	switch cmd {
	case "resources":
		for _, name := range resources.Names() {
			desc, _ := resources.Lookup(name)
			fmt.Fprintf(cli.out, "%-18s %s\n", name, desc.Path)
		}
		return nil
	case "list":
		return cli.list(ctx, cmdArgs)
	case "create":
		return cli.create(ctx, cmdArgs)
	case "update":
		return cli.update(ctx, cmdArgs)
	case "delete":
		return cli.remove(ctx, cmdArgs)
	case "login":
		return cli.login(ctx, cmdArgs)
	case "logout":
		return cli.logout()
	case "whoami":
		return cli.whoami()
	case "tui":
		return cli.console(ctx)
	case "serve":
		return cli.serve(ctx, cmdArgs)
	default:
		cli.printUsage()
		return errHelp
	}
}

// setup builds the logger, token store and API client shared by every command.
func (cli *commandLine) setup(ctx context.Context, cmd string) error {
	tokens, err := tokenstore.New(cli.cfg.TokenPath)
	if err != nil {
		return err
	}

	var output string
	if cmd == "tui" {
		// the console owns the terminal
		output = filepath.Join(filepath.Dir(tokens.Path()), logFileName)
	}
	logger, err := newLogger(cli.cfg, output)
	if err != nil {
		return err
	}
	cli.logger = logger
	cli.tokens = tokens
	cli.warnExpiry(time.Now())

	cli.client = clients.NewAPIClient(cli.cfg.APIURL, tokens, logger, clients.WithTimeout(cli.cfg.RequestTimeout))

	if cli.cfg.WaitReady {
		r := retrier.New(
			retrier.WithMaxRetries(10),
			retrier.WithRetryIf(func(err error) bool { return !errors.Is(err, context.Canceled) }),
			retrier.OnRetry(func(attempt int, err error, wait time.Duration) {
				logger.Debug("backend probe failed", zap.Int("attempt", attempt), zap.Duration("retry_in", wait))
			}),
		)
		if err := cli.client.WaitReady(ctx, r); err != nil {
			return errors.Wrap(err, "backend not ready")
		}
	}
	return nil
}

// newLogger builds the zap logger for the env mode; output replaces stderr when set.
func newLogger(cfg config.Config, output string) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
		}
		zcfg.Level = lvl
	}
	if output != "" {
		zcfg.OutputPaths = []string{output}
		zcfg.ErrorOutputPaths = []string{output}
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}

func (cli *commandLine) warnExpiry(now time.Time) {
	token, err := cli.tokens.Token()
	if err != nil || token == "" {
		return
	}
	claims, err := auth.Inspect(token)
	if err != nil {
		cli.logger.Warn("stored token is unreadable", zap.Error(err))
		return
	}
	left, ok := claims.ExpiresIn(now)
	switch {
	case !ok:
	case left <= 0:
		cli.logger.Warn("stored token has expired, run coachdesk login")
	case left < expiryWarning:
		cli.logger.Warn("stored token expires soon", zap.Duration("in", left.Round(time.Minute)))
	}
}

func (cli *commandLine) newStore(notifier slice.Notifier, changes *slice.Broadcaster) *resources.Store {
	return resources.NewStore(cli.client, resources.StoreConfig{
		PageSize: cli.cfg.PageSize,
		Notifier: notifier,
		Logger:   cli.logger,
		Changes:  changes,
	})
}

// filters collects repeated -filter key=value flags.
type filters slice.Params

func (f filters) String() string {
	return slice.Params(f).Key()
}

func (f filters) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return errors.Errorf("filter %q is not key=value", s)
	}
	f[key] = value
	return nil
}

func (cli *commandLine) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 0, "rows per page, the configured page size when 0")
	search := fs.String("search", "", "search text")
	asJSON := fs.Bool("json", false, "print the raw records as JSON")
	params := filters{}
	fs.Var(params, "filter", "key=value passed to the backend as is, repeatable")

	name, rest, err := resourceArg(fs, args)
	if err != nil {
		return err
	}
	if err := fs.Parse(rest); err != nil {
		return err
	}

	store := cli.newStore(notify.NewConsole(cli.out, cli.logger), nil)
	h, err := store.Handle(name)
	if err != nil {
		return err
	}

	p := slice.Params(params).WithPage(*page).With("search", *search)
	if *limit > 0 {
		p = p.With("limit", strconv.Itoa(*limit))
	}
	if err := resources.Wait(ctx, h.Fetch(ctx, p)); err != nil {
		return err
	}

	view := h.View()
	if *asJSON {
		return printJSON(cli.out, map[string]any{
			"items":      view.Items,
			"pagination": view.Pagination,
			"totals":     view.Totals,
		})
	}
	if cards := tui.Cards(view); cards != "" {
		fmt.Fprintln(cli.out, cards)
	}
	fmt.Fprintln(cli.out, tui.Table(view, -1))
	return nil
}

func (cli *commandLine) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	data := fs.String("data", "", "record fields as a JSON object, - reads stdin")

	name, rest, err := resourceArg(fs, args)
	if err != nil {
		return err
	}
	if err := fs.Parse(rest); err != nil {
		return err
	}

	store := cli.newStore(notify.NewConsole(cli.out, cli.logger), nil)
	h, err := store.Handle(name)
	if err != nil {
		return err
	}
	form, err := h.Form("")
	if err != nil {
		return err
	}
	return cli.submit(ctx, form, *data)
}

func (cli *commandLine) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	data := fs.String("data", "", "changed fields as a JSON object, - reads stdin")

	name, rest, err := resourceArg(fs, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 || strings.HasPrefix(rest[0], "-") {
		fs.Usage()
		return errHelp
	}
	id := rest[0]
	if err := fs.Parse(rest[1:]); err != nil {
		return err
	}

	store := cli.newStore(notify.NewConsole(cli.out, cli.logger), nil)
	h, err := store.Handle(name)
	if err != nil {
		return err
	}
	if err := locate(ctx, h, id); err != nil {
		return err
	}
	form, err := h.Form(id)
	if err != nil {
		return err
	}
	return cli.submit(ctx, form, *data)
}

func (cli *commandLine) submit(ctx context.Context, form resources.Form, data string) error {
	defer form.Close()

	payload, err := cli.payload(data)
	if err != nil {
		return err
	}
	if err := form.Decode(payload); err != nil {
		return err
	}

	p, err := form.Submit(ctx)
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		fmt.Fprintln(cli.out, tui.FieldErrors(fe))
		return errors.New("validation failed")
	}
	if err != nil {
		return err
	}
	if err := resources.Wait(ctx, p); err != nil {
		return err
	}
	return printJSON(cli.out, form.Result())
}

func (cli *commandLine) payload(data string) ([]byte, error) {
	switch data {
	case "":
		return nil, errors.New("-data is required")
	case "-":
		b, err := io.ReadAll(cli.in)
		if err != nil {
			return nil, errors.Wrap(err, "read stdin")
		}
		return b, nil
	default:
		return []byte(data), nil
	}
}

// locate pages through the resource until id is listed; edits only apply to listed records.
func locate(ctx context.Context, h resources.Handle, id string) error {
	for page := 1; ; page++ {
		if err := resources.Wait(ctx, h.Fetch(ctx, h.Params().WithPage(page))); err != nil {
			return err
		}
		view := h.View()
		for _, listed := range view.IDs {
			if listed == id {
				return nil
			}
		}
		// stop on the last page, or when the backend ignores the page param
		p := view.Pagination
		if !p.HasNext() || p.CurrentPage != page || page >= p.TotalPages {
			return errors.Wrapf(slice.ErrNotFound, "%s %s", h.Descriptor().Singular, id)
		}
	}
}

func (cli *commandLine) remove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	name, rest, err := resourceArg(fs, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		fs.Usage()
		return errHelp
	}

	store := cli.newStore(notify.NewConsole(cli.out, cli.logger), nil)
	h, err := store.Handle(name)
	if err != nil {
		return err
	}
	return resources.Wait(ctx, h.Delete(ctx, rest[0]))
}

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	email := fs.String("email", "", "account email. The password will be prompted next.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return errors.Wrap(err, "read password")
	}

	creds := auth.Credentials{Email: *email, Password: string(pwd)}
	if err := forms.NewValidator().Validate(creds); err != nil {
		var fe forms.FieldErrors
		if errors.As(err, &fe) {
			fmt.Fprintln(cli.out, tui.FieldErrors(fe))
		}
		return errors.New("invalid credentials")
	}

	token, err := auth.Login(ctx, cli.client, creds)
	if err != nil {
		if msg, ok := clients.MessageOf(err); ok {
			return errors.New(msg)
		}
		return err
	}
	if err := cli.tokens.Save(token); err != nil {
		return err
	}

	who := *email
	if claims, err := auth.Inspect(token); err == nil && claims.Name != "" {
		who = claims.Name
	}
	fmt.Fprintf(cli.out, "Logged in as %s\n", who)
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.tokens.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Logged out")
	return nil
}

func (cli *commandLine) whoami() error {
	token, err := cli.tokens.Token()
	if err != nil {
		return err
	}
	claims, err := auth.Inspect(token)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "user:  %s\n", claims.Principal())
	if claims.Name != "" {
		fmt.Fprintf(cli.out, "name:  %s\n", claims.Name)
	}
	if claims.Email != "" {
		fmt.Fprintf(cli.out, "email: %s\n", claims.Email)
	}
	if claims.Role != "" {
		fmt.Fprintf(cli.out, "role:  %s\n", claims.Role)
	}
	if claims.ExpiresAt != nil {
		state := "valid"
		if claims.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(cli.out, "until: %s (%s)\n", claims.ExpiresAt.Time.Local().Format(time.RFC1123), state)
	}
	return nil
}

func (cli *commandLine) console(ctx context.Context) error {
	feed := notify.NewFeed(feedSize)
	changes := slice.NewBroadcaster(changesBuffer)
	store := cli.newStore(feed, changes)

	debouncer := debounce.New(cli.cfg.SearchDebounce)
	defer debouncer.Stop()

	return tui.NewConsole(store, changes, feed, debouncer, cli.logger).Run(ctx)
}

func (cli *commandLine) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	addr := fs.String("addr", cli.cfg.DashboardAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	feed := notify.NewFeed(feedSize)
	changes := slice.NewBroadcaster(changesBuffer)
	store := cli.newStore(notify.Multi{notify.NewConsole(cli.out, cli.logger), feed}, changes)

	srv, err := web.NewServer(*addr, store, changes, feed, cli.logger)
	if err != nil {
		return err
	}
	if len(cli.cfg.TLSDomains) > 0 {
		return srv.StartWithAutoTLS(ctx, cli.cfg.TLSDomains, cli.cfg.CertCacheDir)
	}
	return srv.Start(ctx)
}

func (cli *commandLine) initConfig(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	path := fs.String("path", defaultInitPath, "config file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := runSetupFunc(*path); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Config written to %s, run coachdesk -config %s tui\n", *path, *path)
	return nil
}

// resourceArg splits the leading resource name off args.
func resourceArg(fs *flag.FlagSet, args []string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fs.Usage()
		return "", nil, errHelp
	}
	if _, ok := resources.Lookup(args[0]); !ok {
		return "", nil, errors.Wrapf(resources.ErrUnknownResource, "%q (known: %s)", args[0], strings.Join(resources.Names(), ", "))
	}
	return args[0], args[1:], nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
