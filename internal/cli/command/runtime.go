package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/yndnr/wazuh-cli-go/internal/cli/config"
	"github.com/yndnr/wazuh-cli-go/internal/cli/connection"
	"github.com/yndnr/wazuh-cli-go/internal/cli/output"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/core/service"
	"github.com/yndnr/wazuh-cli-go/internal/infra/shutdown"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/logger"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/metric"
)

// Runtime is the state shared by every command of one process: the
// configuration, output, metrics and, once a command needs the API, one
// transport and one session. The interactive shell reuses it for every
// line.
type Runtime struct {
	Config     *config.CLIConfig
	ConfigPath string
	// ConfigErr is set when the configuration could not be loaded. Config
	// then holds the defaults; commands that need the API fail with it.
	ConfigErr error

	Printer  *output.Printer
	Log      logger.Logger
	Metrics  *metric.Registry
	Shutdown *shutdown.Handler

	overrides map[string]any
	stdin     io.Reader
	stdinR    *bufio.Reader

	mu          sync.Mutex
	svc         *Services
	interactive bool
	readLine    func(ctx context.Context, prompt string) (string, error)
}

// Services are the API clients, built on first use.
type Services struct {
	Transport *connection.HTTPTransport
	Session   *connection.SessionManager
	Agents    *service.Agents
	Manager   *service.Manager
	Batch     *service.Batch
}

type runtimeOptions struct {
	configPath  string
	overrides   map[string]any
	metricsFile string
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	log         logger.Logger
}

func newRuntime(opts runtimeOptions) *Runtime {
	path := opts.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path, opts.overrides)
	if err != nil {
		cfg = config.Default()
	}

	format, ferr := output.ParseFormat(cfg.Output.Format)
	if ferr != nil {
		format = output.FormatTable
	}

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: path,
		ConfigErr:  err,
		Printer:    output.NewPrinter(opts.stdout, opts.stderr, format, cfg.Output.Color),
		Log:        opts.log,
		Metrics:    metric.NewRegistry(),
		Shutdown:   shutdown.NewHandler(shutdown.DefaultTimeout),
		overrides:  opts.overrides,
		stdin:      opts.stdin,
	}
	if rt.Log == nil {
		rt.Log = logger.Discard()
	}
	if rt.stdin == nil {
		rt.stdin = os.Stdin
	}

	if opts.metricsFile != "" {
		file := opts.metricsFile
		rt.Shutdown.OnShutdown(func(context.Context) error {
			return rt.Metrics.WriteTextfile(file)
		})
	}
	return rt
}

// Services returns the API clients, building them on the first call. A
// missing password is prompted for when stdin is a terminal. A failed
// build is not cached, so the interactive shell can retry.
func (rt *Runtime) Services() (*Services, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.svc != nil {
		return rt.svc, nil
	}
	if rt.ConfigErr != nil {
		return nil, rt.ConfigErr
	}

	cred := rt.Config.Credential()
	if cred.Password == "" && cred.Username != "" {
		password, err := rt.promptPassword(cred.Username)
		if err != nil {
			return nil, err
		}
		cred.Password = password
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	transport, err := connection.NewHTTPTransport(cred,
		connection.WithRetryPolicy(rt.Config.RetryPolicy()),
		connection.WithTimeout(rt.Config.API.Timeout),
		connection.WithMetrics(rt.Metrics),
		connection.WithLogger(logger.Slog(rt.Log)),
	)
	if err != nil {
		return nil, err
	}

	auth := connection.NewPasswordAuthenticator(transport, cred, rt.Config.Auth.TokenLifetime)
	session := connection.NewSessionManager(auth,
		connection.WithSessionConfig(rt.Config.SessionConfig()),
		connection.WithSessionMetrics(rt.Metrics),
		connection.WithUsername(cred.Username),
	)
	if err := rt.Metrics.Register(metric.NewCollector(session)); err != nil {
		rt.Log.Debug("session collector not registered", "error", err)
	}

	d := service.NewDispatcher(session, transport)
	rt.svc = &Services{
		Transport: transport,
		Session:   session,
		Agents:    service.NewAgents(d),
		Manager:   service.NewManager(d),
		Batch:     service.NewBatch(rt.Config.BatchOptions(), rt.Metrics),
	}
	rt.Shutdown.OnShutdown(func(context.Context) error {
		transport.Close()
		return nil
	})

	rt.Log.Debug("api client ready", "url", transport.BaseURL(), "user", cred.Username)
	return rt.svc, nil
}

// Close runs the shutdown hooks.
func (rt *Runtime) Close() error {
	return rt.Shutdown.Run()
}

// Interactive reports whether the interactive shell is running.
func (rt *Runtime) Interactive() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.interactive
}

func (rt *Runtime) setInteractive(on bool, readLine func(context.Context, string) (string, error)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.interactive = on
	rt.readLine = readLine
}

// promptPassword reads a password without echo. It fails with a
// validation error when stdin is not a terminal.
func (rt *Runtime) promptPassword(username string) (string, error) {
	f, ok := rt.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", domain.Validationf("password required: set auth.password, WAZUH_PASSWORD or --password")
	}

	fmt.Fprintf(rt.Printer.ErrOut(), "Password for %s: ", username)
	data, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(rt.Printer.ErrOut())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(data) == 0 {
		return "", domain.Validationf("password required")
	}
	return string(data), nil
}

// confirm asks a yes/no question. Anything but y or yes, including end of
// input, is a no.
func (rt *Runtime) confirm(ctx context.Context, question string) (bool, error) {
	prompt := question + " [y/N]: "

	rt.mu.Lock()
	readLine := rt.readLine
	rt.mu.Unlock()

	var (
		answer string
		err    error
	)
	if readLine != nil {
		answer, err = readLine(ctx, prompt)
	} else {
		fmt.Fprint(rt.Printer.ErrOut(), prompt)
		if rt.stdinR == nil {
			rt.stdinR = bufio.NewReader(rt.stdin)
		}
		answer, err = rt.stdinR.ReadString('\n')
		if err == io.EOF && answer != "" {
			err = nil
		}
	}
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
