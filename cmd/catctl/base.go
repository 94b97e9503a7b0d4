package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mitchellh/cli"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/matteocacciola/cheshirecat-go-sdk/client"
	kitlogrus "github.com/matteocacciola/cheshirecat-go-sdk/log/logrus"
	"github.com/matteocacciola/cheshirecat-go-sdk/metrics/generic"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// base holds the flags shared by every command.
type base struct {
	ui    cli.Ui
	flags *flag.FlagSet

	flagConfig    string
	flagAgent     string
	flagUser      string
	flagLogLevel  string
	flagLogFormat string
	flagStats     bool

	// stderr receives the logs.
	stderr  io.Writer
	metrics generic.Instrumentation
}

func newBase(ui cli.Ui, name string) *base {
	b := &base{ui: ui, stderr: os.Stderr, metrics: generic.NewInstrumentation()}
	b.flags = flag.NewFlagSet(name, flag.ContinueOnError)
	b.flags.SetOutput(io.Discard)
	b.flags.StringVar(&b.flagConfig, "config", "", "[CCAT_*] YAML configuration file")
	b.flags.StringVar(&b.flagAgent, "agent", "", "agent to act as, overrides agent_id")
	b.flags.StringVar(&b.flagUser, "user", "", "user to act as, overrides user_id")
	b.flags.StringVar(&b.flagLogLevel, "log-level", "warn", "debug, info, warn or error")
	b.flags.StringVar(&b.flagLogFormat, "log-format", "logfmt", "logfmt, or json through logrus")
	b.flags.BoolVar(&b.flagStats, "stats", false, "print request statistics when done")
	return b
}

// parse parses args and returns the positional arguments left.
func (b *base) parse(args []string) ([]string, bool) {
	if err := b.flags.Parse(args); err != nil {
		b.ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return nil, false
	}
	return b.flags.Args(), true
}

// help renders usage followed by the flag defaults.
func (b *base) help(usage string) string {
	var buf bytes.Buffer
	b.flags.SetOutput(&buf)
	b.flags.PrintDefaults()
	b.flags.SetOutput(io.Discard)
	return strings.TrimSpace(usage) + "\n\nOptions:\n\n" + buf.String()
}

func (b *base) logger() (log.Logger, error) {
	var opt level.Option
	switch strings.ToLower(b.flagLogLevel) {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		return nil, errors.Errorf("unknown log level %q", b.flagLogLevel)
	}
	var logger log.Logger
	switch strings.ToLower(b.flagLogFormat) {
	case "logfmt":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(b.stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	case "json":
		// Levels are filtered below; logrus lets everything through.
		l := logrus.New()
		l.Out = b.stderr
		l.Formatter = &logrus.JSONFormatter{}
		l.Level = logrus.DebugLevel
		logger = kitlogrus.NewLogger(l)
	default:
		return nil, errors.Errorf("unknown log format %q", b.flagLogFormat)
	}
	return level.NewFilter(logger, opt), nil
}

// client loads the configuration and builds a Client from it.
func (b *base) client() (*client.Client, error) {
	logger, err := b.logger()
	if err != nil {
		return nil, err
	}
	cfg, err := client.LoadConfig(b.flagConfig)
	if err != nil {
		return nil, err
	}
	level.Debug(logger).Log("base_url", cfg.BaseURL, "agent_id", cfg.AgentID)
	return client.New(cfg,
		client.WithLogger(logger),
		client.WithInstrumentation(b.metrics.Requests, b.metrics.Duration),
	)
}

// report prints the request statistics when -stats is set.
func (b *base) report() {
	if !b.flagStats {
		return
	}
	d := b.metrics.Duration
	b.ui.Info(fmt.Sprintf("requests: %.0f, p50: %s, p99: %s",
		b.metrics.Requests.Total(), seconds(d.Overall(0.5)), seconds(d.Overall(0.99))))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Microsecond)
}

func (b *base) scope() transport.Scope {
	return transport.Scope{AgentID: b.flagAgent, UserID: b.flagUser}
}

// fail reports err and returns the exit code of a failed command.
func (b *base) fail(err error) int {
	b.ui.Error(err.Error())
	return 1
}
