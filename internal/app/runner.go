// Package app wires the backend client into the insightpipe command line.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/insightpipe/internal/adapters/http/client"
	"github.com/okian/insightpipe/internal/domain/model"
	"github.com/okian/insightpipe/pkg/logger"
)

// API is the subset of the backend client the commands use.
type API interface {
	HealthCheck(ctx context.Context) (model.Health, error)
	GeneratePromptWithTemplate(ctx context.Context, userInput, template string) (model.PromptResult, error)
	SaveDocument(ctx context.Context, title, content string, opts ...client.SaveOption) (model.SaveResult, error)
	ListDocuments(ctx context.Context) ([]model.DocumentSummary, error)
	GetDocument(ctx context.Context, filename string) (model.Document, error)
	DeleteDocument(ctx context.Context, filename string) (model.DeleteResult, error)
	ImportGemini(ctx context.Context, shareURL string) (model.GeminiImport, error)
}

// DevServer runs until ctx is cancelled.
type DevServer interface {
	Run(ctx context.Context) error
}

// Runner dispatches subcommands.
type Runner struct {
	api    API
	dev    DevServer
	in     io.Reader
	out    io.Writer
	logger logger.Logger
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithInput sets where save reads document content from.
func WithInput(r io.Reader) Option {
	return func(rn *Runner) {
		if r != nil {
			rn.in = r
		}
	}
}

// WithOutput sets where command results are written.
func WithOutput(w io.Writer) Option {
	return func(rn *Runner) {
		if w != nil {
			rn.out = w
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(rn *Runner) {
		if l != nil {
			rn.logger = l
		}
	}
}

// WithDevServer enables the serve command.
func WithDevServer(d DevServer) Option {
	return func(rn *Runner) {
		rn.dev = d
	}
}

// New constructs a Runner around api.
func New(api API, opts ...Option) *Runner {
	r := &Runner{
		api:    api,
		in:     os.Stdin,
		out:    os.Stdout,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type command struct {
	name    string
	summary string
	run     func(r *Runner, ctx context.Context, args []string) error
}

// commands returns the subcommand table.
func commands() []command {
	return []command{
		{"health", "check that the backend is up", (*Runner).health},
		{"prompt", "generate a prompt from a question", (*Runner).prompt},
		{"save", "save a document read from stdin", (*Runner).save},
		{"list", "list saved documents", (*Runner).list},
		{"get", "print a saved document", (*Runner).get},
		{"delete", "delete a saved document", (*Runner).deleteDocument},
		{"import", "import a shared Gemini conversation", (*Runner).importGemini},
		{"serve", "run the web UI development server", (*Runner).serve},
	}
}

// Run executes the subcommand named by args[0].
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		r.usage()
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "-help" || name == "--help" {
		r.usage()
		return nil
	}
	for _, c := range commands() {
		if c.name == name {
			r.logger.Debug(ctx, "running command", logger.String("command", name))
			return c.run(r, ctx, args[1:])
		}
	}
	r.usage()
	return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

func (r *Runner) usage() {
	fmt.Fprintln(r.out, "InsightPipe client")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Usage:")
	fmt.Fprintln(r.out, "  insightpipe <command> [options]")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Commands:")
	for _, c := range commands() {
		fmt.Fprintf(r.out, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Configuration comes from INSIGHTPIPE_* environment variables")
	fmt.Fprintln(r.out, "and the YAML file named by INSIGHTPIPE_CONFIG.")
}
