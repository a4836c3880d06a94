package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/insightpipe/internal/adapters/http/client"
	"github.com/okian/insightpipe/internal/domain/model"
	"github.com/okian/insightpipe/pkg/logger"
)

// contentTerminator ends interactive input for save, matching the shell
// heredoc habit.
const contentTerminator = "EOF"

const maxContentLine = 1 << 20

const listTimeLayout = "2006-01-02 15:04"

// defaultImportInterval spaces out imports of several share links.
const defaultImportInterval = time.Second

// parseFlags parses args with fs. -h prints the flag defaults and returns
// flag.ErrHelp unwrapped so callers can treat it as success.
func (r *Runner) parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(r.out)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return nil
}

func helpOrErr(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func (r *Runner) health(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	if err := r.parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	h, err := r.api.HealthCheck(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "backend %s (version %s)\n", h.Status, h.Version)
	return nil
}

func (r *Runner) prompt(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prompt", flag.ContinueOnError)
	template := fs.String("template", "", "template name on the backend (default: backend's base template)")
	if err := r.parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("%w: prompt \"Your question here\"", ErrUsage)
	}

	res, err := r.api.GeneratePromptWithTemplate(ctx, question, *template)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, res.Prompt)
	return nil
}

func (r *Runner) save(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	title := fs.String("title", "", "document title (required)")
	overwrite := fs.Bool("overwrite", true, "replace an existing document with the same title")
	if err := r.parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if *title == "" && fs.NArg() > 0 {
		*title = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(*title) == "" {
		return fmt.Errorf("%w: save -title \"Topic Name\" < content.md", ErrUsage)
	}

	content, err := readContent(r.in)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	res, err := r.api.SaveDocument(ctx, *title, content, client.WithOverwrite(*overwrite))
	if err != nil {
		return err
	}
	r.logger.Info(ctx, "document saved", logger.String("title", *title), logger.String("path", res.Path))
	fmt.Fprintf(r.out, "saved: %s\n", res.Path)
	return nil
}

// readContent reads lines until EOF or a line that is exactly "EOF".
func readContent(in io.Reader) (string, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxContentLine)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == contentTerminator {
			break
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Runner) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := r.parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}

	docs, err := r.api.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(r.out, "no documents")
		return nil
	}

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILENAME\tTITLE\tMODIFIED\tSIZE")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", d.Filename, d.Title, createdColumn(d), d.Size)
	}
	return tw.Flush()
}

// createdColumn shortens the timestamp to minutes, or shows it unchanged
// when the backend sent something else.
func createdColumn(d model.DocumentSummary) string {
	ts, err := d.CreatedTime()
	if err != nil {
		return d.CreatedAt
	}
	return ts.Format(listTimeLayout)
}

func (r *Runner) get(ctx context.Context, args []string) error {
	filename, err := r.singleArg("get", "get <filename>", args)
	if err != nil {
		return helpOrErr(err)
	}

	doc, err := r.api.GetDocument(ctx, filename)
	if err != nil {
		return err
	}
	fmt.Fprint(r.out, doc.Content)
	if !strings.HasSuffix(doc.Content, "\n") {
		fmt.Fprintln(r.out)
	}
	return nil
}

func (r *Runner) deleteDocument(ctx context.Context, args []string) error {
	filename, err := r.singleArg("delete", "delete <filename>", args)
	if err != nil {
		return helpOrErr(err)
	}

	res, err := r.api.DeleteDocument(ctx, filename)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, res.Message)
	return nil
}

func (r *Runner) singleArg(name, usage string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if err := r.parseFlags(fs, args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 || fs.Arg(0) == "" {
		return "", fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	return fs.Arg(0), nil
}

func (r *Runner) importGemini(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	save := fs.Bool("save", false, "store the converted markdown under the suggested filename")
	showPrompt := fs.Bool("prompt", false, "print the suggested analysis prompt")
	interval := fs.Duration("interval", defaultImportInterval, "minimum delay between imports when several links are given")
	if err := r.parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: import [-save] [-prompt] [-interval 1s] <share url>...", ErrUsage)
	}
	links := fs.Args()
	for _, link := range links {
		if _, ok := model.ShareID(link); !ok {
			return fmt.Errorf("%w: %s", ErrInvalidShareURL, link)
		}
	}

	limit := rate.Inf
	if *interval > 0 {
		limit = rate.Every(*interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	var errs []error
	for _, link := range links {
		if err := limiter.Wait(ctx); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := r.importOne(ctx, link, *save, *showPrompt); err != nil {
			if len(links) == 1 {
				return err
			}
			r.logger.Warn(ctx, "import failed", logger.String("url", link), logger.Error(err))
			fmt.Fprintf(r.out, "failed %s: %v\n", link, err)
			errs = append(errs, fmt.Errorf("%s: %w", link, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) importOne(ctx context.Context, link string, save, showPrompt bool) error {
	res, err := r.api.ImportGemini(ctx, link)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "imported %q: %d turns -> %s\n", res.Title, res.TurnCount, res.Filename)
	if showPrompt {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, res.Prompt)
	}
	if !save {
		return nil
	}

	saved, err := r.api.SaveDocument(ctx, strings.TrimSuffix(res.Filename, ".md"), res.Markdown)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "saved: %s\n", saved.Path)
	return nil
}

func (r *Runner) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	if err := r.parseFlags(fs, args); err != nil {
		return helpOrErr(err)
	}
	if r.dev == nil {
		return ErrNoDevServer
	}
	return r.dev.Run(ctx)
}
