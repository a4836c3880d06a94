package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/insightpipe/internal/adapters/http/client"
	"github.com/okian/insightpipe/internal/app"
	"github.com/okian/insightpipe/pkg/metrics"
)

// backend is an in-memory stand-in for the insights server.
type backend struct {
	mu    sync.Mutex
	docs  map[string]string
	saves []map[string]any
}

func newBackend() *backend {
	return &backend{docs: map[string]string{"Existing.md": "# Existing\n\nbody"}}
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "version": "1.0.0"})
	})
	mux.HandleFunc("POST /api/prompt/generate", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := "PROMPT[" + req["template_name"] + "]: " + req["user_input"]
		writeJSON(w, http.StatusOK, map[string]any{"prompt": prompt})
	})
	mux.HandleFunc("POST /api/docs/save", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.saves = append(b.saves, req)
		name := req["title"].(string) + ".md"
		if _, ok := b.docs[name]; ok && req["overwrite"] == false {
			writeJSON(w, http.StatusConflict, map[string]any{"detail": "File already exists"})
			return
		}
		b.docs[name] = req["content"].(string)
		writeJSON(w, http.StatusOK, map[string]any{"message": "Saved", "path": "data/" + name})
	})
	mux.HandleFunc("GET /api/docs", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"filename": "Existing.md", "title": "Existing", "created_at": "2024-05-01 13:45:00", "size": 17},
			{"filename": "Legacy.md", "title": "Legacy", "created_at": "unknown", "size": 3},
		})
	})
	mux.HandleFunc("GET /api/docs/{name}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		content, ok := b.docs[r.PathValue("name")]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "File not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"filename": r.PathValue("name"), "content": content})
	})
	mux.HandleFunc("DELETE /api/docs/{name}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Deleted " + r.PathValue("name")})
	})
	mux.HandleFunc("POST /api/import/gemini", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"title":      "Trip planning",
			"markdown":   "# Trip planning\n\n**User:** hi",
			"prompt":     "Analyze this conversation",
			"filename":   "Gemini_Trip planning.md",
			"turn_count": 4,
		})
	})
	return mux
}

func (b *backend) lastSave() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.saves) == 0 {
		return nil
	}
	return b.saves[len(b.saves)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type fakeDev struct {
	ran bool
	err error
}

func (f *fakeDev) Run(context.Context) error {
	f.ran = true
	return f.err
}

type harness struct {
	backend *backend
	out     *bytes.Buffer
	runner  *app.Runner
}

func newHarness(t *testing.T, in io.Reader, opts ...app.Option) *harness {
	b := newBackend()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL+"/api",
		client.WithHTTPClient(srv.Client()),
		client.WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))),
	)
	So(err, ShouldBeNil)

	out := &bytes.Buffer{}
	base := []app.Option{app.WithOutput(out), app.WithInput(in)}
	return &harness{
		backend: b,
		out:     out,
		runner:  app.New(c, append(base, opts...)...),
	}
}

func TestRunDispatch(t *testing.T) {
	Convey("Given a runner", t, func() {
		h := newHarness(t, strings.NewReader(""))
		ctx := context.Background()

		Convey("When no command is given", func() {
			err := h.runner.Run(ctx, nil)

			Convey("Then usage should be printed and reported", func() {
				So(errors.Is(err, app.ErrUsage), ShouldBeTrue)
				So(h.out.String(), ShouldContainSubstring, "Commands:")
			})
		})

		Convey("When help is requested", func() {
			err := h.runner.Run(ctx, []string{"help"})

			Convey("Then every command should be listed", func() {
				So(err, ShouldBeNil)
				for _, name := range []string{"health", "prompt", "save", "list", "get", "delete", "import", "serve"} {
					So(h.out.String(), ShouldContainSubstring, "  "+name)
				}
			})
		})

		Convey("When the command is unknown", func() {
			err := h.runner.Run(ctx, []string{"frobnicate"})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, app.ErrUnknownCommand), ShouldBeTrue)
			})
		})

		Convey("When a flag is not recognised", func() {
			err := h.runner.Run(ctx, []string{"list", "-bogus"})

			Convey("Then it should be a usage error", func() {
				So(errors.Is(err, app.ErrUsage), ShouldBeTrue)
			})
		})

		Convey("When a command's help flag is used", func() {
			err := h.runner.Run(ctx, []string{"save", "-h"})

			Convey("Then the flags should be printed without error", func() {
				So(err, ShouldBeNil)
				So(h.out.String(), ShouldContainSubstring, "overwrite")
			})
		})
	})
}

func TestReadCommands(t *testing.T) {
	Convey("Given a runner against a populated backend", t, func() {
		h := newHarness(t, strings.NewReader(""))
		ctx := context.Background()

		Convey("When checking health", func() {
			So(h.runner.Run(ctx, []string{"health"}), ShouldBeNil)

			Convey("Then status and version should be printed", func() {
				So(h.out.String(), ShouldEqual, "backend healthy (version 1.0.0)\n")
			})
		})

		Convey("When generating a prompt from several words", func() {
			So(h.runner.Run(ctx, []string{"prompt", "-template", "deep", "why", "is", "the", "sky", "blue?"}), ShouldBeNil)

			Convey("Then the words should be joined into one question", func() {
				So(h.out.String(), ShouldEqual, "PROMPT[deep]: why is the sky blue?\n")
			})
		})

		Convey("When generating a prompt without a question", func() {
			err := h.runner.Run(ctx, []string{"prompt"})

			Convey("Then it should be a usage error", func() {
				So(errors.Is(err, app.ErrUsage), ShouldBeTrue)
			})
		})

		Convey("When listing documents", func() {
			So(h.runner.Run(ctx, []string{"list"}), ShouldBeNil)

			Convey("Then a table should be printed", func() {
				lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
				So(lines, ShouldHaveLength, 3)
				So(lines[0], ShouldStartWith, "FILENAME")
				So(lines[1], ShouldContainSubstring, "Existing.md")
				So(lines[1], ShouldContainSubstring, "2024-05-01 13:45 ")
				So(lines[1], ShouldNotContainSubstring, "13:45:00")
				So(lines[2], ShouldContainSubstring, "unknown")
			})
		})

		Convey("When getting a document", func() {
			So(h.runner.Run(ctx, []string{"get", "Existing.md"}), ShouldBeNil)

			Convey("Then its content should be printed with a trailing newline", func() {
				So(h.out.String(), ShouldEqual, "# Existing\n\nbody\n")
			})
		})

		Convey("When getting a missing document", func() {
			err := h.runner.Run(ctx, []string{"get", "Nope.md"})

			Convey("Then the fixed failure message should surface", func() {
				So(errors.Is(err, client.ErrStatus), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Failed to load document")
			})
		})

		Convey("When get has no filename", func() {
			err := h.runner.Run(ctx, []string{"get"})

			Convey("Then it should be a usage error", func() {
				So(errors.Is(err, app.ErrUsage), ShouldBeTrue)
			})
		})

		Convey("When deleting a document", func() {
			So(h.runner.Run(ctx, []string{"delete", "Existing.md"}), ShouldBeNil)

			Convey("Then the backend message should be printed", func() {
				So(h.out.String(), ShouldEqual, "Deleted Existing.md\n")
			})
		})
	})
}

func TestSaveCommand(t *testing.T) {
	Convey("Given content on stdin terminated by EOF", t, func() {
		h := newHarness(t, strings.NewReader("# Notes\nline two\nEOF\nignored\n"))
		ctx := context.Background()

		Convey("When saving with a title", func() {
			So(h.runner.Run(ctx, []string{"save", "-title", "Notes"}), ShouldBeNil)

			Convey("Then content before the terminator should be sent with overwrite", func() {
				req := h.backend.lastSave()
				So(req["title"], ShouldEqual, "Notes")
				So(req["content"], ShouldEqual, "# Notes\nline two")
				So(req["overwrite"], ShouldEqual, true)
				So(h.out.String(), ShouldEqual, "saved: data/Notes.md\n")
			})
		})
	})

	Convey("Given a document that already exists", t, func() {
		h := newHarness(t, strings.NewReader("new body\n"))

		Convey("When saving without overwrite", func() {
			err := h.runner.Run(context.Background(), []string{"save", "-title", "Existing", "-overwrite=false"})

			Convey("Then the backend detail should surface", func() {
				So(errors.Is(err, client.ErrStatus), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "File already exists")
				So(h.backend.lastSave()["overwrite"], ShouldEqual, false)
			})
		})
	})

	Convey("Given empty input", t, func() {
		h := newHarness(t, strings.NewReader("  \nEOF\n"))

		Convey("When saving", func() {
			err := h.runner.Run(context.Background(), []string{"save", "-title", "Blank"})

			Convey("Then nothing should be sent", func() {
				So(errors.Is(err, app.ErrEmptyContent), ShouldBeTrue)
				So(h.backend.lastSave(), ShouldBeNil)
			})
		})
	})

	Convey("Given no title", t, func() {
		h := newHarness(t, strings.NewReader("body"))

		Convey("When saving", func() {
			err := h.runner.Run(context.Background(), []string{"save"})

			Convey("Then it should be a usage error", func() {
				So(errors.Is(err, app.ErrUsage), ShouldBeTrue)
			})
		})
	})
}

func TestImportCommand(t *testing.T) {
	Convey("Given a runner", t, func() {
		h := newHarness(t, strings.NewReader(""))
		ctx := context.Background()

		Convey("When the link is not a share link", func() {
			err := h.runner.Run(ctx, []string{"import", "https://gemini.google.com/app/123"})

			Convey("Then it should be rejected locally", func() {
				So(errors.Is(err, app.ErrInvalidShareURL), ShouldBeTrue)
			})
		})

		Convey("When importing and saving", func() {
			err := h.runner.Run(ctx, []string{"import", "-save", "-prompt", "https://gemini.google.com/share/abc123"})

			Convey("Then a summary, the prompt and the save path should be printed", func() {
				So(err, ShouldBeNil)
				out := h.out.String()
				So(out, ShouldContainSubstring, `imported "Trip planning": 4 turns -> Gemini_Trip planning.md`)
				So(out, ShouldContainSubstring, "Analyze this conversation")
				So(out, ShouldContainSubstring, "saved: data/Gemini_Trip planning.md")
				So(h.backend.lastSave()["title"], ShouldEqual, "Gemini_Trip planning")
			})
		})

		Convey("When importing several links", func() {
			err := h.runner.Run(ctx, []string{"import", "-interval", "10ms",
				"https://gemini.google.com/share/one", "https://gemini.google.com/share/two"})

			Convey("Then each should be imported in turn", func() {
				So(err, ShouldBeNil)
				So(strings.Count(h.out.String(), "imported "), ShouldEqual, 2)
			})
		})

		Convey("When one of several links is invalid", func() {
			err := h.runner.Run(ctx, []string{"import", "https://gemini.google.com/share/one", "not-a-link"})

			Convey("Then nothing should be imported", func() {
				So(errors.Is(err, app.ErrInvalidShareURL), ShouldBeTrue)
				So(h.out.String(), ShouldBeEmpty)
			})
		})

		Convey("When importing without saving", func() {
			So(h.runner.Run(ctx, []string{"import", "https://gemini.google.com/share/abc123"}), ShouldBeNil)

			Convey("Then nothing should be stored", func() {
				So(h.backend.lastSave(), ShouldBeNil)
			})
		})
	})
}

func TestServeCommand(t *testing.T) {
	Convey("Given a runner without a development server", t, func() {
		h := newHarness(t, strings.NewReader(""))
		err := h.runner.Run(context.Background(), []string{"serve"})

		So(errors.Is(err, app.ErrNoDevServer), ShouldBeTrue)
	})

	Convey("Given a runner with a development server", t, func() {
		dev := &fakeDev{err: errors.New("boom")}
		h := newHarness(t, strings.NewReader(""), app.WithDevServer(dev))
		err := h.runner.Run(context.Background(), []string{"serve"})

		So(dev.ran, ShouldBeTrue)
		So(err, ShouldEqual, dev.err)
	})
}
