// Package shell is a line-oriented command interface over an editing
// session.
package shell

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"cachelab/internal/browser"
	"cachelab/internal/diff"
	"cachelab/internal/model"
	"cachelab/internal/session"
)

const helpText = `commands:
  open KEY              load a cache entry
  show                  print the working entry
  status [N]            print or set the status code
  header NAME VALUE     set a header
  unheader NAME         remove a header
  body JSON             replace the body (non-JSON text is kept as a string)
  set PATH JSON         set a dotted field inside the body
  undo | redo           step through history
  diff                  show changes against the loaded entry
  patch                 print the modifications that would be sent
  validate              validate the working entry now
  test                  preview the modifications on the server
  save [USER [NOTES]]   persist the modifications
  reset [USER]          drop the server-side override and reload
  close                 unload the entry
  help                  this text
  quit                  leave
`

type Shell struct {
	sess   *session.Session
	out    io.Writer
	prompt string
	user   string
}

type Option func(*Shell)

// WithPrompt prints p before reading each line.
func WithPrompt(p string) Option {
	return func(s *Shell) { s.prompt = p }
}

// WithUser sets the user id used by save and reset when none is given.
func WithUser(id string) Option {
	return func(s *Shell) { s.user = id }
}

func New(sess *session.Session, out io.Writer, opts ...Option) *Shell {
	s := &Shell{sess: sess, out: out}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes commands read from in until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64<<10), 8<<20)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.prompt != "" {
			fmt.Fprint(s.out, s.prompt)
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if quit := s.Exec(ctx, sc.Text()); quit {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the shell should stop.
// Failures are printed, never returned.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	cmd, rest := splitWord(strings.TrimSpace(line))
	if cmd == "" || strings.HasPrefix(cmd, "#") {
		return false
	}

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprint(s.out, helpText)
	case "open":
		err = s.open(ctx, rest)
	case "show":
		err = s.show()
	case "status":
		err = s.status(rest)
	case "header":
		err = s.header(rest)
	case "unheader":
		err = s.unheader(rest)
	case "body":
		err = s.body(rest)
	case "set":
		err = s.set(rest)
	case "undo":
		err = s.step(s.sess.Editor().Undo, "undo")
	case "redo":
		err = s.step(s.sess.Editor().Redo, "redo")
	case "diff":
		err = s.diff()
	case "patch":
		err = s.patch()
	case "validate":
		err = s.validate()
	case "test":
		err = s.test(ctx)
	case "save":
		err = s.save(ctx, rest)
	case "reset":
		err = s.reset(ctx, rest)
	case "close":
		s.sess.Close()
		fmt.Fprintln(s.out, "closed")
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *Shell) open(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("usage: open KEY")
	}
	if err := s.sess.Open(ctx, key); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "opened %s\n", key)
	return nil
}

func (s *Shell) loaded() (*model.CacheEntry, error) {
	cur := s.sess.Editor().Current()
	if cur == nil {
		return nil, session.ErrNotLoaded
	}
	return cur, nil
}

func (s *Shell) show() error {
	cur, err := s.loaded()
	if err != nil {
		return err
	}
	ed := s.sess.Editor()
	fmt.Fprintf(s.out, "%s %s\n", cur.Method, cur.Path)
	fmt.Fprintf(s.out, "status: %d (%s)\n", cur.Status, model.StatusCategory(cur.Status))

	names := make([]string, 0, len(cur.Headers))
	for k := range cur.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Fprintln(s.out, "headers:")
	for _, k := range names {
		fmt.Fprintf(s.out, "  %s: %v\n", k, cur.Headers[k])
	}

	body, size := renderBody(cur.Body)
	fmt.Fprintf(s.out, "body (%s):\n%s\n", browser.FormatSize(size), body)

	fmt.Fprintf(s.out, "dirty: %t, undo: %t, redo: %t\n", ed.IsDirty(), ed.CanUndo(), ed.CanRedo())
	if v := ed.Validation(); v != nil {
		printValidation(s.out, *v)
	}
	return nil
}

func (s *Shell) status(arg string) error {
	cur, err := s.loaded()
	if err != nil {
		return err
	}
	if arg == "" {
		fmt.Fprintf(s.out, "status: %d\n", cur.Status)
		return nil
	}
	code, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("status must be a number: %q", arg)
	}
	s.sess.Editor().UpdateStatus(code)
	return nil
}

func (s *Shell) header(rest string) error {
	name, value := splitWord(rest)
	if name == "" {
		return errors.New("usage: header NAME VALUE")
	}
	cur, err := s.loaded()
	if err != nil {
		return err
	}
	h := cur.Headers.Clone()
	if h == nil {
		h = model.Headers{}
	}
	h[name] = value
	s.sess.Editor().UpdateHeaders(h)
	return nil
}

func (s *Shell) unheader(name string) error {
	if name == "" {
		return errors.New("usage: unheader NAME")
	}
	cur, err := s.loaded()
	if err != nil {
		return err
	}
	if _, ok := cur.Headers[name]; !ok {
		return fmt.Errorf("no header %q", name)
	}
	h := cur.Headers.Clone()
	delete(h, name)
	s.sess.Editor().UpdateHeaders(h)
	return nil
}

func (s *Shell) body(raw string) error {
	if _, err := s.loaded(); err != nil {
		return err
	}
	v, ok := parseValue(raw)
	if !ok {
		fmt.Fprintln(s.out, "note: not JSON, body kept as text")
	}
	s.sess.Editor().UpdateContent(v)
	return nil
}

func (s *Shell) set(rest string) error {
	path, raw := splitWord(rest)
	if path == "" || raw == "" {
		return errors.New("usage: set PATH JSON")
	}
	if _, err := s.loaded(); err != nil {
		return err
	}
	v, _ := parseValue(raw)
	return s.sess.Editor().UpdateField(path, v)
}

func (s *Shell) step(fn func() bool, name string) error {
	if _, err := s.loaded(); err != nil {
		return err
	}
	if !fn() {
		return fmt.Errorf("nothing to %s", name)
	}
	return nil
}

func (s *Shell) diff() error {
	if _, err := s.loaded(); err != nil {
		return err
	}
	ed := s.sess.Editor()
	c := ed.Changes()
	if c.Empty() {
		fmt.Fprintln(s.out, "no changes")
		return nil
	}
	fmt.Fprintf(s.out, "%d section(s) changed\n", c.SectionsChanged())
	if c.Status != nil {
		fmt.Fprintf(s.out, "  status: %d -> %d\n", c.Status.From, c.Status.To)
	}
	if len(c.Headers) > 0 {
		fmt.Fprintf(s.out, "headers %s:\n%s", summary(c.Headers), diff.Describe(c.Headers))
	}
	if len(c.Body) > 0 {
		fmt.Fprintf(s.out, "body %s:\n%s", summary(c.Body), diff.Describe(c.Body))
	}
	fmt.Fprint(s.out, ed.UnifiedDiff())
	return nil
}

func summary(changes []diff.Change) string {
	sm := diff.Summarize(changes)
	return fmt.Sprintf("(+%d -%d ~%d)", sm.Added, sm.Removed, sm.Modified)
}

func (s *Shell) patch() error {
	if _, err := s.loaded(); err != nil {
		return err
	}
	mods := s.sess.Editor().Modifications()
	if mods == nil {
		fmt.Fprintln(s.out, "no changes")
		return nil
	}
	b, err := json.MarshalIndent(mods, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(b))
	return nil
}

func (s *Shell) validate() error {
	res, ok := s.sess.Editor().Validate()
	if !ok {
		return session.ErrNotLoaded
	}
	if len(res.Errors) == 0 && len(res.Warnings) == 0 {
		fmt.Fprintln(s.out, "valid")
		return nil
	}
	printValidation(s.out, res)
	return nil
}

func (s *Shell) test(ctx context.Context) error {
	resp, err := s.sess.Test(ctx)
	if err != nil {
		return err
	}
	r := resp.TestResult
	fmt.Fprintf(s.out, "test: status %d, %s, %d modification(s), %dms\n",
		r.Status, browser.FormatSize(r.SizeBytes), resp.ModificationsTested, r.ResponseTimeMS)
	printValidation(s.out, r.Validation)
	return nil
}

func (s *Shell) save(ctx context.Context, rest string) error {
	user, notes := splitWord(rest)
	if user == "" {
		user = s.user
	}
	resp, err := s.sess.Save(ctx, user, notes)
	if err != nil {
		var vErr *session.ValidationError
		if errors.As(err, &vErr) {
			for _, e := range vErr.Errors {
				fmt.Fprintf(s.out, "  error: %s\n", e)
			}
		}
		return err
	}
	fmt.Fprintf(s.out, "saved %d modification(s), id %s\n", resp.ModificationsApplied, resp.ModificationID)
	return nil
}

func (s *Shell) reset(ctx context.Context, user string) error {
	if user == "" {
		user = s.user
	}
	if _, err := s.sess.ResetRemote(ctx, user); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "reset %s\n", s.sess.Key())
	return nil
}

func printValidation(w io.Writer, v model.ValidationResult) {
	for _, e := range v.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	for _, m := range v.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", m)
	}
}

func renderBody(body any) (string, int64) {
	switch b := body.(type) {
	case nil:
		return "null", 0
	case string:
		return b, int64(len(b))
	}
	compact, _ := json.Marshal(body)
	pretty, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Sprint(body), int64(len(compact))
	}
	return string(pretty), int64(len(compact))
}

// parseValue decodes raw as JSON, falling back to the raw text.
func parseValue(raw string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw, false
	}
	return v, true
}

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
