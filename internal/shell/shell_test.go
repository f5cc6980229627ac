package shell

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cachelab/internal/config"
	"cachelab/internal/editor"
	"cachelab/internal/gateway"
	"cachelab/internal/labserver"
	"cachelab/internal/model"
	"cachelab/internal/session"
)

const usersKey = "GET api.example.com/v1/users"

func newSession(t *testing.T) *session.Session {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "cachelab.yaml")
	require.NoError(t, os.WriteFile(p, []byte(fmt.Sprintf("storage:\n  path: %s\n", filepath.Join(dir, "db"))), 0o600))
	cfg, err := config.Load(p)
	require.NoError(t, err)

	srv, err := labserver.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})

	_, err = srv.SeedEntries([]labserver.SeedEntry{{
		Host: "api.example.com",
		CacheEntry: model.CacheEntry{
			Method:  "GET",
			Path:    "/v1/users",
			Status:  200,
			Headers: model.Headers{"Content-Type": "application/json"},
			Body:    map[string]any{"users": []any{}},
		},
	}})
	require.NoError(t, err)

	return session.New(gateway.NewClient(ts.URL), editor.New(editor.WithValidateDelay(0)))
}

func run(t *testing.T, sess *session.Session, script string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, New(sess, &out).Run(context.Background(), strings.NewReader(script)))
	return out.String()
}

func TestEditSaveResetScript(t *testing.T) {
	sess := newSession(t)
	out := run(t, sess, `
open `+usersKey+`
status 503
header Retry-After 30
set meta.reason "maintenance"
diff
patch
save ann planned outage
show
reset ann
quit
status 418
`)

	assert.Contains(t, out, "opened "+usersKey)
	assert.Contains(t, out, "3 section(s) changed")
	assert.Contains(t, out, "  status: 200 -> 503")
	assert.Contains(t, out, `  added: Retry-After = "30"`)
	assert.Contains(t, out, `  added: meta = {"reason":"maintenance"}`)
	assert.Contains(t, out, `"status": 503`)
	assert.Contains(t, out, "saved 3 modification(s), id ")
	assert.Contains(t, out, "status: 503 (server-error)")
	assert.Contains(t, out, "dirty: false, undo: true, redo: false")
	assert.Contains(t, out, "reset "+usersKey)

	// quit stops before the trailing command
	assert.Equal(t, 200, sess.Editor().Current().Status)
	assert.False(t, sess.Editor().HasChanges())
}

func TestErrorsArePrinted(t *testing.T) {
	sess := newSession(t)
	out := run(t, sess, `
show
open GET nowhere/x
open `+usersKey+`
status abc
save ann
set users.0 1
frobnicate
undo
status 700
save ann
body {broken
validate
`)

	assert.Contains(t, out, "error: no entry loaded")
	assert.Contains(t, out, `error: load "GET nowhere/x"`)
	assert.Contains(t, out, `error: status must be a number: "abc"`)
	assert.Contains(t, out, "error: no changes to send")
	assert.Contains(t, out, "error: cannot descend into non-object value: users is an array")
	assert.Contains(t, out, `error: unknown command "frobnicate", try help`)
	assert.Contains(t, out, "error: nothing to undo")
	assert.Contains(t, out, "  error: Status code must be between 100 and 599")
	assert.Contains(t, out, "error: validation failed")
	assert.Contains(t, out, "note: not JSON, body kept as text")
	assert.Contains(t, out, "  error: Response body is not valid JSON")
}

func TestUndoRedoAndUnheader(t *testing.T) {
	sess := newSession(t)
	out := run(t, sess, `
open `+usersKey+`
unheader Content-Type
unheader Missing
undo
redo
undo
patch
close
`)
	assert.Contains(t, out, `error: no header "Missing"`)
	assert.Contains(t, out, "no changes")
	assert.Contains(t, out, "closed")
	assert.False(t, sess.Editor().Loaded())
}

func TestPromptAndHelp(t *testing.T) {
	var out bytes.Buffer
	sh := New(session.New(nil, editor.New()), &out, WithPrompt("> "))
	require.NoError(t, sh.Run(context.Background(), strings.NewReader("help\n# comment\n\n")))
	assert.True(t, strings.HasPrefix(out.String(), "> commands:"))
	assert.Equal(t, 4, strings.Count(out.String(), "> "))
}

func TestDefaultUser(t *testing.T) {
	sess := newSession(t)
	var out bytes.Buffer
	sh := New(sess, &out, WithUser("ops"))
	require.NoError(t, sh.Run(context.Background(), strings.NewReader(`
open `+usersKey+`
status 304
save
reset
`)))
	assert.Contains(t, out.String(), "saved 1 modification(s)")
	assert.Contains(t, out.String(), "reset "+usersKey)
	assert.NotContains(t, out.String(), "error:")

	out.Reset()
	require.NoError(t, New(sess, &out).Run(context.Background(), strings.NewReader("status 500\nsave\n")))
	assert.Contains(t, out.String(), "error: user id is required")
}
