package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"

	"cachelab/internal/browser"
	"cachelab/internal/editor"
	"cachelab/internal/gateway"
	"cachelab/internal/prefs"
	"cachelab/internal/session"
	"cachelab/internal/shell"
)

func (a *app) client() *gateway.Client {
	return gateway.NewClient(a.cfg.Gateway.BaseURL, gateway.WithTimeout(a.cfg.GatewayTimeout()))
}

func (a *app) openPrefs() (*prefs.Store, error) {
	path := a.cfg.Prefs.Path
	if path == "" {
		p, err := prefs.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return prefs.Open(path)
}

func newListCommand(a *app) *cobra.Command {
	var (
		search   string
		statuses []int
		toggle   []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached entries grouped by provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openPrefs()
			if err != nil {
				return err
			}
			defer st.Close()

			b := browser.New()
			if err := b.Restore(st); err != nil {
				log.Printf("[WARN] restore preferences: %v", err)
			}
			for _, name := range toggle {
				b.Toggle(name)
			}
			b.SetSearch(search)
			b.SetStatusFilter(statuses...)

			org, err := a.client().Organized(cmd.Context())
			if err != nil {
				return err
			}
			b.SetProviders(org.Providers)
			printTree(cmd.OutOrStdout(), b)

			return b.Save(st)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by provider, path or method")
	cmd.Flags().IntSliceVar(&statuses, "status", nil, "only show these status codes")
	cmd.Flags().StringSliceVar(&toggle, "toggle", nil, "expand or collapse providers, remembered between runs")
	return cmd
}

func printTree(w io.Writer, b *browser.Browser) {
	t := b.Totals()
	fmt.Fprintf(w, "%d provider(s), %d entr(ies), %d modified\n", t.Providers, t.Entries, t.Modified)

	for _, p := range b.Filtered() {
		marker := "+"
		if b.Expanded(p.Name) {
			marker = "-"
		}
		fmt.Fprintf(w, "%s %s (%d, %d modified)\n", marker, p.Name, p.Stats.TotalEntries, p.Stats.ModifiedCount)
		if !b.Expanded(p.Name) {
			continue
		}
		for _, ep := range p.Endpoints {
			flag := " "
			if ep.IsModified {
				flag = "*"
			}
			sel := " "
			if ep.CacheKey == b.Selected() {
				sel = ">"
			}
			fmt.Fprintf(w, "  %s%s %-6s %s %d %s\n", sel, flag, ep.Method, ep.Path, ep.Status, browser.FormatSize(ep.ResponseSize))
		}
	}
}

func newEditCommand(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "edit [KEY]",
		Short: "Edit a cache entry interactively",
		Long: `Opens KEY (for example "GET api.example.com/v1/users") in an editing shell.
Without KEY the entry selected last time is reopened.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = normalizeKey(args[0])
			}
			return a.edit(cmd.Context(), key, user, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id to remember for save and reset")
	return cmd
}

func (a *app) edit(ctx context.Context, key, user string, in io.Reader, out io.Writer) error {
	st, err := a.openPrefs()
	if err != nil {
		return err
	}
	defer st.Close()

	b := browser.New()
	if err := b.Restore(st); err != nil {
		log.Printf("[WARN] restore preferences: %v", err)
	}
	if key == "" {
		key = b.Selected()
	}

	if user != "" {
		if err := st.Set(prefs.KeyUserID, user); err != nil {
			return err
		}
	} else if _, err := st.Get(prefs.KeyUserID, &user); err != nil {
		log.Printf("[WARN] read user id: %v", err)
	}

	ed := editor.New(
		editor.WithHistorySize(a.cfg.Editor.HistorySize),
		editor.WithValidateDelay(a.cfg.ValidateDelay()),
	)
	sess := session.New(a.client(), ed)
	defer sess.Close()

	prompt := "cachelab> "
	if f, ok := in.(*os.File); !ok || !isTerminal(f) {
		prompt = ""
	}
	sh := shell.New(sess, out, shell.WithPrompt(prompt), shell.WithUser(user))

	if user != "" {
		fmt.Fprintf(out, "saving as %s\n", user)
	}
	if key != "" {
		sh.Exec(ctx, "open "+key)
	}
	if err := sh.Run(ctx, in); err != nil {
		return err
	}

	if k := sess.Key(); k != "" {
		b.Select(k)
	}
	return b.Save(st)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// normalizeKey collapses the whitespace of a pasted "METHOD host/path" key.
func normalizeKey(s string) string { return strings.Join(strings.Fields(s), " ") }
