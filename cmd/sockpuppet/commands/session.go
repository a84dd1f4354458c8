package commands

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/auth"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/session"
)

var (
	importNoBrowser bool
	importCookies   = map[string]*string{}
)

func init() {
	f := importCmd.Flags()
	f.BoolVar(&importNoBrowser, "no-browser", false, "only read cookies from flags and "+fmt.Sprint(auth.EnvVars()))
	for _, name := range auth.Essential {
		importCookies[name] = f.String(strings.ReplaceAll(name, "_", "-"), "", "value of the "+name+" cookie")
	}
	sessionCmd.AddCommand(importCmd, checkCmd)
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored Instagram sessions.",
}

var importCmd = &cobra.Command{
	Use:   "import <username>",
	Short: "Store Instagram cookies from flags, the environment or a local browser as a session.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		ctx := cmd.Context()

		cookies, err := auth.ChainSources(ctx, importSources(flagCookies(importCookies), importNoBrowser)...)
		if err != nil {
			return fmt.Errorf("read cookies: %w", err)
		}
		if cookies["sessionid"] == "" {
			return errors.New("no Instagram sessionid cookie found; log in with a browser, pass --sessionid or set INSTAGRAM_SESSIONID")
		}

		store := session.NewStore(cfg.Sessions.Dir)
		if err := store.Save(username, cookies); err != nil {
			return err
		}
		logger.Info("session stored", "username", username, "path", store.Path(username))

		if !slices.Contains(cfg.Slots(), username) {
			logger.Warn("username is not in any IG_USERNAME slot; the session will not be used", "username", username)
		}
		return nil
	},
}

// importSources lists cookie sources in priority order: explicit flags, then
// the environment, then local browsers.
func importSources(flags map[string]string, noBrowser bool) []auth.Source {
	sources := []auth.Source{auth.NewStaticSource(flags), auth.EnvSource{}}
	if !noBrowser {
		sources = append(sources, auth.NewBrowserSource(logger))
	}
	return sources
}

func flagCookies(flags map[string]*string) map[string]string {
	cookies := make(map[string]string)
	for name, v := range flags {
		if v != nil && *v != "" {
			cookies[name] = *v
		}
	}
	return cookies
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate every configured session slot.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr := newSessionManager(nil)
		results := mgr.Check(cmd.Context())
		if len(results) == 0 {
			return errors.New("no session slots configured; set IG_USERNAME1..IG_USERNAME4")
		}

		ok := 0
		out := cmd.OutOrStdout()
		for _, name := range cfg.Slots() {
			err, configured := results[name]
			switch {
			case !configured:
				continue
			case err != nil:
				fmt.Fprintf(out, "%-30s FAIL  %v\n", name, err) //nolint:errcheck // terminal output
			default:
				ok++
				fmt.Fprintf(out, "%-30s OK\n", name) //nolint:errcheck // terminal output
			}
		}
		if ok == 0 {
			return session.ErrNoSession
		}
		return nil
	},
}
