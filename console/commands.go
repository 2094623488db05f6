package console

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/travelbook/admin-console/api"
	"github.com/travelbook/admin-console/auth"
	"github.com/travelbook/admin-console/catalog"
	"github.com/travelbook/admin-console/httpclient"
	"github.com/travelbook/admin-console/token"
)

// PasswordEnvVar supplies the password when --password is omitted.
const PasswordEnvVar = "CONSOLE_PASSWORD"

// ErrNotSignedIn is returned by commands that need a session.
var ErrNotSignedIn = errors.New("not signed in, run `console login` first")

type cli struct {
	app   *App
	color bool
}

// NewRootCommand builds the command tree over app.
func NewRootCommand(app *App) *cobra.Command {
	c := &cli{app: app}
	root := &cobra.Command{
		Use:           "console",
		Short:         "Travelbook admin console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&c.color, "color", true, "colorize output")
	root.AddCommand(
		c.loginCommand(),
		c.signupCommand(),
		c.logoutCommand(),
		c.refreshCommand(),
		c.statusCommand(),
		c.whoamiCommand(),
		c.profileCommand(),
		c.catalogCommand(),
	)
	return root
}

func (c *cli) printf(w io.Writer, color, format string, args ...any) {
	fmt.Fprint(w, colorize(c.color, color, fmt.Sprintf(format, args...)))
}

func (c *cli) loginCommand() *cobra.Command {
	var credentials auth.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if credentials.Password == "" {
				credentials.Password = os.Getenv(PasswordEnvVar)
			}
			if err := c.app.State.Login(cmd.Context(), credentials); err != nil {
				return err
			}
			c.printf(cmd.OutOrStdout(), Green, "Signed in as %s\n", c.signedInName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&credentials.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&credentials.Password, "password", "p", "", "account password (default $"+PasswordEnvVar+")")
	return cmd
}

func (c *cli) signupCommand() *cobra.Command {
	var request auth.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if request.Password == "" {
				request.Password = os.Getenv(PasswordEnvVar)
			}
			if err := c.app.State.Signup(cmd.Context(), request); err != nil {
				return err
			}
			c.printf(cmd.OutOrStdout(), Green, "Account created, signed in as %s\n", c.signedInName())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&request.Username, "username", "u", "", "account username")
	flags.StringVarP(&request.Password, "password", "p", "", "account password (default $"+PasswordEnvVar+")")
	flags.StringVar(&request.Email, "email", "", "email address")
	flags.StringVar(&request.Name, "name", "", "display name")
	flags.StringVar(&request.Phone, "phone", "", "phone number in E.164 format")
	flags.StringSliceVar(&request.Clients, "client", nil, "booking service to enable (hotel, bus, taxi); repeatable")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.State.SignOut(cmd.Context()); err != nil {
				return err
			}
			c.printf(cmd.OutOrStdout(), Green, "Signed out\n")
			return nil
		},
	}
}

func (c *cli) refreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := c.app.Service.RefreshToken(cmd.Context())
			// a failed refresh wiped storage; the state must follow
			if syncErr := c.app.State.RefreshAuth(); syncErr != nil && err == nil {
				err = syncErr
			}
			if err != nil {
				return err
			}
			c.printf(cmd.OutOrStdout(), Green, "Token refreshed\n")
			return nil
		},
	}
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			snap := c.app.State.Snapshot()
			if !snap.IsAuthenticated {
				c.printf(out, Yellow, "Not signed in\n")
				return nil
			}

			user := snap.User
			if user == nil {
				c.printf(out, Green, "Signed in\n")
				return nil
			}
			c.printf(out, Green, "Signed in as %s", user.Username)
			fmt.Fprintf(out, " (%s <%s>)\n", user.Name, user.Email)

			clients := make([]string, 0, len(user.Clients))
			for _, client := range user.Clients {
				clients = append(clients, colorize(c.color, clientColors[client], client))
			}
			fmt.Fprintf(out, "Clients: %s\n", joinOrNone(clients))
			fmt.Fprintf(out, "Roles:   %s\n", joinOrNone(user.Roles))
			fmt.Fprintf(out, "Since:   %s\n", millisToTime(user.LoginTime).UTC().Format(time.RFC3339))

			if info, ok := token.ExtractUserInfo(c.app.Service.StoredToken()); ok && !info.ExpiresAt.IsZero() {
				color := Gray
				if info.ExpiresAt.Before(time.Now()) {
					color = Red
				}
				c.printf(out, color, "Token expires %s\n", info.ExpiresAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the identity carried by the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw := c.app.Service.StoredToken()
			if raw == "" {
				return ErrNotSignedIn
			}
			info, ok := token.ExtractUserInfo(raw)
			if !ok {
				return errors.New("stored access token can't be decoded")
			}
			out := cmd.OutOrStdout()
			if err := writeJSON(out, info); err != nil {
				return err
			}

			if !verify {
				return nil
			}
			verifier, err := c.app.Verifier(cmd.Context())
			if err != nil {
				return err
			}
			claims, err := verifier.Verify(cmd.Context(), raw)
			if err != nil {
				return errors.Wrap(err, "signature check failed")
			}
			c.printf(out, Green, "Signature verified, issued by %s\n", claims.Issuer)
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check the token signature against the identity provider's keys")
	return cmd
}

func (c *cli) profileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the server profile into the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := c.app.Service.SyncProfile(cmd.Context())
			if syncErr := c.app.State.RefreshAuth(); syncErr != nil && err == nil {
				err = syncErr
			}
			if err != nil {
				return err
			}
			c.printf(cmd.OutOrStdout(), Green, "Profile updated: %s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
}

func (c *cli) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse hotels, rooms, buses, routes, schedules and bookings",
	}

	var filters []string
	list := &cobra.Command{
		Use:       "list <resource>",
		Short:     "List a collection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: c.app.Catalog.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			resource, err := c.resource(args[0])
			if err != nil {
				return err
			}
			query, err := parseFilters(filters)
			if err != nil {
				return err
			}
			records, err := resource.List(cmd.Context(), query)
			if err != nil {
				return c.catalogError(err, "list %s", args[0])
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(out, "%s\t%s\n", r.ID, r.Name)
			}
			c.printf(out, Gray, "%d %s\n", len(records), args[0])
			return nil
		},
	}
	list.Flags().StringSliceVar(&filters, "filter", nil, "key=value query filter; repeatable")

	get := &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resource, err := c.resource(args[0])
			if err != nil {
				return err
			}
			record, err := resource.Get(cmd.Context(), api.ID(args[1]))
			if err != nil {
				return c.catalogError(err, "get %s %s", args[0], args[1])
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

func (c *cli) resource(name string) (*catalog.Resource[catalog.Record], error) {
	resource, ok := c.app.Catalog.Resource(name)
	if !ok {
		return nil, errors.Errorf("unknown resource %q, expected one of %s", name, strings.Join(c.app.Catalog.Names(), ", "))
	}
	if !c.app.authorizeCatalog() {
		return nil, ErrNotSignedIn
	}
	return resource, nil
}

// catalogError resyncs the state after a failed catalog call, since a 401
// has already cleared the store, and reports that case as an expired session.
func (c *cli) catalogError(err error, format string, args ...any) error {
	if syncErr := c.app.State.RefreshAuth(); syncErr != nil {
		log.Warn().Err(syncErr).Msg("console: resync after catalog failure")
	}
	if httpclient.StatusCode(err) == http.StatusUnauthorized {
		return auth.Classify(auth.OpCatalog, err)
	}
	return errors.Wrapf(err, format, args...)
}

func (c *cli) signedInName() string {
	if user := c.app.State.Snapshot().User; user != nil {
		return user.Username
	}
	return "unknown user"
}

func parseFilters(filters []string) (url.Values, error) {
	query := url.Values{}
	for _, f := range filters {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("filter %q must be key=value", f)
		}
		query.Add(key, value)
	}
	return query, nil
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
