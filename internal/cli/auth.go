package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/session"
)

var errNotSignedIn = errors.New("not signed in; run `pawconnect login`")

// identity is what the auth commands print: the session without its
// credential.
type identity struct {
	User     domain.User   `json:"user"`
	Roles    session.Roles `json:"roles"`
	TokenOK  bool          `json:"tokenUsable"`
	LoggedIn bool          `json:"loggedIn"`
}

func describe(s domain.Session, roles session.Roles) identity {
	return identity{
		User:     s.User,
		Roles:    roles,
		TokenOK:  session.TokenUsable(s.Token(), time.Now()),
		LoggedIn: true,
	}
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email (or username) and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			app.nav.at = app.cfg.LoginPath
			s, err := d.Login(cmd.Context(), email, password)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, describe(s, d.Session().Roles()))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email or username")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			if err := d.Logout(cmd.Context()); err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, identity{})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored identity and its roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			s, ok := d.Session().Resolve(cmd.Context())
			if !ok {
				return writeErr(cmd, app, errNotSignedIn)
			}
			return writeOut(cmd, app, describe(s, d.Session().Roles()))
		},
	}
}

func newRegisterCmd(app *App) *cobra.Command {
	var f domain.SignupForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (verify it before signing in)",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			u, err := d.Register(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, u)
		},
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&f.Username, "username", "", "Username")
	cmd.Flags().StringVar(&f.Email, "email", "", "Email")
	cmd.Flags().StringVar(&f.Password, "password", "", "Password")
	for _, name := range []string{"name", "username", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newVerifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Confirm an email address with the token that was sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			ack, err := d.Verify(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, ack)
		},
	}
}

func newResetPasswordCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Password reset commands",
	}

	var email string
	request := &cobra.Command{
		Use:   "request",
		Short: "Ask for a reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			ack, err := d.RequestPasswordReset(cmd.Context(), email)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, ack)
		},
	}
	request.Flags().StringVar(&email, "email", "", "Account email")
	_ = request.MarkFlagRequired("email")

	var password string
	confirm := &cobra.Command{
		Use:   "confirm <token>",
		Short: "Set a new password with a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			ack, err := d.ResetPassword(cmd.Context(), args[0], password)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, ack)
		},
	}
	confirm.Flags().StringVar(&password, "password", "", "New password")
	_ = confirm.MarkFlagRequired("password")

	cmd.AddCommand(request, confirm)
	return cmd
}

func newProfileCmd(app *App) *cobra.Command {
	var u domain.ProfileUpdate

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your profile; unset flags keep their value",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			user, err := d.UpdateProfile(cmd.Context(), u)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, user)
		},
	}

	cmd.Flags().StringVar(&u.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&u.Username, "username", "", "Username")
	cmd.Flags().StringVar(&u.Email, "email", "", "Email")
	cmd.Flags().StringVar(&u.Bio, "bio", "", "Short bio")
	cmd.Flags().StringVar(&u.Location, "location", "", "Location")
	cmd.Flags().StringVar(&u.DP, "dp", "", "Profile picture URL")
	return cmd
}
