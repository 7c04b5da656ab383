package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/pawconnect/internal/actions"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/fakeapi"
	"github.com/tbourn/pawconnect/internal/upload"
)

func newFeedbackCmd(app *App) *cobra.Command {
	var f domain.FeedbackForm

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Send feedback through the contact form",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			out, err := d.SubmitFeedback(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, out)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.Rating, "rating", 0, fmt.Sprintf("Rating from 1 to %d", domain.MaxRating))
	fl.StringVar(&f.Description, "description", "", "Your feedback")
	fl.StringVar(&f.ContactPurpose, "purpose", "", "Contact purpose (default "+domain.DefaultContactPurpose+")")
	fl.StringVar(&f.Name, "name", "", "Your name")
	fl.StringVar(&f.Email, "email", "", "Your email")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

// uploaded is the outcome of the upload command.
type uploaded struct {
	URL   string       `json:"url"`
	State upload.State `json:"state"`
}

func newUploadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.dispatcher(cmd); err != nil {
				return writeErr(cmd, app, err)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return writeErr(cmd, app, err)
			}
			field := upload.NewField(app.api, uploadOpts(app)...)
			if err := field.Select(filepath.Base(args[0]), data); err != nil {
				return writeErr(cmd, app, err)
			}
			url, err := field.Upload(cmd.Context())
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, uploaded{URL: url, State: field.Snapshot()})
		},
	}
}

// ---- admin ----

func newAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			out, err := d.AdminStats(cmd.Context())
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, out)
		},
	})

	var q actions.PageQuery
	users := &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			out, err := d.AdminUsers(cmd.Context(), q)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, out)
		},
	}
	pageFlags(users, &q)
	cmd.AddCommand(users)

	cmd.AddCommand(idCmd(app, "ban <user-id>", "Toggle a user's ban", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.BanUser(ctx, id)
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "requests",
		Short: "List every adoption request",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			out, err := d.AdminAdoptionRequests(cmd.Context())
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, out)
		},
	})
	cmd.AddCommand(idCmd(app, "approve <request-id>", "Approve an adoption request", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.ApproveAdoptionRequest(ctx, id)
	}))
	cmd.AddCommand(idCmd(app, "approve-info <info-id>", "Approve a missing pet sighting", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.ApproveSighting(ctx, id)
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "feedback",
		Short: "List submitted feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			out, err := d.ListFeedback(cmd.Context())
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, out)
		},
	})
	return cmd
}

// ---- fake backend ----

func newFakeAPICmd(app *App) *cobra.Command {
	var (
		port      string
		shape     string
		enveloped bool
		rps       float64
		burst     int
	)

	cmd := &cobra.Command{
		Use:   "fakeapi",
		Short: "Run the in-memory development backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := fakeapi.OptionsFromConfig(app.cfg)
			opts.BareLists = !enveloped
			opts.RateRPS, opts.RateBurst = rps, burst
			switch s := fakeapi.UploadShape(shape); s {
			case fakeapi.UploadBare, fakeapi.UploadEnvelope, fakeapi.UploadData, fakeapi.UploadURL:
				opts.UploadShape = s
			default:
				return writeErr(cmd, app, fmt.Errorf("unknown upload shape %q", shape))
			}
			if port == "" {
				port = app.cfg.FakeAPI.Port
			}

			srv, err := fakeapi.New(opts)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().
				Str("admin", fakeapi.AdminEmail).
				Str("user", fakeapi.UserEmail).
				Str("upload_shape", string(opts.UploadShape)).
				Msg("seeded accounts ready")
			if err := srv.ListenAndServe(ctx, net.JoinHostPort("", port)); err != nil {
				return writeErr(cmd, app, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default $FAKEAPI_PORT)")
	cmd.Flags().StringVar(&shape, "upload-shape", string(fakeapi.UploadBare), "Upload answer: bare|envelope|data|url")
	cmd.Flags().BoolVar(&enveloped, "enveloped-lists", false, "Wrap list answers in the envelope")
	cmd.Flags().Float64Var(&rps, "rate", 0, "Requests per second per user or IP (0 disables)")
	cmd.Flags().IntVar(&burst, "burst", 5, "Rate limiter burst")
	return cmd
}
