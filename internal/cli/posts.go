package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tbourn/pawconnect/internal/actions"
	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/listing"
	"github.com/tbourn/pawconnect/internal/notify"
	"github.com/tbourn/pawconnect/internal/upload"
)

// ---- shared helpers ----

func pageFlags(cmd *cobra.Command, q *actions.PageQuery) {
	cmd.Flags().IntVar(&q.PageNo, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&q.PageSize, "size", actions.DefaultPageSize, "Page size")
	cmd.Flags().StringVar(&q.SortBy, "sort-by", "", "Sort field")
	cmd.Flags().StringVar(&q.SortDir, "sort-dir", "", "Sort direction (asc|desc)")
}

// matchFlag adds --match, which ranks the filtered page by keyword
// similarity instead of printing it.
func matchFlag(cmd *cobra.Command, match *string) {
	cmd.Flags().StringVar(match, "match", "", "Rank the loaded page by these keywords")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// idCmd builds a command taking one numeric id argument.
func idCmd(app *App, use, short string, run func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, app, err)
			}
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			v, err := run(cmd.Context(), d, id)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, v)
		},
	}
}

// attach uploads the image files into the form's fields concurrently and
// waits for all of them. A file that cannot be read, selected or uploaded is
// reported on n and its field cleared; the command goes on as long as the
// remaining fields satisfy the form's policy.
func attach(ctx context.Context, form *upload.Form, paths []string, n notify.Notifier) error {
	if len(paths) > form.Len() {
		return fmt.Errorf("at most %d image(s) allowed", form.Len())
	}
	pending := make([]<-chan error, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			failed := make(chan error, 1)
			failed <- err
			close(failed)
			pending[i] = failed
			continue
		}
		pending[i] = form.Choose(ctx, i, filepath.Base(p), data)
	}
	var errs []error
	for i, ch := range pending {
		err := <-ch
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fl := form.Field(i)
		if fl.Snapshot().Phase != upload.PhaseFailed {
			// Failed uploads were already announced by the field.
			notify.Warning(n, fmt.Sprintf("%s: %s", filepath.Base(paths[i]), describeErr(err)))
		}
		fl.Clear()
		errs = append(errs, fmt.Errorf("%s: %w", paths[i], err))
	}
	if form.Ready() {
		return nil
	}
	msg := "at least one image must be uploaded"
	if form.Policy() == upload.All {
		msg = "every image must be uploaded"
	}
	return errors.Join(append([]error{apiclient.Validation("image", msg)}, errs...)...)
}

func describeErr(err error) string {
	var ae *apiclient.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func uploadOpts(app *App) []upload.Option {
	return []upload.Option{upload.WithMaxBytes(app.cfg.UploadMaxBytes), upload.WithNotifier(app.notes)}
}

// ---- adoption ----

func newAdoptionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "adoption",
		Aliases: []string{"adoptions"},
		Short:   "Pets listed for adoption",
	}
	cmd.AddCommand(newAdoptionListCmd(app))
	cmd.AddCommand(idCmd(app, "show <id>", "Show one adoption post", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.GetAdoption(ctx, id)
	}))
	cmd.AddCommand(newAdoptionMineCmd(app))
	cmd.AddCommand(newAdoptionCreateCmd(app))
	cmd.AddCommand(idCmd(app, "delete <id>", "Delete one of your adoption posts", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.DeleteAdoption(ctx, id)
	}))
	cmd.AddCommand(newAdoptionRequestCmd(app))
	return cmd
}

func newAdoptionListCmd(app *App) *cobra.Command {
	var q actions.PageQuery
	var f listing.AdoptionFilter
	var match string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List adoption posts, optionally filtering the loaded page",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			page, err := d.ListAdoptions(cmd.Context(), q)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			page.Content = listing.Adoptions(page.Content, f)
			if match != "" {
				return writeOut(cmd, app, listing.Rank(page.Content, listing.AdoptionText, match))
			}
			return writeOut(cmd, app, page)
		},
	}
	pageFlags(cmd, &q)
	matchFlag(cmd, &match)
	cmd.Flags().StringVar(&f.Name, "name", "", "Pet name contains")
	cmd.Flags().StringVar(&f.Type, "type", "", "Pet type (dog, cat, ...)")
	cmd.Flags().StringVar(&f.Availability, "availability", "", "available|unavailable")
	return cmd
}

func newAdoptionMineCmd(app *App) *cobra.Command {
	var q actions.PageQuery
	var withRequests bool

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List your adoption posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			if withRequests {
				reqs, err := d.MyAdoptionRequests(cmd.Context())
				if err != nil {
					return writeErr(cmd, app, err)
				}
				return writeOut(cmd, app, reqs)
			}
			page, err := d.AdoptionsByUser(cmd.Context(), 0, q)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, page)
		},
	}
	pageFlags(cmd, &q)
	cmd.Flags().BoolVar(&withRequests, "requests", false, "List the adoption requests you sent instead")
	return cmd
}

func newAdoptionCreateCmd(app *App) *cobra.Command {
	var f domain.AdoptionForm
	var images []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a pet for adoption with up to three photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			form := upload.NewAdoptionForm(app.api, uploadOpts(app)...)
			if err := attach(cmd.Context(), form, images, app.notes); err != nil {
				return writeErr(cmd, app, err)
			}
			copy(f.Images[:], form.Images())
			post, err := d.CreateAdoption(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, post)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "Pet name")
	fl.StringVar(&f.Breed, "breed", "", "Breed")
	fl.BoolVar(&f.Training, "trained", false, "The pet is trained")
	fl.BoolVar(&f.Vaccine, "vaccinated", false, "The pet is vaccinated")
	fl.StringVar(&f.Color, "color", "", "Color")
	fl.StringVar(&f.Description, "description", "", "Description")
	fl.StringVar(&f.PhysicalCondition, "condition", "", "Physical condition")
	fl.StringVar(&f.Location, "location", "", "Location")
	fl.StringVar(&f.Behaviour, "behaviour", "", "Behaviour")
	fl.StringVar(&f.Food, "food", "", "Food")
	fl.StringVar(&f.Gender, "gender", "", "Gender")
	fl.StringVar(&f.Type, "type", "", "Pet type")
	fl.StringVar(&f.Mobile, "mobile", "", "Contact number")
	fl.StringArrayVar(&images, "image", nil, "Photo file (repeat up to three times)")
	return cmd
}

func newAdoptionRequestCmd(app *App) *cobra.Command {
	var f domain.AdoptionRequestForm

	cmd := &cobra.Command{
		Use:   "request <post-id>",
		Short: "Ask to adopt a pet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, app, err)
			}
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			r, err := d.RequestAdoption(cmd.Context(), id, f)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, r)
		},
	}
	cmd.Flags().StringVar(&f.Message, "message", "", "Message to the owner")
	cmd.Flags().StringVar(&f.Mobile, "mobile", "", "Contact number")
	return cmd
}

// ---- missing ----

func newMissingCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missing",
		Short: "Missing pet reports",
	}
	cmd.AddCommand(newMissingListCmd(app))
	cmd.AddCommand(idCmd(app, "show <id>", "Show one missing pet report", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.GetMissing(ctx, id)
	}))
	cmd.AddCommand(newMissingCreateCmd(app))
	cmd.AddCommand(idCmd(app, "delete <id>", "Delete one of your reports", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.DeleteMissing(ctx, id)
	}))
	cmd.AddCommand(newMissingInfoCmd(app))
	return cmd
}

func newMissingListCmd(app *App) *cobra.Command {
	var q actions.PageQuery
	var f listing.MissingFilter
	var mine bool
	var match string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missing pet reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			var page domain.Page[domain.MissingPost]
			if mine {
				page, err = d.MissingByUser(cmd.Context(), 0, q)
			} else {
				page, err = d.ListMissing(cmd.Context(), q)
			}
			if err != nil {
				return writeErr(cmd, app, err)
			}
			page.Content = listing.Missing(page.Content, f)
			if match != "" {
				return writeOut(cmd, app, listing.Rank(page.Content, listing.MissingText, match))
			}
			return writeOut(cmd, app, page)
		},
	}
	pageFlags(cmd, &q)
	matchFlag(cmd, &match)
	cmd.Flags().BoolVar(&mine, "mine", false, "Only your reports")
	cmd.Flags().StringVar(&f.Name, "name", "", "Pet name contains")
	cmd.Flags().StringVar(&f.Type, "type", "", "Pet type")
	cmd.Flags().StringVar(&f.Gender, "gender", "", "Gender")
	return cmd
}

func newMissingCreateCmd(app *App) *cobra.Command {
	var f domain.MissingForm
	var image string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Report a missing pet with a photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			form := upload.NewMissingForm(app.api, uploadOpts(app)...)
			if err := attach(cmd.Context(), form, []string{image}, app.notes); err != nil {
				return writeErr(cmd, app, err)
			}
			f.Image = form.Images()[0]
			post, err := d.CreateMissing(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, post)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "Pet name")
	fl.StringVar(&f.Breed, "breed", "", "Breed")
	fl.BoolVar(&f.Vaccine, "vaccinated", false, "The pet is vaccinated")
	fl.StringVar(&f.Color, "color", "", "Color")
	fl.StringVar(&f.DateMissing, "date", "", "Date the pet went missing")
	fl.StringVar(&f.SpecificAttribute, "attribute", "", "Distinguishing attribute")
	fl.StringVar(&f.Location, "location", "", "Last seen location")
	fl.StringVar(&f.AccessoriesLastWorn, "accessories", "", "Accessories last worn")
	fl.StringVar(&f.Rewards, "reward", "", "Reward offered")
	fl.StringVar(&f.Gender, "gender", "", "Gender")
	fl.StringVar(&f.Type, "type", "", "Pet type")
	fl.StringVar(&image, "image", "", "Photo file")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func newMissingInfoCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Sightings of missing pets",
	}

	var f domain.MissingInfoForm
	report := &cobra.Command{
		Use:   "report <post-id>",
		Short: "Report a sighting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, app, err)
			}
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			in, err := d.ReportSighting(cmd.Context(), id, f)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, in)
		},
	}
	report.Flags().StringVar(&f.Information, "information", "", "What was seen")
	report.Flags().StringVar(&f.Location, "location", "", "Where")
	report.Flags().StringVar(&f.Contact, "contact", "", "How to reach you")

	list := &cobra.Command{
		Use:   "list",
		Short: "List sightings visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			infos, err := d.ListSightings(cmd.Context())
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, infos)
		},
	}

	cmd.AddCommand(report, list)
	cmd.AddCommand(idCmd(app, "show <id>", "Show one sighting", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.GetSighting(ctx, id)
	}))
	return cmd
}

// ---- donations ----

func newDonationCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "donation",
		Aliases: []string{"donations"},
		Short:   "Donation campaigns",
	}
	cmd.AddCommand(newDonationListCmd(app))
	cmd.AddCommand(idCmd(app, "show <id>", "Show one campaign", func(ctx context.Context, d *actions.Dispatcher, id int64) (any, error) {
		return d.GetDonationPost(ctx, id)
	}))
	cmd.AddCommand(newDonationCreateCmd(app))
	cmd.AddCommand(newDonateCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "mine",
		Short: "List your donations",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			out, err := d.MyDonations(cmd.Context())
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, out)
		},
	})
	return cmd
}

func newDonationListCmd(app *App) *cobra.Command {
	var q actions.PageQuery
	var f listing.DonationFilter
	var match string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List donation campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			page, err := d.ListDonationPosts(cmd.Context(), q)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			page.Content = listing.Donations(page.Content, f)
			if match != "" {
				return writeOut(cmd, app, listing.Rank(page.Content, listing.DonationText, match))
			}
			return writeOut(cmd, app, page)
		},
	}
	pageFlags(cmd, &q)
	matchFlag(cmd, &match)
	cmd.Flags().StringVar(&f.Type, "type", "", "money|food|supplies|emergency")
	cmd.Flags().StringVar(&f.Urgency, "urgency", "", "urgent|normal")
	return cmd
}

func newDonationCreateCmd(app *App) *cobra.Command {
	var f domain.DonationPostForm
	var image string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a donation campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			if image != "" {
				field := upload.NewField(app.api, uploadOpts(app)...)
				data, err := os.ReadFile(image)
				if err != nil {
					return writeErr(cmd, app, err)
				}
				if err := field.Select(filepath.Base(image), data); err != nil {
					return writeErr(cmd, app, err)
				}
				if f.Image, err = field.Upload(cmd.Context()); err != nil {
					return writeErr(cmd, app, err)
				}
			}
			post, err := d.CreateDonationPost(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, post)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Title, "title", "", "Title")
	fl.StringVar(&f.Description, "description", "", "Description")
	fl.StringVar(&f.Type, "type", "", "money|food|supplies|emergency")
	fl.StringVar(&f.Urgency, "urgency", "", "urgent|normal (default normal)")
	fl.Float64Var(&f.Goal, "goal", 0, "Goal amount")
	fl.StringVar(&image, "image", "", "Optional photo file")
	return cmd
}

func newDonateCmd(app *App) *cobra.Command {
	var f domain.DonationForm

	cmd := &cobra.Command{
		Use:   "donate <post-id>",
		Short: "Contribute to a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, app, err)
			}
			d, err := app.dispatcher(cmd)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			out, err := d.Donate(cmd.Context(), id, f)
			if err != nil {
				return writeErr(cmd, app, err)
			}
			return writeOut(cmd, app, out)
		},
	}
	cmd.Flags().Float64Var(&f.Amount, "amount", 0, "Amount")
	cmd.Flags().StringVar(&f.Message, "message", "", "Optional message")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
