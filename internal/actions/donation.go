package actions

import (
	"context"
	"net/http"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/store"
)

// ListDonationPosts loads one page of donation campaigns.
func (d *Dispatcher) ListDonationPosts(ctx context.Context, q PageQuery) (store.DonationPage, error) {
	return run(ctx, d.st.DonationPostList, func(ctx context.Context) (store.DonationPage, error) {
		p := apiclient.WithQuery(apiclient.Path("donationpost", "all"), q.values())
		return call[store.DonationPage](ctx, d, http.MethodGet, p, nil, apiclient.AuthOptional)
	})
}

// GetDonationPost loads a single campaign.
func (d *Dispatcher) GetDonationPost(ctx context.Context, id int64) (domain.DonationPost, error) {
	return run(ctx, d.st.DonationPostByID, func(ctx context.Context) (domain.DonationPost, error) {
		return call[domain.DonationPost](ctx, d, http.MethodGet, apiclient.Path("donationpost", id), nil, apiclient.AuthOptional)
	})
}

// DonationPostsByUser loads the campaigns of uid, or of the acting user when
// uid is zero.
func (d *Dispatcher) DonationPostsByUser(ctx context.Context, uid int64, q PageQuery) (store.DonationPage, error) {
	return run(ctx, d.st.DonationPostByUser, func(ctx context.Context) (store.DonationPage, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return store.DonationPage{}, err
		}
		if uid <= 0 {
			uid = s.ID
		}
		p := apiclient.WithQuery(apiclient.Path("donationpost", "user", uid), q.values())
		return call[store.DonationPage](ctx, d, http.MethodGet, p, nil, apiclient.AuthRequired)
	})
}

// CreateDonationPost opens a campaign owned by the acting user.
func (d *Dispatcher) CreateDonationPost(ctx context.Context, f domain.DonationPostForm) (domain.DonationPost, error) {
	return run(ctx, d.st.DonationPostCreate, func(ctx context.Context) (domain.DonationPost, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return domain.DonationPost{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.DonationPost{}, err
		}
		return call[domain.DonationPost](ctx, d, http.MethodPost, apiclient.Path("donationpost", s.ID, "create"), f.Payload(), apiclient.AuthRequired)
	})
}

// UpdateDonationPost edits campaign id. The by-id slice is refreshed with the
// result.
func (d *Dispatcher) UpdateDonationPost(ctx context.Context, id int64, f domain.DonationPostForm) (domain.DonationPost, error) {
	post, err := run(ctx, d.st.DonationPostUpdate, func(ctx context.Context) (domain.DonationPost, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.DonationPost{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.DonationPost{}, err
		}
		return call[domain.DonationPost](ctx, d, http.MethodPut, apiclient.Path("donationpost", id), f.Payload(), apiclient.AuthRequired)
	})
	if err == nil && ctx.Err() == nil {
		d.st.DonationPostByID.Succeed(post)
	}
	return post, err
}

// DeleteDonationPost removes campaign id.
func (d *Dispatcher) DeleteDonationPost(ctx context.Context, id int64) (store.Ack, error) {
	return run(ctx, d.st.DonationPostDelete, func(ctx context.Context) (store.Ack, error) {
		if _, err := d.identity(ctx); err != nil {
			return nil, err
		}
		return ack(ctx, d, http.MethodDelete, apiclient.Path("donationpost", id), nil, apiclient.AuthRequired)
	})
}

// Donate contributes to campaign postID on behalf of the acting user.
func (d *Dispatcher) Donate(ctx context.Context, postID int64, f domain.DonationForm) (domain.Donation, error) {
	return run(ctx, d.st.DonationCreate, func(ctx context.Context) (domain.Donation, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return domain.Donation{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.Donation{}, err
		}
		p := apiclient.Path("donation", postID, "user", s.ID, "create")
		return call[domain.Donation](ctx, d, http.MethodPost, p, f.Payload(), apiclient.AuthRequired)
	})
}

// MyDonations loads the acting user's contributions.
func (d *Dispatcher) MyDonations(ctx context.Context) ([]domain.Donation, error) {
	return run(ctx, d.st.DonationByUser, func(ctx context.Context) ([]domain.Donation, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return nil, err
		}
		return call[[]domain.Donation](ctx, d, http.MethodGet, apiclient.Path("donation", "user", s.ID), nil, apiclient.AuthRequired)
	})
}
