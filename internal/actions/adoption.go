package actions

import (
	"context"
	"net/http"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/store"
)

// ListAdoptions loads one page of adoption posts.
func (d *Dispatcher) ListAdoptions(ctx context.Context, q PageQuery) (store.AdoptionPage, error) {
	return run(ctx, d.st.AdoptionList, func(ctx context.Context) (store.AdoptionPage, error) {
		p := apiclient.WithQuery(apiclient.Path("adoption", "all"), q.values())
		return call[store.AdoptionPage](ctx, d, http.MethodGet, p, nil, apiclient.AuthOptional)
	})
}

// GetAdoption loads a single adoption post.
func (d *Dispatcher) GetAdoption(ctx context.Context, id int64) (domain.AdoptionPost, error) {
	return run(ctx, d.st.AdoptionByID, func(ctx context.Context) (domain.AdoptionPost, error) {
		return call[domain.AdoptionPost](ctx, d, http.MethodGet, apiclient.Path("adoption", id), nil, apiclient.AuthOptional)
	})
}

// AdoptionsByUser loads the adoption posts of uid, or of the acting user
// when uid is zero.
func (d *Dispatcher) AdoptionsByUser(ctx context.Context, uid int64, q PageQuery) (store.AdoptionPage, error) {
	return run(ctx, d.st.AdoptionByUser, func(ctx context.Context) (store.AdoptionPage, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return store.AdoptionPage{}, err
		}
		if uid <= 0 {
			uid = s.ID
		}
		p := apiclient.WithQuery(apiclient.Path("adoption", "user", uid), q.values())
		return call[store.AdoptionPage](ctx, d, http.MethodGet, p, nil, apiclient.AuthRequired)
	})
}

// CreateAdoption publishes a new adoption post owned by the acting user.
func (d *Dispatcher) CreateAdoption(ctx context.Context, f domain.AdoptionForm) (domain.AdoptionPost, error) {
	return run(ctx, d.st.AdoptionCreate, func(ctx context.Context) (domain.AdoptionPost, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return domain.AdoptionPost{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.AdoptionPost{}, err
		}
		p := apiclient.Path("adoption", s.ID, "createadoptionpost")
		return call[domain.AdoptionPost](ctx, d, http.MethodPost, p, f.Payload(), apiclient.AuthRequired)
	})
}

// UpdateAdoption edits post id. The by-id slice is refreshed with the result.
func (d *Dispatcher) UpdateAdoption(ctx context.Context, id int64, f domain.AdoptionForm) (domain.AdoptionPost, error) {
	post, err := run(ctx, d.st.AdoptionUpdate, func(ctx context.Context) (domain.AdoptionPost, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.AdoptionPost{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.AdoptionPost{}, err
		}
		return call[domain.AdoptionPost](ctx, d, http.MethodPost, apiclient.Path("adoption", id), f.Payload(), apiclient.AuthRequired)
	})
	if err == nil && ctx.Err() == nil {
		d.st.AdoptionByID.Succeed(post)
	}
	return post, err
}

// DeleteAdoption removes post id.
func (d *Dispatcher) DeleteAdoption(ctx context.Context, id int64) (store.Ack, error) {
	return run(ctx, d.st.AdoptionDelete, func(ctx context.Context) (store.Ack, error) {
		if _, err := d.identity(ctx); err != nil {
			return nil, err
		}
		return ack(ctx, d, http.MethodDelete, apiclient.Path("adoption", id), nil, apiclient.AuthRequired)
	})
}

// RequestAdoption asks the owner of post postID to hand the pet over to the
// acting user.
func (d *Dispatcher) RequestAdoption(ctx context.Context, postID int64, f domain.AdoptionRequestForm) (domain.AdoptionRequest, error) {
	return run(ctx, d.st.AdoptionRequestCreate, func(ctx context.Context) (domain.AdoptionRequest, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return domain.AdoptionRequest{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.AdoptionRequest{}, err
		}
		p := apiclient.Path("adoption", postID, "user", s.ID, "createadoptionrequest")
		return call[domain.AdoptionRequest](ctx, d, http.MethodPost, p, f.Payload(), apiclient.AuthRequired)
	})
}

// MyAdoptionRequests loads the requests the acting user has sent.
func (d *Dispatcher) MyAdoptionRequests(ctx context.Context) ([]domain.AdoptionRequest, error) {
	return run(ctx, d.st.AdoptionRequestByUser, func(ctx context.Context) ([]domain.AdoptionRequest, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return nil, err
		}
		return call[[]domain.AdoptionRequest](ctx, d, http.MethodGet, apiclient.Path("adoption", "requests", "user", s.ID), nil, apiclient.AuthRequired)
	})
}

// GetAdoptionRequest loads a single adoption request.
func (d *Dispatcher) GetAdoptionRequest(ctx context.Context, id int64) (domain.AdoptionRequest, error) {
	return run(ctx, d.st.AdoptionRequestByID, func(ctx context.Context) (domain.AdoptionRequest, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.AdoptionRequest{}, err
		}
		return call[domain.AdoptionRequest](ctx, d, http.MethodGet, apiclient.Path("adoption", "requests", id), nil, apiclient.AuthRequired)
	})
}
