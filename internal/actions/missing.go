package actions

import (
	"context"
	"net/http"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/store"
)

// ListMissing loads one page of missing-pet reports.
func (d *Dispatcher) ListMissing(ctx context.Context, q PageQuery) (store.MissingPage, error) {
	return run(ctx, d.st.MissingList, func(ctx context.Context) (store.MissingPage, error) {
		p := apiclient.WithQuery(apiclient.Path("missing", "all"), q.values())
		return call[store.MissingPage](ctx, d, http.MethodGet, p, nil, apiclient.AuthOptional)
	})
}

// GetMissing loads a single report.
func (d *Dispatcher) GetMissing(ctx context.Context, id int64) (domain.MissingPost, error) {
	return run(ctx, d.st.MissingByID, func(ctx context.Context) (domain.MissingPost, error) {
		return call[domain.MissingPost](ctx, d, http.MethodGet, apiclient.Path("missing", id), nil, apiclient.AuthOptional)
	})
}

// MissingByUser loads the reports of uid, or of the acting user when uid is
// zero.
func (d *Dispatcher) MissingByUser(ctx context.Context, uid int64, q PageQuery) (store.MissingPage, error) {
	return run(ctx, d.st.MissingByUser, func(ctx context.Context) (store.MissingPage, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return store.MissingPage{}, err
		}
		if uid <= 0 {
			uid = s.ID
		}
		p := apiclient.WithQuery(apiclient.Path("missing", "user", uid), q.values())
		return call[store.MissingPage](ctx, d, http.MethodGet, p, nil, apiclient.AuthRequired)
	})
}

// CreateMissing files a new report owned by the acting user.
func (d *Dispatcher) CreateMissing(ctx context.Context, f domain.MissingForm) (domain.MissingPost, error) {
	return run(ctx, d.st.MissingCreate, func(ctx context.Context) (domain.MissingPost, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return domain.MissingPost{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.MissingPost{}, err
		}
		p := apiclient.Path("missing", s.ID, "createmissingpost")
		return call[domain.MissingPost](ctx, d, http.MethodPost, p, f.Payload(), apiclient.AuthRequired)
	})
}

// UpdateMissing edits report id. The by-id slice is refreshed with the
// result.
func (d *Dispatcher) UpdateMissing(ctx context.Context, id int64, f domain.MissingForm) (domain.MissingPost, error) {
	post, err := run(ctx, d.st.MissingUpdate, func(ctx context.Context) (domain.MissingPost, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.MissingPost{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.MissingPost{}, err
		}
		return call[domain.MissingPost](ctx, d, http.MethodPut, apiclient.Path("missing", id), f.Payload(), apiclient.AuthRequired)
	})
	if err == nil && ctx.Err() == nil {
		d.st.MissingByID.Succeed(post)
	}
	return post, err
}

// DeleteMissing removes report id.
func (d *Dispatcher) DeleteMissing(ctx context.Context, id int64) (store.Ack, error) {
	return run(ctx, d.st.MissingDelete, func(ctx context.Context) (store.Ack, error) {
		if _, err := d.identity(ctx); err != nil {
			return nil, err
		}
		return ack(ctx, d, http.MethodDelete, apiclient.Path("missing", id), nil, apiclient.AuthRequired)
	})
}

// ReportSighting sends information about missing pet postID. Sightings are
// held for admin approval.
func (d *Dispatcher) ReportSighting(ctx context.Context, postID int64, f domain.MissingInfoForm) (domain.MissingInfo, error) {
	return run(ctx, d.st.MissingInfoCreate, func(ctx context.Context) (domain.MissingInfo, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.MissingInfo{}, err
		}
		if err := checked(f.Validate()); err != nil {
			return domain.MissingInfo{}, err
		}
		p := apiclient.Path("missing", postID, "information")
		return call[domain.MissingInfo](ctx, d, http.MethodPost, p, f.Payload(), apiclient.AuthRequired)
	})
}

// ListSightings loads every reported sighting.
func (d *Dispatcher) ListSightings(ctx context.Context) ([]domain.MissingInfo, error) {
	return run(ctx, d.st.MissingInfoList, func(ctx context.Context) ([]domain.MissingInfo, error) {
		if _, err := d.identity(ctx); err != nil {
			return nil, err
		}
		return call[[]domain.MissingInfo](ctx, d, http.MethodGet, apiclient.Path("missing", "information", "all"), nil, apiclient.AuthRequired)
	})
}

// GetSighting loads a single sighting.
func (d *Dispatcher) GetSighting(ctx context.Context, id int64) (domain.MissingInfo, error) {
	return run(ctx, d.st.MissingInfoByID, func(ctx context.Context) (domain.MissingInfo, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.MissingInfo{}, err
		}
		return call[domain.MissingInfo](ctx, d, http.MethodGet, apiclient.Path("missing", "information", id), nil, apiclient.AuthRequired)
	})
}

// ApproveSighting publishes sighting id.
func (d *Dispatcher) ApproveSighting(ctx context.Context, id int64) (domain.MissingInfo, error) {
	return run(ctx, d.st.MissingInfoApprove, func(ctx context.Context) (domain.MissingInfo, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.MissingInfo{}, err
		}
		return call[domain.MissingInfo](ctx, d, http.MethodPut, apiclient.Path("missing", "information", id, "approve"), nil, apiclient.AuthRequired)
	})
}
