package actions

import (
	"context"
	"net/http"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/store"
)

// Admin operations only require a credential locally; the backend decides
// whether it carries the admin role and answers 403 otherwise.

// AdminStats loads the dashboard counters.
func (d *Dispatcher) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	return run(ctx, d.st.AdminStats, func(ctx context.Context) (domain.AdminStats, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.AdminStats{}, err
		}
		return call[domain.AdminStats](ctx, d, http.MethodGet, apiclient.Path("admin", "stats"), nil, apiclient.AuthRequired)
	})
}

// AdminUsers loads one page of registered users.
func (d *Dispatcher) AdminUsers(ctx context.Context, q PageQuery) (store.UserPage, error) {
	return run(ctx, d.st.AdminUsers, func(ctx context.Context) (store.UserPage, error) {
		if _, err := d.identity(ctx); err != nil {
			return store.UserPage{}, err
		}
		p := apiclient.WithQuery(apiclient.Path("auth", "users"), q.values())
		return call[store.UserPage](ctx, d, http.MethodGet, p, nil, apiclient.AuthRequired)
	})
}

// BanUser toggles the ban flag of user uid.
func (d *Dispatcher) BanUser(ctx context.Context, uid int64) (store.Ack, error) {
	return run(ctx, d.st.AdminBan, func(ctx context.Context) (store.Ack, error) {
		if _, err := d.identity(ctx); err != nil {
			return nil, err
		}
		return ack(ctx, d, http.MethodPut, apiclient.Path("auth", "admin", "user", uid, "ban"), nil, apiclient.AuthRequired)
	})
}

// AdminAdoptionRequests loads every adoption request.
func (d *Dispatcher) AdminAdoptionRequests(ctx context.Context) ([]domain.AdoptionRequest, error) {
	return run(ctx, d.st.AdminAdoptionRequests, func(ctx context.Context) ([]domain.AdoptionRequest, error) {
		if _, err := d.identity(ctx); err != nil {
			return nil, err
		}
		return call[[]domain.AdoptionRequest](ctx, d, http.MethodGet, apiclient.Path("adoption", "requests", "all"), nil, apiclient.AuthRequired)
	})
}

// ApproveAdoptionRequest approves adoption request id.
func (d *Dispatcher) ApproveAdoptionRequest(ctx context.Context, id int64) (domain.AdoptionRequest, error) {
	return run(ctx, d.st.AdminApproveRequest, func(ctx context.Context) (domain.AdoptionRequest, error) {
		if _, err := d.identity(ctx); err != nil {
			return domain.AdoptionRequest{}, err
		}
		return call[domain.AdoptionRequest](ctx, d, http.MethodPut, apiclient.Path("adoption", "requests", id, "approve"), nil, apiclient.AuthRequired)
	})
}
