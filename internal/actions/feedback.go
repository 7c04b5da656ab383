package actions

import (
	"context"
	"net/http"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
)

// SubmitFeedback sends the contact form. Anonymous visitors may submit it.
func (d *Dispatcher) SubmitFeedback(ctx context.Context, f domain.FeedbackForm) (domain.FeedbackEntry, error) {
	return run(ctx, d.st.FeedbackCreate, func(ctx context.Context) (domain.FeedbackEntry, error) {
		if err := checked(f.Validate()); err != nil {
			return domain.FeedbackEntry{}, err
		}
		return call[domain.FeedbackEntry](ctx, d, http.MethodPost, apiclient.Path("feedback", "create"), f.Payload(), apiclient.AuthOptional)
	})
}

// ListFeedback loads every feedback entry.
func (d *Dispatcher) ListFeedback(ctx context.Context) ([]domain.FeedbackEntry, error) {
	return run(ctx, d.st.FeedbackList, func(ctx context.Context) ([]domain.FeedbackEntry, error) {
		if _, err := d.identity(ctx); err != nil {
			return nil, err
		}
		return call[[]domain.FeedbackEntry](ctx, d, http.MethodGet, apiclient.Path("feedback", "all"), nil, apiclient.AuthRequired)
	})
}
