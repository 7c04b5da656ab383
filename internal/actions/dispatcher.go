// Package actions holds the dispatchers the front end calls for every
// backend operation. A dispatcher resolves the acting identity, checks and
// transforms the form locally, delegates to the API client and records the
// outcome in the owning store slice before returning it to the caller.
package actions

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/session"
	"github.com/tbourn/pawconnect/internal/store"
)

// Dispatcher binds the API client, the session cache and the store.
type Dispatcher struct {
	api  *apiclient.Client
	sess *session.Cache
	st   *store.Store

	// loginMu orders the Login slice write-back and the session swap so
	// both name the same winner.
	loginMu sync.Mutex
}

// ErrSuperseded reports a login whose answer arrived after a later login
// had already taken over the Login slice. The session was left untouched.
var ErrSuperseded = errors.New("superseded by a later request")

// New returns a Dispatcher. All three collaborators are required.
func New(api *apiclient.Client, sess *session.Cache, st *store.Store) *Dispatcher {
	return &Dispatcher{api: api, sess: sess, st: st}
}

// Store exposes the slices the dispatcher writes to.
func (d *Dispatcher) Store() *store.Store { return d.st }

// Session exposes the identity cache.
func (d *Dispatcher) Session() *session.Cache { return d.sess }

// PageQuery selects one page of a paginated listing.
type PageQuery struct {
	PageNo   int
	PageSize int
	SortBy   string
	SortDir  string
}

// DefaultPageSize is used when a query leaves the size unset.
const DefaultPageSize = 10

func (q PageQuery) values() url.Values {
	v := url.Values{}
	no, size := q.PageNo, q.PageSize
	if no < 0 {
		no = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	v.Set("pageNo", strconv.Itoa(no))
	v.Set("pageSize", strconv.Itoa(size))
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortDir != "" {
		v.Set("sortDir", q.SortDir)
	}
	return v
}

// run starts sl, executes fn under the request context and writes the
// outcome back. The error is returned after it has been recorded.
func run[T any](ctx context.Context, sl *store.Slice[T], fn func(context.Context) (T, error)) (T, error) {
	req := sl.Start(ctx)
	v, err := fn(req.Context())
	if err != nil {
		req.Fail(apiclient.MessageOf(err))
		return v, err
	}
	req.Succeed(v)
	return v, nil
}

// identity resolves the acting user and fails with an auth-required error,
// without any network call, when no usable credential is held.
func (d *Dispatcher) identity(ctx context.Context) (domain.Session, error) {
	return d.sess.Authenticated(ctx)
}

// checked maps a local form error onto the client's validation error.
func checked(err error) error {
	if err == nil {
		return nil
	}
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		return apiclient.Validation(fe.Field, fe.Message)
	}
	return err
}

func call[T any](ctx context.Context, d *Dispatcher, method, path string, body any, auth apiclient.AuthMode) (T, error) {
	return apiclient.Do[T](ctx, d.api, method, path, body, auth)
}

func ack(ctx context.Context, d *Dispatcher, method, path string, body any, auth apiclient.AuthMode) (store.Ack, error) {
	raw, err := d.api.Call(ctx, method, path, body, auth)
	if err != nil {
		return nil, err
	}
	return store.Ack(raw), nil
}
