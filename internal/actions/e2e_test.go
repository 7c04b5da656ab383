package actions

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/fakeapi"
	"github.com/tbourn/pawconnect/internal/notify"
	"github.com/tbourn/pawconnect/internal/session"
	"github.com/tbourn/pawconnect/internal/store"
	"github.com/tbourn/pawconnect/internal/upload"
)

type navRecorder struct {
	mu        sync.Mutex
	loc       string
	redirects []string
}

func (n *navRecorder) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loc
}

func (n *navRecorder) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loc = path
	n.redirects = append(n.redirects, path)
}

func (n *navRecorder) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.redirects)
}

type client struct {
	d     *Dispatcher
	api   *apiclient.Client
	notes *notify.Recorder
	nav   *navRecorder
}

func newClient(t *testing.T, url string) *client {
	t.Helper()
	rec := &notify.Recorder{}
	nav := &navRecorder{loc: "/adoption"}
	api := apiclient.New(apiclient.Options{BaseURL: url, Timeout: 5 * time.Second, Notifier: rec, Navigator: nav})
	sess := session.New(session.NewMemoryStorage(), api)
	api.SetTokenSource(sess)
	return &client{d: New(api, sess, store.New()), api: api, notes: rec, nav: nav}
}

// TestEndToEnd_AgainstFakeBackend drives the dispatchers, the session cache,
// the upload coordinator and the adapter against the in-memory backend.
func TestEndToEnd_AgainstFakeBackend(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.Now().UnixNano())
	srv, err := fakeapi.New(fakeapi.Options{
		JWTSecret:   "e2e",
		TokenTTL:    time.Hour,
		BcryptCost:  bcrypt.MinCost,
		BareLists:   true,
		UploadShape: fakeapi.UploadEnvelope,
		Seed:        true,
		Now:         func() time.Time { return time.Unix(0, clock.Load()) },
	})
	if err != nil {
		t.Fatalf("fakeapi.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	ctx := context.Background()

	user := newClient(t, ts.URL)
	admin := newClient(t, ts.URL)

	if _, err := user.d.Login(ctx, fakeapi.UserEmail, "wrong-password"); !errors.Is(err, apiclient.ErrUnauthenticated) {
		t.Fatalf("bad login err = %v", err)
	}
	if st := user.d.Store().Login.Snapshot(); !st.Failed() || st.Error != "Invalid email or password" {
		t.Fatalf("login slice = %+v", st)
	}
	me, err := user.d.Login(ctx, fakeapi.UserEmail, fakeapi.UserPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if r := user.d.Session().Roles(); r.IsAdmin || !r.IsUser {
		t.Fatalf("user roles = %+v", r)
	}
	if _, err := admin.d.Login(ctx, fakeapi.AdminEmail, fakeapi.AdminPassword); err != nil {
		t.Fatalf("admin Login: %v", err)
	}
	if !admin.d.Session().Roles().IsAdmin {
		t.Fatalf("admin not recognized")
	}

	// Upload an image, then create a post referencing it.
	form := upload.NewAdoptionForm(user.api, upload.WithNotifier(user.notes))
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	if err := <-form.Choose(ctx, 0, "rex.png", png); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !form.Ready() {
		t.Fatalf("form not ready: %+v", form.Field(0).Snapshot())
	}
	f := validAdoption()
	copy(f.Images[:], form.Images())
	post, err := user.d.CreateAdoption(ctx, f)
	if err != nil {
		t.Fatalf("CreateAdoption: %v", err)
	}
	if post.User == nil || post.User.ID != me.ID || post.Training != domain.Trained || post.ImageOne == "" || post.ImageTwo != "" {
		t.Fatalf("post = %+v", post)
	}

	page, err := user.d.ListAdoptions(ctx, PageQuery{})
	if err != nil || page.TotalElements != 1 {
		t.Fatalf("ListAdoptions = %+v, %v", page, err)
	}
	if st := user.d.Store().AdoptionList.Snapshot(); !st.Succeeded() || st.Data == nil || len(st.Data.Content) != 1 {
		t.Fatalf("list slice = %+v", st)
	}

	// Admin requests the pet, then approves the request.
	req, err := admin.d.RequestAdoption(ctx, post.ID, domain.AdoptionRequestForm{Message: "I have a garden"})
	if err != nil {
		t.Fatalf("RequestAdoption: %v", err)
	}
	approved, err := admin.d.ApproveAdoptionRequest(ctx, req.ID)
	if err != nil || !approved.Approved {
		t.Fatalf("Approve = %+v, %v", approved, err)
	}

	// A regular user hitting an admin endpoint gets 403 and the notice.
	if _, err := user.d.AdminStats(ctx); !errors.Is(err, apiclient.ErrForbidden) {
		t.Fatalf("AdminStats as user err = %v", err)
	}
	if user.notes.Count(apiclient.MsgForbidden) != 1 {
		t.Fatalf("notices = %+v", user.notes.Notices())
	}

	// An unknown post is a 404 with the not-found notice.
	before := len(user.notes.Notices())
	_, err = user.d.Donate(ctx, 999, domain.DonationForm{Amount: 5})
	if !errors.Is(err, apiclient.ErrNotFound) {
		t.Fatalf("Donate to unknown post err = %v", err)
	}
	if n := len(user.notes.Notices()); n != before+1 {
		t.Fatalf("notices after 404 = %d", n)
	}

	// Let the user's token lapse on the server: concurrent calls produce a
	// single session clear and a single redirect.
	clock.Add(int64(2 * time.Hour))
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = user.d.ListAdoptions(ctx, PageQuery{})
		}()
	}
	wg.Wait()
	if _, ok := user.d.Session().Current(); ok {
		t.Fatalf("session survived an expired token")
	}
	if n := user.nav.count(); n != 1 {
		t.Fatalf("redirects = %d; want 1", n)
	}
	if n := user.notes.Count(apiclient.MsgSessionExpired); n != 1 {
		t.Fatalf("expiry notices = %d; want 1", n)
	}

	// Without a session, authenticated operations fail locally.
	if _, err := user.d.MyDonations(ctx); !errors.Is(err, apiclient.ErrAuthRequired) {
		t.Fatalf("MyDonations err = %v", err)
	}
}
