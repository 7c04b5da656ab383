package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/pawconnect/internal/domain"
)

func init() { gin.SetMode(gin.TestMode) }

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func newServer(t *testing.T, mutate func(*Options)) *Server {
	t.Helper()
	opts := Options{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		BareLists:  true,
		Seed:       true,
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// data decodes the envelope of w and its data into out.
func data(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil || !env.Success {
		t.Fatalf("not a success envelope (%d): %s", w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v (%s)", err, env.Data)
		}
	}
}

func signin(t *testing.T, s *Server, email, password string) domain.Session {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/auth/signin", "", domain.Credentials{Email: email, Password: password})
	if w.Code != http.StatusOK {
		t.Fatalf("signin %s: %d %s", email, w.Code, w.Body.String())
	}
	var sess domain.Session
	data(t, w, &sess)
	return sess
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) (msg, field string) {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   *struct {
			Field string `json:"field"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Success {
		t.Fatalf("not a failure envelope: %s", w.Body.String())
	}
	if body.Error != nil {
		field = body.Error.Field
	}
	return body.Message, field
}

func adoptionBody(name string) domain.AdoptionPost {
	return domain.AdoptionPost{Name: name, Type: "dog", Gender: "male", Location: "Oslo", Mobile: "555"}
}

func TestNew_RequiresSecret(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestSignin(t *testing.T) {
	s := newServer(t, nil)

	sess := signin(t, s, AdminEmail, AdminPassword)
	if sess.ID == 0 || sess.Token() == "" || sess.JWT.TokenType != "Bearer" {
		t.Fatalf("session = %+v", sess)
	}
	if len(sess.Roles) != 2 || sess.Roles[0].Name != domain.RoleAdmin {
		t.Fatalf("admin roles = %+v", sess.Roles)
	}
	claims, err := s.tokens.Validate(sess.Token())
	if err != nil || claims.UserID != sess.ID {
		t.Fatalf("Validate = %+v, %v", claims, err)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != domain.RoleAdmin {
		t.Fatalf("claim roles = %v", claims.Roles)
	}

	if byName := signin(t, s, "demo", UserPassword); byName.Email != UserEmail {
		t.Fatalf("username login = %+v", byName)
	}

	cases := []struct {
		name  string
		creds domain.Credentials
		code  int
	}{
		{"wrong password", domain.Credentials{Email: UserEmail, Password: "nope-nope"}, http.StatusUnauthorized},
		{"unknown user", domain.Credentials{Email: "ghost@x.io", Password: "whatever"}, http.StatusUnauthorized},
		{"short password", domain.Credentials{Email: UserEmail, Password: "x"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := do(t, s, http.MethodPost, "/api/auth/signin", "", tc.creds)
		if w.Code != tc.code {
			t.Fatalf("%s: code = %d (%s)", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestSignupVerifySignin(t *testing.T) {
	s := newServer(t, nil)
	form := domain.SignupForm{Name: "Kim", Username: "kim", Email: "kim@x.io", Password: "secret1"}

	w := do(t, s, http.MethodPost, "/api/auth/signup", "", form)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodPost, "/api/auth/signup", "", form); w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: %d", w.Code)
	}

	w = do(t, s, http.MethodPost, "/api/auth/signin", "", domain.Credentials{Email: form.Email, Password: form.Password})
	if msg, _ := errorBody(t, w); w.Code != http.StatusUnauthorized || !strings.Contains(msg, "verify") {
		t.Fatalf("unverified signin: %d %q", w.Code, msg)
	}

	tok, ok := s.VerificationToken(form.Email)
	if !ok {
		t.Fatalf("no verification token")
	}
	if w := do(t, s, http.MethodPost, "/api/auth/verify?token=bogus", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bogus verify: %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/api/auth/verify?token="+tok, "", nil); w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	signin(t, s, form.Email, form.Password)
}

func TestSignup_ValidationNamesField(t *testing.T) {
	s := newServer(t, nil)
	w := do(t, s, http.MethodPost, "/api/auth/signup", "", domain.SignupForm{Name: "Kim", Username: "kim", Email: "not-an-email", Password: "secret1"})
	if _, field := errorBody(t, w); w.Code != http.StatusBadRequest || field != "email" {
		t.Fatalf("code=%d field=%q", w.Code, field)
	}
}

func TestPasswordReset(t *testing.T) {
	s := newServer(t, nil)

	for _, email := range []string{"ghost@x.io", UserEmail} {
		if w := do(t, s, http.MethodPost, "/api/auth/resetrequest?email="+email, "", nil); w.Code != http.StatusOK {
			t.Fatalf("resetrequest %s: %d", email, w.Code)
		}
	}
	tok, ok := s.st.requestReset(UserEmail)
	if !ok {
		t.Fatalf("no reset token")
	}
	if w := do(t, s, http.MethodPut, "/api/auth/reset/"+tok, "", map[string]string{"password": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("short password: %d", w.Code)
	}
	if w := do(t, s, http.MethodPut, "/api/auth/reset/"+tok, "", map[string]string{"password": "brand-new"}); w.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodPut, "/api/auth/reset/"+tok, "", map[string]string{"password": "brand-new"}); w.Code != http.StatusBadRequest {
		t.Fatalf("token reused: %d", w.Code)
	}
	signin(t, s, UserEmail, "brand-new")
}

func TestAuthGates(t *testing.T) {
	now := time.Now()
	s := newServer(t, func(o *Options) { o.Now = func() time.Time { return now } })
	user := signin(t, s, UserEmail, UserPassword).Token()
	admin := signin(t, s, AdminEmail, AdminPassword).Token()

	expired := NewTokenManager("test-secret", time.Minute)
	expired.now = func() time.Time { return now.Add(-time.Hour) }
	u, _ := s.st.login(UserEmail)
	stale, err := expired.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name, method, path, token string
		code                      int
	}{
		{"anonymous on public", http.MethodGet, "/api/adoption/all", "", http.StatusOK},
		{"anonymous on user route", http.MethodGet, "/api/adoption/user/2", "", http.StatusUnauthorized},
		{"user on admin route", http.MethodGet, "/api/admin/stats", user, http.StatusForbidden},
		{"admin on admin route", http.MethodGet, "/api/admin/stats", admin, http.StatusOK},
		{"expired token", http.MethodGet, "/api/adoption/all", stale, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/adoption/all", "not.a.jwt", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/adoption/all", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		if w := do(t, s, tc.method, tc.path, tc.token, nil); w.Code != tc.code {
			t.Fatalf("%s: code = %d (%s)", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestAdoptionLifecycle(t *testing.T) {
	s := newServer(t, nil)
	owner := signin(t, s, UserEmail, UserPassword)
	admin := signin(t, s, AdminEmail, AdminPassword)
	if _, err := s.AddUser(domain.SignupForm{Name: "Other", Username: "other", Email: "other@x.io", Password: "secret1"}, false); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	other := signin(t, s, "other@x.io", "secret1")

	create := fmt.Sprintf("/api/adoption/%d/createadoptionpost", owner.ID)
	if w := do(t, s, http.MethodPost, create, other.Token(), adoptionBody("Rex")); w.Code != http.StatusForbidden {
		t.Fatalf("create as someone else: %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, create, owner.Token(), domain.AdoptionPost{Name: "Rex"}); w.Code != http.StatusBadRequest {
		t.Fatalf("create missing fields: %d", w.Code)
	}
	w := do(t, s, http.MethodPost, create, owner.Token(), adoptionBody("Rex"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var post domain.AdoptionPost
	data(t, w, &post)
	if post.ID == 0 || post.User == nil || post.User.ID != owner.ID || !post.Available() || post.PostedOn == "" {
		t.Fatalf("created = %+v", post)
	}

	var page domain.Page[domain.AdoptionPost]
	w = do(t, s, http.MethodGet, "/api/adoption/all?pageNo=0&pageSize=5", "", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil || page.TotalElements != 1 || page.Content[0].Name != "Rex" {
		t.Fatalf("bare list = %s", w.Body.String())
	}

	byID := fmt.Sprintf("/api/adoption/%d", post.ID)
	if w := do(t, s, http.MethodPost, byID, other.Token(), adoptionBody("Max")); w.Code != http.StatusForbidden {
		t.Fatalf("update by stranger: %d", w.Code)
	}
	w = do(t, s, http.MethodPost, byID, owner.Token(), adoptionBody("Max"))
	var updated domain.AdoptionPost
	data(t, w, &updated)
	if updated.Name != "Max" || updated.ID != post.ID || updated.User.ID != owner.ID {
		t.Fatalf("updated = %+v", updated)
	}

	request := func(as domain.Session) *httptest.ResponseRecorder {
		p := fmt.Sprintf("/api/adoption/%d/user/%d/createadoptionrequest", post.ID, as.ID)
		return do(t, s, http.MethodPost, p, as.Token(), domain.AdoptionRequest{Message: "please"})
	}
	if w := request(owner); w.Code != http.StatusForbidden {
		t.Fatalf("owner requesting own pet: %d", w.Code)
	}
	w = request(other)
	var req domain.AdoptionRequest
	data(t, w, &req)

	var stats domain.AdminStats
	data(t, do(t, s, http.MethodGet, "/api/admin/stats", admin.Token(), nil), &stats)
	if stats.PendingRequests != 1 || stats.TotalAdoptionPosts != 1 || stats.TotalUsers != 3 {
		t.Fatalf("stats = %+v", stats)
	}

	w = do(t, s, http.MethodPut, fmt.Sprintf("/api/adoption/requests/%d/approve", req.ID), admin.Token(), nil)
	var approved domain.AdoptionRequest
	data(t, w, &approved)
	if !approved.Approved || approved.Post.Available() {
		t.Fatalf("approved = %+v", approved)
	}
	if w := request(other); w.Code != http.StatusForbidden {
		t.Fatalf("request on adopted pet: %d", w.Code)
	}

	var mine []domain.AdoptionRequest
	w = do(t, s, http.MethodGet, fmt.Sprintf("/api/adoption/requests/user/%d", other.ID), other.Token(), nil)
	if err := json.Unmarshal(w.Body.Bytes(), &mine); err != nil || len(mine) != 1 {
		t.Fatalf("requests by user = %s", w.Body.String())
	}
	if w := do(t, s, http.MethodGet, fmt.Sprintf("/api/adoption/requests/%d", req.ID), owner.Token(), nil); w.Code != http.StatusOK {
		t.Fatalf("post owner reading request: %d", w.Code)
	}

	if w := do(t, s, http.MethodDelete, byID, owner.Token(), nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, byID, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestMissingInformationVisibility(t *testing.T) {
	s := newServer(t, nil)
	owner := signin(t, s, UserEmail, UserPassword)
	admin := signin(t, s, AdminEmail, AdminPassword)

	w := do(t, s, http.MethodPost, fmt.Sprintf("/api/missing/%d/createmissingpost", owner.ID), owner.Token(),
		domain.MissingPost{Name: "Tom", Type: "cat", Location: "Bergen", DateMissing: "2026-10-01"})
	var post domain.MissingPost
	data(t, w, &post)

	w = do(t, s, http.MethodPost, fmt.Sprintf("/api/missing/%d/information", post.ID), admin.Token(),
		domain.MissingInfo{Information: "seen at the park", Location: "Park"})
	var info domain.MissingInfo
	data(t, w, &info)
	if info.Approved || info.MissingPostID != post.ID {
		t.Fatalf("info = %+v", info)
	}

	count := func(tok string) int {
		var all []domain.MissingInfo
		w := do(t, s, http.MethodGet, "/api/missing/information/all", tok, nil)
		if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
			t.Fatalf("decode: %v (%s)", err, w.Body.String())
		}
		return len(all)
	}
	if n := count(owner.Token()); n != 0 {
		t.Fatalf("unapproved sighting visible to others: %d", n)
	}
	if w := do(t, s, http.MethodPut, fmt.Sprintf("/api/missing/information/%d/approve", info.ID), owner.Token(), nil); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin approve: %d", w.Code)
	}
	if w := do(t, s, http.MethodPut, fmt.Sprintf("/api/missing/information/%d/approve", info.ID), admin.Token(), nil); w.Code != http.StatusOK {
		t.Fatalf("approve: %d", w.Code)
	}
	if n := count(owner.Token()); n != 1 {
		t.Fatalf("approved sighting count = %d", n)
	}
}

func TestDonationRaisesTotal(t *testing.T) {
	s := newServer(t, func(o *Options) { o.BareLists = false })
	owner := signin(t, s, UserEmail, UserPassword)
	admin := signin(t, s, AdminEmail, AdminPassword)

	w := do(t, s, http.MethodPost, fmt.Sprintf("/api/donationpost/%d/create", owner.ID), owner.Token(),
		domain.DonationPost{Title: "Food", Type: "food", Goal: 100})
	var post domain.DonationPost
	data(t, w, &post)

	for _, amount := range []float64{10, 15.5} {
		p := fmt.Sprintf("/api/donation/%d/user/%d/create", post.ID, admin.ID)
		if w := do(t, s, http.MethodPost, p, admin.Token(), domain.Donation{Amount: amount}); w.Code != http.StatusCreated {
			t.Fatalf("donate: %d %s", w.Code, w.Body.String())
		}
	}
	p := fmt.Sprintf("/api/donation/%d/user/%d/create", post.ID, admin.ID)
	if w := do(t, s, http.MethodPost, p, admin.Token(), domain.Donation{Amount: 0}); w.Code != http.StatusBadRequest {
		t.Fatalf("zero donation: %d", w.Code)
	}

	var got domain.DonationPost
	data(t, do(t, s, http.MethodGet, fmt.Sprintf("/api/donationpost/%d", post.ID), "", nil), &got)
	if got.Raised != 25.5 {
		t.Fatalf("raised = %v", got.Raised)
	}

	// Lists are enveloped when BareLists is off.
	var mine []domain.Donation
	data(t, do(t, s, http.MethodGet, fmt.Sprintf("/api/donation/user/%d", admin.ID), admin.Token(), nil), &mine)
	if len(mine) != 2 {
		t.Fatalf("donations = %+v", mine)
	}
}

func TestBanUser(t *testing.T) {
	s := newServer(t, nil)
	user := signin(t, s, UserEmail, UserPassword)
	admin := signin(t, s, AdminEmail, AdminPassword)

	if w := do(t, s, http.MethodPut, fmt.Sprintf("/api/auth/admin/user/%d/ban", admin.ID), admin.Token(), nil); w.Code != http.StatusForbidden {
		t.Fatalf("banning an admin: %d", w.Code)
	}
	var banned domain.User
	data(t, do(t, s, http.MethodPut, fmt.Sprintf("/api/auth/admin/user/%d/ban", user.ID), admin.Token(), nil), &banned)
	if !banned.Banned {
		t.Fatalf("not banned: %+v", banned)
	}
	if w := do(t, s, http.MethodGet, "/api/adoption/all", user.Token(), nil); w.Code != http.StatusForbidden {
		t.Fatalf("banned token: %d", w.Code)
	}
	w := do(t, s, http.MethodPost, "/api/auth/signin", "", domain.Credentials{Email: UserEmail, Password: UserPassword})
	if w.Code != http.StatusForbidden {
		t.Fatalf("banned signin: %d", w.Code)
	}
}

func TestListUsers_Sorted(t *testing.T) {
	s := newServer(t, nil)
	admin := signin(t, s, AdminEmail, AdminPassword)

	var page domain.Page[domain.User]
	w := do(t, s, http.MethodGet, "/api/auth/users?sortBy=name&sortDir=desc&pageSize=1", admin.Token(), nil)
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalElements != 2 || page.TotalPages != 2 || page.Content[0].Name != "Demo User" {
		t.Fatalf("page = %+v", page)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newServer(t, nil)
	user := signin(t, s, UserEmail, UserPassword)

	w := do(t, s, http.MethodPut, fmt.Sprintf("/api/auth/user/%d/update", user.ID), user.Token(), domain.ProfileUpdate{Bio: "hi", Username: "admin"})
	if w.Code != http.StatusConflict {
		t.Fatalf("taken username: %d", w.Code)
	}
	var u domain.User
	data(t, do(t, s, http.MethodPut, fmt.Sprintf("/api/auth/user/%d/update", user.ID), user.Token(), domain.ProfileUpdate{Bio: "hi"}), &u)
	if u.Bio != "hi" || u.Name != "Demo User" {
		t.Fatalf("updated = %+v", u)
	}
}

func TestFeedback(t *testing.T) {
	s := newServer(t, nil)
	admin := signin(t, s, AdminEmail, AdminPassword)

	if w := do(t, s, http.MethodPost, "/api/feedback/create", "", domain.FeedbackEntry{Rating: 0, Description: "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("zero rating: %d", w.Code)
	}
	w := do(t, s, http.MethodPost, "/api/feedback/create", admin.Token(), domain.FeedbackEntry{Rating: 9, Description: "great", ContactPurpose: domain.DefaultContactPurpose})
	var fb domain.FeedbackEntry
	data(t, w, &fb)
	if fb.Email != AdminEmail || fb.CreatedAt == "" {
		t.Fatalf("feedback = %+v", fb)
	}
}

func upload(t *testing.T, s *Server, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "pet.png")
	_, _ = part.Write(content)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestUpload_Shapes(t *testing.T) {
	cases := []struct {
		shape UploadShape
		url   func(map[string]any, string) string
	}{
		{UploadBare, func(_ map[string]any, raw string) string {
			var s string
			_ = json.Unmarshal([]byte(raw), &s)
			return s
		}},
		{UploadEnvelope, func(m map[string]any, _ string) string { s, _ := m["data"].(string); return s }},
		{UploadData, func(m map[string]any, _ string) string { s, _ := m["data"].(string); return s }},
		{UploadURL, func(m map[string]any, _ string) string { s, _ := m["url"].(string); return s }},
	}
	for _, tc := range cases {
		t.Run(string(tc.shape), func(t *testing.T) {
			s := newServer(t, func(o *Options) { o.UploadShape = tc.shape })
			w := upload(t, s, pngBytes)
			if w.Code != http.StatusOK {
				t.Fatalf("upload: %d %s", w.Code, w.Body.String())
			}
			var m map[string]any
			_ = json.Unmarshal(w.Body.Bytes(), &m)
			url := tc.url(m, w.Body.String())
			if !strings.HasPrefix(url, "http://example.com/api/files/") || !strings.HasSuffix(url, ".png") {
				t.Fatalf("url = %q (%s)", url, w.Body.String())
			}

			got := do(t, s, http.MethodGet, strings.TrimPrefix(url, "http://example.com"), "", nil)
			if got.Code != http.StatusOK || got.Header().Get("Content-Type") != "image/png" || !bytes.Equal(got.Body.Bytes(), pngBytes) {
				t.Fatalf("serve: %d %q", got.Code, got.Header().Get("Content-Type"))
			}
		})
	}
}

func TestUpload_Rejections(t *testing.T) {
	s := newServer(t, func(o *Options) { o.MaxUploadBytes = int64(len(pngBytes)) })

	if w := upload(t, s, []byte("plain text, not an image")); w.Code != http.StatusBadRequest {
		t.Fatalf("text upload: %d", w.Code)
	}
	if w := upload(t, s, append(append([]byte{}, pngBytes...), 0)); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized upload: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/files/missing.png", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown file: %d", w.Code)
	}
}

func TestHealthAndCORS(t *testing.T) {
	s := newServer(t, func(o *Options) { o.AllowedOrigins = []string{"https://app.example"} })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("health: %d acao=%q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("no request id")
	}
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, func(o *Options) { o.RateRPS = 0.001; o.RateBurst = 1 })
	if w := do(t, s, http.MethodGet, "/api/adoption/all", "", nil); w.Code != http.StatusOK {
		t.Fatalf("first: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/adoption/all", "", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", w.Code)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return")
	}
}
