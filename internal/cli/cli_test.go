package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/fakeapi"
	"github.com/tbourn/pawconnect/internal/notify"
)

type env struct {
	api string
	db  string
	dir string
	srv *fakeapi.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv, err := fakeapi.New(fakeapi.Options{
		JWTSecret:  "cli-test",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		BareLists:  true,
		Seed:       true,
	})
	if err != nil {
		t.Fatalf("fakeapi.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	dir := t.TempDir()
	return &env{api: ts.URL, db: filepath.Join(dir, "session.db"), dir: dir, srv: srv}
}

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// run executes args against e's backend and session file and decodes the
// data member of the output.
func (e *env) run(t *testing.T, args ...string) map[string]any {
	t.Helper()
	full := append([]string{"--api", e.api, "--db", e.db, "--log-level", "error"}, args...)
	stdout, stderr, err := runCLI(t, full)
	if err != nil {
		t.Fatalf("pawconnect %v: %v\nstderr:\n%s", args, err, stderr)
	}
	var out struct {
		Data any `json:"data"`
	}
	if err := json.Unmarshal(stdout, &out); err != nil {
		t.Fatalf("decode stdout: %v\n%s", err, stdout)
	}
	m, _ := out.Data.(map[string]any)
	return m
}

func (e *env) fail(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"--api", e.api, "--db", e.db, "--log-level", "error"}, args...)
	_, stderr, err := runCLI(t, full)
	if err == nil {
		t.Fatalf("pawconnect %v succeeded; want an error", args)
	}
	return string(stderr), err
}

func (e *env) image(t *testing.T, name string) string {
	t.Helper()
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	p := filepath.Join(e.dir, name)
	if err := os.WriteFile(p, png, 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return p
}

func TestLoginWhoamiLogout(t *testing.T) {
	e := newEnv(t)

	got := e.run(t, "login", "--email", fakeapi.UserEmail, "--password", fakeapi.UserPassword)
	user, _ := got["user"].(map[string]any)
	if user["email"] != fakeapi.UserEmail {
		t.Fatalf("login data = %v", got)
	}
	if _, leaked := got["jwtdto"]; leaked {
		t.Fatalf("credential printed: %v", got)
	}

	// A fresh process reads the session back from the database file.
	who := e.run(t, "whoami")
	roles, _ := who["roles"].(map[string]any)
	if who["loggedIn"] != true || who["tokenUsable"] != true || roles["isUser"] != true || roles["isAdmin"] != false {
		t.Fatalf("whoami = %v", who)
	}

	// A wrong password on the login command leaves the stored session alone.
	stderr, err := e.fail(t, "login", "--email", fakeapi.UserEmail, "--password", "not-it!")
	if !errors.Is(err, apiclient.ErrUnauthenticated) || strings.Contains(stderr, "hint:") {
		t.Fatalf("bad login err = %v, stderr = %q", err, stderr)
	}
	if who := e.run(t, "whoami"); who["loggedIn"] != true {
		t.Fatalf("whoami after bad login = %v", who)
	}

	e.run(t, "logout")
	if _, err := e.fail(t, "whoami"); !errors.Is(err, errNotSignedIn) {
		t.Fatalf("whoami after logout err = %v", err)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	e := newEnv(t)
	_, err := e.fail(t, "login", "--email", fakeapi.UserEmail, "--password", "not-it!")
	if !errors.Is(err, apiclient.ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}
}

func TestAdoptionCreateListAndFilter(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "--email", fakeapi.UserEmail, "--password", fakeapi.UserPassword)

	post := e.run(t, "adoption", "create",
		"--name", "Rex", "--breed", "Mixed", "--trained", "--color", "brown",
		"--description", "Friendly", "--condition", "Healthy", "--location", "Athens",
		"--behaviour", "Calm", "--food", "Kibble", "--gender", "male", "--type", "dog",
		"--mobile", "6900000000", "--image", e.image(t, "rex.png"))
	if post["training"] != "Trained" || post["vaccine"] != "Not vaccinated" {
		t.Fatalf("post labels = %v", post)
	}
	if img, _ := post["imageone"].(string); !strings.Contains(img, "/api/files/") || post["imagetwo"] != "" {
		t.Fatalf("post images = %v", post)
	}

	page := e.run(t, "adoption", "list", "--type", "dog")
	if content, _ := page["content"].([]any); len(content) != 1 {
		t.Fatalf("dog page = %v", page)
	}
	page = e.run(t, "adoption", "list", "--type", "cat")
	if content, _ := page["content"].([]any); len(content) != 0 {
		t.Fatalf("cat page = %v", page)
	}

	mine := e.run(t, "adoption", "mine")
	if mine["totalElements"] != float64(1) {
		t.Fatalf("mine = %v", mine)
	}
}

func TestAdoptionCreate_RequiresAnImage(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "--email", fakeapi.UserEmail, "--password", fakeapi.UserPassword)

	_, err := e.fail(t, "adoption", "create", "--name", "Rex", "--type", "dog")
	var ae *apiclient.Error
	if !errors.As(err, &ae) || ae.Field != "image" {
		t.Fatalf("err = %v", err)
	}
}

func TestAdminStats_ForbiddenForUser(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "--email", fakeapi.UserEmail, "--password", fakeapi.UserPassword)

	stderr, err := e.fail(t, "admin", "stats")
	if !errors.Is(err, apiclient.ErrForbidden) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(stderr, apiclient.MsgForbidden) {
		t.Fatalf("stderr = %q", stderr)
	}

	e.run(t, "logout")
	e.run(t, "login", "--email", fakeapi.AdminEmail, "--password", fakeapi.AdminPassword)
	stats := e.run(t, "admin", "stats")
	if len(stats) == 0 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestAuthenticatedCommandsWithoutSession(t *testing.T) {
	e := newEnv(t)
	tests := [][]string{
		{"adoption", "mine"},
		{"donation", "mine"},
		{"donation", "donate", "1", "--amount", "5"},
		{"admin", "requests"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := e.fail(t, args...); !errors.Is(err, apiclient.ErrAuthRequired) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestRegisterVerifyLogin(t *testing.T) {
	e := newEnv(t)
	u := e.run(t, "register", "--name", "Nora", "--username", "nora", "--email", "nora@example.com", "--password", "secret12")
	if u["username"] != "nora" {
		t.Fatalf("register = %v", u)
	}
	if _, err := e.fail(t, "login", "--email", "nora@example.com", "--password", "secret12"); !errors.Is(err, apiclient.ErrUnauthenticated) {
		t.Fatalf("login before verify err = %v", err)
	}
	tok, ok := e.srv.VerificationToken("nora@example.com")
	if !ok {
		t.Fatalf("no verification token")
	}
	e.run(t, "verify", tok)
	e.run(t, "login", "--email", "nora", "--password", "secret12")
}

func TestShow_RejectsBadID(t *testing.T) {
	e := newEnv(t)
	if _, err := e.fail(t, "adoption", "show", "abc"); err == nil || !strings.Contains(err.Error(), "invalid id") {
		t.Fatalf("err = %v", err)
	}
}

func TestTerminalRedirect(t *testing.T) {
	var buf bytes.Buffer
	nav := &terminal{w: &buf, loginPath: "/login"}
	if nav.Location() != "" {
		t.Fatalf("location = %q", nav.Location())
	}
	nav.Redirect("/login")
	if !strings.Contains(buf.String(), "pawconnect login") {
		t.Fatalf("hint = %q", buf.String())
	}
}

func TestDonationList_Match(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "--email", fakeapi.UserEmail, "--password", fakeapi.UserPassword)
	e.run(t, "donation", "create", "--title", "Winter food drive", "--description", "Kibble for the shelter", "--type", "food", "--goal", "100")
	e.run(t, "donation", "create", "--title", "Vet bills", "--description", "Surgery for Max", "--type", "money", "--goal", "500")

	stdout, stderr, err := runCLI(t, []string{"--api", e.api, "--db", e.db, "--log-level", "error", "donation", "list", "--match", "shelter food"})
	if err != nil {
		t.Fatalf("list --match: %v\n%s", err, stderr)
	}
	var out struct {
		Data []struct {
			Item  map[string]any `json:"item"`
			Score float64        `json:"score"`
		} `json:"data"`
	}
	if err := json.Unmarshal(stdout, &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(out.Data) != 1 || out.Data[0].Item["title"] != "Winter food drive" || out.Data[0].Score <= 0 {
		t.Fatalf("ranked = %+v", out.Data)
	}
}

func TestAdoptionCreate_FailedImageSkippedWhenOthersUploaded(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "--email", fakeapi.UserEmail, "--password", fakeapi.UserPassword)

	notImage := filepath.Join(e.dir, "notes.txt")
	if err := os.WriteFile(notImage, []byte("just some text"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	stdout, stderr, err := runCLI(t, []string{"--api", e.api, "--db", e.db, "--log-level", "error",
		"adoption", "create", "--name", "Rex", "--breed", "Mixed", "--color", "brown",
		"--description", "Friendly", "--condition", "Healthy", "--location", "Athens",
		"--behaviour", "Calm", "--food", "Kibble", "--gender", "male", "--type", "dog",
		"--mobile", "6900000000",
		"--image", e.image(t, "good.png"), "--image", notImage, "--image", filepath.Join(e.dir, "missing.png")})
	if err != nil {
		t.Fatalf("create: %v\n%s", err, stderr)
	}

	var out struct {
		Data    map[string]any  `json:"data"`
		Notices []notify.Notice `json:"notices"`
	}
	if err := json.Unmarshal(stdout, &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if img, _ := out.Data["imageone"].(string); !strings.Contains(img, "/api/files/") || out.Data["imagetwo"] != "" || out.Data["imagethree"] != "" {
		t.Fatalf("images = %v", out.Data)
	}
	var warned []string
	for _, n := range out.Notices {
		if n.Level == notify.LevelWarning {
			warned = append(warned, n.Message)
		}
	}
	if len(warned) != 2 || !strings.HasPrefix(warned[0], "notes.txt:") || !strings.HasPrefix(warned[1], "missing.png:") {
		t.Fatalf("warnings = %v", warned)
	}
}

func TestMissingCreate_FailedImageFailsAllPolicy(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "--email", fakeapi.UserEmail, "--password", fakeapi.UserPassword)

	_, err := e.fail(t, "missing", "create", "--name", "Luna", "--type", "cat",
		"--image", filepath.Join(e.dir, "missing.png"))
	var ae *apiclient.Error
	if !errors.As(err, &ae) || ae.Field != "image" || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}
