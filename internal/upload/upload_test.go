package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/notify"
)

var (
	pngA = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	gifB = append([]byte("GIF89a"), make([]byte, 32)...)
)

// stubUploader answers each call with the next queued result. A call whose
// gate is set blocks until it is closed.
type stubUploader struct {
	mu      sync.Mutex
	results []stubResult
	calls   []string
}

type stubResult struct {
	ref  string
	err  error
	gate chan struct{}
}

func (s *stubUploader) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	_, _ = io.ReadAll(r)
	s.mu.Lock()
	s.calls = append(s.calls, filename)
	res := s.results[0]
	s.results = s.results[1:]
	s.mu.Unlock()
	if res.gate != nil {
		<-res.gate
	}
	return res.ref, res.err
}

func TestSelect_BuildsPreviewSynchronously(t *testing.T) {
	f := NewField(&stubUploader{})
	if err := f.Select("a.png", pngA); err != nil {
		t.Fatalf("Select: %v", err)
	}
	st := f.Snapshot()
	if st.Phase != PhasePreviewing || st.FileName != "a.png" || st.MIME != "image/png" {
		t.Fatalf("state = %+v", st)
	}
	if !strings.HasPrefix(st.Preview, "data:image/png;base64,") {
		t.Fatalf("preview = %.40q", st.Preview)
	}
	if st.Remote != "" || st.Error != "" {
		t.Fatalf("fresh selection carries stale data: %+v", st)
	}
}

func TestSelect_RejectsAndLeavesFieldUnchanged(t *testing.T) {
	f := NewField(&stubUploader{}, WithMaxBytes(int64(len(pngA))))
	if err := f.Select("a.png", pngA); err != nil {
		t.Fatalf("Select: %v", err)
	}
	before := f.Snapshot()

	cases := []struct {
		name string
		data []byte
	}{
		{"too large", append(append([]byte{}, pngA...), 0)},
		{"not an image", []byte("hello, plain text")},
		{"empty", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.Select("x", tc.data)
			if !errors.Is(err, apiclient.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
			if f.Snapshot() != before {
				t.Fatalf("field changed: %+v", f.Snapshot())
			}
		})
	}
}

func TestUpload_SuccessReplacesPreview(t *testing.T) {
	up := &stubUploader{results: []stubResult{{ref: "http://cdn/a.png"}}}
	f := NewField(up)
	_ = f.Select("a.png", pngA)

	ref, err := f.Upload(context.Background())
	if err != nil || ref != "http://cdn/a.png" {
		t.Fatalf("Upload = %q, %v", ref, err)
	}
	st := f.Snapshot()
	if st.Phase != PhaseUploaded || st.Preview != ref || st.Remote != ref {
		t.Fatalf("state = %+v", st)
	}
	if up.calls[0] != "a.png" {
		t.Fatalf("uploaded as %q", up.calls[0])
	}
}

func TestUpload_NothingSelected(t *testing.T) {
	f := NewField(&stubUploader{})
	if _, err := f.Upload(context.Background()); !errors.Is(err, apiclient.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

// A is selected and previewed, its upload is rejected, then B is selected.
func TestUpload_FailThenReselect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiclient.UploadPath {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"success":false,"message":"bad file"}`)
	}))
	defer srv.Close()

	rec := &notify.Recorder{}
	api := apiclient.New(apiclient.Options{BaseURL: srv.URL, HTTPClient: srv.Client(), Notifier: notify.Discard})
	f := NewField(api, WithNotifier(rec))

	if err := f.Select("a.png", pngA); err != nil {
		t.Fatalf("Select A: %v", err)
	}
	previewA := f.Snapshot().Preview

	_, err := f.Upload(context.Background())
	if !errors.Is(err, apiclient.ErrRejected) {
		t.Fatalf("want ErrRejected, got %v", err)
	}
	st := f.Snapshot()
	if st.Phase != PhaseFailed || st.Error != "bad file" || st.Preview != previewA || st.Remote != "" {
		t.Fatalf("after failure: %+v", st)
	}
	if rec.Count("Upload failed: bad file") != 1 {
		t.Fatalf("notices = %+v", rec.Notices())
	}

	if err := f.Select("b.gif", gifB); err != nil {
		t.Fatalf("Select B: %v", err)
	}
	st = f.Snapshot()
	if st.Phase != PhasePreviewing || st.Error != "" || st.Remote != "" || !strings.HasPrefix(st.Preview, "data:image/gif;base64,") {
		t.Fatalf("after reselect: %+v", st)
	}
}

func TestUpload_StaleResultDiscarded(t *testing.T) {
	gate := make(chan struct{})
	up := &stubUploader{results: []stubResult{{ref: "http://cdn/a.png", gate: gate}}}
	f := NewField(up)
	_ = f.Select("a.png", pngA)

	done := make(chan error, 1)
	go func() {
		_, err := f.Upload(context.Background())
		done <- err
	}()
	waitFor(t, func() bool { return f.Snapshot().Phase == PhaseUploading })

	if err := f.Select("b.gif", gifB); err != nil {
		t.Fatalf("Select B: %v", err)
	}
	close(gate)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("want ErrSuperseded, got %v", err)
	}
	st := f.Snapshot()
	if st.Phase != PhasePreviewing || st.FileName != "b.gif" || st.Remote != "" {
		t.Fatalf("stale result leaked: %+v", st)
	}
}

func TestForm_Policies(t *testing.T) {
	ok := func(ref string) stubResult { return stubResult{ref: ref} }

	adoption := NewAdoptionForm(&stubUploader{results: []stubResult{ok("u1")}})
	if adoption.Ready() {
		t.Fatalf("empty adoption form ready")
	}
	if err := <-adoption.Choose(context.Background(), 1, "a.png", pngA); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if !adoption.Ready() {
		t.Fatalf("one image should satisfy at-least-one")
	}
	if got := adoption.Images(); len(got) != 3 || got[0] != "" || got[1] != "u1" || got[2] != "" {
		t.Fatalf("Images = %q", got)
	}

	missing := NewForm(&stubUploader{results: []stubResult{ok("m1")}}, 2, All)
	if err := <-missing.Choose(context.Background(), 0, "a.png", pngA); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if missing.Ready() {
		t.Fatalf("all-policy form ready with one of two fields")
	}
	if NewMissingForm(&stubUploader{}).Len() != 1 {
		t.Fatalf("missing form should have one field")
	}
}

func TestForm_ChooseSelectionErrorIsImmediate(t *testing.T) {
	f := NewAdoptionForm(&stubUploader{})
	err := <-f.Choose(context.Background(), 0, "notes.txt", []byte("plain text"))
	if !errors.Is(err, apiclient.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if f.Field(0).Snapshot().Phase != PhaseEmpty {
		t.Fatalf("rejected selection changed the field")
	}
}

func TestForm_FieldsAreIndependent(t *testing.T) {
	gate := make(chan struct{})
	up := &stubUploader{results: []stubResult{{ref: "slow", gate: gate}, {err: errors.New("boom")}}}
	f := NewAdoptionForm(up, WithNotifier(notify.Discard))

	slow := f.Choose(context.Background(), 0, "a.png", pngA)
	waitFor(t, func() bool {
		up.mu.Lock()
		defer up.mu.Unlock()
		return len(up.calls) == 1
	})

	if err := <-f.Choose(context.Background(), 1, "b.gif", gifB); err == nil {
		t.Fatalf("second field should fail")
	}
	if f.Field(0).Snapshot().Phase != PhaseUploading {
		t.Fatalf("failure of one field affected another")
	}
	close(gate)
	if err := <-slow; err != nil {
		t.Fatalf("slow upload: %v", err)
	}
	if !f.Ready() {
		t.Fatalf("one uploaded field should satisfy the adoption form")
	}
	if got := f.Images(); got[0] != "slow" || got[1] != "" || got[2] != "" {
		t.Fatalf("Images = %q", got)
	}
}

func TestClear_DropsFieldAndDiscardsInFlightUpload(t *testing.T) {
	gate := make(chan struct{})
	up := &stubUploader{results: []stubResult{{ref: "late", gate: gate}}}
	f := NewField(up)
	if err := f.Select("a.png", pngA); err != nil {
		t.Fatalf("Select: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.Upload(context.Background())
		done <- err
	}()
	waitFor(t, func() bool { return f.Snapshot().Phase == PhaseUploading })

	f.Clear()
	close(gate)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Upload after Clear = %v", err)
	}
	if st := f.Snapshot(); st.Phase != PhaseEmpty || st.Preview != "" || f.Remote() != "" {
		t.Fatalf("state = %+v", st)
	}
	if _, err := f.Upload(context.Background()); !errors.Is(err, apiclient.ErrValidation) {
		t.Fatalf("Upload of a cleared field = %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
