// Package upload coordinates image selection and upload for post forms.
//
// Each Field moves through empty, previewing, uploading and then uploaded or
// failed. Selecting a new file at any point starts over in previewing and
// discards whatever the previous file's upload returns. A Form groups fields
// under a completeness policy.
package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/notify"
)

// Phase is the position of a field in its lifecycle.
type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhasePreviewing Phase = "previewing"
	PhaseUploading  Phase = "uploading"
	PhaseUploaded   Phase = "uploaded"
	PhaseFailed     Phase = "failed"
)

// DefaultMaxBytes bounds a selected file when no limit is configured.
const DefaultMaxBytes int64 = 10 << 20

// ErrSuperseded is returned by Upload when another file was selected while
// the upload was in flight. Its result has been discarded.
var ErrSuperseded = errors.New("upload superseded by a newer selection")

// Uploader sends one file and returns its remote reference.
// *apiclient.Client implements it.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)
}

// State is a snapshot of a field.
type State struct {
	Phase    Phase  `json:"phase"`
	FileName string `json:"fileName,omitempty"`
	MIME     string `json:"mime,omitempty"`
	Size     int    `json:"size,omitempty"`
	// Preview is a data URI of the local file, replaced by the remote
	// reference once uploaded.
	Preview string `json:"preview,omitempty"`
	Remote  string `json:"remote,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Option configures a Field.
type Option func(*Field)

// WithMaxBytes sets the size limit of a selection.
func WithMaxBytes(n int64) Option {
	return func(f *Field) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithNotifier sets where upload failures are announced.
func WithNotifier(n notify.Notifier) Option {
	return func(f *Field) { f.notifier = n }
}

// Field is one image slot. It is safe for concurrent use.
type Field struct {
	up       Uploader
	maxBytes int64
	notifier notify.Notifier

	mu    sync.Mutex
	gen   uint64
	data  []byte
	state State
}

// NewField returns an empty field.
func NewField(up Uploader, opts ...Option) *Field {
	f := &Field{up: up, maxBytes: DefaultMaxBytes, state: State{Phase: PhaseEmpty}}
	for _, fn := range opts {
		fn(f)
	}
	return f
}

// Select replaces the field's file with data and builds its preview. It
// never touches the network. A rejected selection leaves the field as it
// was.
func (f *Field) Select(name string, data []byte) error {
	if len(data) == 0 {
		return apiclient.Validation("file", "file is empty")
	}
	if int64(len(data)) > f.maxBytes {
		return apiclient.Validation("file", fmt.Sprintf("file exceeds the %d byte limit", f.maxBytes))
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return apiclient.Validation("file", "only image files can be uploaded")
	}
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	preview := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)

	buf := make([]byte, len(data))
	copy(buf, data)

	f.mu.Lock()
	f.gen++
	f.data = buf
	f.state = State{
		Phase:    PhasePreviewing,
		FileName: strings.TrimSpace(name),
		MIME:     mime,
		Size:     len(buf),
		Preview:  preview,
	}
	f.mu.Unlock()
	return nil
}

// Upload sends the selected file. On success the remote reference becomes
// the preview; on failure the local preview is kept and the failure is
// announced. When a newer file was selected meanwhile the result is
// discarded and ErrSuperseded returned.
func (f *Field) Upload(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.state.Phase == PhaseEmpty || len(f.data) == 0 {
		f.mu.Unlock()
		return "", apiclient.Validation("file", "no file selected")
	}
	gen, data, name := f.gen, f.data, f.state.FileName
	f.state.Phase = PhaseUploading
	f.state.Error = ""
	f.mu.Unlock()

	ref, err := f.up.UploadImage(ctx, name, bytes.NewReader(data))

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		log.Debug().Str("file", name).Msg("discarding superseded upload")
		return "", ErrSuperseded
	}
	if ctx.Err() != nil {
		f.state.Phase = PhasePreviewing
		f.mu.Unlock()
		return "", ctx.Err()
	}
	if err != nil {
		msg := apiclient.MessageOf(err)
		f.state.Phase = PhaseFailed
		f.state.Error = msg
		f.state.Remote = ""
		f.mu.Unlock()
		notify.Error(f.notifier, "Upload failed: "+msg)
		return "", err
	}
	f.state.Phase = PhaseUploaded
	f.state.Remote = ref
	f.state.Preview = ref
	f.mu.Unlock()
	return ref, nil
}

// Clear empties the field. An upload in flight is discarded.
func (f *Field) Clear() {
	f.mu.Lock()
	f.gen++
	f.data = nil
	f.state = State{Phase: PhaseEmpty}
	f.mu.Unlock()
}

// Snapshot returns the current state.
func (f *Field) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Remote returns the uploaded reference, or "" unless the field is
// uploaded.
func (f *Field) Remote() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Phase != PhaseUploaded {
		return ""
	}
	return f.state.Remote
}
