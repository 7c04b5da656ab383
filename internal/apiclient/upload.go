package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// UploadPath is the backend's file upload endpoint.
const UploadPath = "/api/files/upload"

// UploadImage sends r as the multipart field "file" and returns the remote
// reference of the stored image. The credential is attached when held.
//
// Accepted answers: a bare string, {"success":true,"data":"url"},
// {"data":"url"} and {"url":"url"}. Anything else is invalid-response.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", &Error{Kind: KindClient, Status: http.StatusBadRequest, Message: "could not encode upload", Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", &Error{Kind: KindClient, Status: http.StatusBadRequest, Message: "could not read file", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &Error{Kind: KindClient, Status: http.StatusBadRequest, Message: "could not encode upload", Err: err}
	}

	raw, err := c.send(ctx, http.MethodPost, UploadPath, &buf, mw.FormDataContentType(), AuthOptional)
	if err != nil {
		return "", err
	}
	ref, ok := uploadRef(raw)
	if !ok {
		return "", InvalidResponse(http.StatusOK, errors.New("upload response carries no url"))
	}
	return ref, nil
}

// uploadRef extracts the remote reference from an already unwrapped upload
// answer: a JSON string, or an object with a string "data" or "url".
func uploadRef(raw json.RawMessage) (string, bool) {
	if s := jsonString(raw); s != "" {
		return s, true
	}
	var obj struct {
		Data json.RawMessage `json:"data"`
		URL  string          `json:"url"`
	}
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &obj) != nil {
		return "", false
	}
	if s := jsonString(obj.Data); s != "" {
		return s, true
	}
	if u := strings.TrimSpace(obj.URL); u != "" {
		return u, true
	}
	return "", false
}
