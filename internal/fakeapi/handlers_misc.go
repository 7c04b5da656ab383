package fakeapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/pawconnect/internal/domain"
	mw "github.com/tbourn/pawconnect/internal/fakeapi/middleware"
)

// ---- feedback ----

func (s *Server) createFeedback(c *gin.Context) {
	var f domain.FeedbackEntry
	if !bind(c, &f, func(f domain.FeedbackEntry) error {
		return domain.FeedbackForm{
			Rating:         f.Rating,
			Description:    f.Description,
			ContactPurpose: f.ContactPurpose,
			Name:           f.Name,
			Email:          f.Email,
		}.Validate()
	}) {
		return
	}
	if a := current(c); a != nil {
		if f.Name == "" {
			f.Name = a.Name
		}
		if f.Email == "" {
			f.Email = a.Email
		}
	}
	s.ok(c, http.StatusCreated, "Thank you for your feedback", s.st.addFeedback(f))
}

func (s *Server) listFeedback(c *gin.Context) { s.list(c, s.st.listFeedback()) }

func (s *Server) adminStats(c *gin.Context) { s.ok(c, http.StatusOK, "", s.st.stats()) }

// ---- files ----

const filesPath = "/api/files/"

// upload stores the multipart field "file" in memory when it sniffs as an
// image and answers its public URL in the configured shape.
func (s *Server) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			mw.Fail(c, http.StatusRequestEntityTooLarge, mw.CodeBadRequest, "file is too large")
			return
		}
		mw.FailField(c, http.StatusBadRequest, mw.CodeBadRequest, "file", "file is required")
		return
	}
	if fh.Size > s.opts.MaxUploadBytes {
		mw.FailField(c, http.StatusBadRequest, mw.CodeBadRequest, "file", "file is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err, "File")
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, s.opts.MaxUploadBytes+1)); err != nil {
		fail(c, err, "File")
		return
	}
	if int64(buf.Len()) > s.opts.MaxUploadBytes {
		mw.FailField(c, http.StatusBadRequest, mw.CodeBadRequest, "file", "file is too large")
		return
	}
	mt := mimetype.Detect(buf.Bytes())
	if !strings.HasPrefix(mt.String(), "image/") {
		mw.FailField(c, http.StatusBadRequest, mw.CodeBadRequest, "file", "only image files are accepted")
		return
	}

	name := uuid.NewString() + mt.Extension()
	s.st.putFile(name, mt.String(), buf.Bytes())
	url := scheme(c.Request) + "://" + c.Request.Host + filesPath + name
	mw.LoggerFrom(c).Debug().Str("file", name).Int("bytes", buf.Len()).Msg("upload stored")

	switch s.opts.UploadShape {
	case UploadEnvelope:
		s.ok(c, http.StatusOK, "File uploaded successfully", url)
	case UploadData:
		c.JSON(http.StatusOK, gin.H{"data": url})
	case UploadURL:
		c.JSON(http.StatusOK, gin.H{"url": url})
	default:
		c.JSON(http.StatusOK, url)
	}
}

func (s *Server) serveFile(c *gin.Context) {
	name := path.Base(c.Param("name"))
	f, ok := s.st.file(name)
	if !ok {
		fail(c, errNotFound, "File")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, f.mime, f.data)
}

func scheme(r *http.Request) string {
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}
