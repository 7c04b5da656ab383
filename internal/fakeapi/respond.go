package fakeapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pawconnect/internal/domain"
	mw "github.com/tbourn/pawconnect/internal/fakeapi/middleware"
	"github.com/tbourn/pawconnect/internal/utils"
)

const (
	accountKey = "account"

	defaultPageSize = 10
	maxPageSize     = 100
)

// envelope is the success body of every non-list endpoint.
type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) ok(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, envelope{
		Success:   true,
		Message:   msg,
		Data:      data,
		Timestamp: s.opts.Now().UTC().Format(time.RFC3339),
	})
}

// list writes a collection, bare or enveloped per Options.BareLists.
func (s *Server) list(c *gin.Context, data any) {
	if s.opts.BareLists {
		c.JSON(http.StatusOK, data)
		return
	}
	s.ok(c, http.StatusOK, "", data)
}

func paged[T any](s *Server, c *gin.Context, items []T) {
	no, size := utils.PageParams(c.Query("pageNo"), c.Query("pageSize"), defaultPageSize, maxPageSize)
	s.list(c, utils.Paginate(items, no, size))
}

// fail maps a state error onto the failure envelope. what names the
// resource in not-found messages.
func fail(c *gin.Context, err error, what string) {
	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe):
		mw.FailField(c, http.StatusBadRequest, mw.CodeBadRequest, fe.Field, fe.Message)
	case errors.Is(err, errNotFound):
		mw.Fail(c, http.StatusNotFound, mw.CodeNotFound, what+" not found")
	case errors.Is(err, errForbidden):
		mw.Fail(c, http.StatusForbidden, mw.CodeForbidden, "You are not allowed to perform this action")
	case errors.Is(err, errConflict):
		mw.Fail(c, http.StatusConflict, mw.CodeConflict, what+" already exists")
	case errors.Is(err, errBadToken):
		mw.Fail(c, http.StatusBadRequest, mw.CodeBadRequest, "Invalid or expired token")
	default:
		mw.Fail(c, http.StatusInternalServerError, mw.CodeInternal, "internal error")
	}
}

func badBody(c *gin.Context) {
	mw.Fail(c, http.StatusBadRequest, mw.CodeBadRequest, "Malformed request body")
}

// idParam parses a positive integer path parameter, answering 400 when it
// is not one.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		mw.Fail(c, http.StatusBadRequest, mw.CodeBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// ---- authentication ----

// authenticate resolves a bearer token when one is sent. A missing header
// leaves the request anonymous; a bad token is rejected outright.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}
		tok, err := bearer(h)
		if err != nil {
			mw.Fail(c, http.StatusUnauthorized, mw.CodeUnauthorized, "Invalid authorization header")
			return
		}
		claims, err := s.tokens.Validate(tok)
		if err != nil {
			mw.LoggerFrom(c).Debug().Err(err).Msg("token rejected")
			mw.Fail(c, http.StatusUnauthorized, mw.CodeUnauthorized, "Invalid or expired token")
			return
		}
		a, err := s.st.user(claims.UserID)
		if err != nil {
			mw.Fail(c, http.StatusUnauthorized, mw.CodeUnauthorized, "User not found")
			return
		}
		if a.Banned {
			mw.Fail(c, http.StatusForbidden, mw.CodeForbidden, "Your account has been banned")
			return
		}
		c.Set(accountKey, a)
		mw.SetUserID(c, strconv.FormatInt(a.ID, 10))
		c.Next()
	}
}

func requireUser(c *gin.Context) {
	if current(c) == nil {
		mw.Fail(c, http.StatusUnauthorized, mw.CodeUnauthorized, "Full authentication is required to access this resource")
		return
	}
	c.Next()
}

func requireAdmin(c *gin.Context) {
	a := current(c)
	switch {
	case a == nil:
		mw.Fail(c, http.StatusUnauthorized, mw.CodeUnauthorized, "Full authentication is required to access this resource")
		return
	case !a.isAdmin():
		mw.Fail(c, http.StatusForbidden, mw.CodeForbidden, "Access denied")
		return
	}
	c.Next()
}

// current returns the authenticated account, or nil.
func current(c *gin.Context) *account {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil
	}
	a, _ := v.(*account)
	return a
}

// actingAs resolves the account named by the uid path parameter. Only the
// account itself or an admin may act as it.
func (s *Server) actingAs(c *gin.Context, name string) (*account, bool) {
	uid, ok := idParam(c, name)
	if !ok {
		return nil, false
	}
	a := current(c)
	if a.ID == uid {
		return a, true
	}
	if !a.isAdmin() {
		mw.Fail(c, http.StatusForbidden, mw.CodeForbidden, "You are not allowed to perform this action")
		return nil, false
	}
	target, err := s.st.user(uid)
	if err != nil {
		fail(c, err, "User")
		return nil, false
	}
	return target, true
}
