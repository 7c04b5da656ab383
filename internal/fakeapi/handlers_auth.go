package fakeapi

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pawconnect/internal/domain"
	mw "github.com/tbourn/pawconnect/internal/fakeapi/middleware"
)

// signup registers an unverified account. The verification token is only
// logged; VerificationToken exposes it to tests.
func (s *Server) signup(c *gin.Context) {
	var f domain.SignupForm
	if err := c.ShouldBindJSON(&f); err != nil {
		badBody(c)
		return
	}
	if err := f.Validate(); err != nil {
		fail(c, err, "User")
		return
	}
	hash, err := hashPassword(f.Password, s.opts.BcryptCost)
	if err != nil {
		fail(c, err, "User")
		return
	}
	a, err := s.st.addUser(f, hash, false, false)
	if err != nil {
		fail(c, err, "User")
		return
	}
	mw.LoggerFrom(c).Info().Int64("user_id", a.ID).Msg("verification mail queued")
	s.ok(c, http.StatusCreated, "User registered successfully. Please verify your email.", a.User)
}

func (s *Server) verify(c *gin.Context) {
	if err := s.st.verify(strings.TrimSpace(c.Query("token"))); err != nil {
		fail(c, err, "Token")
		return
	}
	s.ok(c, http.StatusOK, "Email verified successfully", nil)
}

// signin accepts an email or a username with the password and answers the
// session: the profile plus the bearer token.
func (s *Server) signin(c *gin.Context) {
	var cr domain.Credentials
	if err := c.ShouldBindJSON(&cr); err != nil {
		badBody(c)
		return
	}
	if err := cr.Validate(); err != nil {
		fail(c, err, "User")
		return
	}
	a, err := s.st.login(cr.Email)
	if err == nil {
		err = checkPassword(cr.Password, a.hash)
	}
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, errWrongPassword):
		mw.Fail(c, http.StatusUnauthorized, mw.CodeUnauthorized, "Invalid email or password")
		return
	case err != nil:
		fail(c, err, "User")
		return
	case !a.verified:
		mw.Fail(c, http.StatusUnauthorized, mw.CodeUnauthorized, "Please verify your email before signing in")
		return
	case a.Banned:
		mw.Fail(c, http.StatusForbidden, mw.CodeForbidden, "Your account has been banned")
		return
	}
	tok, err := s.tokens.Issue(a)
	if err != nil {
		fail(c, err, "Token")
		return
	}
	s.ok(c, http.StatusOK, "Login successful", domain.Session{
		User: a.User,
		JWT:  domain.JWTDTO{AccessToken: tok, TokenType: "Bearer"},
	})
}

// resetRequest always answers success so addresses cannot be enumerated.
func (s *Server) resetRequest(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		mw.FailField(c, http.StatusBadRequest, mw.CodeBadRequest, "email", "email is required")
		return
	}
	if _, ok := s.st.requestReset(email); ok {
		mw.LoggerFrom(c).Info().Msg("password reset mail queued")
	}
	s.ok(c, http.StatusOK, "If the email is registered, a reset link has been sent", nil)
}

func (s *Server) resetPassword(c *gin.Context) {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c)
		return
	}
	if err := domain.ValidatePassword(body.Password); err != nil {
		fail(c, err, "User")
		return
	}
	hash, err := hashPassword(body.Password, s.opts.BcryptCost)
	if err != nil {
		fail(c, err, "User")
		return
	}
	if err := s.st.resetPassword(c.Param("token"), hash); err != nil {
		fail(c, err, "Token")
		return
	}
	s.ok(c, http.StatusOK, "Password reset successfully", nil)
}

func (s *Server) updateUser(c *gin.Context) {
	a, ok := s.actingAs(c, "id")
	if !ok {
		return
	}
	var p domain.ProfileUpdate
	if err := c.ShouldBindJSON(&p); err != nil {
		badBody(c)
		return
	}
	if err := p.Validate(); err != nil {
		fail(c, err, "User")
		return
	}
	u, err := s.st.updateUser(a.ID, p)
	if err != nil {
		fail(c, err, "User")
		return
	}
	s.ok(c, http.StatusOK, "Profile updated successfully", u)
}

// listUsers pages the user table, sorted by sortBy (id, name, username or
// email) in sortDir order.
func (s *Server) listUsers(c *gin.Context) {
	users := s.st.listUsers()
	key := func(u domain.User) string {
		switch c.Query("sortBy") {
		case "name":
			return strings.ToLower(u.Name)
		case "username":
			return strings.ToLower(u.Username)
		case "email":
			return strings.ToLower(u.Email)
		}
		return ""
	}
	if k := c.Query("sortBy"); k != "" && k != "id" {
		slices.SortStableFunc(users, func(a, b domain.User) int { return strings.Compare(key(a), key(b)) })
	}
	if strings.EqualFold(c.Query("sortDir"), "desc") {
		slices.Reverse(users)
	}
	paged(s, c, users)
}

func (s *Server) banUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	u, err := s.st.toggleBan(id)
	if err != nil {
		fail(c, err, "User")
		return
	}
	msg := "User unbanned"
	if u.Banned {
		msg = "User banned"
	}
	s.ok(c, http.StatusOK, msg, u)
}
