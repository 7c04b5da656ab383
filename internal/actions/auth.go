package actions

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
	"github.com/tbourn/pawconnect/internal/store"
)

// Login signs in and makes the returned identity the current session.
//
// The session only changes when the answer lands in the Login slice, so
// under the stale-response guard an older login that resolves last is
// dropped from both and reported as ErrSuperseded.
func (d *Dispatcher) Login(ctx context.Context, email, password string) (domain.Session, error) {
	req := d.st.Login.Start(ctx)
	creds := domain.Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := checked(creds.Validate()); err != nil {
		req.Fail(apiclient.MessageOf(err))
		return domain.Session{}, err
	}
	s, err := d.sess.Authenticate(req.Context(), creds.Email, creds.Password)
	if err != nil {
		req.Fail(apiclient.MessageOf(err))
		return domain.Session{}, err
	}

	d.loginMu.Lock()
	defer d.loginMu.Unlock()
	if !req.Succeed(s) {
		if err := req.Context().Err(); err != nil {
			return domain.Session{}, err
		}
		return domain.Session{}, ErrSuperseded
	}
	if err := d.sess.Set(ctx, s); err != nil {
		d.st.Login.Fail(err.Error())
		return domain.Session{}, err
	}
	return s, nil
}

// Logout clears the session and returns every slice to idle.
func (d *Dispatcher) Logout(ctx context.Context) error {
	err := d.sess.Logout(ctx)
	d.st.ResetAll()
	return err
}

// Register creates an account. The backend sends a verification mail.
func (d *Dispatcher) Register(ctx context.Context, f domain.SignupForm) (domain.User, error) {
	return run(ctx, d.st.UserRegister, func(ctx context.Context) (domain.User, error) {
		if err := checked(f.Validate()); err != nil {
			return domain.User{}, err
		}
		f.Name = strings.TrimSpace(f.Name)
		f.Username = strings.TrimSpace(f.Username)
		f.Email = strings.TrimSpace(f.Email)
		return call[domain.User](ctx, d, http.MethodPost, apiclient.Path("auth", "signup"), f, apiclient.AuthNone)
	})
}

// Verify confirms an account with the token from the verification mail.
func (d *Dispatcher) Verify(ctx context.Context, token string) (store.Ack, error) {
	return run(ctx, d.st.UserVerify, func(ctx context.Context) (store.Ack, error) {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, apiclient.Validation("token", "verification token is required")
		}
		p := apiclient.WithQuery(apiclient.Path("auth", "verify"), url.Values{"token": {token}})
		return ack(ctx, d, http.MethodPost, p, nil, apiclient.AuthNone)
	})
}

// RequestPasswordReset asks the backend to mail a reset link to email.
func (d *Dispatcher) RequestPasswordReset(ctx context.Context, email string) (store.Ack, error) {
	return run(ctx, d.st.PasswordResetRequest, func(ctx context.Context) (store.Ack, error) {
		email = strings.TrimSpace(email)
		if email == "" {
			return nil, apiclient.Validation("email", "email is required")
		}
		p := apiclient.WithQuery(apiclient.Path("auth", "resetrequest"), url.Values{"email": {email}})
		return ack(ctx, d, http.MethodPost, p, nil, apiclient.AuthNone)
	})
}

// ResetPassword sets a new password with the token from the reset mail.
func (d *Dispatcher) ResetPassword(ctx context.Context, token, password string) (store.Ack, error) {
	return run(ctx, d.st.PasswordReset, func(ctx context.Context) (store.Ack, error) {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, apiclient.Validation("token", "reset token is required")
		}
		if err := checked(domain.ValidatePassword(password)); err != nil {
			return nil, err
		}
		body := map[string]string{"password": password}
		return ack(ctx, d, http.MethodPut, apiclient.Path("auth", "reset", token), body, apiclient.AuthNone)
	})
}

// UpdateProfile edits the acting user's profile. The returned user replaces
// the identity part of the session; the credential is kept.
func (d *Dispatcher) UpdateProfile(ctx context.Context, u domain.ProfileUpdate) (domain.User, error) {
	return run(ctx, d.st.UserUpdate, func(ctx context.Context) (domain.User, error) {
		s, err := d.identity(ctx)
		if err != nil {
			return domain.User{}, err
		}
		if err := checked(u.Validate()); err != nil {
			return domain.User{}, err
		}
		user, err := call[domain.User](ctx, d, http.MethodPut, apiclient.Path("auth", "user", s.ID, "update"), u, apiclient.AuthRequired)
		if err != nil {
			return domain.User{}, err
		}
		if user.ID == 0 {
			return domain.User{}, apiclient.InvalidResponse(http.StatusOK, errors.New("user without id"))
		}
		if len(user.Roles) == 0 {
			user.Roles = s.Roles
		}
		s.User = user
		if err := d.sess.Set(ctx, s); err != nil {
			return domain.User{}, err
		}
		return user, nil
	})
}
