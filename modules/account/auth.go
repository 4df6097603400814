package account

import (
	"net/url"

	"github.com/dmitrymomot/accountkit/handler"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/pkg/logger"
	accountsvc "github.com/dmitrymomot/accountkit/svc/account"
)

const (
	confirmEmailMessage    = "Check your email to confirm your account, then log in."
	passwordUpdatedMessage = "Password updated. Please log in."
)

type signUpRequest struct {
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" form:"token"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func withMessage(path, msg string) string {
	return path + "?" + url.Values{"message": {msg}}.Encode()
}

func (m *module) signUp(ctx handler.Context, req signUpRequest) handler.Response {
	sess, err := m.svc.SignUp(ctx, accountsvc.SignUpForm{
		Email:       req.Email,
		NewPassword: accountsvc.NewPassword{Password: req.Password, Confirm: req.ConfirmPassword},
	})
	if err != nil {
		return fail(err)
	}
	if sess.AccessToken == "" {
		return handler.Redirect(withMessage("/login", confirmEmailMessage))
	}
	if err := m.sessions.Set(ctx.ResponseWriter(), sess.AccessToken); err != nil {
		return fail(err)
	}
	m.log.InfoContext(ctx, "user signed up", logger.UserID(sess.User.ID))
	return handler.Redirect("/app")
}

func (m *module) login(ctx handler.Context, req loginRequest) handler.Response {
	sess, err := m.svc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return fail(err)
	}
	if err := m.sessions.Set(ctx.ResponseWriter(), sess.AccessToken); err != nil {
		return fail(err)
	}
	return handler.Redirect("/app")
}

func (m *module) logout(ctx handler.Context, _ struct{}) handler.Response {
	if token, ok := identity.TokenFromContext(ctx); ok {
		m.svc.SignOut(ctx, token)
	}
	m.sessions.Clear(ctx.ResponseWriter())
	return handler.Redirect("/login")
}

func (m *module) forgotPassword(ctx handler.Context, req forgotPasswordRequest) handler.Response {
	if err := m.svc.RequestPasswordReset(ctx, req.Email, m.baseURL+"/auth/reset-password"); err != nil {
		return fail(err)
	}
	return handler.JSON(map[string]string{"message": accountsvc.PasswordResetSentMessage})
}

// resetPassword accepts the recovery token from the emailed link, or the
// current session when a signed-in user changes their password.
func (m *module) resetPassword(ctx handler.Context, req resetPasswordRequest) handler.Response {
	token := req.Token
	if token == "" {
		token, _ = identity.TokenFromContext(ctx)
	}
	np := accountsvc.NewPassword{Password: req.Password, Confirm: req.ConfirmPassword}
	if err := m.svc.ResetPassword(ctx, token, np); err != nil {
		return fail(err)
	}
	m.sessions.Clear(ctx.ResponseWriter())
	return handler.Redirect(withMessage("/login", passwordUpdatedMessage))
}
