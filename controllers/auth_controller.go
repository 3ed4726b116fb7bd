package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// AuthController handles signup, login, logout and the signup captcha.
type AuthController struct {
	users *services.UserService
	guard *utils.RegisterGuard
}

// NewAuthController creates an AuthController. guard throttles signups per IP.
func NewAuthController(users *services.UserService, guard *utils.RegisterGuard) *AuthController {
	return &AuthController{users: users, guard: guard}
}

type credentialsRequest struct {
	Username      string `form:"username" json:"username"`
	Password      string `form:"password" json:"password"`
	CaptchaID     string `form:"captcha_id" json:"captcha_id"`
	CaptchaAnswer string `form:"captcha_answer" json:"captcha_answer"`
	Next          string `form:"next" json:"next"`
}

// SignupForm returns an empty signup form.
func (a *AuthController) SignupForm(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"form":             gin.H{"username": "", "password": ""},
		"captcha_required": config.Get().RegisterCaptchaEnabled,
	})
}

// Signup registers a local account, signs it in and redirects home.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}
	echo := gin.H{"form": gin.H{"username": req.Username}}

	if config.Get().RegisterCaptchaEnabled &&
		!utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
		verr := &services.ValidationError{}
		verr.Add("captcha", "Captcha mismatch or expired.")
		formError(ctx, verr, echo)
		return
	}

	ip := ctx.ClientIP()
	if err := a.guard.Allow(ctx.Request.Context(), ip); err != nil {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, err.Error())
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), req.Username, req.Password)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		formError(ctx, verr, echo)
		return
	case errors.Is(err, services.ErrConflict):
		verr = &services.ValidationError{}
		verr.Add("username", "A user with that username already exists.")
		formError(ctx, verr, echo)
		return
	case err != nil:
		respondError(ctx, err)
		return
	}
	a.guard.Succeeded(ctx.Request.Context(), ip)
	utils.Sugar.Infof("user registered id=%d username=%s ip=%s", user.ID, user.Username, ip)
	a.signIn(ctx, user, "/")
}

// LoginForm returns an empty login form carrying the next parameter.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"form": gin.H{"username": "", "password": ""},
		"next": ctx.Query("next"),
	})
}

// Login verifies the credentials and issues a session token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}
	if req.Next == "" {
		req.Next = ctx.Query("next")
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		verr := &services.ValidationError{}
		verr.Add("__all__", "Please enter a correct username and password. Note that both fields may be case-sensitive.")
		formError(ctx, verr, gin.H{"form": gin.H{"username": req.Username}, "next": req.Next})
		return
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	a.signIn(ctx, user, req.Next)
}

// Logout revokes the current token until its expiry and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := middleware.TokenFromRequest(ctx); token != "" {
		if claims, err := utils.ParseToken(token); err == nil {
			utils.BlacklistToken(token, utils.TokenExpiry(claims))
		}
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AuthCookieName, "", -1, "/", "", ctx.Request.TLS != nil, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// Me returns the signed-in user.
func (a *AuthController) Me(ctx *gin.Context) {
	utils.Success(ctx, middleware.CurrentActor(ctx))
}

// signIn sets the session cookie. JSON clients get the token in the body; form posts are
// redirected to next when it is a local path.
func (a *AuthController) signIn(ctx *gin.Context, user *models.User, next string) {
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AuthCookieName, token, int(utils.TokenTTL/time.Second), "/", "", ctx.Request.TLS != nil, true)

	if ctx.ContentType() == gin.MIMEJSON {
		utils.Success(ctx, gin.H{"token": token, "user": user})
		return
	}
	ctx.Redirect(http.StatusFound, safeRedirect(next))
}

// safeRedirect only allows local absolute paths; anything else goes home.
func safeRedirect(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
