package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextUserKey is the key used to store the authenticated *models.User in Gin context.
	ContextUserKey = "current_user"
	// AuthCookieName is the cookie carrying the session token.
	AuthCookieName = "yatube_token"
)

// TokenFromRequest returns the bearer token or, failing that, the session cookie.
func TokenFromRequest(ctx *gin.Context) string {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := ctx.Cookie(AuthCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// CurrentUser resolves the actor of the request. Missing, revoked or invalid tokens leave
// the request anonymous; they never fail it.
func CurrentUser(users *services.UserService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := TokenFromRequest(ctx)
		if tokenString == "" || utils.IsTokenBlacklisted(tokenString) {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			ctx.Next()
			return
		}

		user, err := users.ByID(ctx.Request.Context(), claims.UserID)
		if err != nil {
			// deleted account or store failure: treat as anonymous
			utils.Sugar.Debugf("token user lookup failed user_id=%d err=%v", claims.UserID, err)
			ctx.Next()
			return
		}

		ctx.Set(ContextUserKey, user)
		ctx.Next()
	}
}

// CurrentActor returns the authenticated user, or nil for anonymous requests.
func CurrentActor(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// LoginRequired redirects anonymous requests to loginURL, passing the requested path as next.
func LoginRequired(loginURL string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentActor(ctx) != nil {
			ctx.Next()
			return
		}
		ctx.Redirect(http.StatusFound, LoginRedirectURL(loginURL, ctx.Request.URL.RequestURI()))
		ctx.Abort()
	}
}

// LoginRedirectURL builds <loginURL>?next=<next>, leaving slashes in next unescaped.
func LoginRedirectURL(loginURL, next string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + "next=" + escaped
}
