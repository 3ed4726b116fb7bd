package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// respondError maps service errors onto HTTP responses. Unknown errors are logged and hidden
// behind a generic 500.
func respondError(ctx *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	case errors.Is(err, services.ErrUnauthenticated):
		ctx.Redirect(http.StatusFound, middleware.LoginRedirectURL(config.Get().LoginURL, ctx.Request.URL.RequestURI()))
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40300, "forbidden")
	case errors.As(err, &verr):
		utils.Respond(ctx, http.StatusBadRequest, 40001, "invalid form", gin.H{"errors": verr.Fields})
	default:
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// formError answers a rejected form submission with the echoed form and its field errors.
func formError(ctx *gin.Context, verr *services.ValidationError, extra gin.H) {
	data := gin.H{"errors": verr.Fields}
	for k, v := range extra {
		data[k] = v
	}
	utils.Respond(ctx, http.StatusBadRequest, 40001, "invalid form", data)
}

// idParam parses a numeric path parameter. Anything else is answered with 404, as an
// unmatched route would be.
func idParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
		return 0, false
	}
	return uint(id), true
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}
