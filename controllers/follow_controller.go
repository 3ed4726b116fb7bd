package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// FollowController serves the followed feed and the follow/unfollow actions.
type FollowController struct {
	feed    *services.FeedService
	follows *services.FollowService
	users   *services.UserService
}

// NewFollowController creates a FollowController.
func NewFollowController(feed *services.FeedService, follows *services.FollowService, users *services.UserService) *FollowController {
	return &FollowController{feed: feed, follows: follows, users: users}
}

// FollowIndex lists posts by the authors the viewer follows.
func (c *FollowController) FollowIndex(ctx *gin.Context) {
	page, err := c.feed.ListFollowed(ctx.Request.Context(), middleware.CurrentActor(ctx), services.ParsePage(ctx.Query("page")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"page_obj": page})
}

// ProfileFollow follows the author and returns to their profile. Repeats and self-follows
// change nothing.
func (c *FollowController) ProfileFollow(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	author, err := c.users.ByUsername(reqCtx, ctx.Param("username"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := c.follows.Follow(reqCtx, middleware.CurrentActor(ctx), author); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(author.Username))
}

// ProfileUnfollow stops following the author. Not following them is a 404.
func (c *FollowController) ProfileUnfollow(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	author, err := c.users.ByUsername(reqCtx, ctx.Param("username"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := c.follows.Unfollow(reqCtx, middleware.CurrentActor(ctx), author); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(author.Username))
}
