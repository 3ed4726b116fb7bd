package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// PostController serves the feeds, post pages and the post/comment forms.
type PostController struct {
	feed    *services.FeedService
	posts   *services.PostService
	follows *services.FollowService
}

// NewPostController creates a PostController.
func NewPostController(feed *services.FeedService, posts *services.PostService, follows *services.FollowService) *PostController {
	return &PostController{feed: feed, posts: posts, follows: follows}
}

type postRequest struct {
	Text  string `form:"text" json:"text"`
	Group string `form:"group" json:"group"`
}

type commentRequest struct {
	Text string `form:"text" json:"text"`
}

// toForm converts the submitted fields. A group that is not a number becomes id 0, which
// the service rejects as an unknown choice.
func (r postRequest) toForm(image *multipart.FileHeader) services.PostForm {
	form := services.PostForm{Text: r.Text, Image: image}
	if g := strings.TrimSpace(r.Group); g != "" {
		id, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			id = 0
		}
		gid := uint(id)
		form.GroupID = &gid
	}
	return form
}

// uploadedImage returns the optional image file of a multipart submission.
func uploadedImage(ctx *gin.Context) *multipart.FileHeader {
	fh, err := ctx.FormFile("image")
	if err != nil {
		return nil
	}
	return fh
}

// Index renders the home feed. Rendered pages are cached for a short time and writes do
// not refresh them.
func (c *PostController) Index(ctx *gin.Context) {
	page := services.ParsePage(ctx.Query("page"))
	body, err := c.feed.HomePage(ctx.Request.Context(), page, func(p services.Page[models.Post]) ([]byte, error) {
		return utils.Render(gin.H{"page_obj": p})
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// GroupPosts lists the posts of one group.
func (c *PostController) GroupPosts(ctx *gin.Context) {
	group, page, err := c.feed.ListByGroup(ctx.Request.Context(), ctx.Param("slug"), services.ParsePage(ctx.Query("page")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"group": group, "page_obj": page})
}

// Profile lists an author's posts along with follow information for the viewer.
func (c *PostController) Profile(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	author, page, err := c.feed.ListByAuthor(reqCtx, ctx.Param("username"), services.ParsePage(ctx.Query("page")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	following, err := c.follows.IsFollowing(reqCtx, middleware.CurrentActor(ctx), author)
	if err != nil {
		respondError(ctx, err)
		return
	}
	followers, followingCount, err := c.follows.Counts(reqCtx, author)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"author":          author,
		"page_obj":        page,
		"posts_count":     page.Total,
		"following":       following,
		"followers_count": followers,
		"following_count": followingCount,
	})
}

// PostDetail shows a post, its comments and an empty comment form.
func (c *PostController) PostDetail(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	post, err := c.posts.Get(reqCtx, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	comments, err := c.feed.ListComments(reqCtx, post.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"post":      post,
		"text_html": utils.SanitizeHTML(post.Text),
		"comments":  comments,
		"form":      gin.H{"text": ""},
		"can_edit":  services.CanEdit(post, middleware.CurrentActor(ctx)),
	})
}

// CreateForm returns an empty post form.
func (c *PostController) CreateForm(ctx *gin.Context) {
	groups, err := c.posts.Groups(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"form":    gin.H{"text": "", "group": nil, "image": ""},
		"groups":  groups,
		"is_edit": false,
	})
}

// Create stores a new post and redirects to the author's profile.
func (c *PostController) Create(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}
	actor := middleware.CurrentActor(ctx)
	_, err := c.posts.Create(ctx.Request.Context(), actor, req.toForm(uploadedImage(ctx)))
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.rejectPostForm(ctx, verr, req, false)
		return
	case err != nil:
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(actor.Username))
}

// EditForm returns the post form filled with the current values. Only the author gets it;
// everyone else is sent to the post page.
func (c *PostController) EditForm(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	post, err := c.posts.Get(reqCtx, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !services.CanEdit(post, middleware.CurrentActor(ctx)) {
		ctx.Redirect(http.StatusFound, postURL(post.ID))
		return
	}
	groups, err := c.posts.Groups(reqCtx)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"post":    post,
		"form":    gin.H{"text": post.Text, "group": post.GroupID, "image": post.Image},
		"groups":  groups,
		"is_edit": true,
	})
}

// Edit applies the submitted form and redirects to the post page.
func (c *PostController) Edit(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req postRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}
	_, err := c.posts.Edit(ctx.Request.Context(), middleware.CurrentActor(ctx), id, req.toForm(uploadedImage(ctx)))
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrForbidden):
		ctx.Redirect(http.StatusFound, postURL(id))
		return
	case errors.As(err, &verr):
		c.rejectPostForm(ctx, verr, req, true)
		return
	case err != nil:
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(id))
}

// Delete removes the post and redirects to the author's profile.
func (c *PostController) Delete(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	actor := middleware.CurrentActor(ctx)
	err := c.posts.Delete(ctx.Request.Context(), actor, id)
	switch {
	case errors.Is(err, services.ErrForbidden):
		ctx.Redirect(http.StatusFound, postURL(id))
		return
	case err != nil:
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(actor.Username))
}

// AddComment stores a comment and always returns to the post page; an empty comment is
// dropped silently.
func (c *PostController) AddComment(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}
	_, err := c.posts.AddComment(ctx.Request.Context(), middleware.CurrentActor(ctx), id, services.CommentForm{Text: req.Text})
	var verr *services.ValidationError
	if err != nil && !errors.As(err, &verr) {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(id))
}

func (c *PostController) rejectPostForm(ctx *gin.Context, verr *services.ValidationError, req postRequest, isEdit bool) {
	groups, err := c.posts.Groups(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	formError(ctx, verr, gin.H{
		"form":    gin.H{"text": req.Text, "group": req.Group},
		"groups":  groups,
		"is_edit": isEdit,
	})
}
