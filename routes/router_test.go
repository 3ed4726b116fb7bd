package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/cache"
	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type testApp struct {
	t      *testing.T
	db     *gorm.DB
	pages  *cache.Memory
	router *gin.Engine
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type pageBody struct {
	PageObj struct {
		Items []models.Post `json:"items"`
		Page  int           `json:"page"`
		Total int64         `json:"total"`
	} `json:"page_obj"`
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Override(config.AppConfig{
		JWTSecret:          "test-secret",
		DBDriver:           "sqlite",
		SQLitePath:         filepath.Join(dir, "yatube.db"),
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "gin.log"),
		LogLevel:           "silent",
		MediaRoot:          filepath.Join(dir, "media"),
		RateLimitPerMinute: 100000,
	})
	db, err := config.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	pages := cache.NewMemory()
	return &testApp{t: t, db: db, pages: pages, router: SetupRouter(db, pages)}
}

func (a *testApp) user(username string) *models.User {
	a.t.Helper()
	hash, err := utils.HashPassword("war-and-peace")
	require.NoError(a.t, err)
	u := &models.User{Username: username, PasswordHash: hash}
	require.NoError(a.t, a.db.Omit(clause.Associations).Create(u).Error)
	return u
}

func (a *testApp) group(slug string) *models.Group {
	a.t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	require.NoError(a.t, a.db.Create(g).Error)
	return g
}

func (a *testApp) post(author *models.User, text string) *models.Post {
	a.t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	require.NoError(a.t, a.db.Omit(clause.Associations).Create(p).Error)
	return p
}

// do sends req, signed in as user when user is not nil.
func (a *testApp) do(req *http.Request, user *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	if user != nil {
		token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
		require.NoError(a.t, err)
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path string, user *models.User) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), user)
}

func (a *testApp) postForm(path string, values url.Values, user *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, user)
}

func (a *testApp) postMultipart(path string, fields map[string]string, fileName string, file []byte, user *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(a.t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("image", fileName)
		require.NoError(a.t, err)
		_, err = part.Write(file)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(req, user)
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) pageBody {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var body pageBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body
}

func (a *testApp) count(model interface{}) int64 {
	a.t.Helper()
	var n int64
	require.NoError(a.t, a.db.Model(model).Count(&n).Error)
	return n
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	app.group("test-slug")
	post := app.post(author, "Тестовый пост")

	cases := []struct {
		path string
		code int
	}{
		{"/", http.StatusOK},
		{"/group/test-slug/", http.StatusOK},
		{"/profile/auth/", http.StatusOK},
		{fmt.Sprintf("/posts/%d/", post.ID), http.StatusOK},
		{"/about/author/", http.StatusOK},
		{"/about/tech/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/unexisting_page/", http.StatusNotFound},
		{"/group/missing/", http.StatusNotFound},
		{"/profile/missing/", http.StatusNotFound},
		{"/posts/999/", http.StatusNotFound},
		{"/posts/abc/", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.code, app.get(tc.path, nil).Code)
		})
	}
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	post := app.post(author, "Тестовый пост")
	editURL := fmt.Sprintf("/posts/%d/edit/", post.ID)

	for _, path := range []string{"/create/", editURL, "/follow/", "/profile/auth/follow/", "/profile/auth/unfollow/"} {
		t.Run(path, func(t *testing.T) {
			w := app.get(path, nil)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/auth/login/?next="+path, w.Header().Get("Location"))
		})
	}
}

func TestAnonymousCreateIsRejected(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/create/", url.Values{"text": {"Тестовый пост"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=/create/", w.Header().Get("Location"))
	assert.Zero(t, app.count(&models.Post{}))
}

func TestPostDetail_TextKeptRaw(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")

	w := app.postForm("/create/", url.Values{"text": {`Tom & Jerry say "hi" <script>x</script>`}}, author)
	require.Equal(t, http.StatusFound, w.Code)

	var post models.Post
	require.NoError(t, app.db.First(&post).Error)
	assert.Equal(t, `Tom & Jerry say "hi" <script>x</script>`, post.Text)

	var env struct {
		Data struct {
			Post     models.Post `json:"post"`
			TextHTML string      `json:"text_html"`
		} `json:"data"`
	}
	detail := app.get(fmt.Sprintf("/posts/%d/", post.ID), nil)
	require.NoError(t, json.Unmarshal(detail.Body.Bytes(), &env))
	assert.Equal(t, post.Text, env.Data.Post.Text)
	assert.Equal(t, "Tom &amp; Jerry say &#34;hi&#34;", env.Data.TextHTML)
}

func TestAuthorizedPages(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	another := app.user("another")
	post := app.post(author, "Тестовый пост")
	editURL := fmt.Sprintf("/posts/%d/edit/", post.ID)

	assert.Equal(t, http.StatusOK, app.get("/create/", author).Code)
	assert.Equal(t, http.StatusOK, app.get(editURL, author).Code)
	assert.Equal(t, http.StatusOK, app.get("/follow/", another).Code)

	w := app.get(editURL, another)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), w.Header().Get("Location"))
}

func TestCreatePost(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	group := app.group("test-slug")

	w := app.postMultipart("/create/", map[string]string{
		"text":  "Тестовый Текст",
		"group": fmt.Sprint(group.ID),
	}, "small.gif", smallGIF, author)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))

	var post models.Post
	require.NoError(t, app.db.Where("text = ?", "Тестовый Текст").First(&post).Error)
	assert.Equal(t, author.ID, post.AuthorID)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, group.ID, *post.GroupID)
	assert.Equal(t, "posts/small.gif", post.Image)

	media := app.get("/media/posts/small.gif", nil)
	assert.Equal(t, http.StatusOK, media.Code)
	assert.Equal(t, smallGIF, media.Body.Bytes())
}

func TestCreatePost_InvalidForm(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")

	w := app.postForm("/create/", url.Values{"text": {"   "}}, author)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"text"`)
	assert.Zero(t, app.count(&models.Post{}))
}

func TestEditPost(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	another := app.user("another")
	post := app.post(author, "Тестовый текст")
	editURL := fmt.Sprintf("/posts/%d/edit/", post.ID)
	detailURL := fmt.Sprintf("/posts/%d/", post.ID)

	w := app.postForm(editURL, url.Values{"text": {"Чужая правка"}}, another)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))

	w = app.postForm(editURL, url.Values{"text": {"Измененный текст"}}, author)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))

	var stored models.Post
	require.NoError(t, app.db.First(&stored, post.ID).Error)
	assert.Equal(t, "Измененный текст", stored.Text)
	assert.Equal(t, author.ID, stored.AuthorID)
	assert.Equal(t, int64(1), app.count(&models.Post{}))
}

func TestAddComment(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	reader := app.user("reader")
	post := app.post(author, "Тестовый текст")
	commentURL := fmt.Sprintf("/posts/%d/comment/", post.ID)

	w := app.postForm(commentURL, url.Values{"text": {"Тестовый комментарий"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next="+commentURL, w.Header().Get("Location"))
	assert.Zero(t, app.count(&models.Comment{}))

	w = app.postForm(commentURL, url.Values{"text": {"Тестовый комментарий"}}, reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), w.Header().Get("Location"))
	assert.Equal(t, int64(1), app.count(&models.Comment{}))

	w = app.postForm(commentURL, url.Values{"text": {""}}, reader)
	assert.Equal(t, http.StatusFound, w.Code, "blank comments still return to the post")
	assert.Equal(t, int64(1), app.count(&models.Comment{}))

	detail := app.get(fmt.Sprintf("/posts/%d/", post.ID), nil)
	assert.Contains(t, detail.Body.String(), "Тестовый комментарий")
}

func TestFollowFlow(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	reader := app.user("reader")
	stranger := app.user("stranger")
	post := app.post(author, "для подписчиков")

	w := app.get("/profile/auth/follow/", reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))
	app.get("/profile/auth/follow/", reader)
	assert.Equal(t, int64(1), app.count(&models.Follow{}))

	app.get("/profile/auth/follow/", author)
	assert.Equal(t, int64(1), app.count(&models.Follow{}), "self-follow is ignored")

	feed := decodePage(t, app.get("/follow/", reader))
	require.Len(t, feed.PageObj.Items, 1)
	assert.Equal(t, post.ID, feed.PageObj.Items[0].ID)
	assert.Empty(t, decodePage(t, app.get("/follow/", stranger)).PageObj.Items)

	w = app.get("/profile/auth/unfollow/", reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Zero(t, app.count(&models.Follow{}))

	assert.Equal(t, http.StatusNotFound, app.get("/profile/auth/unfollow/", reader).Code)
}

func TestHomeFeedIsCached(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	app.post(author, "кэшированный пост")

	before := app.get("/", nil).Body.Bytes()
	require.NoError(t, app.db.Where("1 = 1").Delete(&models.Post{}).Error)
	assert.Equal(t, before, app.get("/", nil).Body.Bytes())

	app.pages.Clear(context.Background())
	after := decodePage(t, app.get("/", nil))
	assert.Empty(t, after.PageObj.Items)
}

func TestPagination(t *testing.T) {
	app := newTestApp(t)
	author := app.user("auth")
	for i := 0; i < 13; i++ {
		app.post(author, fmt.Sprintf("post %d", i))
	}

	assert.Len(t, decodePage(t, app.get("/", nil)).PageObj.Items, 10)
	assert.Len(t, decodePage(t, app.get("/?page=2", nil)).PageObj.Items, 3)
	assert.Len(t, decodePage(t, app.get("/profile/auth/", nil)).PageObj.Items, 5)
	assert.Len(t, decodePage(t, app.get("/profile/auth/?page=3", nil)).PageObj.Items, 3)

	last := decodePage(t, app.get("/profile/auth/?page=50", nil))
	assert.Equal(t, 3, last.PageObj.Page)
	first := decodePage(t, app.get("/profile/auth/?page=abc", nil))
	assert.Equal(t, 1, first.PageObj.Page)
}

func TestSignupLoginLogout(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/auth/signup/", url.Values{"username": {"leo"}, "password": {"war-and-peace"}}, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.AuthCookieName+"=")

	w = app.postForm("/auth/signup/", url.Values{"username": {"leo"}, "password": {"war-and-peace"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.postForm("/auth/login/?next=/follow/", url.Values{"username": {"leo"}, "password": {"wrong-password"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.postForm("/auth/login/?next=/follow/", url.Values{"username": {"leo"}, "password": {"war-and-peace"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/follow/", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodPost, "/auth/login/", strings.NewReader(`{"username":"leo","password":"war-and-peace","next":"//evil.example"}`))
	req.Header.Set("Content-Type", "application/json")
	w = app.do(req, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	bearer := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+login.Token)
		return app.do(req, nil)
	}
	assert.Equal(t, http.StatusOK, bearer("/follow/").Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout/", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	w = app.do(req, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = bearer("/follow/")
	assert.Equal(t, http.StatusFound, w.Code, "revoked tokens are anonymous")
}

func TestMediaMissingIs404(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, app.get("/media/posts/none.gif", nil).Code)
}
