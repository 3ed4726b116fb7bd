package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/cache"
	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// SetupRouter wires routes, middlewares, and controllers. pages holds the cached home feed.
func SetupRouter(db *gorm.DB, pages cache.Store) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access logs go to their own rolling file; fall back to the app logger without one.
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			accessLog = gl
		} else {
			utils.Sugar.Warnf("gin access log disabled path=%s err=%v", cfg.GinPath, err)
		}
	}
	r.Use(ginzap.Ginzap(accessLog, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(accessLog, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	users := services.NewUserService(db)
	follows := services.NewFollowService(db)
	posts := services.NewPostService(db, services.NewMediaStore(cfg.MediaRoot))
	feed := services.NewFeedService(db, pages, services.FeedOptions{
		PostsPerPage:        cfg.PostsPerPage,
		ProfilePostsPerPage: cfg.ProfilePostsPerPage,
		HomeTTL:             time.Duration(cfg.HomeCacheSeconds) * time.Second,
	})

	r.Use(middleware.CurrentUser(users))
	r.MaxMultipartMemory = services.MaxImageSize + 1<<20
	r.Static("/media", cfg.MediaRoot)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	guard := utils.NewRegisterGuard(utils.GetRedis(), time.Duration(cfg.RegisterAttemptCooldownSec)*time.Second, cfg.RegisterMaxPerIPPerDay)
	authController := controllers.NewAuthController(users, guard)
	postController := controllers.NewPostController(feed, posts, follows)
	followController := controllers.NewFollowController(feed, follows, users)
	aboutController := controllers.NewAboutController()

	loginRequired := middleware.LoginRequired(cfg.LoginURL)
	limited := middleware.RateLimit(cfg.RateLimitPerMinute)

	r.GET("/", postController.Index)
	r.GET("/group/:slug/", postController.GroupPosts)
	r.GET("/profile/:username/", postController.Profile)
	r.GET("/posts/:id/", postController.PostDetail)

	protected := r.Group("")
	protected.Use(loginRequired)
	protected.GET("/create/", postController.CreateForm)
	protected.POST("/create/", limited, postController.Create)
	protected.GET("/posts/:id/edit/", postController.EditForm)
	protected.POST("/posts/:id/edit/", limited, postController.Edit)
	protected.POST("/posts/:id/comment/", limited, postController.AddComment)
	protected.POST("/posts/:id/delete/", postController.Delete)
	protected.GET("/follow/", followController.FollowIndex)
	protected.GET("/profile/:username/follow/", followController.ProfileFollow)
	protected.POST("/profile/:username/follow/", followController.ProfileFollow)
	protected.GET("/profile/:username/unfollow/", followController.ProfileUnfollow)
	protected.POST("/profile/:username/unfollow/", followController.ProfileUnfollow)

	about := r.Group("/about")
	about.GET("/author/", aboutController.Author)
	about.GET("/tech/", aboutController.Tech)

	authGroup := r.Group("/auth")
	authGroup.GET("/signup/", authController.SignupForm)
	authGroup.POST("/signup/", limited, authController.Signup)
	authGroup.GET("/login/", authController.LoginForm)
	authGroup.POST("/login/", limited, authController.Login)
	authGroup.GET("/logout/", authController.Logout)
	authGroup.POST("/logout/", authController.Logout)
	authGroup.GET("/captcha/", limited, authController.Captcha)
	authGroup.GET("/me/", loginRequired, authController.Me)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
