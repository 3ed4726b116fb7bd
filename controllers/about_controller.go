package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/utils"
)

// AboutController serves the two static about pages.
type AboutController struct{}

func NewAboutController() *AboutController { return &AboutController{} }

// Author describes the author of the site.
func (c *AboutController) Author(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"title": "About the author",
		"text":  "Yatube is a small blogging platform: write posts, join groups, comment and follow the authors you like.",
	})
}

// Tech lists the technologies the site is built with.
func (c *AboutController) Tech(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"title": "Technologies",
		"items": []string{"Go", "Gin", "GORM", "MySQL / SQLite", "Redis", "zap"},
	})
}
