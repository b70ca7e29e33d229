package controllers

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mutena/fotomutena/utils"
)

// UploadController serves files written by the local media host.
type UploadController struct {
	dir string
}

func NewUploadController(dir string) *UploadController {
	return &UploadController{dir: dir}
}

// Serve streams /api/uploads/:filename with a long-lived cache header.
func (u *UploadController) Serve(ctx *gin.Context) {
	name := ctx.Param("filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		utils.Error(ctx, http.StatusNotFound, 40401, "file not found")
		return
	}

	path := filepath.Join(u.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		utils.Error(ctx, http.StatusNotFound, 40401, "file not found")
		return
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	ctx.Header("Content-Type", contentType)
	ctx.Header("Cache-Control", "public, max-age=31536000, immutable")
	ctx.File(path)
}
