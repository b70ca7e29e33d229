package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mutena/fotomutena/models"
	"github.com/mutena/fotomutena/store"
	"github.com/mutena/fotomutena/utils"
)

// SettingsController exposes the contact settings document.
type SettingsController struct {
	doc *store.Document[models.Settings]
}

func NewSettingsController(doc *store.Document[models.Settings]) *SettingsController {
	return &SettingsController{doc: doc}
}

// Get returns the stored settings or the default contact record.
func (s *SettingsController) Get(ctx *gin.Context) {
	snap := s.doc.Load(ctx.Request.Context())
	ctx.Header("ETag", snap.ETag)
	if snap.Err != nil {
		ctx.Header("X-Collection-Fallback", "true")
	}
	ctx.JSON(http.StatusOK, snap.Value)
}

// Update overwrites the whole settings object.
func (s *SettingsController) Update(ctx *gin.Context) {
	var req models.Settings
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
		return
	}
	req.Contact = models.Contact{
		Phone:     utils.Sanitize(req.Contact.Phone),
		Email:     utils.Sanitize(req.Contact.Email),
		Address:   utils.Sanitize(req.Contact.Address),
		Instagram: utils.Sanitize(req.Contact.Instagram),
		Website:   utils.Sanitize(req.Contact.Website),
	}

	snap, err := s.doc.Update(ctx.Request.Context(), ctx.GetHeader("If-Match"), func(models.Settings) (models.Settings, bool, error) {
		return req, true, nil
	})
	ok, err := persisted(err)
	if err != nil {
		writeStoreError(ctx, err, snap.ETag)
		return
	}
	ctx.Header("ETag", snap.ETag)
	utils.Success(ctx, gin.H{"settings": snap.Value, "persisted": ok})
}
