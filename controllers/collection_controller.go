package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mutena/fotomutena/media"
	"github.com/mutena/fotomutena/models"
	"github.com/mutena/fotomutena/store"
	"github.com/mutena/fotomutena/utils"
)

// Defaults fill the fields a new record was created without.
type Defaults struct {
	Category string
	Alt      string
	Width    int
	Height   int
	Specs    models.Specs
}

var (
	PhotoDefaults = Defaults{
		Category: "Genel",
		Alt:      "Mutena Arşiv",
		Specs:    models.Specs{ISO: "Bulut Yükleme", Shutter: "Doğrudan Aktarım", Aperture: "Yüksek Kalite"},
	}
	DesignDefaults = Defaults{
		Category: "Tasarım",
		Alt:      "Mutena Tasarım",
		Width:    800,
		Height:   600,
		Specs:    models.Specs{Tool: "Studio Mutena", Version: "2026.1", Type: "Draft"},
	}
)

// multipartOverhead leaves room for form fields around the file part.
const multipartOverhead = 1 << 20

// CollectionController serves one ordered collection.
type CollectionController struct {
	coll     *store.Collection
	ingest   *media.Ingestor
	defaults Defaults
}

func NewCollectionController(coll *store.Collection, ingest *media.Ingestor, defaults Defaults) *CollectionController {
	return &CollectionController{coll: coll, ingest: ingest, defaults: defaults}
}

type createRequest struct {
	URL         string        `json:"url" form:"url"`
	Title       string        `json:"title" form:"title"`
	Category    string        `json:"category" form:"category"`
	Description string        `json:"description" form:"description"`
	AspectRatio *float64      `json:"aspectRatio" form:"aspectRatio"`
	Width       int           `json:"width" form:"width"`
	Height      int           `json:"height" form:"height"`
	Specs       *models.Specs `json:"specs" form:"-"`
}

// List returns the collection as a bare JSON array.
func (c *CollectionController) List(ctx *gin.Context) {
	snap := c.coll.Items(ctx.Request.Context())
	ctx.Header("ETag", snap.ETag)
	if snap.Err != nil {
		ctx.Header("X-Collection-Fallback", "true")
	}
	ctx.JSON(http.StatusOK, snap.Value)
}

// Create accepts either a multipart upload or a JSON body pointing at a hosted image.
func (c *CollectionController) Create(ctx *gin.Context) {
	var (
		req   createRequest
		asset *media.Asset
	)

	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBytes()+multipartOverhead)
		if err := ctx.ShouldBind(&req); err != nil {
			writeFormError(ctx, err)
			return
		}
		fh, err := ctx.FormFile("file")
		switch {
		case err == nil:
			up, err := readUpload(fh)
			if err != nil {
				utils.Error(ctx, http.StatusBadRequest, 40012, "failed to read uploaded file")
				return
			}
			if asset = c.ingestUpload(ctx, up); asset == nil {
				return
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			writeFormError(ctx, err)
			return
		}
	} else {
		// base64 inflates an inline image by a third
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBytes()/3*4+multipartOverhead)
		if err := ctx.ShouldBindJSON(&req); err != nil {
			if isTooLarge(err) {
				utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "request body too large")
				return
			}
			utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
			return
		}
	}

	if asset == nil && strings.HasPrefix(strings.TrimSpace(req.URL), "data:") {
		up, err := media.ParseDataURL(strings.TrimSpace(req.URL))
		if err != nil {
			writeMediaError(ctx, err)
			return
		}
		if asset = c.ingestUpload(ctx, up); asset == nil {
			return
		}
	}

	if asset == nil {
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			utils.Error(ctx, http.StatusBadRequest, 40013, "file or image url is required")
			return
		}
		if !acceptableURL(req.URL) {
			utils.Error(ctx, http.StatusBadRequest, 40014, "image url must be http(s) or /api/uploads/")
			return
		}
	}

	rec := c.newRecord(req, asset)
	rec, snap, err := c.coll.Add(ctx.Request.Context(), rec, ctx.GetHeader("If-Match"))
	ok, err := persisted(err)
	if err != nil {
		writeStoreError(ctx, err, snap.ETag)
		return
	}
	ctx.Header("ETag", snap.ETag)
	utils.Success(ctx, gin.H{c.coll.Name(): snap.Value, "item": rec, "persisted": ok})
}

// Delete removes the record named by the id query parameter.
func (c *CollectionController) Delete(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Query("id"))
	if id == "" {
		utils.Error(ctx, http.StatusBadRequest, 40015, "id is required")
		return
	}
	snap, err := c.coll.Remove(ctx.Request.Context(), id, ctx.GetHeader("If-Match"))
	ok, err := persisted(err)
	if err != nil {
		writeStoreError(ctx, err, snap.ETag)
		return
	}
	ctx.Header("ETag", snap.ETag)
	utils.Success(ctx, gin.H{c.coll.Name(): snap.Value, "persisted": ok})
}

// Update overwrites the whole collection, used for reorder and inline edits.
func (c *CollectionController) Update(ctx *gin.Context) {
	var body map[string]json.RawMessage
	if err := ctx.ShouldBindJSON(&body); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request body")
		return
	}
	raw, found := body[c.coll.Name()]
	if !found {
		utils.Error(ctx, http.StatusBadRequest, 40016, "body must contain "+c.coll.Name())
		return
	}
	var list []models.Record
	if err := json.Unmarshal(raw, &list); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40017, c.coll.Name()+" must be a list of items")
		return
	}
	for i := range list {
		sanitizeRecord(&list[i])
	}

	snap, err := c.coll.Replace(ctx.Request.Context(), list, ctx.GetHeader("If-Match"))
	ok, err := persisted(err)
	if err != nil {
		writeStoreError(ctx, err, snap.ETag)
		return
	}
	ctx.Header("ETag", snap.ETag)
	utils.Success(ctx, gin.H{c.coll.Name(): snap.Value, "persisted": ok})
}

func (c *CollectionController) newRecord(req createRequest, asset *media.Asset) models.Record {
	title := utils.Sanitize(req.Title)
	rec := models.Record{
		URL:         req.URL,
		Title:       title,
		Alt:         title,
		Category:    utils.Sanitize(req.Category),
		Description: utils.Sanitize(req.Description),
		Width:       req.Width,
		Height:      req.Height,
		AspectRatio: req.AspectRatio,
	}
	if rec.Alt == "" {
		rec.Alt = c.defaults.Alt
	}
	if rec.Category == "" {
		rec.Category = c.defaults.Category
	}

	specs := c.defaults.Specs
	if req.Specs != nil {
		specs = sanitizeSpecs(*req.Specs)
	}
	rec.Specs = &specs

	if asset != nil {
		rec.URL = asset.URL
		rec.Width, rec.Height = asset.Width, asset.Height
		ratio := asset.AspectRatio
		rec.AspectRatio = &ratio
	}
	if rec.Width == 0 && rec.Height == 0 {
		rec.Width, rec.Height = c.defaults.Width, c.defaults.Height
	}
	if rec.AspectRatio == nil && rec.Width > 0 && rec.Height > 0 {
		ratio := media.AspectRatio(rec.Width, rec.Height)
		rec.AspectRatio = &ratio
	}
	return rec
}

// ingestUpload runs up through the ingestor and writes the error response on failure.
func (c *CollectionController) ingestUpload(ctx *gin.Context, up media.Upload) *media.Asset {
	if c.ingest == nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "uploads are disabled")
		return nil
	}
	a, err := c.ingest.Ingest(ctx.Request.Context(), up)
	if err != nil {
		writeMediaError(ctx, err)
		return nil
	}
	return &a
}

func (c *CollectionController) maxBytes() int64 {
	if c.ingest != nil {
		return c.ingest.MaxBytes
	}
	return media.DefaultMaxBytes
}

func readUpload(fh *multipart.FileHeader) (media.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return media.Upload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return media.Upload{}, err
	}
	return media.Upload{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func writeFormError(ctx *gin.Context, err error) {
	if isTooLarge(err) {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
		return
	}
	utils.Error(ctx, http.StatusBadRequest, 40010, "invalid form data")
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func acceptableURL(raw string) bool {
	switch {
	case strings.HasPrefix(raw, "/api/uploads/"):
		return !strings.Contains(raw, "..")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sanitizeRecord(r *models.Record) {
	r.Title = utils.Sanitize(r.Title)
	r.Alt = utils.Sanitize(r.Alt)
	r.Category = utils.Sanitize(r.Category)
	r.Description = utils.Sanitize(r.Description)
	r.ID = strings.TrimSpace(r.ID)
	r.URL = strings.TrimSpace(r.URL)
	if r.Specs != nil {
		s := sanitizeSpecs(*r.Specs)
		r.Specs = &s
	}
}

func sanitizeSpecs(s models.Specs) models.Specs {
	return models.Specs{
		ISO:      utils.Sanitize(s.ISO),
		Shutter:  utils.Sanitize(s.Shutter),
		Aperture: utils.Sanitize(s.Aperture),
		Tool:     utils.Sanitize(s.Tool),
		Version:  utils.Sanitize(s.Version),
		Type:     utils.Sanitize(s.Type),
	}
}
