package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mutena/fotomutena/media"
	"github.com/mutena/fotomutena/store"
	"github.com/mutena/fotomutena/utils"
)

// writeStoreError maps a failed mutation to the error envelope. current is the
// ETag clients should retry with after a conflict.
func writeStoreError(ctx *gin.Context, err error, current string) {
	switch {
	case errors.Is(err, store.ErrConflict):
		if current != "" {
			ctx.Header("ETag", current)
		}
		utils.Error(ctx, http.StatusConflict, 40901, "collection changed since it was loaded, reload and retry")
	case errors.Is(err, store.ErrInvalid):
		utils.Error(ctx, http.StatusBadRequest, 40020, err.Error())
	case errors.Is(err, store.ErrUnreadable):
		utils.Sugar.Errorw("refusing to overwrite unreadable data", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "stored data is unreadable, refusing to overwrite it")
	default:
		utils.Sugar.Errorw("store write failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to save")
	}
}

func writeMediaError(ctx *gin.Context, err error) {
	var hostErr *media.HostError
	switch {
	case errors.Is(err, media.ErrEmptyFile):
		utils.Error(ctx, http.StatusBadRequest, 40011, "uploaded file is empty")
	case errors.Is(err, media.ErrMalformedDataURL):
		utils.Error(ctx, http.StatusBadRequest, 40018, "image url is not a base64 data:image URL")
	case errors.Is(err, media.ErrTooLarge):
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, err.Error())
	case errors.Is(err, media.ErrUnsupportedType):
		utils.Error(ctx, http.StatusUnsupportedMediaType, 41501, err.Error())
	case errors.As(err, &hostErr):
		utils.Sugar.Warnw("media host rejected upload", "host", hostErr.Host, "status", hostErr.Status, "message", hostErr.Message)
		utils.Error(ctx, http.StatusBadGateway, 50201, "media upload failed: "+hostErr.Error())
	default:
		utils.Sugar.Errorw("media ingestion failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to store upload")
	}
}

// persisted reports whether a mutation reached durable storage. Read-only
// runtimes return the new value without saving it.
func persisted(err error) (bool, error) {
	if errors.Is(err, store.ErrReadOnly) {
		return false, nil
	}
	return err == nil, err
}
