/*
Package handler provides HTTP handler functions for presigned study-material
uploads and downloads, scoped to a room the requester is a member of.
*/
package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/auth/jwt"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/req"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating an
// upload URL.
type PresignUploadInput struct {
	RoomID   string `json:"room_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// HandlePresignUploadURL creates an HTTP HandlerFunc to generate a
// time-limited, pre-signed URL for file upload, scoped to a room the
// requester is a member of.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.RoomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if !deps.Directory.IsMember(input.RoomID, identity.ID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotMember))
			return
		}

		if err := realtime.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, r, err)
			return
		}
		if err := realtime.ValidateFileType(input.FileName, input.MimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(input.FileName))
		fileKey := fmt.Sprintf("%s%s%s", realtime.AttachmentKeyPrefix(input.RoomID), uuid.New().String(), fileExt)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			realtime.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// HandlePresignDownloadURL creates an HTTP HandlerFunc to redirect to a
// time-limited, pre-signed URL for a file key the requester may read. The
// room is derived from the key's prefix and the requester must be a member.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" || strings.Contains(fileKey, "..") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		roomID, _, found := strings.Cut(fileKey, "/")
		if !found || roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if !deps.Directory.IsMember(roomID, identity.ID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotMember))
			return
		}

		url, err := deps.StorageService.PresignDownload(r.Context(), fileKey, realtime.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
