/*
Package realtime contains the core logic for live connections, presence, room
membership, and event fan-out.

This file defines validation rules for study-material attachments shared into
rooms. Files are never proxied through the server; clients exchange object
keys under the room's storage prefix and fetch the bytes via presigned URLs.
*/
package realtime

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB is the maximum allowed file size in megabytes.
	MaxAttachmentSizeMB = 5

	// MaxAttachmentSize is the maximum allowed file size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	// MaxAttachmentsPerShare bounds how many files one share frame may carry.
	MaxAttachmentsPerShare = 5

	// PresignedURLDuration is the fixed duration for which a presigned URL is valid.
	PresignedURLDuration = 5 * time.Minute
)

// AllowedMIMETypes defines the set of permitted MIME types for study material.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/gif":       {},
	"application/pdf": {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAttachmentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxAttachmentSizeMB)
	}

	return nil
}

// ValidateFileType checks if the provided file name and MIME type are allowed
// and agree with each other.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrInvalidParams)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || len(ext) < 2 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}

// AttachmentKeyPrefix returns the storage prefix every object shared into the
// room must live under.
func AttachmentKeyPrefix(roomID string) string {
	return fmt.Sprintf("%s/", roomID)
}

// ValidateAttachments checks a share request: a bounded, non-empty batch where
// every object key sits under the room's prefix and every file passes the
// size and type rules.
func ValidateAttachments(roomID string, attachments []SharedAttachment) *errs.CustomError {
	if len(attachments) == 0 || len(attachments) > MaxAttachmentsPerShare {
		return errs.NewError(errs.ErrAttachmentCountInvalid, MaxAttachmentsPerShare)
	}

	prefix := AttachmentKeyPrefix(roomID)
	for _, att := range attachments {
		if !strings.HasPrefix(att.Key, prefix) || strings.Contains(att.Key, "..") {
			return errs.NewError(errs.ErrAttachmentKeyInvalid)
		}
		if err := ValidateFileSize(att.Size); err != nil {
			return err
		}
		if err := ValidateFileType(att.Name, att.MimeType); err != nil {
			return err
		}
	}

	return nil
}
