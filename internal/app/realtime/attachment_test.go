package realtime

import (
	"testing"

	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
)

func TestValidateFileSize(t *testing.T) {
	t.Parallel()

	if err := ValidateFileSize(1024); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateFileSize(0); err == nil || err.Code != errs.ErrInvalidParams {
		t.Fatalf("expected rejection of empty file, got %v", err)
	}
	if err := ValidateFileSize(MaxAttachmentSize + 1); err == nil || err.Code != errs.ErrFileSizeTooLarge {
		t.Fatalf("expected oversize rejection, got %v", err)
	}
}

func TestValidateFileType(t *testing.T) {
	t.Parallel()

	if err := ValidateFileType("notes.pdf", "application/pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateFileType("diagram.PNG", "image/png"); err != nil {
		t.Fatalf("expected case-insensitive extension match, got %v", err)
	}
	if err := ValidateFileType("malware.exe", "application/pdf"); err == nil {
		t.Fatal("expected extension/MIME mismatch rejection")
	}
	if err := ValidateFileType("video.mp4", "video/mp4"); err == nil {
		t.Fatal("expected disallowed MIME rejection")
	}
}

func TestValidateAttachmentsEnforcesRoomPrefix(t *testing.T) {
	t.Parallel()

	good := SharedAttachment{
		Key:      "guild:42/abc123.pdf",
		Name:     "worksheet.pdf",
		MimeType: "application/pdf",
		Size:     2048,
	}

	if err := ValidateAttachments("guild:42", []SharedAttachment{good}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stolen := good
	stolen.Key = "guild:99/abc123.pdf"
	if err := ValidateAttachments("guild:42", []SharedAttachment{stolen}); err == nil || err.Code != errs.ErrAttachmentKeyInvalid {
		t.Fatalf("expected prefix rejection, got %v", err)
	}

	traversal := good
	traversal.Key = "guild:42/../guild:99/abc123.pdf"
	if err := ValidateAttachments("guild:42", []SharedAttachment{traversal}); err == nil || err.Code != errs.ErrAttachmentKeyInvalid {
		t.Fatalf("expected traversal rejection, got %v", err)
	}

	if err := ValidateAttachments("guild:42", nil); err == nil || err.Code != errs.ErrAttachmentCountInvalid {
		t.Fatalf("expected empty batch rejection, got %v", err)
	}

	many := make([]SharedAttachment, MaxAttachmentsPerShare+1)
	for i := range many {
		many[i] = good
	}
	if err := ValidateAttachments("guild:42", many); err == nil || err.Code != errs.ErrAttachmentCountInvalid {
		t.Fatalf("expected oversized batch rejection, got %v", err)
	}
}
