package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Uploader stores uploaded files on Cloudinary when CLOUDINARY_URL is set
// and falls back to the local uploads/ directory otherwise.
type Uploader struct {
	cld *cloudinary.Cloudinary
}

// NewUploader initializes the uploader from CLOUDINARY_URL.
func NewUploader() *Uploader {
	cldURL := os.Getenv("CLOUDINARY_URL")
	if cldURL == "" {
		return &Uploader{}
	}
	cld, err := cloudinary.NewFromURL(cldURL)
	if err != nil {
		log.Printf("Cloudinary disabled: %v", err)
		return &Uploader{}
	}
	return &Uploader{cld: cld}
}

// Upload saves file under folder and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, file multipart.File, filename, folder string) (string, error) {
	if u.cld != nil {
		resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: folder})
		if err != nil {
			return "", fmt.Errorf("cloudinary upload failed: %w", err)
		}
		return resp.SecureURL, nil
	}
	return saveLocal(file, filename, folder)
}

// saveLocal writes the file under uploads/<folder> and returns the static
// path it is served from.
func saveLocal(file multipart.File, filename, folder string) (string, error) {
	dir := filepath.Join("uploads", folder)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return "/" + filepath.ToSlash(path), nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.ReplaceAll(name, " ", "_")
}
