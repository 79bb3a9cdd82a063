package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/azaliaz/grimoire/internal/logger"
)

var mimeExtensions = map[string]string{
	"image/jpg":  "jpg",
	"image/jpeg": "jpg",
	"image/png":  "png",
}

var errUnsupportedImage = errors.New("unsupported image type")

// storeImage writes the uploaded "image" form file into the image directory
// under a collision-resistant name. A request without the field is not an
// error here: the empty filename lets CreateBook demand a cover while
// EditBook treats it as "keep the old one".
func (s *Server) storeImage(ctx *gin.Context) (string, error) {
	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	ext, ok := mimeExtensions[header.Header.Get("Content-Type")]
	if !ok {
		return "", errUnsupportedImage
	}
	name := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	name = strings.ReplaceAll(name, " ", "_")
	filename := fmt.Sprintf("%s%d.%s", name, time.Now().UnixMilli(), ext)

	if err := os.MkdirAll(s.cfg.ImageDir, os.ModePerm); err != nil {
		return "", err
	}
	out, err := os.Create(filepath.Join(s.cfg.ImageDir, filename))
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return filename, nil
}

// removeImage is the best-effort cleanup path: a failed delete is logged and
// never surfaced to the client.
func (s *Server) removeImage(filename string) {
	if filename == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.cfg.ImageDir, filename)); err != nil {
		log := logger.Get()
		log.Error().Err(err).Str("file", filename).Msg("failed to delete image")
	}
}

func imageURL(ctx *gin.Context, filename string) string {
	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/images/%s", scheme, ctx.Request.Host, filename)
}
