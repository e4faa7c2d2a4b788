package cms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/use-agent/imageboard/models"
)

// UploadFile is one file to send to the CMS media library.
type UploadFile struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// UploadFiles sends files as a multipart "files" field and returns the
// created media entries.
func (c *Client) UploadFiles(ctx context.Context, files []UploadFile, token string) ([]models.Media, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		if f.ContentType != "" {
			h.Set("Content-Type", f.ContentType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, models.NewAppError(models.ErrCodeUploadFailed, "build upload", err)
		}
		if _, err := io.Copy(part, f.Data); err != nil {
			return nil, models.NewAppError(models.ErrCodeUploadFailed, "read upload", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, models.NewAppError(models.ErrCodeUploadFailed, "build upload", err)
	}

	var media []models.Media
	opts := Options{RawBody: &buf, ContentType: w.FormDataContentType(), AuthToken: token}
	if err := c.Do(ctx, http.MethodPost, "/api/upload", opts, &media); err != nil {
		return nil, err
	}
	return media, nil
}
