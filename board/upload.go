package board

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/use-agent/imageboard/cms"
	"github.com/use-agent/imageboard/models"
)

// Upload is an image file attached to a post form.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FromFileHeader wraps a multipart file.
func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// readImage loads u and checks its size and sniffed content type.
func (s *Service) readImage(u Upload) (cms.UploadFile, error) {
	if s.upload.MaxBytes > 0 && u.Size > s.upload.MaxBytes {
		return cms.UploadFile{}, ErrFileSize
	}
	f, err := u.Open()
	if err != nil {
		return cms.UploadFile{}, models.NewAppError(models.ErrCodeUploadFailed, "open upload", err)
	}
	defer f.Close()

	limit := s.upload.MaxBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return cms.UploadFile{}, models.NewAppError(models.ErrCodeUploadFailed, "read upload", err)
	}
	if int64(len(data)) > limit {
		return cms.UploadFile{}, ErrFileSize
	}

	mt := mimetype.Detect(data)
	if !s.allowed(mt) {
		return cms.UploadFile{}, ErrFileType
	}
	return cms.UploadFile{
		Name:        u.Name,
		ContentType: mt.String(),
		Data:        bytes.NewReader(data),
	}, nil
}

func (s *Service) allowed(mt *mimetype.MIME) bool {
	if len(s.upload.AllowedTypes) == 0 {
		return strings.HasPrefix(mt.String(), "image/")
	}
	for _, t := range s.upload.AllowedTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

func (s *Service) uploadImages(ctx context.Context, uploads []Upload, token string) ([]models.Media, error) {
	files := make([]cms.UploadFile, 0, len(uploads))
	for _, u := range uploads {
		f, err := s.readImage(u)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return s.cms.UploadFiles(ctx, files, token)
}
