// Package files implements the REST API handlers for downloading report files.
package files

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/siriusuniversity/report-backend/internal/tracker"
)

// LocalFiles opens stored uploads by name
type LocalFiles interface {
	Open(name string) (*os.File, error)
}

// AttachmentSource streams tracker attachments
type AttachmentSource interface {
	DownloadAttachment(ctx context.Context, issueKey, attachmentID, filename string) (*tracker.Download, error)
}

// GetUpload handles GET /files/:filename
func GetUpload(dir LocalFiles) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("filename")
		f, err := dir.Open(name)
		if err != nil {
			if os.IsNotExist(err) {
				return fiber.ErrNotFound
			}
			return err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return err
		}
		if info.IsDir() {
			f.Close()
			return fiber.ErrNotFound
		}

		c.Attachment(name)
		return c.SendStream(f, int(info.Size()))
	}
}

// GetAttachment handles GET /attachments/:issue/:id/:filename, proxying
// the tracker download with its content type
func GetAttachment(src AttachmentSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filename := c.Params("filename")
		dl, err := src.DownloadAttachment(c.UserContext(), c.Params("issue"), c.Params("id"), filename)
		if err != nil {
			return err
		}

		c.Attachment(filename)
		c.Set(fiber.HeaderContentType, dl.ContentType)
		return c.SendStream(dl.Body)
	}
}
