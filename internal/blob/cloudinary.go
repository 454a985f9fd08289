package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const cloudinaryAPI = "https://api.cloudinary.com/v1_1"

// Cloudinary uploads with an unsigned preset.
type Cloudinary struct {
	client    *http.Client
	endpoint  string
	cloudName string
	preset    string
	log       *zap.Logger
}

func NewCloudinary(cloudName, preset string, client *http.Client, log *zap.Logger) *Cloudinary {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Cloudinary{
		client:    client,
		endpoint:  cloudinaryAPI + "/" + cloudName + "/upload",
		cloudName: cloudName,
		preset:    preset,
		log:       log,
	}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Cloudinary) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, name, contentType, c.preset, c.cloudName, r)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("Cloudinary upload failed", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	var out cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload %s: decode response (status %d): %w", name, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		c.log.Error("Cloudinary rejected upload", zap.String("name", name), zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return "", fmt.Errorf("upload %s: %s", name, msg)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("upload %s: response has no secure_url", name)
	}
	return out.SecureURL, nil
}

func writeUploadForm(mw *multipart.Writer, name, contentType, preset, cloudName string, r io.Reader) error {
	if err := mw.WriteField("upload_preset", preset); err != nil {
		return err
	}
	if err := mw.WriteField("cloud_name", cloudName); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}
