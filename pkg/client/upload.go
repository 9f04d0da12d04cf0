package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// UploadTimeout bounds image and voice uploads; the backend runs vision or
// ASR models before answering, so these take longer than text recommends.
const UploadTimeout = 120 * time.Second

// Accepted upload extensions. Validation is extension-string matching only,
// case-insensitive, with no content sniffing.
var (
	imageExts = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif"}
	audioExts = []string{".wav", ".mp3", ".m4a", ".ogg", ".flac", ".aac", ".wma", ".opus"}
)

// IsSupportedImage reports whether the filename carries a whitelisted
// image extension.
func IsSupportedImage(filename string) bool {
	return hasExt(filename, imageExts)
}

// IsSupportedAudio reports whether the filename carries a whitelisted
// audio extension.
func IsSupportedAudio(filename string) bool {
	return hasExt(filename, audioExts)
}

func hasExt(filename string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// RecommendImage uploads an image file and returns recommendations for the
// product the backend sees in it. customPrompt overrides the backend's
// default vision prompt when non-empty. An extension outside the whitelist
// fails locally with ErrUnsupportedImageType before any network access.
func (c *Client) RecommendImage(ctx context.Context, path string, topK int, customPrompt string) (*RecommendResponse, error) {
	if !IsSupportedImage(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImageType, filepath.Ext(path))
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	fields := map[string]string{"top_k": strconv.Itoa(topK)}
	if customPrompt != "" {
		fields["custom_prompt"] = customPrompt
	}
	return c.uploadFile(ctx, "/recommend/image", "image", path, fields)
}

// RecommendVoice uploads an audio file, letting the backend transcribe it
// and recommend for the transcription. language defaults to "zh" when empty,
// matching the ASR service. An extension outside the whitelist fails locally
// with ErrUnsupportedAudioType before any network access.
func (c *Client) RecommendVoice(ctx context.Context, path string, topK int, language string) (*RecommendResponse, error) {
	if !IsSupportedAudio(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAudioType, filepath.Ext(path))
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if language == "" {
		language = "zh"
	}

	fields := map[string]string{
		"top_k":    strconv.Itoa(topK),
		"language": language,
	}
	return c.uploadFile(ctx, "/recommend/voice", "audio", path, fields)
}

// uploadFile builds the multipart body and POSTs it with the upload timeout.
func (c *Client) uploadFile(ctx context.Context, path, fieldName, filePath string, fields map[string]string) (*RecommendResponse, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile(fieldName, filepath.Base(filePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	uploader := &http.Client{Timeout: UploadTimeout}
	start := time.Now()
	resp, err := uploader.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrBadStatus, resp.Status, bytes.TrimSpace(raw))
	}

	var out RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	c.logger.Debugf("POST %s (%s) took %v", path, filepath.Base(filePath), time.Since(start))
	return &out, nil
}
