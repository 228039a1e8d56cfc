package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tubecast/internal/authflow"
	"tubecast/internal/config"
	"tubecast/internal/services"
	"tubecast/internal/store"
)

const defaultUploadBase = "https://www.googleapis.com/upload/youtube/v3"

// YouTube implements Publisher against the YouTube Data API.
type YouTube struct {
	flow       *authflow.Flow
	client     *http.Client
	uploadBase string
	categoryID string
	chunkSize  int64
}

// YouTubeOption configures the client.
type YouTubeOption func(*YouTube)

// WithHTTPClient injects the transport (primarily for tests).
func WithHTTPClient(client *http.Client) YouTubeOption {
	return func(y *YouTube) {
		if client != nil {
			y.client = client
		}
	}
}

// WithUploadBase overrides the API base URL (primarily for tests).
func WithUploadBase(base string) YouTubeOption {
	return func(y *YouTube) {
		if base != "" {
			y.uploadBase = strings.TrimRight(base, "/")
		}
	}
}

// WithChunkSize overrides the chunk size in bytes (primarily for tests).
func WithChunkSize(size int64) YouTubeOption {
	return func(y *YouTube) {
		if size > 0 {
			y.chunkSize = size
		}
	}
}

// NewYouTube constructs the YouTube publisher.
func NewYouTube(cfg *config.Config, flow *authflow.Flow, opts ...YouTubeOption) *YouTube {
	chunk := int64(cfg.Upload.ChunkMiB) * 1024 * 1024
	if chunk <= 0 {
		chunk = 8 * 1024 * 1024
	}
	y := &YouTube{
		flow:       flow,
		client:     &http.Client{Timeout: 10 * time.Minute},
		uploadBase: defaultUploadBase,
		categoryID: cfg.Upload.CategoryID,
		chunkSize:  chunk,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

type videoMetadata struct {
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		CategoryID  string `json:"categoryId"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
}

// Upload publishes the video via the resumable protocol and returns its
// identity. The rotated token, if any, is re-persisted to the account's
// credential file before the upload begins.
func (y *YouTube) Upload(ctx context.Context, account store.Account, videoPath string, req UploadRequest) (*PublishedVideo, error) {
	accessToken, err := y.freshAccessToken(ctx, account)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(videoPath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "upload", "stat video", "rendered video missing", err)
	}

	sessionURL, err := y.initiateSession(ctx, accessToken, info.Size(), req)
	if err != nil {
		return nil, err
	}

	videoID, err := y.uploadChunks(ctx, accessToken, sessionURL, videoPath, info.Size())
	if err != nil {
		return nil, err
	}

	return &PublishedVideo{
		ID:  videoID,
		URL: "https://youtube.com/watch?v=" + videoID,
	}, nil
}

// SetThumbnail replaces the video's thumbnail with the provided image.
func (y *YouTube) SetThumbnail(ctx context.Context, account store.Account, videoID, imagePath string) error {
	accessToken, err := y.freshAccessToken(ctx, account)
	if err != nil {
		return err
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "thumbnail", "open image", "thumbnail image missing", err)
	}
	defer file.Close()

	url := fmt.Sprintf("%s/thumbnails/set?videoId=%s&uploadType=media", y.uploadBase, videoID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, file)
	if err != nil {
		return fmt.Errorf("build thumbnail request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", imageContentType(imagePath))

	resp, err := y.client.Do(httpReq)
	if err != nil {
		return services.Wrap(services.ErrTransient, "thumbnail", "set", "thumbnail request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return services.Wrap(services.ErrExternalTool, "thumbnail", "set", apiErrorDetail(resp), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// freshAccessToken loads the account's credential, refreshes it through the
// OAuth client when expired, and re-persists a rotated token.
func (y *YouTube) freshAccessToken(ctx context.Context, account store.Account) (string, error) {
	if strings.TrimSpace(account.CredentialRef) == "" {
		return "", services.Wrap(services.ErrConfiguration, "upload", "credentials",
			fmt.Sprintf("account %q has no credential; re-run authorization", account.Name), nil)
	}
	token, err := y.flow.LoadToken(account.CredentialRef)
	if err != nil {
		return "", err
	}

	fresh, err := y.flow.OAuthConfig().TokenSource(ctx, token).Token()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "upload", "token refresh",
			fmt.Sprintf("authorization for %q expired; remove and re-add the account", account.Name), err)
	}
	if fresh.AccessToken != token.AccessToken || fresh.RefreshToken != token.RefreshToken {
		if err := y.flow.SaveToken(account.CredentialRef, fresh); err != nil {
			return "", err
		}
	}
	return fresh.AccessToken, nil
}

func (y *YouTube) initiateSession(ctx context.Context, accessToken string, size int64, req UploadRequest) (string, error) {
	var meta videoMetadata
	meta.Snippet.Title = req.Title
	meta.Snippet.Description = req.Description
	meta.Snippet.CategoryID = req.CategoryID
	if meta.Snippet.CategoryID == "" {
		meta.Snippet.CategoryID = y.categoryID
	}
	meta.Status.PrivacyStatus = string(req.Visibility)
	if meta.Status.PrivacyStatus == "" {
		meta.Status.PrivacyStatus = string(store.DefaultVisibility)
	}

	body, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode video metadata: %w", err)
	}

	url := y.uploadBase + "/videos?uploadType=resumable&part=snippet,status"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build initiation request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")
	httpReq.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", size))
	httpReq.Header.Set("X-Upload-Content-Type", "video/mp4")

	resp, err := y.client.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "upload", "initiate", "upload initiation failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrExternalTool, "upload", "initiate", apiErrorDetail(resp), nil)
	}

	session := resp.Header.Get("Location")
	if session == "" {
		return "", services.Wrap(services.ErrExternalTool, "upload", "initiate", "no upload session granted", nil)
	}
	return session, nil
}

// uploadChunks streams the file to the session URL one chunk at a time. The
// server acknowledges intermediate chunks with 308 and the final one with the
// video resource.
func (y *YouTube) uploadChunks(ctx context.Context, accessToken, sessionURL, videoPath string, size int64) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	var offset int64
	for offset < size {
		length := y.chunkSize
		if remaining := size - offset; remaining < length {
			length = remaining
		}
		section := io.NewSectionReader(file, offset, length)

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, section)
		if err != nil {
			return "", fmt.Errorf("build chunk request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
		httpReq.Header.Set("Content-Type", "video/mp4")
		httpReq.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, size))
		httpReq.ContentLength = length

		resp, err := y.client.Do(httpReq)
		if err != nil {
			return "", services.Wrap(services.ErrTransient, "upload", "chunk", "chunk upload failed", err)
		}

		switch {
		case resp.StatusCode == 308:
			// Intermediate acknowledgement; Range tells us how far the
			// server got in case it accepted less than we sent.
			next := nextOffsetFromRange(resp.Header.Get("Range"))
			resp.Body.Close()
			if next > offset {
				offset = next
			} else {
				offset += length
			}
		case resp.StatusCode < 300:
			var video struct {
				ID string `json:"id"`
			}
			err := json.NewDecoder(resp.Body).Decode(&video)
			resp.Body.Close()
			if err != nil {
				return "", fmt.Errorf("decode upload response: %w", err)
			}
			if video.ID == "" {
				return "", services.Wrap(services.ErrExternalTool, "upload", "finalize", "upload completed without a video id", nil)
			}
			return video.ID, nil
		default:
			detail := apiErrorDetail(resp)
			resp.Body.Close()
			return "", services.Wrap(services.ErrExternalTool, "upload", "chunk", detail, nil)
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "upload", "finalize", "server never acknowledged completion", nil)
}

// nextOffsetFromRange parses "bytes=0-8388607" into the next write offset.
func nextOffsetFromRange(header string) int64 {
	header = strings.TrimPrefix(strings.TrimSpace(header), "bytes=")
	_, last, found := strings.Cut(header, "-")
	if !found {
		return 0
	}
	var end int64
	if _, err := fmt.Sscanf(last, "%d", &end); err != nil {
		return 0
	}
	return end + 1
}

func apiErrorDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return fmt.Sprintf("api returned %d", resp.StatusCode)
	}
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Sprintf("api returned %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return fmt.Sprintf("api returned %d: %s", resp.StatusCode, detail)
}

func imageContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "image/jpeg"
}
