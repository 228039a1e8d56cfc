package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tubecast/internal/config"
	"tubecast/internal/services"
)

// Backend is the media surface the pipeline depends on.
type Backend interface {
	// DownloadAudio extracts the best audio track from the source link as an
	// mp3 in the staging directory and returns its path.
	DownloadAudio(ctx context.Context, url string) (string, error)
	// SourceThumbnail resolves the source's own preview image URL without
	// downloading the media.
	SourceThumbnail(ctx context.Context, url string) (string, error)
	// FetchImage downloads a remote image into the staging directory.
	FetchImage(ctx context.Context, url string) (string, error)
	// Render produces a video from a still image and an audio track.
	Render(ctx context.Context, audioPath, imagePath string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithHTTPClient injects the client used for image fetches.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client implements Backend on top of yt-dlp, ffmpeg, and ffprobe.
type Client struct {
	stagingDir string
	ytdlp      string
	ffmpeg     string
	ffprobe    string
	exec       Executor
	httpClient *http.Client
}

// NewClient constructs a media client from configuration.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if strings.TrimSpace(cfg.Paths.StagingDir) == "" {
		return nil, errors.New("staging directory required")
	}
	client := &Client{
		stagingDir: cfg.Paths.StagingDir,
		ytdlp:      binaryOrDefault(cfg.Tools.YtDlp, "yt-dlp"),
		ffmpeg:     binaryOrDefault(cfg.Tools.FFmpeg, "ffmpeg"),
		ffprobe:    binaryOrDefault(cfg.Tools.FFprobe, "ffprobe"),
		exec:       commandExecutor{},
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func binaryOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func (c *Client) DownloadAudio(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", services.Wrap(services.ErrValidation, "download", "audio", "empty source url", nil)
	}
	dest := filepath.Join(c.stagingDir, "audio_"+uuid.NewString())
	args := []string{
		"--no-playlist",
		"-f", "bestaudio",
		"-x", "--audio-format", "mp3",
		"-o", dest + ".%(ext)s",
		"--", url,
	}
	var tail outputTail
	if err := c.exec.Run(ctx, c.ytdlp, args, tail.collect); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "yt-dlp", tail.String(), err)
	}
	path := dest + ".mp3"
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "no audio file produced", err)
	}
	return path, nil
}

func (c *Client) SourceThumbnail(ctx context.Context, url string) (string, error) {
	args := []string{"--skip-download", "--no-playlist", "--print", "thumbnail", "--", url}
	var thumbnail string
	var tail outputTail
	if err := c.exec.Run(ctx, c.ytdlp, args, func(line string) {
		tail.collect(line)
		if thumbnail == "" && strings.HasPrefix(strings.TrimSpace(line), "http") {
			thumbnail = strings.TrimSpace(line)
		}
	}); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "thumbnail", "yt-dlp", tail.String(), err)
	}
	if thumbnail == "" {
		return "", services.Wrap(services.ErrExternalTool, "thumbnail", "yt-dlp", "source reported no thumbnail", nil)
	}
	return thumbnail, nil
}

func (c *Client) FetchImage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "thumbnail", "fetch", "invalid image url", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "thumbnail", "fetch", "image request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrExternalTool, "thumbnail", "fetch",
			fmt.Sprintf("image request returned %d", resp.StatusCode), nil)
	}

	path := filepath.Join(c.stagingDir, "thumb_"+uuid.NewString()+imageExtension(resp.Header.Get("Content-Type"), url))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", services.Wrap(services.ErrTransient, "thumbnail", "fetch", "image download interrupted", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}
	return path, nil
}

func (c *Client) Render(ctx context.Context, audioPath, imagePath string) (string, error) {
	duration, err := c.probeDuration(ctx, audioPath)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(c.stagingDir, "video_"+uuid.NewString()+".mp4")
	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2",
		"-t", strconv.FormatFloat(duration, 'f', 3, 64),
		dest,
	}
	var tail outputTail
	if err := c.exec.Run(ctx, c.ffmpeg, args, tail.collect); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "ffmpeg", tail.String(), err)
	}
	if _, err := os.Stat(dest); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "no video file produced", err)
	}
	return dest, nil
}

func (c *Client) probeDuration(ctx context.Context, audioPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", audioPath,
	}
	var lines []string
	if err := c.exec.Run(ctx, c.ffprobe, args, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "render", "ffprobe", strings.Join(lines, "; "), err)
	}
	for _, line := range lines {
		if duration, err := strconv.ParseFloat(line, 64); err == nil && duration > 0 {
			return duration, nil
		}
	}
	return 0, services.Wrap(services.ErrExternalTool, "render", "ffprobe", "could not determine audio duration", nil)
}

// imageExtension maps the response content type to a file extension, falling
// back to the URL path and finally .jpg.
func imageExtension(contentType, url string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch mediaType {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		case "image/gif":
			return ".gif"
		}
	}
	if ext := strings.ToLower(filepath.Ext(strippedURLPath(url))); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".jpg"
}

func strippedURLPath(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return url
}

// outputTail keeps the last few tool output lines for error context.
type outputTail struct {
	lines []string
}

func (t *outputTail) collect(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > 5 {
		t.lines = t.lines[len(t.lines)-5:]
	}
}

func (t *outputTail) String() string {
	return strings.Join(t.lines, "; ")
}
