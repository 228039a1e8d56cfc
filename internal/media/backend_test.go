package media_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubecast/internal/media"
	"tubecast/internal/testsupport"
)

// scriptedExecutor fabricates tool behavior per binary and records calls.
type scriptedExecutor struct {
	calls [][]string
	run   func(binary string, args []string, onLine func(string)) error
}

func (s *scriptedExecutor) Run(_ context.Context, binary string, args []string, onLine func(string)) error {
	s.calls = append(s.calls, append([]string{binary}, args...))
	return s.run(binary, args, onLine)
}

func outputPathFromArgs(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestDownloadAudioProducesFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &scriptedExecutor{
		run: func(binary string, args []string, _ func(string)) error {
			template := outputPathFromArgs(args, "-o")
			if template == "" {
				return errors.New("missing output template")
			}
			path := strings.Replace(template, "%(ext)s", "mp3", 1)
			return os.WriteFile(path, []byte("audio"), 0o644)
		},
	}
	client, err := media.NewClient(cfg, media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	path, err := client.DownloadAudio(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("DownloadAudio failed: %v", err)
	}
	if !strings.HasSuffix(path, ".mp3") {
		t.Fatalf("unexpected audio path %q", path)
	}
	if filepath.Dir(path) != cfg.Paths.StagingDir {
		t.Fatalf("audio not staged under staging dir: %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("audio file missing: %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0][0] != "yt-dlp" {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}

func TestDownloadAudioToolFailureIncludesOutputTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &scriptedExecutor{
		run: func(_ string, _ []string, onLine func(string)) error {
			onLine("ERROR: Video unavailable")
			return errors.New("exit status 1")
		},
	}
	client, err := media.NewClient(cfg, media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.DownloadAudio(context.Background(), "https://youtu.be/gone")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Fatalf("error lacks tool output: %v", err)
	}
}

func TestSourceThumbnailReturnsFirstURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &scriptedExecutor{
		run: func(_ string, _ []string, onLine func(string)) error {
			onLine("https://i.ytimg.com/vi/abc123/maxresdefault.jpg")
			return nil
		},
	}
	client, err := media.NewClient(cfg, media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	url, err := client.SourceThumbnail(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("SourceThumbnail failed: %v", err)
	}
	if url != "https://i.ytimg.com/vi/abc123/maxresdefault.jpg" {
		t.Fatalf("thumbnail url = %q", url)
	}
}

func TestFetchImageStagesByContentType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, "png-bytes")
	}))
	defer server.Close()

	exec := &scriptedExecutor{run: func(string, []string, func(string)) error { return nil }}
	client, err := media.NewClient(cfg, media.WithExecutor(exec), media.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	path, err := client.FetchImage(context.Background(), server.URL+"/cover")
	if err != nil {
		t.Fatalf("FetchImage failed: %v", err)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Fatalf("expected .png extension, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read staged image: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("staged image content = %q", data)
	}
}

func TestFetchImageRejectsErrorStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	exec := &scriptedExecutor{run: func(string, []string, func(string)) error { return nil }}
	client, err := media.NewClient(cfg, media.WithExecutor(exec), media.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.FetchImage(context.Background(), server.URL+"/cover"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestRenderProbesDurationThenEncodes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &scriptedExecutor{
		run: func(binary string, args []string, onLine func(string)) error {
			switch binary {
			case "ffprobe":
				onLine("184.302000")
				return nil
			case "ffmpeg":
				return os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
			default:
				return fmt.Errorf("unexpected binary %q", binary)
			}
		},
	}
	client, err := media.NewClient(cfg, media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	path, err := client.Render(context.Background(), "/staging/audio.mp3", "/staging/thumb.jpg")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasSuffix(path, ".mp4") {
		t.Fatalf("unexpected video path %q", path)
	}

	if len(exec.calls) != 2 {
		t.Fatalf("expected probe then encode, got %v", exec.calls)
	}
	encode := strings.Join(exec.calls[1], " ")
	if !strings.Contains(encode, "-t 184.302") {
		t.Fatalf("encode missing duration clamp: %s", encode)
	}
	if !strings.Contains(encode, "scale=1920:1080") {
		t.Fatalf("encode missing 1080p scaling: %s", encode)
	}
	if !strings.Contains(encode, "libx264") || !strings.Contains(encode, "aac") {
		t.Fatalf("encode missing codecs: %s", encode)
	}
}

func TestRenderFailsWithoutDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &scriptedExecutor{
		run: func(binary string, _ []string, onLine func(string)) error {
			if binary == "ffprobe" {
				onLine("N/A")
			}
			return nil
		},
	}
	client, err := media.NewClient(cfg, media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Render(context.Background(), "/staging/audio.mp3", "/staging/thumb.jpg"); err == nil {
		t.Fatal("expected error when duration is unavailable")
	}
}
