package publisher

import (
	"context"

	"tubecast/internal/store"
)

// UploadRequest carries the video metadata collected by the conversation.
type UploadRequest struct {
	Title       string
	Description string
	Visibility  store.Visibility
	CategoryID  string
}

// PublishedVideo identifies the uploaded video on the platform.
type PublishedVideo struct {
	ID  string
	URL string
}

// Publisher is the platform upload boundary. SetThumbnail is best effort at
// the call site; a failed thumbnail never fails a publish.
type Publisher interface {
	Upload(ctx context.Context, account store.Account, videoPath string, req UploadRequest) (*PublishedVideo, error)
	SetThumbnail(ctx context.Context, account store.Account, videoID, imagePath string) error
}
