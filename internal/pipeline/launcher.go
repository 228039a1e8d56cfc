package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tubecast/internal/logging"
	"tubecast/internal/media"
	"tubecast/internal/notify"
	"tubecast/internal/publisher"
	"tubecast/internal/services"
	"tubecast/internal/store"
)

// Store is the persistence surface a run needs.
type Store interface {
	GetConversation(ctx context.Context, sender string) (*store.Conversation, error)
	GetAccount(ctx context.Context, id int64) (*store.Account, error)
	ResetConversationIfRevision(ctx context.Context, sender string, revision int64) error
}

// Launcher owns pipeline execution. At most one run is in flight per sender;
// duplicate launch attempts while a run is active are rejected.
type Launcher struct {
	store     Store
	backend   media.Backend
	publisher publisher.Publisher
	notifier  notify.Notifier
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewLauncher constructs a pipeline launcher.
func NewLauncher(st Store, backend media.Backend, pub publisher.Publisher, notifier notify.Notifier, logger *slog.Logger) *Launcher {
	return &Launcher{
		store:     st,
		backend:   backend,
		publisher: pub,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		inFlight:  make(map[string]struct{}),
	}
}

// TryLaunch starts a run for the sender unless one is already in flight.
// The run executes on its own goroutine with a background context so it
// survives the request that triggered it; ctx only covers the launch check.
func (l *Launcher) TryLaunch(_ context.Context, sender string) bool {
	l.mu.Lock()
	if _, active := l.inFlight[sender]; active {
		l.mu.Unlock()
		return false
	}
	l.inFlight[sender] = struct{}{}
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			delete(l.inFlight, sender)
			l.mu.Unlock()
		}()
		l.run(context.Background(), sender)
	}()
	return true
}

// Wait blocks until every in-flight run has finished. Used on shutdown and
// in tests.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

func (l *Launcher) run(ctx context.Context, sender string) {
	ctx = services.WithSender(ctx, sender)
	logger := logging.WithContext(ctx, l.logger)

	var work scratch
	defer work.cleanup(logger)

	conv, account, err := l.loadWork(ctx, sender)
	if err != nil {
		logger.Error("pipeline aborted before first stage", logging.Error(err))
		if conv != nil && conv.State == store.StateProcessing {
			l.fail(ctx, sender, conv.Revision, err)
		}
		return
	}
	launched := conv.Revision

	logger.Info("pipeline started",
		logging.String("source_url", conv.SourceURL),
		logging.String("account", account.Name),
	)

	l.send(ctx, sender, "Downloading audio...")
	audioPath, err := l.backend.DownloadAudio(services.WithStage(ctx, "download"), conv.SourceURL)
	if err != nil {
		logger.Error("audio download failed", logging.Error(err))
		l.fail(ctx, sender, launched, err)
		return
	}
	work.track(audioPath)

	imagePath, err := l.resolveThumbnail(services.WithStage(ctx, "thumbnail"), conv, &work)
	if err != nil {
		logger.Error("thumbnail resolution failed", logging.Error(err))
		l.fail(ctx, sender, launched, err)
		return
	}

	videoPath, err := l.backend.Render(services.WithStage(ctx, "render"), audioPath, imagePath)
	if err != nil {
		logger.Error("render failed", logging.Error(err))
		l.fail(ctx, sender, launched, err)
		return
	}
	work.track(videoPath)

	l.send(ctx, sender, "Uploading video...")
	description := ""
	if conv.Description != nil {
		description = *conv.Description
	}
	video, err := l.publisher.Upload(services.WithStage(ctx, "upload"), *account, videoPath, publisher.UploadRequest{
		Title:       conv.Title,
		Description: description,
		Visibility:  conv.Visibility,
	})
	if err != nil {
		logger.Error("upload failed", logging.Error(err))
		l.fail(ctx, sender, launched, err)
		return
	}

	// The platform derives its own thumbnail if this fails; not worth
	// failing a finished upload over.
	if err := l.publisher.SetThumbnail(ctx, *account, video.ID, imagePath); err != nil {
		logger.Warn("thumbnail attach failed", logging.Error(err))
	}

	l.send(ctx, sender, fmt.Sprintf("Done! Video published:\n%s", video.URL))
	logger.Info("pipeline completed", logging.String("video_id", video.ID))
	l.reset(ctx, sender, launched)
}

// loadWork reloads the conversation and resolves its account. Both must be
// intact for the run to proceed. The conversation is returned even on
// failure, when it loaded at all, so the caller can decide whether a reset
// is still warranted.
func (l *Launcher) loadWork(ctx context.Context, sender string) (*store.Conversation, *store.Account, error) {
	conv, err := l.store.GetConversation(ctx, sender)
	if err != nil {
		return nil, nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv.State != store.StateProcessing {
		return conv, nil, services.Wrap(services.ErrValidation, "pipeline", "load",
			fmt.Sprintf("conversation is %s, not processing", conv.State), nil)
	}
	if conv.AccountID == nil {
		return conv, nil, services.Wrap(services.ErrConfiguration, "pipeline", "load", "no account selected", nil)
	}
	account, err := l.store.GetAccount(ctx, *conv.AccountID)
	if err != nil {
		return conv, nil, fmt.Errorf("load account: %w", err)
	}
	return conv, account, nil
}

// resolveThumbnail produces a local image path from whichever reference the
// conversation carries, falling back to the source's own preview.
func (l *Launcher) resolveThumbnail(ctx context.Context, conv *store.Conversation, work *scratch) (string, error) {
	switch {
	case conv.Thumbnail == nil:
		previewURL, err := l.backend.SourceThumbnail(ctx, conv.SourceURL)
		if err != nil {
			return "", err
		}
		path, err := l.backend.FetchImage(ctx, previewURL)
		if err != nil {
			return "", err
		}
		return work.track(path), nil
	case conv.Thumbnail.IsRemote():
		path, err := l.backend.FetchImage(ctx, conv.Thumbnail.Value)
		if err != nil {
			return "", err
		}
		return work.track(path), nil
	default:
		// Staged by the webhook when the sender attached an image.
		return work.track(conv.Thumbnail.Value), nil
	}
}

// fail notifies the sender with a readable version of the stage error and
// returns the conversation to idle. There is no retry.
func (l *Launcher) fail(ctx context.Context, sender string, launched int64, stageErr error) {
	l.send(ctx, sender, fmt.Sprintf("Upload failed: %s\nSend 'upload' to try again.", services.Message(stageErr)))
	l.reset(ctx, sender, launched)
}

// reset returns the record to idle, guarded on the revision the run was
// launched with. Any write since then, including a fresh dialog that has
// already re-entered processing, wins: the reset yields silently.
func (l *Launcher) reset(ctx context.Context, sender string, launched int64) {
	if err := l.store.ResetConversationIfRevision(ctx, sender, launched); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return
		}
		l.logger.Error("terminal reset failed",
			logging.String(logging.FieldSender, sender),
			logging.Error(err),
		)
	}
}

func (l *Launcher) send(ctx context.Context, sender, text string) {
	if err := l.notifier.Send(ctx, sender, text); err != nil {
		l.logger.Warn("notification delivery failed",
			logging.String(logging.FieldSender, sender),
			logging.Error(err),
		)
	}
}
