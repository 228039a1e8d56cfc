package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tubecast/internal/authflow"
	"tubecast/internal/conversation"
	"tubecast/internal/logging"
	"tubecast/internal/services"
	"tubecast/internal/store"
)

// handleWebhook processes one inbound chat message. The gateway only cares
// that we return 200; every user-visible response travels through the
// notifier.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form payload", http.StatusBadRequest)
		return
	}

	sender := strings.TrimSpace(r.PostFormValue("From"))
	body := r.PostFormValue("Body")

	allowed := strings.TrimSpace(s.cfg.Messaging.AllowedSender)
	if sender == "" || allowed == "" || sender != allowed {
		s.logger.Warn("dropping message from unauthorized sender",
			logging.String(logging.FieldSender, sender),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := services.WithRequestID(services.WithSender(r.Context(), sender), uuid.NewString())
	r = r.WithContext(ctx)
	logger := logging.WithContext(ctx, s.logger)

	// Without an OAuth client no account can ever be authorized and no
	// upload can ever publish, so every message is rejected up front
	// before it can move the dialog anywhere.
	if !s.flow.Configured() {
		logger.Warn("rejecting message: no authorization client configured")
		s.send(r, sender, "The server has no authorization client configured. Ask the operator to set google client credentials.")
		w.WriteHeader(http.StatusOK)
		return
	}

	media := s.stageInboundMedia(r)
	consumed := false
	defer func() {
		if media != nil && !consumed {
			os.Remove(media.Path)
		}
	}()

	lock := s.senderLock(sender)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.GetOrCreateConversation(ctx, sender)
	if err != nil {
		logger.Error("conversation load failed", logging.Error(err))
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	prior := conv.State

	result, err := s.manager.Process(ctx, *conv, body, media)
	if err != nil {
		logger.Error("message processing failed", logging.Error(err))
		s.send(r, sender, "Something went wrong. Please try again.")
		w.WriteHeader(http.StatusOK)
		return
	}

	if result.Mutated {
		if err := s.store.UpdateConversation(ctx, &result.Conversation, prior); err != nil {
			if errors.Is(err, store.ErrStateConflict) {
				// A concurrent delivery won the race; its reply stands.
				logger.Warn("conversation update lost the race")
				w.WriteHeader(http.StatusOK)
				return
			}
			logger.Error("conversation update failed", logging.Error(err))
			s.send(r, sender, "Something went wrong. Please try again.")
			w.WriteHeader(http.StatusOK)
			return
		}
		if media != nil && result.Conversation.Thumbnail != nil &&
			result.Conversation.Thumbnail.Value == media.Path {
			consumed = true
		}
		s.reapReplacedThumbnail(conv, &result.Conversation)
	}

	switch reply := result.Reply.(type) {
	case conversation.TextReply:
		s.send(r, sender, reply.Text)
	case conversation.CreateAccountAction:
		s.handleCreateAccount(r, sender, reply.Name)
	}

	if prior != store.StateProcessing && result.Conversation.State == store.StateProcessing {
		if !s.launcher.TryLaunch(ctx, sender) {
			// A previous run for this sender is still draining. Back the
			// new draft out so it is not stranded in processing with no
			// run attached, and tell the sender to retry.
			backout := result.Conversation
			backout.Reset()
			switch err := s.store.UpdateConversation(ctx, &backout, store.StateProcessing); {
			case err == nil:
				// No run ever owned this draft's artwork.
				if thumb := result.Conversation.Thumbnail; thumb != nil && !thumb.IsRemote() {
					os.Remove(thumb.Value)
				}
			case !errors.Is(err, store.ErrStateConflict):
				logger.Error("launch backout failed", logging.Error(err))
			}
			s.send(r, sender, "Your previous upload is still finishing. Wait for its result, then send 'upload' to try again.")
		}
	}

	w.WriteHeader(http.StatusOK)
}

// reapReplacedThumbnail removes a staged artwork file the persisted update no
// longer references, so cancelled or rebuilt drafts do not leak attachments.
// Records leaving processing are left alone: the run owns those files and
// removes them with its own scratch cleanup.
func (s *Server) reapReplacedThumbnail(before, after *store.Conversation) {
	if before.State == store.StateProcessing {
		return
	}
	old := before.Thumbnail
	if old == nil || old.IsRemote() {
		return
	}
	if after.Thumbnail != nil && after.Thumbnail.Value == old.Value {
		return
	}
	os.Remove(old.Value)
}

// handleCreateAccount registers the account and hands the sender the
// authorization link. The conversation record is already back at idle.
func (s *Server) handleCreateAccount(r *http.Request, sender, name string) {
	ctx := r.Context()
	account, err := s.registry.CreateAccount(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrAccountExists) {
			s.send(r, sender, fmt.Sprintf("Account '%s' already exists.", name))
			return
		}
		s.logger.Error("account creation failed", logging.Error(err))
		s.send(r, sender, "Could not create the account. Please try again.")
		return
	}

	authURL := s.flow.AuthURL(authflow.EncodeState(account.ID, sender))
	s.send(r, sender, fmt.Sprintf("Open this link to authorize '%s':\n%s", name, authURL))
}

// stageInboundMedia downloads the first attachment to the staging directory.
// Returns nil when the message carries no media or staging fails; a failed
// attachment degrades to a text-only message.
func (s *Server) stageInboundMedia(r *http.Request) *conversation.MediaRef {
	if strings.TrimSpace(r.PostFormValue("NumMedia")) == "" || r.PostFormValue("NumMedia") == "0" {
		return nil
	}
	mediaURL := strings.TrimSpace(r.PostFormValue("MediaUrl0"))
	if mediaURL == "" {
		return nil
	}
	contentType := strings.TrimSpace(r.PostFormValue("MediaContentType0"))

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, mediaURL, nil)
	if err != nil {
		s.logger.Warn("invalid media url", logging.Error(err))
		return nil
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("media download failed", logging.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("media download rejected", logging.Int("status", resp.StatusCode))
		return nil
	}
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}

	path := filepath.Join(s.cfg.Paths.StagingDir, "thumb_"+uuid.NewString()+extensionForType(contentType))
	out, err := os.Create(path)
	if err != nil {
		s.logger.Warn("media staging failed", logging.Error(err))
		return nil
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		s.logger.Warn("media staging interrupted", logging.Error(err))
		return nil
	}
	if err := out.Close(); err != nil {
		s.logger.Warn("media staging close failed", logging.Error(err))
		return nil
	}
	return &conversation.MediaRef{Path: path, ContentType: contentType}
}

func extensionForType(contentType string) string {
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
	return ".jpg"
}

func (s *Server) send(r *http.Request, sender, text string) {
	if err := s.notifier.Send(r.Context(), sender, text); err != nil {
		s.logger.Warn("reply delivery failed",
			logging.String(logging.FieldSender, sender),
			logging.Error(err),
		)
	}
}
