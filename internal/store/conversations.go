package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStateConflict indicates a compare-and-set update lost the race: the
// persisted conversation no longer holds the state the caller observed.
var ErrStateConflict = errors.New("conversation state changed concurrently")

const conversationColumns = `id, sender, state, source_url, account_id, title,
    description, thumbnail_ref, thumbnail_remote, visibility, revision, updated_at`

// GetOrCreateConversation returns the single conversation for a sender,
// creating an idle record on first contact.
func (s *Store) GetOrCreateConversation(ctx context.Context, sender string) (*Conversation, error) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return nil, errors.New("sender identity required")
	}

	conv, err := s.getConversation(ctx, sender)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	now := time.Now().UTC()
	_, err = s.execWithRetry(ctx,
		`INSERT INTO conversations (sender, state, visibility, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(sender) DO NOTHING`,
		sender,
		StateIdle,
		DefaultVisibility,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	conv, err = s.getConversation(ctx, sender)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation for %q not found after insert", sender)
	}
	return conv, nil
}

func (s *Store) getConversation(ctx context.Context, sender string) (*Conversation, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE sender = ?`, sender,
	)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// GetConversation fetches the conversation for a sender without creating one.
func (s *Store) GetConversation(ctx context.Context, sender string) (*Conversation, error) {
	return s.getConversation(ctx, strings.TrimSpace(sender))
}

// UpdateConversation persists the full record in one write, guarded by a
// compare-and-set on the state the caller loaded. ErrStateConflict is
// returned when another delivery already moved the conversation on.
func (s *Store) UpdateConversation(ctx context.Context, conv *Conversation, expectedState State) error {
	if conv == nil {
		return errors.New("conversation required")
	}

	now := time.Now().UTC()
	var thumbRef sql.NullString
	var thumbRemote bool
	if conv.Thumbnail != nil {
		thumbRef = sql.NullString{String: conv.Thumbnail.Value, Valid: true}
		thumbRemote = conv.Thumbnail.Kind == ThumbnailRemote
	}
	var description sql.NullString
	if conv.Description != nil {
		description = sql.NullString{String: *conv.Description, Valid: true}
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE conversations
         SET state = ?, source_url = ?, account_id = ?, title = ?, description = ?,
             thumbnail_ref = ?, thumbnail_remote = ?, visibility = ?,
             revision = revision + 1, updated_at = ?
         WHERE id = ? AND state = ?`,
		conv.State,
		conv.SourceURL,
		nullableID(conv.AccountID),
		conv.Title,
		description,
		thumbRef,
		thumbRemote,
		conv.Visibility,
		formatTime(now),
		conv.ID,
		expectedState,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conversation rows: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}
	conv.Revision++
	conv.UpdatedAt = now
	return nil
}

// ResetConversation returns a sender's conversation to idle with all draft
// fields cleared, regardless of its current state.
func (s *Store) ResetConversation(ctx context.Context, sender string) error {
	now := time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`UPDATE conversations
         SET state = ?, source_url = '', account_id = NULL, title = '',
             description = NULL, thumbnail_ref = NULL, thumbnail_remote = 0,
             visibility = ?, revision = revision + 1, updated_at = ?
         WHERE sender = ?`,
		StateIdle,
		DefaultVisibility,
		formatTime(now),
		strings.TrimSpace(sender),
	)
	if err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}
	return nil
}

// ResetConversationIfRevision returns the record to idle only if it has not
// been written since the caller observed the given revision. A background run
// uses this so its terminal reset cannot clobber a record the sender has
// rebuilt, even one that has already re-entered the same state.
func (s *Store) ResetConversationIfRevision(ctx context.Context, sender string, revision int64) error {
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		`UPDATE conversations
         SET state = ?, source_url = '', account_id = NULL, title = '',
             description = NULL, thumbnail_ref = NULL, thumbnail_remote = 0,
             visibility = ?, revision = revision + 1, updated_at = ?
         WHERE sender = ? AND revision = ?`,
		StateIdle,
		DefaultVisibility,
		formatTime(now),
		strings.TrimSpace(sender),
		revision,
	)
	if err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conversation rows: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}
	return nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var (
		conv        Conversation
		stateRaw    string
		accountID   sql.NullInt64
		description sql.NullString
		thumbRef    sql.NullString
		thumbRemote bool
		visibility  string
		updatedAt   string
	)
	err := row.Scan(
		&conv.ID,
		&conv.Sender,
		&stateRaw,
		&conv.SourceURL,
		&accountID,
		&conv.Title,
		&description,
		&thumbRef,
		&thumbRemote,
		&visibility,
		&conv.Revision,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}

	state, ok := ParseState(stateRaw)
	if !ok {
		return nil, fmt.Errorf("conversation %d: unknown state %q", conv.ID, stateRaw)
	}
	conv.State = state

	if accountID.Valid {
		id := accountID.Int64
		conv.AccountID = &id
	}
	if description.Valid {
		value := description.String
		conv.Description = &value
	}
	if thumbRef.Valid {
		conv.Thumbnail = decodeThumbnail(thumbRef.String, thumbRemote)
	}

	if parsed, ok := ParseVisibility(visibility); ok {
		conv.Visibility = parsed
	} else {
		conv.Visibility = DefaultVisibility
	}
	conv.UpdatedAt = parseTime(updatedAt)
	return &conv, nil
}

// decodeThumbnail rebuilds the discriminated reference. Rows written before
// the explicit kind column relied on a URL prefix; keep honoring those.
func decodeThumbnail(value string, remote bool) *ThumbnailRef {
	if remote || strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return RemoteThumbnail(value)
	}
	return LocalThumbnail(value)
}
