package store_test

import (
	"context"
	"errors"
	"testing"

	"tubecast/internal/store"
	"tubecast/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	conv, err := s.GetOrCreateConversation(ctx, "whatsapp:+15550001111")
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}
	if conv.ID == 0 {
		t.Fatal("expected conversation ID to be assigned")
	}
	if conv.State != store.StateIdle {
		t.Fatalf("new conversation state = %q, want idle", conv.State)
	}
	if conv.Visibility != store.VisibilityPublic {
		t.Fatalf("new conversation visibility = %q, want public", conv.Visibility)
	}
}

func TestGetOrCreateConversationIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := s.GetOrCreateConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("first GetOrCreateConversation failed: %v", err)
	}
	second, err := s.GetOrCreateConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("second GetOrCreateConversation failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one conversation per sender, got ids %d and %d", first.ID, second.ID)
	}
}

func TestAccountLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	account, err := s.CreateAccount(ctx, "Music", "/creds/music.json")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if account.ID == 0 {
		t.Fatal("expected account ID to be assigned")
	}

	if _, err := s.CreateAccount(ctx, "Music", "/creds/other.json"); !errors.Is(err, store.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != "Music" {
		t.Fatalf("unexpected accounts: %#v", accounts)
	}

	credRef, err := s.DeleteAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if credRef != "/creds/music.json" {
		t.Fatalf("DeleteAccount credential ref = %q", credRef)
	}

	accounts, err = s.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts after delete failed: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("expected no accounts, got %#v", accounts)
	}

	if _, err := s.GetAccount(ctx, account.ID); !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestUpdateConversationRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	account, err := s.CreateAccount(ctx, "Music", "/creds/music.json")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	conv, err := s.GetOrCreateConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	empty := ""
	conv.State = store.StateAwaitingPrivacy
	conv.SourceURL = "https://youtu.be/abc123"
	conv.AccountID = &account.ID
	conv.Title = "My Song — LIVE!"
	conv.Description = &empty
	conv.Thumbnail = store.RemoteThumbnail("https://img.example/cover.jpg")
	conv.Visibility = store.VisibilityUnlisted

	if err := s.UpdateConversation(ctx, conv, store.StateIdle); err != nil {
		t.Fatalf("UpdateConversation failed: %v", err)
	}

	reloaded, err := s.GetConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if reloaded.State != store.StateAwaitingPrivacy {
		t.Fatalf("state = %q", reloaded.State)
	}
	if reloaded.SourceURL != conv.SourceURL {
		t.Fatalf("source url = %q", reloaded.SourceURL)
	}
	if reloaded.AccountID == nil || *reloaded.AccountID != account.ID {
		t.Fatalf("account id = %v", reloaded.AccountID)
	}
	if reloaded.Title != "My Song — LIVE!" {
		t.Fatalf("title not preserved verbatim: %q", reloaded.Title)
	}
	if reloaded.Description == nil || *reloaded.Description != "" {
		t.Fatalf("empty description must round-trip as set-but-empty, got %v", reloaded.Description)
	}
	if !reloaded.Thumbnail.IsRemote() || reloaded.Thumbnail.Value != "https://img.example/cover.jpg" {
		t.Fatalf("thumbnail = %#v", reloaded.Thumbnail)
	}
	if reloaded.Visibility != store.VisibilityUnlisted {
		t.Fatalf("visibility = %q", reloaded.Visibility)
	}
}

func TestUpdateConversationStateConflict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	conv, err := s.GetOrCreateConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	first := *conv
	first.State = store.StateAwaitingLink
	if err := s.UpdateConversation(ctx, &first, store.StateIdle); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// A second delivery that also observed idle must lose the race.
	second := *conv
	second.State = store.StateAddingAccount
	if err := s.UpdateConversation(ctx, &second, store.StateIdle); !errors.Is(err, store.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
}

func TestResetConversationIfRevisionGuardsStaleWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	conv, err := s.GetOrCreateConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}
	conv.State = store.StateProcessing
	if err := s.UpdateConversation(ctx, conv, store.StateIdle); err != nil {
		t.Fatalf("UpdateConversation failed: %v", err)
	}
	observed := conv.Revision

	// A write after the observation invalidates the observed revision, even
	// though the state round-trips back to the same value.
	conv.State = store.StateIdle
	if err := s.UpdateConversation(ctx, conv, store.StateProcessing); err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	conv.State = store.StateProcessing
	conv.SourceURL = "https://youtu.be/next"
	if err := s.UpdateConversation(ctx, conv, store.StateIdle); err != nil {
		t.Fatalf("third update failed: %v", err)
	}

	if err := s.ResetConversationIfRevision(ctx, "sender-1", observed); !errors.Is(err, store.ErrStateConflict) {
		t.Fatalf("stale reset: expected ErrStateConflict, got %v", err)
	}
	reloaded, err := s.GetConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if reloaded.State != store.StateProcessing || reloaded.SourceURL != "https://youtu.be/next" {
		t.Fatalf("stale reset modified the record: %+v", reloaded)
	}

	// With the current revision the reset lands.
	if err := s.ResetConversationIfRevision(ctx, "sender-1", reloaded.Revision); err != nil {
		t.Fatalf("current-revision reset failed: %v", err)
	}
	reloaded, err = s.GetConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if reloaded.State != store.StateIdle || reloaded.SourceURL != "" {
		t.Fatalf("reset did not clear the record: %+v", reloaded)
	}
}

func TestResetConversationClearsDrafts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	account, err := s.CreateAccount(ctx, "Music", "")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	conv, err := s.GetOrCreateConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}
	desc := "a description"
	conv.State = store.StateProcessing
	conv.SourceURL = "https://youtu.be/abc"
	conv.AccountID = &account.ID
	conv.Title = "Title"
	conv.Description = &desc
	conv.Thumbnail = store.LocalThumbnail("/tmp/thumb.jpg")
	conv.Visibility = store.VisibilityPrivate
	if err := s.UpdateConversation(ctx, conv, store.StateIdle); err != nil {
		t.Fatalf("UpdateConversation failed: %v", err)
	}

	if err := s.ResetConversation(ctx, "sender-1"); err != nil {
		t.Fatalf("ResetConversation failed: %v", err)
	}

	reloaded, err := s.GetConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if reloaded.State != store.StateIdle {
		t.Fatalf("state after reset = %q", reloaded.State)
	}
	if reloaded.SourceURL != "" || reloaded.AccountID != nil || reloaded.Title != "" ||
		reloaded.Description != nil || reloaded.Thumbnail != nil {
		t.Fatalf("draft fields not cleared: %#v", reloaded)
	}
	if reloaded.Visibility != store.DefaultVisibility {
		t.Fatalf("visibility after reset = %q", reloaded.Visibility)
	}
}

func TestDeleteAccountNullsConversationReference(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	account, err := s.CreateAccount(ctx, "Music", "")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	conv, err := s.GetOrCreateConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}
	conv.State = store.StateAwaitingTitle
	conv.AccountID = &account.ID
	if err := s.UpdateConversation(ctx, conv, store.StateIdle); err != nil {
		t.Fatalf("UpdateConversation failed: %v", err)
	}

	if _, err := s.DeleteAccount(ctx, account.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	reloaded, err := s.GetConversation(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if reloaded.AccountID != nil {
		t.Fatalf("expected account reference cleared, got %v", *reloaded.AccountID)
	}
}
