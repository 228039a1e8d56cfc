package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"tubecast/internal/logging"
	"tubecast/internal/store"
)

// sourceURLPattern recognizes the video-source links the pipeline can pull
// audio from: watch URLs, short links, and shorts.
var sourceURLPattern = regexp.MustCompile(
	`(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)[\w-]+`,
)

// Registry is the account surface the state machine needs. Removal must also
// release the credential resource the account referenced.
type Registry interface {
	ListAccounts(ctx context.Context) ([]store.Account, error)
	FindAccountByName(ctx context.Context, name string) (*store.Account, error)
	RemoveAccount(ctx context.Context, id int64) error
}

// Manager computes conversation transitions. It holds no mutable state of its
// own; per-sender serialization is the caller's responsibility.
type Manager struct {
	registry Registry
	logger   *slog.Logger
}

// NewManager constructs a conversation manager.
func NewManager(registry Registry, logger *slog.Logger) *Manager {
	return &Manager{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "conversation"),
	}
}

// Process maps the current record plus one inbound message to the next record
// and a reply. The returned record is a complete in-memory copy; persist it
// once, guarded by the state the record was loaded with.
func (m *Manager) Process(ctx context.Context, conv store.Conversation, message string, media *MediaRef) (Result, error) {
	trimmed := strings.TrimSpace(message)
	lowered := strings.ToLower(trimmed)

	// Global interrupts run before any state-specific handling.
	switch lowered {
	case "cancel", "stop", "quit":
		conv.Reset()
		return Result{Conversation: conv, Reply: TextReply{cancelledText}, Mutated: true}, nil
	case "help", "?":
		return Result{Conversation: conv, Reply: TextReply{helpText}}, nil
	case "accounts":
		accounts, err := m.registry.ListAccounts(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("list accounts: %w", err)
		}
		return Result{Conversation: conv, Reply: TextReply{accountsText(accounts)}}, nil
	}

	switch conv.State {
	case store.StateIdle:
		return m.handleIdle(ctx, conv, lowered)
	case store.StateAddingAccount:
		return m.handleAddingAccount(ctx, conv, trimmed)
	case store.StateRemovingAccount:
		return m.handleRemovingAccount(ctx, conv, lowered)
	case store.StateAwaitingLink:
		return m.handleAwaitingLink(ctx, conv, trimmed)
	case store.StateAwaitingAccount:
		return m.handleAwaitingAccount(ctx, conv, lowered)
	case store.StateAwaitingTitle:
		conv.Title = trimmed
		conv.State = store.StateAwaitingDescription
		return Result{Conversation: conv, Reply: TextReply{descriptionPrompt}, Mutated: true}, nil
	case store.StateAwaitingDescription:
		description := trimmed
		if isDescriptionSkip(lowered) {
			description = ""
		}
		conv.Description = &description
		conv.State = store.StateAwaitingThumbnail
		return Result{Conversation: conv, Reply: TextReply{thumbnailPrompt}, Mutated: true}, nil
	case store.StateAwaitingThumbnail:
		return m.handleAwaitingThumbnail(conv, lowered, media)
	case store.StateAwaitingPrivacy:
		return m.handleAwaitingPrivacy(conv, lowered)
	case store.StateProcessing:
		// Must not be misread as a fresh trigger; the pipeline is already
		// running and will reset the record itself.
		return Result{Conversation: conv, Reply: TextReply{stillProcessingText}}, nil
	}

	m.logger.Warn("conversation in unknown state, resetting",
		logging.String(logging.FieldSender, conv.Sender),
		logging.String("state", string(conv.State)),
	)
	conv.Reset()
	return Result{Conversation: conv, Reply: TextReply{recoveredText}, Mutated: true}, nil
}

func (m *Manager) handleIdle(ctx context.Context, conv store.Conversation, lowered string) (Result, error) {
	switch lowered {
	case "add", "add account":
		conv.State = store.StateAddingAccount
		return Result{Conversation: conv, Reply: TextReply{accountNamePrompt}, Mutated: true}, nil

	case "remove", "remove account", "delete", "delete account":
		accounts, err := m.registry.ListAccounts(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("list accounts: %w", err)
		}
		if len(accounts) == 0 {
			return Result{Conversation: conv, Reply: TextReply{"No accounts to remove."}}, nil
		}
		conv.State = store.StateRemovingAccount
		text := fmt.Sprintf("Which account to remove?\n%s\n\nReply with number:", numberedAccountList(accounts))
		return Result{Conversation: conv, Reply: TextReply{text}, Mutated: true}, nil

	case "upload", "start", "new":
		accounts, err := m.registry.ListAccounts(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("list accounts: %w", err)
		}
		if len(accounts) == 0 {
			return Result{Conversation: conv, Reply: TextReply{noAccountsYetText}}, nil
		}
		conv.State = store.StateAwaitingLink
		return Result{Conversation: conv, Reply: TextReply{linkPrompt}, Mutated: true}, nil
	}

	return Result{Conversation: conv, Reply: TextReply{commandSummary}}, nil
}

func (m *Manager) handleAddingAccount(ctx context.Context, conv store.Conversation, name string) (Result, error) {
	if name == "" {
		return Result{Conversation: conv, Reply: TextReply{"Please enter a valid account name."}}, nil
	}

	existing, err := m.registry.FindAccountByName(ctx, name)
	if err != nil {
		return Result{}, fmt.Errorf("find account: %w", err)
	}
	if existing != nil {
		conv.Reset()
		text := fmt.Sprintf("Account '%s' already exists.", name)
		return Result{Conversation: conv, Reply: TextReply{text}, Mutated: true}, nil
	}

	// The caller registers the account and produces the authorization URL;
	// the machine only signals intent and returns to idle.
	conv.Reset()
	return Result{Conversation: conv, Reply: CreateAccountAction{Name: name}, Mutated: true}, nil
}

func (m *Manager) handleRemovingAccount(ctx context.Context, conv store.Conversation, lowered string) (Result, error) {
	accounts, err := m.registry.ListAccounts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list accounts: %w", err)
	}

	choice, err := strconv.Atoi(lowered)
	if err != nil {
		return Result{Conversation: conv, Reply: TextReply{"Enter the number of the account to remove."}}, nil
	}
	if choice < 1 || choice > len(accounts) {
		text := fmt.Sprintf("Enter a number between 1 and %d.", len(accounts))
		return Result{Conversation: conv, Reply: TextReply{text}}, nil
	}

	selected := accounts[choice-1]
	if err := m.registry.RemoveAccount(ctx, selected.ID); err != nil {
		return Result{}, fmt.Errorf("remove account %q: %w", selected.Name, err)
	}

	conv.Reset()
	text := fmt.Sprintf("Removed '%s'.", selected.Name)
	return Result{Conversation: conv, Reply: TextReply{text}, Mutated: true}, nil
}

func (m *Manager) handleAwaitingLink(ctx context.Context, conv store.Conversation, message string) (Result, error) {
	match := sourceURLPattern.FindString(message)
	if match == "" {
		return Result{Conversation: conv, Reply: TextReply{invalidLinkText}}, nil
	}

	url := match
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}
	conv.SourceURL = url

	accounts, err := m.registry.ListAccounts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list accounts: %w", err)
	}

	// Sole account: select it and skip the account question entirely.
	if len(accounts) == 1 {
		id := accounts[0].ID
		conv.AccountID = &id
		conv.State = store.StateAwaitingTitle
		text := fmt.Sprintf("Using %s. Enter video title:", accounts[0].Name)
		return Result{Conversation: conv, Reply: TextReply{text}, Mutated: true}, nil
	}

	conv.State = store.StateAwaitingAccount
	text := fmt.Sprintf("Choose account:\n%s\n\nReply with number:", numberedAccountList(accounts))
	return Result{Conversation: conv, Reply: TextReply{text}, Mutated: true}, nil
}

func (m *Manager) handleAwaitingAccount(ctx context.Context, conv store.Conversation, lowered string) (Result, error) {
	accounts, err := m.registry.ListAccounts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list accounts: %w", err)
	}

	choice, err := strconv.Atoi(lowered)
	if err != nil {
		return Result{Conversation: conv, Reply: TextReply{"Enter the account number."}}, nil
	}
	if choice < 1 || choice > len(accounts) {
		text := fmt.Sprintf("Enter 1-%d.", len(accounts))
		return Result{Conversation: conv, Reply: TextReply{text}}, nil
	}

	selected := accounts[choice-1]
	conv.AccountID = &selected.ID
	conv.State = store.StateAwaitingTitle
	text := fmt.Sprintf("Using %s. Enter video title:", selected.Name)
	return Result{Conversation: conv, Reply: TextReply{text}, Mutated: true}, nil
}

func (m *Manager) handleAwaitingThumbnail(conv store.Conversation, lowered string, media *MediaRef) (Result, error) {
	switch {
	case media != nil:
		conv.Thumbnail = store.LocalThumbnail(media.Path)
	case isThumbnailSkip(lowered):
		// Absent reference means "derive artwork from the source".
		conv.Thumbnail = nil
	default:
		return Result{Conversation: conv, Reply: TextReply{"Send an image or reply 'auto'."}}, nil
	}

	conv.State = store.StateAwaitingPrivacy
	return Result{Conversation: conv, Reply: TextReply{privacyPrompt}, Mutated: true}, nil
}

func (m *Manager) handleAwaitingPrivacy(conv store.Conversation, lowered string) (Result, error) {
	visibility, ok := parseVisibilityChoice(lowered)
	if !ok {
		return Result{Conversation: conv, Reply: TextReply{"Reply: public, unlisted, or private"}}, nil
	}

	conv.Visibility = visibility
	conv.State = store.StateProcessing
	return Result{Conversation: conv, Reply: TextReply{processingText}, Mutated: true}, nil
}

func parseVisibilityChoice(value string) (store.Visibility, bool) {
	switch value {
	case "public", "1":
		return store.VisibilityPublic, true
	case "unlisted", "2":
		return store.VisibilityUnlisted, true
	case "private", "3":
		return store.VisibilityPrivate, true
	default:
		return "", false
	}
}

func isDescriptionSkip(value string) bool {
	switch value {
	case "skip", "none", "-":
		return true
	default:
		return false
	}
}

func isThumbnailSkip(value string) bool {
	switch value {
	case "auto", "default", "original", "skip":
		return true
	default:
		return false
	}
}

func numberedAccountList(accounts []store.Account) string {
	lines := make([]string, 0, len(accounts))
	for i, account := range accounts {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, account.Name))
	}
	return strings.Join(lines, "\n")
}

func accountsText(accounts []store.Account) string {
	if len(accounts) == 0 {
		return "No accounts. Send 'add' to add one."
	}
	lines := make([]string, 0, len(accounts))
	for _, account := range accounts {
		lines = append(lines, "• "+account.Name)
	}
	return "Your accounts:\n" + strings.Join(lines, "\n")
}

const (
	cancelledText     = "Cancelled. Send 'upload' to start."
	recoveredText     = "Something went wrong. Send 'upload' to start."
	accountNamePrompt = "Enter a name for this account (e.g. MusicChannel):"
	noAccountsYetText = "No accounts yet. Send 'add' to connect an account first."
	linkPrompt        = "Send me the video link to download audio from."
	invalidLinkText   = "That's not a valid video link. Send a valid link."
	descriptionPrompt = "Description? (or 'skip'):"
	thumbnailPrompt   = "Send thumbnail image or reply 'auto':"
	privacyPrompt     = "Privacy? (public / unlisted / private):"
	processingText    = "Processing... This may take a few minutes."

	stillProcessingText = "Still processing... Please wait."

	commandSummary = "Commands:\n" +
		"• upload - Start upload\n" +
		"• add - Add account\n" +
		"• remove - Remove account\n" +
		"• accounts - List accounts"

	helpText = "Commands:\n" +
		"• upload - Start new upload\n" +
		"• add - Add account\n" +
		"• remove - Remove account\n" +
		"• accounts - List accounts\n" +
		"• cancel - Cancel current action"
)
