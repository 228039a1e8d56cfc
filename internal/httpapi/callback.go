package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"tubecast/internal/authflow"
	"tubecast/internal/logging"
)

// handleOAuthCallback completes account authorization: it exchanges the code,
// persists the credential next to the account, and confirms to the sender in
// chat. The browser gets a minimal result page either way.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if denial := strings.TrimSpace(query.Get("error")); denial != "" {
		s.logger.Warn("authorization denied", logging.String("reason", denial))
		writeResultPage(w, http.StatusOK, "Authorization cancelled",
			"You can close this window and try adding the account again.")
		return
	}

	code := strings.TrimSpace(query.Get("code"))
	state := strings.TrimSpace(query.Get("state"))
	if code == "" || state == "" {
		writeResultPage(w, http.StatusBadRequest, "Invalid callback",
			"The authorization response was incomplete.")
		return
	}

	accountID, sender, err := authflow.ParseState(state)
	if err != nil {
		s.logger.Warn("malformed callback state", logging.Error(err))
		writeResultPage(w, http.StatusBadRequest, "Invalid callback",
			"The authorization response could not be matched to an account.")
		return
	}

	ctx := r.Context()
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		s.logger.Warn("callback for unknown account",
			logging.Int64("account_id", accountID),
			logging.Error(err),
		)
		writeResultPage(w, http.StatusNotFound, "Account not found",
			"The account this authorization belongs to no longer exists.")
		return
	}

	token, err := s.flow.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("code exchange failed", logging.Error(err))
		writeResultPage(w, http.StatusBadGateway, "Authorization failed",
			"The authorization code could not be exchanged. Try adding the account again.")
		return
	}

	credentialPath := account.CredentialRef
	if credentialPath == "" {
		credentialPath = s.cfg.CredentialPath(account.Name)
	}
	if err := s.flow.SaveToken(credentialPath, token); err != nil {
		s.logger.Error("credential persistence failed", logging.Error(err))
		writeResultPage(w, http.StatusInternalServerError, "Authorization failed",
			"The credential could not be saved. Try adding the account again.")
		return
	}
	if err := s.store.SetAccountCredential(ctx, account.ID, credentialPath); err != nil {
		s.logger.Error("credential binding failed", logging.Error(err))
		writeResultPage(w, http.StatusInternalServerError, "Authorization failed",
			"The credential could not be linked to the account.")
		return
	}

	// Chat confirmation is best effort and only possible when the token
	// carried a sender identity; the page already says it worked.
	if sender != "" {
		s.send(r, sender, fmt.Sprintf("Account '%s' authorized. Send 'upload' to start.", account.Name))
	}

	s.logger.Info("account authorized",
		logging.Int64("account_id", account.ID),
		logging.String("account", account.Name),
	)
	writeResultPage(w, http.StatusOK, "Account authorized",
		fmt.Sprintf("'%s' is ready. You can close this window and return to chat.", account.Name))
}

func writeResultPage(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`, title, title, detail)
}
