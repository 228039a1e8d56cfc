// Package accounts wraps the store's account table with the credential file
// lifecycle: creating an account reserves its credential path, removing one
// deletes the row and then the file. It backs both the conversation state
// machine and the CLI.
package accounts
