// Package authflow manages the account authorization hand-off: building the
// consent URL the sender opens in a browser, exchanging the returned code for
// a token, and persisting credential files under the credentials directory.
// The correlation token carried through the redirect binds the callback to
// both the pending account and the sender who requested it.
package authflow
