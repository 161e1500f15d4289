// Package cli provides tokenctl, the command-line client of the token service.
//
// tokenctl runs a single command given on the command line, or an
// interactive REPL when none is given. The token pair survives between
// invocations in a private session file, so "tokenctl login" followed by
// "tokenctl whoami" works across processes.
//
// Commands:
//   - register    prompt for subject and password, create the account
//   - login       prompt for subject and password, store the pair
//   - whoami      show the subject of the current access token
//   - refresh     rotate the refresh token
//   - logout      revoke the current refresh token and forget the pair
//   - logoutall   revoke every refresh token of the subject
//   - ping        check server reachability
//   - hashpw      print a bcrypt hash for a users file entry
package cli
