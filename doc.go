// Package authgate provides the navigation controller of an auth gated
// mobile shell: it decides which screen is visible, validates and dispatches
// credentials to an identity provider, and builds the address that loads the
// embedded web client with its backend endpoints.
//
// Screens:
//   - Shell owns the screen stack (credential, authenticated, profile) and the
//     transition graph between them. Any other transition is rejected with
//     ErrInvalidNavigation.
//   - SessionGate runs on every activation of a screen. It reads the
//     provider's cached session only, so it never blocks and never fails.
//
// Credentials:
//   - CredentialForm is a two mode form (sign in, register). Submit validates
//     locally and hands valid drafts to the IdentityProvider on a goroutine.
//     The completion is posted back through the Dispatcher and dropped when
//     the form was detached in the meantime. A form built without a
//     Dispatcher calls the provider inline and Submit returns the final
//     outcome.
//   - A second submit while one is in flight fails with ErrSubmitInProgress.
//
// Threading:
//   - Shell, CredentialForm and ProfilePresenter are not safe for concurrent
//     use. Drive them from a single EventLoop and let providers do their
//     network work off loop.
//
// Activity sinks:
//   - ActivitySink receives submit, sign-out and navigation events. Sinks run
//     best-effort (errors are logged) so metrics or audit writers never block
//     the UI.
package authgate
