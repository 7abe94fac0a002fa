// Package api is the authenticated HTTP client used by every client-side
// component that talks to the marketplace backend.
//
// # Authentication
//
// When a session.Credential is stored, each request carries
// "Authorization: Bearer <token>". A missing credential is not an error: the
// request goes out unauthenticated and the server decides.
//
// # Token refresh
//
// A 401 on a first attempt triggers the refresh protocol. The
// RefreshCoordinator guarantees one refresh in flight at a time; requests that
// hit 401 meanwhile wait on a FIFO list and are replayed with the refreshed
// token. A replayed request that gets 401 again is returned as a final
// *HTTPError and never retried a second time. If the refresh fails, or there
// is no refresh token, the stored credential is cleared and every pending
// request fails with an error matching ErrAuthLost.
//
// # Errors
//
//   - *NetworkError: no response was obtained (transport failure, timeout).
//   - *HTTPError:    the server answered with a non-2xx status.
//   - ErrAuthLost:   the session could not be refreshed.
//   - ErrWaitListFull: too many requests were already waiting on a refresh.
package api
