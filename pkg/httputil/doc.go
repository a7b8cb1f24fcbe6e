// Package httputil provides the HTTP plumbing used to fetch the ELK server
// distribution.
//
// # Overview
//
//   - [Downloader]: streams a URL into a file, hashing it on the way
//   - [Retry]: Automatic retry with exponential backoff
//
// # Downloads
//
// [Downloader.Download] writes to a temporary file next to the destination
// and renames it into place once the body is complete, so an interrupted
// download never leaves a truncated archive behind:
//
//	d := httputil.NewDownloader()
//	sum, err := d.Download(ctx, url, filepath.Join(cacheDir, "elk-server-0.2.0.zip"))
//
// The returned SHA-256 lets callers verify the archive against a pinned
// checksum.
//
// # Retry
//
// [Retry] re-runs an operation for transient failures only:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Wrap such failures in [RetryableError]; anything else is returned at once.
// The delay doubles after each attempt. Events are reported through the
// observability HTTP hooks.
package httputil
