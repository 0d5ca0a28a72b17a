// Package redirect validates redirect destinations against a static host
// allow-list.
//
// Resolve is pure: it parses the candidate, extracts and normalizes the host
// and answers Allowed or Rejected. It never fetches the destination; issuing
// the HTTP redirect is left to the caller.
//
// Allow-list entries are either exact hostnames ("www.example.com") or
// wildcard patterns ("*.example.com"). A wildcard matches the bare suffix and
// any subdomain of it, and nothing else: "example.com.evil.test" is rejected.
package redirect
