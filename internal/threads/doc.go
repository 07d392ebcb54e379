// Package threads is a small client for the public, logged-out Threads web
// API. It resolves user names by scraping profile pages, obtains the
// anonymous LSD token the GraphQL endpoint expects, and returns each query's
// data member untouched.
//
// All HTTP traffic goes through clones of a single colly collector so the
// transport and connection pool are shared between requests. A PageLoader
// (typically the chromedp renderer) can be supplied to retry profile pages
// whose plain markup lacks the user id and looks client-rendered. A Throttle
// in Config paces every outbound request.
package threads
