// Package http contains the Gin handlers for the extension API.
//
// Handlers translate HTTP requests into coordinator and manager calls
// and render JSON responses. Domain failure kinds map onto HTTP status
// codes in one place (statusFor).
package http
