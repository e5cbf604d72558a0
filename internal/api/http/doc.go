// Package http binds the sandbox components to gin routes.
//
// Every failure is rendered as {"error": message, "code": category} with the
// status derived from the category. Handlers do no validation of their own
// beyond decoding; the components validate before acting.
package http
