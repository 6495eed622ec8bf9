// Package http contains the HTTP handlers for the analysis API. Handlers
// translate between multipart uploads or JSON requests and the services
// layer, and report failures as RFC 7807 problem documents.
package http
