// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidSignature indicates a webhook delivery failed signature verification.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrInvalidToken indicates a CI provider rejected a submitted token.
var ErrInvalidToken = errors.New("invalid token")

// ErrMalformedInput indicates a required form field, header, or route
// parameter is missing or unparseable.
var ErrMalformedInput = errors.New("malformed input")

// ErrDecode indicates a payload or provider response could not be decoded
// (non-UTF-8 body, malformed JSON, unexpected shape).
var ErrDecode = errors.New("decode error")
