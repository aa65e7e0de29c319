package web

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"

	"golang.org/x/crypto/nacl/secretbox"
)

const flashCookie = "bors2_flash"

// FlashCodec seals one-shot notices into a cookie so they survive the
// redirect they ride on. The payload is secretbox-encrypted under a key
// derived from the session key: clients can carry a flash but neither
// read nor forge one.
type FlashCodec struct {
	key [32]byte
}

// NewFlashCodec derives the sealing key from the configured session key.
func NewFlashCodec(sessionKey string) *FlashCodec {
	return &FlashCodec{key: sha256.Sum256([]byte(sessionKey))}
}

// Set stores msg as the flash for the next rendered page.
func (c *FlashCodec) Set(w http.ResponseWriter, msg string) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return
	}
	sealed := secretbox.Seal(nonce[:], []byte(msg), &nonce, &c.key)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(sealed),
		Path:     "/",
		HttpOnly: true,
	})
}

// Take returns the pending flash, if any, and clears it. A cookie that
// fails to decode or unseal is discarded silently.
func (c *FlashCodec) Take(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:   flashCookie,
		Path:   "/",
		MaxAge: -1,
	})

	sealed, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil || len(sealed) < 24 {
		return ""
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	msg, ok := secretbox.Open(nil, sealed[24:], &nonce, &c.key)
	if !ok {
		return ""
	}
	return string(msg)
}
