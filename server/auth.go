package server

import "net/http"

// Principal identifies the caller as forwarded by the fronting auth proxy.
// Requests without forwarded identity headers are treated as a guest; the
// server never rejects a request for missing identity.
type Principal struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Guest    bool   `json:"guest"`
}

// principalFromHeaders parses the forwarded identity headers.
func principalFromHeaders(h http.Header) Principal {
	id := h.Get("X-Ms-Client-Principal-Id")
	if id == "" {
		return Principal{
			ID:    "guest",
			Name:  "Guest",
			Guest: true,
		}
	}
	return Principal{
		ID:       id,
		Name:     h.Get("X-Ms-Client-Principal-Name"),
		Provider: h.Get("X-Ms-Client-Principal-Idp"),
	}
}
