package stacapi

import (
	"context"
	"net/http"
)

// BearerToken sets an "Authorization: Bearer" header on every request.
func BearerToken(token string) Middleware {
	return func(_ context.Context, req *http.Request) error {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// APIKey sets key under header, or under Authorization when header is empty.
func APIKey(header, key string) Middleware {
	if header == "" {
		header = "Authorization"
	}
	return func(_ context.Context, req *http.Request) error {
		if key != "" {
			req.Header.Set(header, key)
		}
		return nil
	}
}

// QueryParam adds a fixed query parameter, for services that take their key
// in the URL.
func QueryParam(name, value string) Middleware {
	return func(_ context.Context, req *http.Request) error {
		q := req.URL.Query()
		q.Set(name, value)
		req.URL.RawQuery = q.Encode()
		return nil
	}
}
