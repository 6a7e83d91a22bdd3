// Package jwt signs the opaque session identifier into the session cookie
// (HS256) and verifies it on the way back in.
package jwt
