// Package auth checks dashboard credentials.
package auth
