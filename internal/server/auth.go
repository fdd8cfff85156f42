package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

func NewAuth(token string, next http.Handler) *Auth {
	return &Auth{
		Next:  next,
		Token: token,
	}
}

// Auth checks a single static bearer token. An empty Token lets every request through.
type Auth struct {
	Next  http.Handler
	Token string
}

func (a *Auth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !a.Authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	a.Next.ServeHTTP(w, r)
}

// Authorized reports whether r carries "Authorization: Bearer <Token>".
func (a *Auth) Authorized(r *http.Request) bool {
	if a.Token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.Token)) == 1
}
