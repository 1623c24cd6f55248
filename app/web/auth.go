package web

import (
	"crypto/subtle"
	"net/http"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/crypto/bcrypt"
)

// authMiddleware checks basic auth against bcrypt password hash
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if ok && subtle.ConstantTimeCompare([]byte(username), []byte(s.authUser)) == 1 {
			if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		if ok {
			log.Printf("[WARN] failed login attempt for %q from %s", username, r.RemoteAddr)
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="JobTracker"`)
		s.writeJSONError(w, http.StatusUnauthorized, "unauthorized")
	})
}
