package server

import (
	"net/http"
	"net/url"
)

// clientSessionCookieName is the cookie naming the browser's client session
const clientSessionCookieName = "client_session_id"

func (s *Server) SetClientSessionCookie(w http.ResponseWriter, sessionID string, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     clientSessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetClientSessionMaxAge().Seconds()),
	})
}

func clientSessionID(r *http.Request) string {
	cookie, err := r.Cookie(clientSessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithParams redirects to path with params as its query string
func redirectWithParams(w http.ResponseWriter, r *http.Request, path string, params url.Values) {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	redirectSuccess(w, r, path)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectWithParams(w, r, path, url.Values{"error": {errorMsg}})
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	redirectWithParams(w, r, path, url.Values{"notice": {notice}})
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
