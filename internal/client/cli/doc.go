// Package cli implements authctl, a small command-line client of the auth
// server. Each invocation loads the session cookies from a file, performs
// one call (register, login, me, refresh or logout) and saves the updated
// cookies back, so a session survives between runs the way it would in a
// browser.
package cli
