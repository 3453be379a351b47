// Package auth hashes passwords with bcrypt and issues the signed session
// tokens the HTTP transport turns back into a router.Session.
package auth
