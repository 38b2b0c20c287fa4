// Package auth implements the HTTP Basic authentication gate in front of
// every recview route.
//
// One username and a bcrypt hash of its password are configured through
// AUTH_USERNAME and AUTH_PASSWORD_HASH; generate the hash with
// cmd/hashpw. Leaving either empty turns authentication off.
package auth
