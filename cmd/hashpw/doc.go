// Command hashpw produces and checks the bcrypt hash used for recview's
// Basic authentication.
//
// Usage:
//
//	hashpw <command>
//
// Commands:
//
//	hash    Prompt twice for a password and print its bcrypt hash. The
//	        password must be at least 6 characters.
//
//	verify  Prompt for a password and report whether it matches the hash
//	        in AUTH_PASSWORD_HASH.
//
// Input is read without echo from a terminal, or line by line when stdin is
// a pipe:
//
//	printf 'secret\nsecret\n' | hashpw hash
//
// Environment:
//
//	AUTH_PASSWORD_HASH - hash checked by the verify command
package main
