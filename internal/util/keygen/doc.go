// Package keygen generates the RSA identities installed on stack hosts.
//
// Private keys are PEM encoded (PKCS#1), public keys use the OpenSSH
// authorized_keys format.
package keygen
