// Package bank finds sound banks. Banks ship embedded in the binary and can
// be added or overridden by dropping a directory with a bank descriptor and
// its sample files into the user banks directory.
package bank
