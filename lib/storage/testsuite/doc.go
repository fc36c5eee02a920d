// Package testsuite provides shared conformance tests for the storage
// contracts. Every backend wires its factories into the Run* functions
// from its own package tests, so all implementations are held to the
// same semantics.
package testsuite
