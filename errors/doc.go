/*
Package errors implements custom error interfaces for vaultkit.

There is a fixed set of registered root errors, each with a unique code. Errors created
during runtime wrap one of the roots, optionally adding context. Test for
an error class with the root's Is method, never by string comparison.

Extensions register their own roots in a reserved code range, so the host
can map any failure back to a specific, machine-readable kind.
*/
package errors
