/*
Package vaultkittest provides mocks and helpers for testing code that
builds on the vaultkit interfaces.

Mocks in this package favor deterministic, sequence based data generation
so that tests stay reproducible.
*/
package vaultkittest
