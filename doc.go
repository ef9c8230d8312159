/*
Package vaultkit defines the common types and interfaces that tie the
vaultkit packages together.

The host environment drives the core through messages. Every state
transition is expressed as a Msg that is routed to a Handler. Handlers
are given a Context carrying host supplied information (block time,
height, logger, authentication) and a KVStore holding all persisted
records. A handler either fully applies its transition or fails without
touching the store.

Identity is expressed through Conditions. A Condition describes who may
authorize an action and hashes into an Address. Derived identities
(wallets, subaccounts, partial signers) are Conditions built from a base
key plus derivation data, so address computation is a pure function of
the inputs.
*/
package vaultkit
