// Package cli provides the interactive course checkout client.
//
// It wires configuration, the persisted session, the authenticated API client
// and an interactive REPL that walks a purchase through the checkout
// workflow. Typical flow: log in (or reuse the stored session), start a
// checkout for a course, pick a payment method, then either submit card
// details or pick a bank, transfer and confirm.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
