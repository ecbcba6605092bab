// Package cli provides the interactive equiplookup terminal client.
//
// It wires the session reconciler, the catalog gateway and the identity
// provider into a REPL. Typical flow: login, then search by serial number.
// Admins can also add records, import spreadsheets and create accounts.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// Session changes made elsewhere (sign-out on another device, an expired
// refresh token) are printed as they happen.
package cli
