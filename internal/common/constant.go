// Package common contains shared constants and errors used across the
// equiplookup client and server.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultServicePath is the prefix every catalog HTTP route lives under.
const DefaultServicePath = "/catalog/v1"
