// Package rpc is documented in wire.go.
package rpc
