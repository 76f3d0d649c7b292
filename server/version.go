package server

// Version of the shiftd server.
// This variable can be overridden at build time using:
//
//	go build -ldflags "-X github.com/shiftd-io/shiftd/server.Version=v1.0.0"
var Version = "dev"
