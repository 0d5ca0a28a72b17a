// Package server assembles the gate: it builds the domain components from
// configuration, registers routes and middleware on a gin engine wrapped in
// gzip compression, and runs the HTTP and optional gRPC servers under one
// errgroup with graceful shutdown.
package server
