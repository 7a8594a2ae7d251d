// Package tcp provides the tcp connectors for the framed transport of
// package base. Socket and tcp options from the transport configuration are
// applied to every dialed and accepted connection.
package tcp
