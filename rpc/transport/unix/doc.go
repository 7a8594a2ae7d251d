// Package unix provides the unix domain socket connectors for the framed
// transport of package base. It suits a store server on the same host as
// the database processes.
package unix
