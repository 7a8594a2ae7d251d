// Package common holds the types shared by the rpc client, server and
// transports.
//
//   - Message is the single request and response structure of the store
//     protocol. Factory functions build the request and response of every
//     store operation. Errors travel as text plus the store.RetCode so the
//     client can rebuild a store.Error.
//
//   - ServerConfig and ClientConfig configure the two sides, including the
//     transport options.
//
//   - InitLoggers routes every package logger (dragonboat's ILogger) through
//     one logrus logger with per package levels.
package common
