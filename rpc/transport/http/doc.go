// Package http carries rpc messages as http POST bodies to /{shardId}. It is
// slower than the framed transports but passes through proxies and is easy
// to inspect with the json serializer.
package http
