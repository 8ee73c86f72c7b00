// Package server is the protocol layer in front of the sim engine: the
// JSON-RPC 2.0 dispatcher shared by the WebSocket endpoint, the REST routes,
// the file-listing and mDNS collaborator seams, and the HTTP server itself.
//
// All state access goes through sim.Loop.Do, so request handlers and the tick
// loop execute on one serialized timeline. The websocket write path is the only
// asynchronous piece: each connection drains its own bounded outbound queue,
// and a connection that cannot keep up is torn down without delaying ticks or
// other connections.
package server
