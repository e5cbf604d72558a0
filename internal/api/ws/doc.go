// Package ws streams command output over a WebSocket.
//
// The first client frame is an exec request (the same JSON body /shell/exec
// takes). The server answers with one JSON frame per stream event and closes
// after the terminal event. Any later client frame, or the client going away,
// kills the process.
package ws
