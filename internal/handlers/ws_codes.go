// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby socket. These give clients
// a more specific reason than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth token was missing, invalid or expired.
)
