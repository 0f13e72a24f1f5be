package auth

import "github.com/golang-jwt/jwt/v5"

// ToolClaims bind a token to one rendered conversation (session) and one function.
// A token minted for accept_call cannot be replayed against reject_call, nor
// against another session's callback URL.
type ToolClaims struct {
	jwt.RegisteredClaims

	SessionID string `json:"session_id"`
	Function  string `json:"function"`
}
