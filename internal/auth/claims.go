package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims identify a console operator inside one workspace.
// Sessions are issued elsewhere; the console only verifies them.
type Claims struct {
	jwt.RegisteredClaims

	OperatorID  string    `json:"operator_id"`
	WorkspaceID string    `json:"workspace_id"`
	Role        string    `json:"role"`
	TokenType   TokenType `json:"token_type"`
}

func (c Claims) Identity() Identity {
	return Identity{OperatorID: c.OperatorID, WorkspaceID: c.WorkspaceID, Role: c.Role}
}
