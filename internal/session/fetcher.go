package session

import (
	"context"

	"github.com/jeffersonbalde/syborg-portal/internal/apiclient"
	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

// Resolver turns credentials or a stored token into an identity. The portal
// API client satisfies it; tests substitute fakes.
type Resolver interface {
	Me(ctx context.Context, token string) (apiclient.Identity, error)
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Session is the resolved login state. A zero Session means nobody is signed
// in.
type Session struct {
	User  *apiclient.User
	Role  model.Role
	Token string
}

func (s Session) SignedIn() bool {
	return s.User != nil
}
