package provider

import (
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*GRPCProvider)(nil)

// Token returns the current access token as a bearer token, refreshing it
// when it is about to expire. It fails with ErrNotSignedIn without a
// session.
func (p *GRPCProvider) Token() (*oauth2.Token, error) {
	sess, err := p.GetSession(p.ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotSignedIn
	}
	return &oauth2.Token{
		AccessToken:  sess.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: sess.RefreshToken,
		Expiry:       sess.Expiry,
	}, nil
}
