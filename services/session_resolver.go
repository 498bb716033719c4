// services/session_resolver.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"skport-checkin/models"
	"skport-checkin/utils"
)

type refreshResponse struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Token string `json:"token"`
	} `json:"data"`
}

// RefreshToken exchanges the profile's long-lived credential for a session token.
//
// A non-zero code (or a zero code without a token) yields *AuthError; a body
// that is not the expected JSON yields *ProtocolError; network failures yield
// *TransportError. It never returns an empty token with a nil error.
func (c *SKPortClient) RefreshToken(ctx context.Context, profile models.Profile) (string, error) {
	c.Logger.Debug("[REFRESH] requesting session token",
		zap.String("account", profile.AccountName),
		zap.String("cred", utils.Mask(profile.Cred)))

	status, body, err := c.send(ctx, http.MethodGet, RefreshPath, map[string]string{
		"cred":     profile.Cred,
		"platform": profile.Platform,
		"vName":    profile.VName,
	})
	if err != nil {
		return "", err
	}

	var out refreshResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &ProtocolError{Endpoint: RefreshPath, HTTPStatus: status, Body: string(body), Err: err}
	}
	if out.Code == nil {
		return "", &ProtocolError{Endpoint: RefreshPath, HTTPStatus: status, Body: string(body), Err: errors.New("missing code field")}
	}

	if *out.Code != 0 {
		return "", &AuthError{Code: *out.Code, Message: out.Message}
	}
	if out.Data == nil || out.Data.Token == "" {
		msg := out.Message
		if msg == "" {
			msg = "no token in response"
		}
		return "", &AuthError{Code: *out.Code, Message: msg}
	}

	c.Logger.Debug("[REFRESH] token refreshed",
		zap.String("account", profile.AccountName),
		zap.String("token", utils.Mask(out.Data.Token)))
	return out.Data.Token, nil
}
