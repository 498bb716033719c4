// services/claim_executor.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"skport-checkin/models"
)

const (
	CodeOK             = 0
	CodeAlreadyClaimed = 10001

	StatusAuthFailed = "⛔ Auth/Refresh Failed"
	StatusException  = "💥 Exception"

	rewardsNothing   = "Nothing to claim"
	rewardsNoDetails = "No detailed reward info."
	rewardsNone      = "None"
	rewardsUnknown   = "Unknown Error"
	unknownItem      = "Unknown Item"
)

type attendanceResponse struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// attendanceData is decoded separately from the envelope so that an award
// list in an unexpected shape never changes the outcome decided by code.
type attendanceData struct {
	AwardIDs        []json.RawMessage          `json:"awardIds"`
	ResourceInfoMap map[string]json.RawMessage `json:"resourceInfoMap"`
}

type awardRef struct {
	ID any `json:"id"`
}

type resourceInfo struct {
	Name  any `json:"name"`
	Count any `json:"count"`
}

// Claim performs the daily attendance claim with a session token.
// Every failure is folded into the returned result; it never returns an error.
func (c *SKPortClient) Claim(ctx context.Context, profile models.Profile, token string) models.ClaimResult {
	timestamp := strconv.FormatInt(c.Now().Unix(), 10)
	sign := Sign(AttendancePath, "", timestamp, token, profile.Platform, profile.VName)

	status, body, err := c.send(ctx, http.MethodPost, AttendancePath, map[string]string{
		"Content-Type": "application/json",
		"sk-language":  "en_US",
		"sk-game-role": profile.SkGameRole,
		"cred":         profile.Cred,
		"platform":     profile.Platform,
		"vName":        profile.VName,
		"timestamp":    timestamp,
		"sign":         sign,
	})
	if err != nil {
		return c.exceptionResult(profile.AccountName, err)
	}

	c.Logger.Debug("[CLAIM] API response",
		zap.String("account", profile.AccountName),
		zap.Int("http_status", status),
		zap.ByteString("body", body))

	var out attendanceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return c.exceptionResult(profile.AccountName,
			&ProtocolError{Endpoint: AttendancePath, HTTPStatus: status, Body: string(body), Err: err})
	}
	if out.Code == nil {
		return c.exceptionResult(profile.AccountName,
			&ProtocolError{Endpoint: AttendancePath, HTTPStatus: status, Body: string(body), Err: errors.New("missing code field")})
	}

	result, rejected := classifyAttendance(profile.AccountName, &out)
	switch {
	case rejected != nil:
		claimOutcomes.WithLabelValues(outcomeRejected).Inc()
		c.Logger.Warn("[CLAIM] ❌ check-in rejected",
			zap.String("account", profile.AccountName), zap.Error(rejected))
	case *out.Code == CodeAlreadyClaimed:
		claimOutcomes.WithLabelValues(outcomeAlreadyClaimed).Inc()
		c.Logger.Info("[CLAIM] ✅ already checked in today", zap.String("account", profile.AccountName))
	default:
		claimOutcomes.WithLabelValues(outcomeClaimed).Inc()
		c.Logger.Info("[CLAIM] ✅ check-in successful",
			zap.String("account", profile.AccountName), zap.String("rewards", result.Rewards))
	}
	return result
}

func (c *SKPortClient) exceptionResult(name string, err error) models.ClaimResult {
	claimOutcomes.WithLabelValues(outcomeException).Inc()
	c.Logger.Error("[CLAIM] 💥 check-in failed", zap.String("account", name), zap.Error(err))
	return models.ClaimResult{
		Name:    name,
		Success: false,
		Status:  StatusException,
		Rewards: err.Error(),
	}
}

// classifyAttendance maps a decoded attendance response to a result.
// A fresh claim and a repeat claim are both successes; any other code is
// returned as *ClaimRejected alongside the failed result.
func classifyAttendance(name string, resp *attendanceResponse) (models.ClaimResult, *ClaimRejected) {
	result := models.ClaimResult{Name: name}

	switch *resp.Code {
	case CodeOK:
		result.Success = true
		result.Status = strings.TrimSpace("Check-in Successful. " + resp.Message)
		result.Rewards = renderAwards(resp.Data)
		return result, nil

	case CodeAlreadyClaimed:
		result.Success = true
		result.Status = strings.TrimSpace("Already Checked In. " + resp.Message)
		result.Rewards = rewardsNothing
		return result, nil

	default:
		result.Status = fmt.Sprintf("Error (Code: %d)", *resp.Code)
		result.Rewards = resp.Message
		if result.Rewards == "" {
			result.Rewards = rewardsUnknown
		}
		return result, &ClaimRejected{Code: *resp.Code, Message: result.Rewards}
	}
}

func renderAwards(raw json.RawMessage) string {
	var data attendanceData
	if err := decodeLenient(raw, &data); err != nil || data.AwardIDs == nil {
		return rewardsNoDetails
	}

	lines := make([]string, 0, len(data.AwardIDs))
	for _, item := range data.AwardIDs {
		var award awardRef
		_ = decodeLenient(item, &award)
		id := textOf(award.ID)

		if id != "" {
			var res resourceInfo
			if entry, ok := data.ResourceInfoMap[id]; ok && decodeLenient(entry, &res) == nil {
				name := textOf(res.Name)
				if name == "" {
					name = id
				}
				if count := textOf(res.Count); count != "" {
					lines = append(lines, fmt.Sprintf("%s x%s", name, count))
				} else {
					lines = append(lines, name)
				}
				continue
			}
			lines = append(lines, id)
			continue
		}
		lines = append(lines, unknownItem)
	}
	if len(lines) == 0 {
		return rewardsNone
	}
	return strings.Join(lines, "\n")
}

// decodeLenient keeps numbers as json.Number so ids and counts print as sent.
func decodeLenient(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("empty")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func textOf(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
