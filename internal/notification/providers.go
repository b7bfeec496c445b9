// providers.go: SMS gateway implementations. Twilio and Vonage mirror the
// REST calls the face-detection side of the original deployment used; the
// console provider is the default for development installs.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/errors"
	"github.com/smart-attendance/attendance-go/internal/logging"
)

// Provider delivers a single SMS message.
type Provider interface {
	Name() string
	Send(ctx context.Context, phone, message string) error
}

// NewProvider builds the provider selected by the SMS settings. Unknown
// providers fall back to the console provider so a misconfigured gateway
// never silently discards messages.
func NewProvider(settings conf.SMSSettings) Provider {
	switch settings.Provider {
	case "twilio":
		return &TwilioProvider{
			AccountSID: settings.APIKey,
			AuthToken:  settings.APISecret,
			From:       settings.SenderID,
			Client:     &http.Client{Timeout: 10 * time.Second},
		}
	case "vonage":
		return &VonageProvider{
			APIKey:    settings.APIKey,
			APISecret: settings.APISecret,
			From:      settings.SenderID,
			Client:    &http.Client{Timeout: 10 * time.Second},
		}
	default:
		return &ConsoleProvider{logger: logging.ForService("notification")}
	}
}

// ConsoleProvider logs messages instead of sending them.
type ConsoleProvider struct {
	logger *slog.Logger
}

func (p *ConsoleProvider) Name() string { return "console" }

func (p *ConsoleProvider) Send(_ context.Context, phone, message string) error {
	p.logger.Info("sms (console)", "phone", phone, "message", message)
	return nil
}

// TwilioProvider sends messages through the Twilio Messages API.
type TwilioProvider struct {
	AccountSID string
	AuthToken  string
	From       string
	Client     *http.Client

	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) Send(ctx context.Context, phone, message string) error {
	base := p.BaseURL
	if base == "" {
		base = "https://api.twilio.com"
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", base, p.AccountSID)

	form := url.Values{}
	form.Set("From", p.From)
	form.Set("To", phone)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return smsError(err, "twilio")
	}
	req.SetBasicAuth(p.AccountSID, p.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.Client.Do(req)
	if err != nil {
		return smsError(err, "twilio")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return smsError(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body), "twilio")
	}
	return nil
}

// VonageProvider sends messages through the Vonage (formerly Nexmo) SMS API.
type VonageProvider struct {
	APIKey    string
	APISecret string
	From      string
	Client    *http.Client

	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

func (p *VonageProvider) Name() string { return "vonage" }

func (p *VonageProvider) Send(ctx context.Context, phone, message string) error {
	base := p.BaseURL
	if base == "" {
		base = "https://rest.nexmo.com"
	}

	form := url.Values{}
	form.Set("api_key", p.APIKey)
	form.Set("api_secret", p.APISecret)
	form.Set("to", phone)
	form.Set("from", p.From)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/sms/json", strings.NewReader(form.Encode()))
	if err != nil {
		return smsError(err, "vonage")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.Client.Do(req)
	if err != nil {
		return smsError(err, "vonage")
	}
	defer resp.Body.Close()

	var result struct {
		Messages []struct {
			Status    string `json:"status"`
			ErrorText string `json:"error-text"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return smsError(fmt.Errorf("decoding response: %w", err), "vonage")
	}
	if len(result.Messages) == 0 || result.Messages[0].Status != "0" {
		errorText := "no messages in response"
		if len(result.Messages) > 0 {
			errorText = result.Messages[0].ErrorText
		}
		return smsError(fmt.Errorf("delivery failed: %s", errorText), "vonage")
	}
	return nil
}

func smsError(err error, provider string) error {
	return errors.New(err).
		Component("notification").
		Category(errors.CategoryNotification).
		Context("provider", provider).
		Build()
}
