package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/repo"
)

// DefaultTwilioBaseURL is the Twilio REST API root
const DefaultTwilioBaseURL = "https://api.twilio.com"

// twilioRepo sends WhatsApp messages through the Twilio Messages API
type twilioRepo struct {
	client *twilio.RestClient
	from   string
	logger *zap.Logger
}

// NewTwilioRepo creates a Twilio message repository.
// from is the sending address, e.g. whatsapp:+14155238886.
// baseURL other than DefaultTwilioBaseURL redirects every API call there.
func NewTwilioRepo(baseURL, accountSID, authToken, from string, logger *zap.Logger) repo.MessageRepo {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	if baseURL != "" && baseURL != DefaultTwilioBaseURL {
		if target, err := url.Parse(baseURL); err == nil {
			httpClient.Transport = &redirectTransport{target: target, next: http.DefaultTransport}
		}
	}

	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(accountSID, authToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(accountSID)

	return &twilioRepo{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username:   accountSID,
			Password:   authToken,
			AccountSid: accountSID,
			Client:     base,
		}),
		from:   from,
		logger: logger.Named("twilio"),
	}
}

// Send delivers body to a whatsapp: address
func (r *twilioRepo) Send(ctx context.Context, to, body string) error {
	// The SDK call is not context-aware; the HTTP client timeout bounds it
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetFrom(r.from)
	params.SetTo(to)
	params.SetBody(body)

	msg, err := r.client.Api.CreateMessage(params)
	if err != nil {
		var apiErr *twilioclient.TwilioRestError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("twilio error %d (HTTP %d): %s", apiErr.Code, apiErr.Status, apiErr.Message)
		}
		return fmt.Errorf("request failed: %w", err)
	}

	sid := ""
	if msg != nil && msg.Sid != nil {
		sid = *msg.Sid
	}
	r.logger.Debug("message sent", zap.String("to", to), zap.String("sid", sid))
	return nil
}

// redirectTransport sends requests to another scheme and host, keeping path and query
type redirectTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return t.next.RoundTrip(out)
}
