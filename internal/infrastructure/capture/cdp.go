package capture

import (
	"fmt"
	"net/url"

	"github.com/chromedp/cdproto/network"
	"github.com/go-json-experiment/json"

	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// FromResponseReceived converts a Network.responseReceived event into an
// observation. Responses without security details yield an empty observation
// with nil facts, which the registry ignores; their URL is never parsed, so
// data:, blob: and about: responses are not errors.
func FromResponseReceived(ev *network.EventResponseReceived) (host.Observation, error) {
	if ev == nil || ev.Response == nil {
		return host.Observation{}, fmt.Errorf("%w: event has no response", sharedErrors.ErrInvalidObservation)
	}
	sd := ev.Response.SecurityDetails
	if sd == nil {
		return host.Observation{TopLevelDocument: ev.Type == network.ResourceTypeDocument}, nil
	}

	name, err := hostname(ev.Response.URL)
	if err != nil {
		return host.Observation{}, err
	}

	obs := host.Observation{
		Host:             name,
		TopLevelDocument: ev.Type == network.ResourceTypeDocument,
		Headers:          stringifyHeaders(ev.Response.Headers),
		Facts: &host.SecurityFacts{
			Protocol:         sd.Protocol,
			Cipher:           sd.Cipher,
			KeyExchange:      sd.KeyExchange,
			KeyExchangeGroup: sd.KeyExchangeGroup,
			Issuer:           sd.Issuer,
		},
	}
	if sd.ValidFrom != nil {
		obs.Facts.ValidFrom = sd.ValidFrom.Time().Unix()
	}
	if sd.ValidTo != nil {
		obs.Facts.ValidTo = sd.ValidTo.Time().Unix()
	}
	return obs, nil
}

// DecodeEvent decodes the params of a Network.responseReceived event and
// converts it.
func DecodeEvent(raw []byte) (host.Observation, error) {
	var ev network.EventResponseReceived
	if err := json.Unmarshal(raw, &ev); err != nil {
		return host.Observation{}, fmt.Errorf("%w: decode responseReceived: %w", sharedErrors.ErrInvalidObservation, err)
	}
	return FromResponseReceived(&ev)
}

// hostname returns the URL authority's host, keeping a non-default port so
// services on different ports of one name stay distinct.
func hostname(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", sharedErrors.ErrInvalidObservation, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %w: %q", sharedErrors.ErrInvalidObservation, sharedErrors.ErrEmptyHost, rawURL)
	}
	return u.Host, nil
}

func stringifyHeaders(headers network.Headers) host.HeaderSet {
	out := make(host.HeaderSet, len(headers))
	for k, v := range headers {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
