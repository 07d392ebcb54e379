package threads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"
)

// jsonGuard is prepended by some Meta endpoints to defeat JSON hijacking.
var jsonGuard = []byte("for (;;);")

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// query posts one persisted GraphQL query and returns its data member.
func (c *Client) query(
	ctx context.Context,
	operation string,
	docID string,
	token string,
	variables map[string]string,
) (json.RawMessage, error) {
	if token == "" {
		var err error
		token, err = c.lsdToken(ctx)
		if err != nil {
			return nil, err
		}
	}

	encodedVars, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("encode %s variables: %w", operation, err)
	}
	form := url.Values{}
	form.Set("lsd", token)
	form.Set("doc_id", docID)
	form.Set("variables", string(encodedVars))

	endpoint := c.cfg.BaseURL + c.cfg.GraphQLPath
	hdr := c.graphQLHeaders(token)
	payload := form.Encode()

	res, err := c.exchange(ctx, endpoint, func(collector *colly.Collector) error {
		return collector.Request(http.MethodPost, endpoint, strings.NewReader(payload), nil, hdr)
	})
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Err: err}
	}
	if !res.ok() {
		return nil, &UpstreamError{Operation: operation, StatusCode: res.status}
	}
	return decodeGraphQL(operation, res.body)
}

func (c *Client) graphQLHeaders(token string) http.Header {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	hdr.Set("X-IG-App-ID", c.cfg.AppID)
	hdr.Set("X-FB-LSD", token)
	hdr.Set("Sec-Fetch-Site", "same-origin")
	return hdr
}

func decodeGraphQL(operation string, body []byte) (json.RawMessage, error) {
	body = bytes.TrimPrefix(bytes.TrimSpace(body), jsonGuard)

	var env graphQLEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, operation, err)
	}
	if isNullJSON(env.Data) {
		if len(env.Errors) > 0 {
			return nil, &UpstreamError{
				Operation:  operation,
				StatusCode: http.StatusOK,
				Err:        errors.New(env.Errors[0].Message),
			}
		}
		return nil, fmt.Errorf("%w: %s: no data", ErrMalformedResponse, operation)
	}
	return env.Data, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
