package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ResponseError is returned for every status other than 2xx and 404. Errors holds the messages
// vault put in its {"errors": [...]} body, Body the raw bytes for anything else.
type ResponseError struct {
	StatusCode int      `json:"-"`
	Errors     []string `json:"errors"`
	Body       []byte   `json:"-"`
}

func newResponseError(resp *RawResponse) *ResponseError {
	e := &ResponseError{StatusCode: resp.StatusCode, Body: resp.Body}

	// Bodies that aren't an errors envelope are still kept verbatim in Body.
	_ = json.Unmarshal(resp.Body, e)

	return e
}

func (e *ResponseError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("vault responded with %d %v: %v", e.StatusCode, http.StatusText(e.StatusCode), strings.Join(e.Errors, ", "))
	}

	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("vault responded with %d %v", e.StatusCode, http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("vault responded with %d %v: %v", e.StatusCode, http.StatusText(e.StatusCode), body)
}

// IsClientError reports a 4xx status.
func (e *ResponseError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError reports a 5xx status.
func (e *ResponseError) IsServerError() bool {
	return e.StatusCode >= 500
}

// checkResponse reports whether resp carries content worth decoding. 204 and 404 are not
// errors, they are "nothing here". Transport errors come back untouched.
func checkResponse(resp *RawResponse, responseError error) (bool, error) {
	if responseError != nil {
		return false, responseError
	}

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return len(bytes.TrimSpace(resp.Body)) > 0, nil
	}

	return false, newResponseError(resp)
}

// checkResponseStatus is the whitelist variant for endpoints that answer with a body on
// non-2xx statuses.
func checkResponseStatus(resp *RawResponse, responseError error, validStatusCodes ...int) error {
	if responseError != nil {
		return responseError
	}

	if !contains(resp.StatusCode, validStatusCodes) {
		return newResponseError(resp)
	}

	return nil
}

func contains(expected int, items []int) bool {
	for _, item := range items {
		if item == expected {
			return true
		}
	}

	return false
}

// decodeSecret turns a response into a Secret, or nil when there is nothing to decode.
func decodeSecret(resp *RawResponse, responseError error) (*Secret, error) {
	ok, err := checkResponse(resp, responseError)
	if !ok || err != nil {
		return nil, err
	}

	secret := new(Secret)
	if err := json.Unmarshal(resp.Body, secret); err != nil {
		return nil, fmt.Errorf("could not decode secret envelope: %w", err)
	}

	return secret, nil
}

type listEnvelope struct {
	Data struct {
		Keys []string `json:"keys"`
	} `json:"data"`
}

// decodeKeys turns a list response into its keys. Absence is an empty, non-nil slice.
func decodeKeys(resp *RawResponse, responseError error) ([]string, error) {
	ok, err := checkResponse(resp, responseError)
	if err != nil {
		return nil, err
	}

	keys := []string{}
	if !ok {
		return keys, nil
	}

	var envelope listEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("could not decode list envelope: %w", err)
	}

	return append(keys, envelope.Data.Keys...), nil
}
