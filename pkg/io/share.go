package io

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/matzehuels/partplan/pkg/errors"
)

// ShareParam is the query parameter carrying a shared table.
const ShareParam = "partitions"

const base64Prefix = "base64:"

// EncodeShareURL returns base with the CSV attached as a base64 share
// payload. Existing query parameters on base are kept.
func EncodeShareURL(base string, csv []byte) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "parse base url")
	}
	q := u.Query()
	q.Set(ShareParam, base64Prefix+base64.StdEncoding.EncodeToString(csv))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodeShareURL extracts the CSV payload from a full share URL.
func DecodeShareURL(raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse url")
	}
	return DecodeSharePayload(u.RawQuery)
}

// DecodeSharePayload extracts the CSV payload from a raw query string
// (with or without the leading '?').
//
// Payloads prefixed with "base64:" are base64-decoded. Anything else is
// treated as percent-encoded CSV, falling back to plain base64 when it does
// not unescape. A query without the parameter yields NOT_FOUND.
func DecodeSharePayload(rawQuery string) ([]byte, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse query")
	}
	payload := q.Get(ShareParam)
	if payload == "" {
		return nil, errors.New(errors.ErrCodeNotFound, "no %q parameter in query", ShareParam)
	}

	if rest, ok := strings.CutPrefix(payload, base64Prefix); ok {
		return decodeBase64(rest)
	}
	if s, err := url.PathUnescape(payload); err == nil {
		return []byte(s), nil
	}
	return decodeBase64(payload)
}

func decodeBase64(s string) ([]byte, error) {
	// Query decoding turns an unescaped '+' into a space.
	s = strings.ReplaceAll(s, " ", "+")
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode base64 payload")
	}
	return b, nil
}
