package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Body is an outbound request payload. Exactly one of JSONBody, FormBody or
// RawBody is chosen per request by DecodeBody.
type Body interface {
	ContentType() string
	Encode() ([]byte, error)
}

// JSONBody is a validated JSON document, compacted with its field order intact.
type JSONBody struct {
	Data json.RawMessage
}

func (b JSONBody) ContentType() string { return ContentTypeJSON }

func (b JSONBody) Encode() ([]byte, error) {
	return b.Data, nil
}

// Pair is one form field. Order and repeats are preserved.
type Pair struct {
	Key   string
	Value string
}

// FormBody rebuilds an urlencoded form from its fields.
type FormBody struct {
	Pairs []Pair
}

func (b FormBody) ContentType() string { return ContentTypeForm }

func (b FormBody) Encode() ([]byte, error) {
	parts := make([]string, 0, len(b.Pairs))
	for _, p := range b.Pairs {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return []byte(strings.Join(parts, "&")), nil
}

// RawBody is forwarded byte for byte.
type RawBody struct {
	Data []byte
	Type string
}

func (b RawBody) ContentType() string {
	if b.Type == "" {
		return ContentTypeForm
	}
	return b.Type
}

func (b RawBody) Encode() ([]byte, error) {
	return b.Data, nil
}

// DecodeBody picks the body strategy from the inbound content type.
func DecodeBody(contentType string, raw []byte) (Body, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case ContentTypeJSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return JSONBody{Data: buf.Bytes()}, nil
	case ContentTypeForm:
		pairs, err := ParseForm(string(raw))
		if err != nil {
			return nil, err
		}
		return FormBody{Pairs: pairs}, nil
	default:
		data := make([]byte, len(raw))
		copy(data, raw)
		return RawBody{Data: data, Type: contentType}, nil
	}
}

// ParseForm splits an urlencoded body into ordered pairs.
func ParseForm(raw string) ([]Pair, error) {
	var pairs []Pair
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("invalid form key %q: %w", key, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("invalid form value for %q: %w", k, err)
		}
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return pairs, nil
}
