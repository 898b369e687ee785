// Package decode classifies raw feed payloads into the typed content model.
package decode

import (
	"bytes"
	"encoding/json"

	"github.com/neiam/apollos-kiosk/internal/domain"
)

// Content decodes a raw value into the content variant named by the feed
// key's prefix. It returns (nil, false) when the key has no recognized
// prefix, when the value is null, an empty object or an empty array (no data
// yet), or when the structural decode fails. None of those are errors: the
// key is simply dropped for this message and any previous entry stands.
func Content(key string, raw json.RawMessage) (domain.Content, bool) {
	kind, ok := domain.KindForKey(key)
	if !ok {
		return nil, false
	}
	if isEmpty(raw) {
		return nil, false
	}

	content, err := domain.UnmarshalContent(kind, raw)
	if err != nil {
		return nil, false
	}
	return content, true
}

// Entry decodes a raw value into a feed entry, detecting the envelope format
// first. A value carrying both "data" and "query" fields is an envelope:
// query must decode into QueryInfo and data through Content, and if either
// fails the whole key yields nothing. Envelope-shaped values never fall
// through to legacy decoding of the outer object. Anything else is the
// legacy format: the value itself is the content and there is no query info.
func Entry(key string, raw json.RawMessage) (domain.Entry, bool) {
	if env, ok := asEnvelope(raw); ok {
		var query domain.QueryInfo
		if err := json.Unmarshal(env.Query, &query); err != nil {
			return domain.Entry{}, false
		}
		content, ok := Content(key, env.Data)
		if !ok {
			return domain.Entry{}, false
		}
		return domain.Entry{Content: content, Query: &query}, true
	}

	content, ok := Content(key, raw)
	if !ok {
		return domain.Entry{}, false
	}
	return domain.Entry{Content: content}, true
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Query json.RawMessage `json:"query"`
}

func asEnvelope(raw json.RawMessage) (envelope, bool) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return envelope{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return envelope{}, false
	}
	data, hasData := fields["data"]
	query, hasQuery := fields["query"]
	if !hasData || !hasQuery {
		return envelope{}, false
	}
	return envelope{Data: data, Query: query}, true
}

// isEmpty reports whether the value means "no data yet": JSON null, an
// object with no fields, or an array with no elements.
func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return false
		}
		return len(obj) == 0
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return false
		}
		return len(arr) == 0
	}
	return false
}
