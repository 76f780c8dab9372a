package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the RFC 3339 form used for {{timestamp}} and the envelope.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// RenderContext holds the values a payload template can reference.
type RenderContext struct {
	Event     string
	Timestamp time.Time
	Data      any
}

// Envelope is the payload sent when a configuration has no template.
type Envelope struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Source    string          `json:"source"`
}

// Renderer builds webhook bodies from templates.
type Renderer struct {
	source string
}

// NewRenderer returns a renderer stamping source into default envelopes.
func NewRenderer(source string) *Renderer {
	return &Renderer{source: source}
}

// Render substitutes {{event}}, {{timestamp}}, {{data}} and dotted
// {{data.path}} placeholders into tpl. Unresolved placeholders are kept
// verbatim. A nil or blank template yields the default envelope.
//
// A malformed template yields the default envelope together with an error
// wrapping ErrMalformedTemplate; the payload is still usable.
func (r *Renderer) Render(tpl *string, rc RenderContext) ([]byte, error) {
	rawData, err := marshalData(rc.Data)
	if err != nil {
		return nil, err
	}

	if tpl == nil || strings.TrimSpace(*tpl) == "" {
		return r.envelope(rc, rawData)
	}

	out, tplErr := substitute(*tpl, rc, rawData)
	if tplErr != nil {
		payload, err := r.envelope(rc, rawData)
		if err != nil {
			return nil, err
		}
		return payload, tplErr
	}
	return out, nil
}

func (r *Renderer) envelope(rc RenderContext, rawData json.RawMessage) ([]byte, error) {
	payload, err := json.Marshal(Envelope{
		Event:     rc.Event,
		Timestamp: formatTimestamp(rc.Timestamp),
		Data:      rawData,
		Source:    r.source,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return payload, nil
}

func marshalData(data any) (json.RawMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: data is not JSON encodable: %w", ErrInvalidPayload, err)
	}
	return raw, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func substitute(tpl string, rc RenderContext, rawData json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	var tree any
	treeLoaded := false
	rest := tpl

	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			buf.WriteString(rest)
			break
		}
		buf.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, "}}")
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated placeholder at offset %d", ErrMalformedTemplate, len(tpl)-len(rest)-2)
		}
		inner := rest[:end]
		rest = rest[end+2:]

		if strings.Contains(inner, "{{") {
			return nil, fmt.Errorf("%w: nested placeholder %q", ErrMalformedTemplate, inner)
		}
		name := strings.TrimSpace(inner)
		if name == "" {
			return nil, fmt.Errorf("%w: empty placeholder", ErrMalformedTemplate)
		}

		switch {
		case name == "event":
			buf.WriteString(rc.Event)
		case name == "timestamp":
			buf.WriteString(formatTimestamp(rc.Timestamp))
		case name == "data":
			buf.Write(rawData)
		case strings.HasPrefix(name, "data."):
			if !treeLoaded {
				tree = decodeTree(rawData)
				treeLoaded = true
			}
			v, ok := lookup(tree, strings.Split(name[len("data."):], "."))
			if !ok {
				buf.WriteString("{{" + inner + "}}")
				continue
			}
			writeValue(&buf, v)
		default:
			buf.WriteString("{{" + inner + "}}")
		}
	}
	return buf.Bytes(), nil
}

func decodeTree(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func lookup(v any, path []string) (any, bool) {
	for _, key := range path {
		if key == "" {
			return nil, false
		}
		switch node := v.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			v = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			v = node[i]
		default:
			return nil, false
		}
	}
	return v, true
}

func writeValue(buf *bytes.Buffer, v any) {
	if s, ok := v.(string); ok {
		buf.WriteString(s)
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	buf.Write(raw)
}
