package taskqueue

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"video-cover-maker/internal/cover"
)

type resultItem struct {
	B64JSON string `json:"b64_json"`
	URL     string `json:"url"`
}

// normalize extracts an image from the task result payload. Deployments
// disagree on how deep the result is nested, so the known shapes are
// probed in a fixed order with a catch-all at the end; new shapes get
// appended without touching the existing checks.
func (c *Client) normalize(raw json.RawMessage) (string, error) {
	if !hasResult(raw) {
		return "", cover.E(cover.KindUnparsable, "empty result payload")
	}

	// (a) container -> container -> array
	var tripleNested struct {
		Data struct {
			Data []resultItem `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &tripleNested); err == nil && len(tripleNested.Data.Data) > 0 {
		return c.artifactFrom(tripleNested.Data.Data[0])
	}

	// (b) container -> array
	var doubleNested struct {
		Data []resultItem `json:"data"`
	}
	if err := json.Unmarshal(raw, &doubleNested); err == nil && len(doubleNested.Data) > 0 {
		return c.artifactFrom(doubleNested.Data[0])
	}

	// (c) bare array
	var list []resultItem
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return c.artifactFrom(list[0])
	}

	// (d) flat object
	var flat resultItem
	if err := json.Unmarshal(raw, &flat); err == nil && (flat.B64JSON != "" || flat.URL != "") {
		return c.artifactFrom(flat)
	}

	return "", cover.E(cover.KindUnparsable, "unrecognized result shape").
		WithDetail("top-level keys: " + strings.Join(topLevelKeys(raw), ", "))
}

func (c *Client) artifactFrom(item resultItem) (string, error) {
	if item.B64JSON != "" {
		if strings.HasPrefix(item.B64JSON, "data:") {
			return item.B64JSON, nil
		}
		return "data:image/png;base64," + item.B64JSON, nil
	}

	if item.URL != "" {
		// degraded success: only a remote reference came back
		return c.rewriteURL(item.URL), nil
	}

	return "", cover.E(cover.KindUnparsable, "result item carried neither image data nor url")
}

func (c *Client) rewriteURL(remote string) string {
	if c.imageProxyURL == "" {
		return remote
	}
	return c.imageProxyURL + url.QueryEscape(remote)
}

func topLevelKeys(raw json.RawMessage) []string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return []string{"(non-object)"}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
