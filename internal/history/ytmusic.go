package history

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	browseURL    = "https://music.youtube.com/youtubei/v1/browse"
	musicOrigin  = "https://music.youtube.com"
	fetchTimeout = 30 * time.Second

	historyBrowseID = "FEmusic_history"
)

// YTMusic reads the watch history through the same internal browse API the
// web player uses, authenticated with browser request headers exported by
// the user. It is a thin wrapper: it fetches and flattens, nothing more.
type YTMusic struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
}

// ParseHeaders decodes an exported headers document (JSON or YAML, both
// accepted) into the header map used for authentication. The cookie header
// is mandatory.
func ParseHeaders(data []byte) (map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse headers file: %w", err)
	}

	headers := make(map[string]string, len(raw))
	for k, v := range raw {
		headers[strings.ToLower(k)] = v
	}
	if headers["cookie"] == "" {
		return nil, fmt.Errorf("headers file is missing a cookie header")
	}
	return headers, nil
}

func NewYTMusic(headers map[string]string) *YTMusic {
	return &YTMusic{
		httpClient: &http.Client{Timeout: fetchTimeout},
		headers:    headers,
		baseURL:    browseURL,
	}
}

func (y *YTMusic) History(ctx context.Context, limit int) ([]Entry, error) {
	body, err := json.Marshal(map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    "WEB_REMIX",
				"clientVersion": "1.20240101.01.00",
				"hl":            "en",
			},
		},
		"browseId": historyBrowseID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode browse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build browse request: %w", err)
	}
	y.authorize(req)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close history response body", "error", err)
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("history request rejected with status %d, headers likely expired", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read history response: %w", err)
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse history response: %w", err)
	}

	entries := parseHistory(payload)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// authorize sets the exported browser headers plus the SAPISIDHASH
// authorization derived from the SAPISID cookie, the scheme the web player
// itself uses.
func (y *YTMusic) authorize(req *http.Request) {
	for k, v := range y.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Origin", musicOrigin)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	}

	if sapisid := cookieValue(y.headers["cookie"], "SAPISID", "__Secure-3PAPISID"); sapisid != "" {
		now := time.Now().Unix()
		hash := sha1.Sum(fmt.Appendf(nil, "%d %s %s", now, sapisid, musicOrigin))
		req.Header.Set("Authorization", fmt.Sprintf("SAPISIDHASH %d_%x", now, hash))
	}
}

func cookieValue(cookie string, names ...string) string {
	for part := range strings.SplitSeq(cookie, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		for _, name := range names {
			if k == name {
				return v
			}
		}
	}
	return ""
}

// parseHistory walks the browse response for list item renderers. The
// response nests renderers a dozen levels deep and the exact shape shifts
// between client versions, so this scans for the item renderer key instead
// of mirroring the whole tree.
func parseHistory(payload any) []Entry {
	var items []map[string]any
	collect(payload, "musicResponsiveListItemRenderer", &items)

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		title := flexColumnText(item, 0)
		if title == "" {
			continue
		}
		e := Entry{
			Title:    title,
			Artist:   flexColumnText(item, 1),
			Album:    flexColumnText(item, 2),
			NativeID: videoID(item),
			Position: len(entries),
		}
		if raw := fixedColumnText(item, 0); raw != "" {
			d, err := parseClockDuration(raw)
			if err != nil {
				slog.Debug("Skipping malformed track duration", "title", e.Title, "duration", raw)
			} else {
				e.Duration = d
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// collect appends every object found under the given key. List elements
// keep their order; sibling map keys are walked sorted, so the result is
// deterministic. Feed positions are derived from this order.
func collect(v any, key string, out *[]map[string]any) {
	switch node := v.(type) {
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(node)) {
			child := node[k]
			if k == key {
				if m, ok := child.(map[string]any); ok {
					*out = append(*out, m)
					continue
				}
			}
			collect(child, key, out)
		}
	case []any:
		for _, child := range node {
			collect(child, key, out)
		}
	}
}

func flexColumnText(item map[string]any, idx int) string {
	return runText(column(item, "flexColumns", "musicResponsiveListItemFlexColumnRenderer", idx))
}

func fixedColumnText(item map[string]any, idx int) string {
	return runText(column(item, "fixedColumns", "musicResponsiveListItemFixedColumnRenderer", idx))
}

func column(item map[string]any, listKey, rendererKey string, idx int) map[string]any {
	list, ok := item[listKey].([]any)
	if !ok || idx >= len(list) {
		return nil
	}
	wrapper, ok := list[idx].(map[string]any)
	if !ok {
		return nil
	}
	renderer, _ := wrapper[rendererKey].(map[string]any)
	return renderer
}

func runText(renderer map[string]any) string {
	run, ok := firstRun(renderer)
	if !ok {
		return ""
	}
	text, _ := run["text"].(string)
	return strings.TrimSpace(text)
}

func firstRun(renderer map[string]any) (map[string]any, bool) {
	text, ok := renderer["text"].(map[string]any)
	if !ok {
		return nil, false
	}
	runs, ok := text["runs"].([]any)
	if !ok || len(runs) == 0 {
		return nil, false
	}
	run, ok := runs[0].(map[string]any)
	return run, ok
}

func videoID(item map[string]any) string {
	if data, ok := item["playlistItemData"].(map[string]any); ok {
		if id, ok := data["videoId"].(string); ok {
			return id
		}
	}
	// Fall back to the title run's watch endpoint.
	run, ok := firstRun(column(item, "flexColumns", "musicResponsiveListItemFlexColumnRenderer", 0))
	if !ok {
		return ""
	}
	nav, ok := run["navigationEndpoint"].(map[string]any)
	if !ok {
		return ""
	}
	watch, ok := nav["watchEndpoint"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := watch["videoId"].(string)
	return id
}

// parseClockDuration converts "3:45" or "1:02:03" to a duration.
func parseClockDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("malformed duration %q", s)
	}

	var total int
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("malformed duration %q", s)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}
