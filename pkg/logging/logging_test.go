package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		json      bool
		wantDebug bool
	}{
		{name: "console quiet", verbose: false, json: false, wantDebug: false},
		{name: "console verbose", verbose: true, json: false, wantDebug: true},
		{name: "json quiet", verbose: false, json: true, wantDebug: false},
		{name: "json verbose", verbose: true, json: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			log := New(&out, tt.verbose, tt.json)

			log.Debugw("Fetching prompt", "name", "review")
			log.Warnw("Raw fetch failed", "url", "https://example.com/review.prompt.md")
			require.NoError(t, log.Sync())

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			if tt.wantDebug {
				require.Len(t, lines, 2)
			} else {
				require.Len(t, lines, 1)
			}

			last := lines[len(lines)-1]
			if tt.json {
				var entry map[string]any
				require.NoError(t, json.Unmarshal([]byte(last), &entry))
				assert.Equal(t, "warn", entry["level"])
				assert.Equal(t, "Raw fetch failed", entry["msg"])
				assert.Equal(t, "https://example.com/review.prompt.md", entry["url"])
			} else {
				assert.Contains(t, last, "WARN")
				assert.Contains(t, last, "Raw fetch failed")
			}
		})
	}
}
