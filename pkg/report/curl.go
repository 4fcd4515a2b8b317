package report

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/getmockd/gqlprobe/pkg/transport"
)

// CurlCommand returns a shell command that replays query against url.
func CurlCommand(url, query string) string {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]string{"query": query})

	var b strings.Builder
	b.WriteString("curl -k -X POST ")
	b.WriteString(shellQuote(url))
	b.WriteString(" -H 'Content-Type: application/json'")
	b.WriteString(" -H " + shellQuote("User-Agent: "+transport.DefaultUserAgent))
	b.WriteString(" --data ")
	b.WriteString(shellQuote(strings.TrimSuffix(body.String(), "\n")))
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
