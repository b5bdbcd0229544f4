package fetch

import "bytes"

const sniffLen = 512

var htmlPrefixes = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
}

// IsHTMLInterstitial reports whether body looks like an HTML page (typically
// a sign-in or consent interstitial) rather than raw file content.
func IsHTMLInterstitial(body []byte) bool {
	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.ToLower(bytes.TrimLeft(head, " \t\r\n"))

	for _, p := range htmlPrefixes {
		if bytes.HasPrefix(head, p) {
			return true
		}
	}
	return false
}
