// Package source resolves the three image input channels (upload, base64, URL) to raw bytes.
package source

// Kind identifies the input channel of an image.
type Kind string

// Input channels.
const (
	KindFile   Kind = "file"
	KindBase64 Kind = "base64"
	KindURL    Kind = "url"
)

// Source is exactly one image input. Construct it with FromFile, FromBase64 or FromURL.
type Source struct {
	kind Kind
	data []byte
	text string
}

// FromFile wraps uploaded image bytes.
func FromFile(data []byte) Source {
	return Source{kind: KindFile, data: data}
}

// FromBase64 wraps a base64 payload, optionally carrying a data URI prefix.
func FromBase64(payload string) Source {
	return Source{kind: KindBase64, text: payload}
}

// FromURL wraps a remote image address.
func FromURL(url string) Source {
	return Source{kind: KindURL, text: url}
}

// Kind returns the input channel.
func (s Source) Kind() Kind { return s.kind }

// URL returns the remote address for KindURL sources and "" otherwise.
func (s Source) URL() string {
	if s.kind != KindURL {
		return ""
	}
	return s.text
}
