package http

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/matteocacciola/cheshirecat-go-sdk/serializer"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// encoded is the wire form of a request's options.
type encoded struct {
	body        io.Reader
	contentType string
	query       string
}

// encodeOptions renders opts. Every variant is handled here; an unknown
// variant is an encoding error.
func encodeOptions(opts transport.Options, s serializer.Serializer) (encoded, error) {
	switch o := opts.(type) {
	case nil, transport.NoBody:
		return encoded{}, nil
	case transport.Query:
		return encoded{query: o.Encode()}, nil
	case transport.JSON:
		b, err := s.Serialize(o.Value)
		if err != nil {
			return encoded{}, err
		}
		return encoded{body: bytes.NewReader(b), contentType: "application/json"}, nil
	case transport.Multipart:
		return encodeMultipart(o)
	default:
		return encoded{}, fmt.Errorf("unsupported request options %T", opts)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(parts transport.Multipart) (encoded, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		r, err := p.Reader()
		if err != nil {
			return encoded{}, err
		}

		h := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(p.Name))
		if p.Filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(p.Filename))
		}
		h.Set("Content-Disposition", disposition)
		switch {
		case p.ContentType != "":
			h.Set("Content-Type", p.ContentType)
		case p.Filename != "":
			h.Set("Content-Type", "application/octet-stream")
		}

		pw, err := w.CreatePart(h)
		if err != nil {
			return encoded{}, err
		}
		if _, err := io.Copy(pw, r); err != nil {
			return encoded{}, err
		}
	}
	if err := w.Close(); err != nil {
		return encoded{}, err
	}
	return encoded{body: &buf, contentType: w.FormDataContentType()}, nil
}
