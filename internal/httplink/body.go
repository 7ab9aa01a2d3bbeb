package httplink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/hanpama/gqlink/internal/link"
)

type payload struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
}

func newPayload(op *link.Operation) payload {
	vars := op.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	return payload{Query: op.Query, OperationName: op.Name, Variables: vars}
}

// encodeJSON returns a plain JSON body.
func encodeJSON(op *link.Operation) (io.Reader, string, error) {
	b, err := json.Marshal(newPayload(op))
	if err != nil {
		return nil, "", fmt.Errorf("httplink: encode operation: %w", err)
	}
	return bytes.NewReader(b), "application/json", nil
}

// encodeMultipart follows the GraphQL multipart request layout: an
// "operations" part with every upload variable set to null, a "map" part
// from part name to variable path, then one part per upload.
func encodeMultipart(op *link.Operation) (io.Reader, string, error) {
	p := newPayload(op)
	vars, err := normalize(p.Variables)
	if err != nil {
		return nil, "", fmt.Errorf("httplink: encode operation: %w", err)
	}
	p.Variables = vars
	fileMap := make(map[string][]string, len(op.Uploads))
	for i, u := range op.Uploads {
		if u.Path == "" || u.Body == nil {
			return nil, "", fmt.Errorf("%w: upload %d needs a path and a body", ErrInvalidUpload, i)
		}
		if err := setNull(p.Variables, strings.Split(u.Path, ".")); err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrInvalidUpload, u.Path, err)
		}
		fileMap[strconv.Itoa(i)] = []string{"variables." + u.Path}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	operations, err := json.Marshal(p)
	if err != nil {
		return nil, "", fmt.Errorf("httplink: encode operation: %w", err)
	}
	mapping, err := json.Marshal(fileMap)
	if err != nil {
		return nil, "", fmt.Errorf("httplink: encode map: %w", err)
	}
	if err := w.WriteField("operations", string(operations)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("map", string(mapping)); err != nil {
		return nil, "", err
	}
	for i, u := range op.Uploads {
		h := make(textproto.MIMEHeader)
		name := u.Filename
		if name == "" {
			name = "blob"
		}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%d"; filename="%s"`, i, escapeQuotes(name)))
		ct := u.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, u.Body); err != nil {
			return nil, "", fmt.Errorf("httplink: read upload %s: %w", u.Path, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// setNull writes nil at path inside vars. Every segment but the last must
// address an existing object or list element.
func setNull(vars map[string]any, path []string) error {
	var cur any = vars
	for i, seg := range path {
		last := i == len(path)-1
		switch c := cur.(type) {
		case map[string]any:
			if last {
				c[seg] = nil
				return nil
			}
			next, ok := c[seg]
			if !ok || next == nil {
				return fmt.Errorf("segment %q is missing", seg)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return fmt.Errorf("index %q out of range", seg)
			}
			if last {
				c[idx] = nil
				return nil
			}
			cur = c[idx]
		default:
			return fmt.Errorf("segment %q is not an object or list", seg)
		}
	}
	return fmt.Errorf("empty path")
}

// normalize returns a deep copy of m made of plain JSON values, so typed
// slices, maps and structs can be walked by setNull.
func normalize(m map[string]any) (map[string]any, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
