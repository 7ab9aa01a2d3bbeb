// Package gqltest runs a scripted GraphQL endpoint for exercising clients.
// It decodes plain JSON and multipart upload requests, records them, and
// answers with whatever the Responder returns.
package gqltest

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	language "github.com/hanpama/gqlink/internal/language"
)

// Path is where the endpoint is mounted.
const Path = "/graphql"

// GraphQLRequest is the decoded operation payload.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
}

// File is one uploaded part.
type File struct {
	Part        string
	Filename    string
	ContentType string
	Content     []byte
}

// Request is what the server observed.
type Request struct {
	Header    http.Header
	Cookies   []*http.Cookie
	Multipart bool
	Operation GraphQLRequest
	// Map is the multipart "map" part: part name -> variable paths.
	Map   map[string][]string
	Files []File
}

// Response is written back as JSON. A zero Status means 200.
type Response struct {
	Status  int
	Body    any
	Raw     []byte
	Cookies []*http.Cookie
}

type Responder func(Request) Response

// Data answers every request with {"data": data}.
func Data(data any) Responder {
	return func(Request) Response { return Response{Body: map[string]any{"data": data}} }
}

// Errors answers with a null data field and one error per code.
func Errors(message string, codes ...string) Responder {
	return func(Request) Response {
		errs := make([]map[string]any, len(codes))
		for i, c := range codes {
			errs[i] = map[string]any{"message": message, "extensions": map[string]any{"code": c}}
		}
		return Response{Body: map[string]any{"data": nil, "errors": errs}}
	}
}

// Status answers with an empty body and the given status code.
func Status(code int) Responder {
	return func(Request) Response { return Response{Status: code, Raw: []byte(http.StatusText(code))} }
}

type Server struct {
	*httptest.Server

	mu        sync.Mutex
	responder Responder
	requests  []Request
}

func NewServer(r Responder) *Server {
	s := &Server{responder: r}
	router := mux.NewRouter()
	router.HandleFunc(Path, s.serveGraphQL).Methods(http.MethodPost)
	s.Server = httptest.NewServer(router)
	return s
}

// URL of the GraphQL endpoint.
func (s *Server) Endpoint() string { return s.Server.URL + Path }

func (s *Server) SetResponder(r Responder) {
	s.mu.Lock()
	s.responder = r
	s.mu.Unlock()
}

// Requests returns what has been received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	req, status, msg := parseRequest(r)
	if status != http.StatusOK {
		writeJSON(w, status, errorBody(msg))
		return
	}
	if _, err := language.ParseQuery(req.Operation.Query); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	respond := s.responder
	s.mu.Unlock()

	res := Response{Body: map[string]any{"data": nil}}
	if respond != nil {
		res = respond(req)
	}
	for _, c := range res.Cookies {
		http.SetCookie(w, c)
	}
	if res.Status == 0 {
		res.Status = http.StatusOK
	}
	if res.Raw != nil {
		w.WriteHeader(res.Status)
		_, _ = w.Write(res.Raw)
		return
	}
	writeJSON(w, res.Status, res.Body)
}

func parseRequest(r *http.Request) (Request, int, string) {
	out := Request{Header: r.Header.Clone(), Cookies: r.Cookies()}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return out, http.StatusUnsupportedMediaType, "unsupported Content-Type"
	}
	switch mt {
	case "application/json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return out, http.StatusBadRequest, "failed to read body"
		}
		if err := json.Unmarshal(body, &out.Operation); err != nil {
			return out, http.StatusBadRequest, "invalid JSON"
		}
	case "multipart/form-data":
		out.Multipart = true
		if err := parseMultipart(r, &out); err != nil {
			return out, http.StatusBadRequest, err.Error()
		}
	default:
		return out, http.StatusUnsupportedMediaType, "unsupported Content-Type"
	}
	if out.Operation.Query == "" {
		return out, http.StatusBadRequest, "missing 'query'"
	}
	return out, http.StatusOK, ""
}

func parseMultipart(r *http.Request, out *Request) error {
	mr, err := r.MultipartReader()
	if err != nil {
		return err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		content, err := io.ReadAll(part)
		if err != nil {
			return err
		}
		switch name := part.FormName(); {
		case name == "operations":
			if err := json.Unmarshal(content, &out.Operation); err != nil {
				return err
			}
		case name == "map":
			if err := json.Unmarshal(content, &out.Map); err != nil {
				return err
			}
		case strings.TrimSpace(name) != "":
			out.Files = append(out.Files, File{
				Part:        name,
				Filename:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Content:     content,
			})
		}
	}
}

func errorBody(msg string) map[string]any {
	return map[string]any{"data": nil, "errors": []map[string]any{{"message": msg}}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
