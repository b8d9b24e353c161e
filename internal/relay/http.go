package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

// StatusError is a non-200 answer from the inference endpoint.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference endpoint returned %d: %s", e.Status, e.Message)
}

// HTTPInference posts {prompt} to the chat endpoint and reads the
// text/plain reply as it streams in.
type HTTPInference struct {
	endpoint string
	client   *http.Client
}

func NewHTTPInference(endpoint string, client *http.Client) *HTTPInference {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPInference{endpoint: endpoint, client: client}
}

func (h *HTTPInference) Open(ctx context.Context, prompt string) (Stream, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
		return nil, &StatusError{Status: resp.StatusCode, Message: body.Error}
	}

	return &httpStream{body: resp.Body, buf: make([]byte, 4096)}, nil
}

type httpStream struct {
	body  io.ReadCloser
	buf   []byte
	carry []byte
	done  error
}

// Next never splits a UTF-8 sequence across fragments; an incomplete
// trailing sequence waits for the next read.
func (s *httpStream) Next(ctx context.Context) (string, error) {
	for {
		if s.done != nil {
			if s.done == io.EOF && len(s.carry) > 0 {
				fragment := string(s.carry)
				s.carry = nil
				return fragment, nil
			}
			return "", s.done
		}
		if err := ctx.Err(); err != nil {
			s.done = err
			continue
		}

		n, err := s.body.Read(s.buf)
		if err != nil {
			s.done = err
		}
		if n == 0 {
			continue
		}

		data := append(s.carry, s.buf[:n]...)
		cut := completeLen(data)
		s.carry = append([]byte(nil), data[cut:]...)
		if cut > 0 {
			return string(data[:cut]), nil
		}
	}
}

func (s *httpStream) Close() error {
	return s.body.Close()
}

// completeLen is the length of the longest prefix of b that does not end
// inside a multi-byte sequence.
func completeLen(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
