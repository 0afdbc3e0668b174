// Package httpecho implements a minimal HTTP/1.x echo responder, suitable
// for use as an iotask receive hook.
package httpecho

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"
)

// ErrUnsupportedProtocol is returned for requests that are not HTTP/1.x.
var ErrUnsupportedProtocol = errors.New("httpecho: unsupported protocol")

// Handle parses a single HTTP/1.x request from data, and returns a 200 OK
// response, echoing the request body, or the request line if the body is
// empty. The request must be complete, including any body declared by
// Content-Length. Malformed or truncated requests return an error.
//
// It has the signature of iotask.ReceiveFunc.
func Handle(data []byte, peer netip.AddrPort) ([]byte, error) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("httpecho: parse request from %s: %w", peer, err)
	}
	defer req.Body.Close()

	if req.ProtoMajor != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, req.Proto)
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("httpecho: read body from %s: %w", peer, err)
	}

	if len(body) == 0 {
		body = []byte(req.Method + " " + req.RequestURI + " " + req.Proto)
	}

	return Response(http.StatusOK, body), nil
}

// Response encodes an HTTP/1.1 response with a text/plain body.
func Response(status int, body []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(body) + 96)
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(status))
	b.WriteByte(' ')
	b.WriteString(http.StatusText(status))
	b.WriteString("\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Length: ")
	b.WriteString(strconv.Itoa(len(body)))
	b.WriteString("\r\n\r\n")
	b.Write(body)
	return b.Bytes()
}
