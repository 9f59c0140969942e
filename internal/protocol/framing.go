package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload WriteFrame will emit and ReadFrame
// will accept. Raw stream reads give no message boundaries, so every frame
// is preceded by a 4-byte big-endian length prefix.
const MaxFrameSize = 64 * 1024

// ErrFrameTooLarge is returned when a frame's declared length exceeds
// MaxFrameSize.
var ErrFrameTooLarge = fmt.Errorf("protocol: frame exceeds %d bytes", MaxFrameSize)

// ErrMalformedPayload wraps JSON decode failures on a fully consumed frame.
// The stream itself is still framed correctly, so callers may drop the
// payload and keep reading; every other read error means the stream is gone
// or desynchronized.
var ErrMalformedPayload = errors.New("protocol: malformed payload")

// WriteFrame writes one length-prefixed payload to w.
//
// Precondition: len(payload) <= MaxFrameSize.
// Postcondition: Exactly 4+len(payload) bytes are written, or an error.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed payload from r.
//
// Postcondition: Returns the payload bytes, io.EOF when the peer closed the
// stream cleanly at a frame boundary, or an error.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame header: %w", err)
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return payload, nil
}

// WriteRequest encodes req as JSON and writes it as one frame.
func WriteRequest(w io.Writer, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return WriteFrame(w, data)
}

// ReadRequest reads one frame and decodes it as a Request.
//
// Postcondition: Returns a decoded Request, or an error; when the frame was
// well formed but its payload did not decode, the error matches
// ErrMalformedPayload and no further frames were consumed.
func ReadRequest(r io.Reader) (Request, error) {
	data, err := ReadFrame(r)
	if err != nil {
		return Request{}, err
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: decoding request: %v", ErrMalformedPayload, err)
	}
	return req, nil
}

// WriteResponse encodes resp as JSON and writes it as one frame.
func WriteResponse(w io.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	return WriteFrame(w, data)
}

// ReadResponse reads one frame and decodes it as a Response.
func ReadResponse(r io.Reader) (Response, error) {
	data, err := ReadFrame(r)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: decoding response: %v", ErrMalformedPayload, err)
	}
	return resp, nil
}
