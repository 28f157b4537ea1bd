package queue

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// InputRef points at one input file the worker reads from shared storage.
type InputRef struct {
	Path     string `json:"path"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename"`
}

// JobRequest is the payload carried on the compression stream.
type JobRequest struct {
	Token       string     `json:"token"`
	TargetMB    int        `json:"target_mb"`
	Inputs      []InputRef `json:"inputs"`
	Fingerprint string     `json:"fingerprint"`
	SubmittedAt time.Time  `json:"submitted_at"`
	Attempt     int        `json:"attempt,omitempty"`
}

// Marshal encodes the request for the stream.
func (r JobRequest) Marshal() ([]byte, error) { return json.Marshal(r) }

// DecodeJob parses a stream payload.
func DecodeJob(payload []byte) (JobRequest, error) {
	var r JobRequest
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, fmt.Errorf("decode job: %w", err)
	}
	if r.Token == "" {
		return r, fmt.Errorf("decode job: missing token")
	}
	return r, nil
}

// Fingerprint identifies a job by its target and the exact input bytes, in order.
// Identical submissions share a fingerprint, which keys the idempotency marker.
func Fingerprint(targetMB int, contents ...[]byte) string {
	h, _ := blake2b.New256(nil)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(targetMB))
	h.Write(n[:])
	for _, c := range contents {
		binary.BigEndian.PutUint64(n[:], uint64(len(c)))
		h.Write(n[:])
		h.Write(c)
	}
	return hex.EncodeToString(h.Sum(nil))
}
