// Package workerproc parses and processes match-proposal queue messages.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"complai-backend/internal/evidence"
	"complai-backend/internal/queue"
)

// Processor runs a match proposal for one artifact.
type Processor interface {
	ProposeMatches(ctx context.Context, orgID, artifactID string) ([]evidence.Match, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingArtifactID indicates a message without an artifact id.
type ErrMissingArtifactID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingArtifactID) Error() string { return "missing artifact id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	OrgID      string
	ArtifactID string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process match proposal"
	}
	return "process match proposal: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ArtifactID) == "" {
		return msg, meta, ErrMissingArtifactID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, p Processor, body string) error {
	if p == nil {
		return errors.New("match proposal processor not configured")
	}

	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}

	if _, err := p.ProposeMatches(ctx, msg.OrgID, msg.ArtifactID); err != nil {
		return ErrProcess{OrgID: msg.OrgID, ArtifactID: msg.ArtifactID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
