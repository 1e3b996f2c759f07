/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package datastream implements the event sink that instrumented objects
// report start/end pairs to. Records nest by the order the sink sees them;
// a top-level record is published to subscribers once it ends.
package datastream

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dirpx.dev/phetio/apis"
)

// ErrMalformedRecord is returned by Decoder for lines that do not hold a record.
var ErrMalformedRecord = errors.New("phetio(datastream): malformed record")

// Record is one event with its nested children.
type Record struct {
	Index     int64          `json:"index"`
	Session   uuid.UUID      `json:"session"`
	Time      time.Time      `json:"time"`
	EventType apis.EventType `json:"eventType"`
	PhetioID  string         `json:"phetioID"`
	TypeName  string         `json:"phetioType"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Children  []*Record      `json:"children,omitempty"`
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the stream logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Stream) { s.logger = l }
}

// WithSession fixes the session id instead of generating one.
func WithSession(id uuid.UUID) Option {
	return func(s *Stream) { s.session = id }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Stream) { s.now = now }
}

// Stream is an apis.Sink that builds nested records.
type Stream struct {
	mu          sync.Mutex
	logger      zerolog.Logger
	session     uuid.UUID
	now         func() time.Time
	next        int64
	stack       []*Record
	subscribers map[int]func(*Record)
	subSeq      int
}

var _ apis.Sink = (*Stream)(nil)

// New returns a Stream with a fresh session id.
func New(opts ...Option) *Stream {
	s := &Stream{
		logger:      zerolog.Nop(),
		session:     uuid.New(),
		now:         time.Now,
		subscribers: make(map[int]func(*Record)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Session returns the session id stamped on every record.
func (s *Stream) Session() uuid.UUID { return s.session }

// Depth returns the number of open records.
func (s *Stream) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

// Subscribe registers fn for completed top-level records and returns a
// function that removes it.
func (s *Stream) Subscribe(fn func(*Record)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.subSeq
	s.subSeq++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Start implements apis.Sink.
func (s *Stream) Start(eventType apis.EventType, phetioID, typeName, event string, data, metadata map[string]any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Record{
		Index:     s.next,
		Session:   s.session,
		Time:      s.now(),
		EventType: eventType,
		PhetioID:  phetioID,
		TypeName:  typeName,
		Event:     event,
		Data:      data,
		Metadata:  metadata,
	}
	s.next++
	if n := len(s.stack); n > 0 {
		parent := s.stack[n-1]
		parent.Children = append(parent.Children, r)
	}
	s.stack = append(s.stack, r)
	return r.Index
}

// End implements apis.Sink. Ending a record that is not on top closes every
// record opened after it as well.
func (s *Stream) End(id int64) {
	s.mu.Lock()
	at := -1
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].Index == id {
			at = i
			break
		}
	}
	if at < 0 {
		s.mu.Unlock()
		s.logger.Warn().Int64("index", id).Msg("end for unknown event")
		return
	}
	if at != len(s.stack)-1 {
		s.logger.Warn().
			Int64("index", id).
			Int("open", len(s.stack)-1-at).
			Msg("event ended out of order, closing nested events")
	}
	root := s.stack[0]
	s.stack = s.stack[:at]

	var subs []func(*Record)
	if at == 0 {
		subs = make([]func(*Record), 0, len(s.subscribers))
		for i := 0; i < s.subSeq; i++ {
			if fn, ok := s.subscribers[i]; ok {
				subs = append(subs, fn)
			}
		}
	}
	s.mu.Unlock()

	// Subscribers may emit; call them unlocked.
	for _, fn := range subs {
		fn(root)
	}
}

// Encoder writes records as JSON lines.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Encode writes r followed by a newline.
func (e *Encoder) Encode(r *Record) error {
	return e.enc.Encode(r)
}

// Decoder reads JSON-lines records.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{dec: dec}
}

// Decode returns the next record, or io.EOF.
func (d *Decoder) Decode() (*Record, error) {
	var r Record
	if err := d.dec.Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Join(ErrMalformedRecord, err)
	}
	return &r, nil
}

// Nop returns a sink that hands out sequence ids and records nothing.
func Nop() apis.Sink {
	return &nopSink{}
}

type nopSink struct {
	mu   sync.Mutex
	next int64
}

func (n *nopSink) Start(apis.EventType, string, string, string, map[string]any, map[string]any) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	return id
}

func (*nopSink) End(int64) {}
