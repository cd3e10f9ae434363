// Package jsonevent wraps Go's standard streaming JSON tokenizer
// (encoding/json's Decoder.Token) and turns its raw, context-free token
// sequence into a dotted-path-aware event stream: every scalar and every
// structural boundary comes out tagged with the full path it occurs at,
// computed by pathtrack.Tracker.
//
// encoding/json.Decoder already supports reading a sequence of
// whitespace-separated top-level values from one io.Reader -- calling Token
// repeatedly past the close of one value simply continues into the next --
// so a Decoder here transparently supports concatenated top-level objects.
package jsonevent

import (
	"encoding/json"
	"io"

	"github.com/hypersoph/json2tab/pathtrack"
)

// frame tracks one open container for the purpose of telling a map key
// apart from a map value; encoding/json's tokenizer does not distinguish
// them on its own.
type frame struct {
	isArray   bool
	expectKey bool
}

// Decoder is a pull-style, finite stream of Events over a byte source.
type Decoder struct {
	dec    *json.Decoder
	tr     *pathtrack.Tracker
	frames []frame
	done   bool
}

// NewDecoder returns a Decoder reading JSON tokens from r.
func NewDecoder(r io.Reader) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{
		dec: dec,
		tr:  pathtrack.New(),
	}
}

// Next returns the next event, or io.EOF once the byte source is
// exhausted at a top-level boundary. Any other error is a terminating
// stream error: malformed JSON (a *json.SyntaxError) or a stream that ended
// mid-structure (wraps io.ErrUnexpectedEOF). Either way, whatever events
// were already yielded remain valid.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		return Event{}, io.EOF
	}

	tok, err := d.dec.Token()
	if err != nil {
		d.done = true
		if err == io.EOF && len(d.frames) > 0 {
			err = io.ErrUnexpectedEOF
		}
		return Event{}, err
	}

	kind, value, isKey := d.classify(tok)
	var basePrefix, prefix string
	if isKey {
		basePrefix, prefix = d.tr.Step(pathtrack.MapKey, value.(string))
	} else {
		basePrefix, prefix = d.tr.Step(kind, "")
	}

	return Event{
		BasePrefix: basePrefix,
		Prefix:     prefix,
		Kind:       kind,
		Value:      value,
	}, nil
}

// classify turns one raw json.Token into a (RawKind, value, isKey) triple,
// using the frame stack to decide whether a string token is a map key or a
// scalar value.
func (d *Decoder) classify(tok json.Token) (kind pathtrack.RawKind, value any, isKey bool) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			d.frames = append(d.frames, frame{expectKey: true})
			return pathtrack.StartMap, nil, false
		case '}':
			d.closeFrame()
			return pathtrack.EndMap, nil, false
		case '[':
			d.frames = append(d.frames, frame{isArray: true})
			return pathtrack.StartArray, nil, false
		default: // ']'
			d.closeFrame()
			return pathtrack.EndArray, nil, false
		}
	case string:
		if f := d.topFrame(); f != nil && !f.isArray && f.expectKey {
			f.expectKey = false
			return pathtrack.MapKey, t, true
		}
		d.markValueConsumed()
		return pathtrack.String, t, false
	case json.Number:
		d.markValueConsumed()
		return pathtrack.Number, t, false
	case bool:
		d.markValueConsumed()
		return pathtrack.Boolean, t, false
	case nil:
		d.markValueConsumed()
		return pathtrack.Null, nil, false
	default:
		d.markValueConsumed()
		return pathtrack.Null, nil, false
	}
}

func (d *Decoder) topFrame() *frame {
	if len(d.frames) == 0 {
		return nil
	}
	return &d.frames[len(d.frames)-1]
}

// markValueConsumed flips the enclosing object frame back to expecting a
// key. Arrays have no key/value alternation, so it is a no-op for them.
func (d *Decoder) markValueConsumed() {
	if f := d.topFrame(); f != nil && !f.isArray {
		f.expectKey = true
	}
}

// closeFrame pops the frame for the container that just closed and, if its
// parent is an object, marks that object's pending value as consumed.
func (d *Decoder) closeFrame() {
	if len(d.frames) > 0 {
		d.frames = d.frames[:len(d.frames)-1]
	}
	d.markValueConsumed()
}
