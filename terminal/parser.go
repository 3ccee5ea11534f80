package terminal

import "strings"

// parserState is one of the closed set of states in the escape-sequence
// state machine. Transitions are selected purely by (state, byte) so the
// hot path stays branch-predictable and table-testable.
type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeIntermediate
	stateCsiEntry
	stateCsiParam
	stateCsiIntermediate
	stateCsiIgnore
	stateDcsEntry
	stateDcsParam
	stateDcsIntermediate
	stateDcsPassthrough
	stateDcsIgnore
	stateOscString
	stateSosPmApcString
)

type actionKind int

const (
	actionPrint actionKind = iota
	actionExecute
	actionCsiDispatch
	actionEscDispatch
	actionOscDispatch
	actionDcsHook
	actionDcsPut
	actionDcsUnhook
)

// action is a single decoded event emitted by the parser. Only the fields
// relevant to its kind are populated.
type action struct {
	kind          actionKind
	r             rune     // actionPrint
	b             byte     // actionExecute, actionDcsPut
	params        []uint16 // actionCsiDispatch, actionDcsHook
	intermediates []byte   // actionCsiDispatch, actionEscDispatch, actionDcsHook
	final         byte     // actionCsiDispatch, actionEscDispatch, actionDcsHook
	oscParams     []string // actionOscDispatch
}

// parser converts a raw byte stream into actions, one byte per call.
// Malformed sequences resynchronize to ground without emitting anything;
// no input can put the parser into an invalid state.
type parser struct {
	state         parserState
	params        []uint16
	currentParam  uint16
	intermediates []byte
	oscString     strings.Builder
}

func newParser() *parser {
	return &parser{state: stateGround}
}

// parse feeds one byte through the state machine. The bool result reports
// whether an action was produced.
func (p *parser) parse(b byte) (action, bool) {
	switch p.state {
	case stateGround:
		return p.ground(b)
	case stateEscape:
		return p.escape(b)
	case stateEscapeIntermediate:
		return p.escapeIntermediate(b)
	case stateCsiEntry:
		return p.csiEntry(b)
	case stateCsiParam:
		return p.csiParam(b)
	case stateCsiIntermediate:
		return p.csiIntermediate(b)
	case stateCsiIgnore:
		return p.csiIgnore(b)
	case stateDcsEntry:
		return p.dcsEntry(b)
	case stateDcsParam:
		return p.dcsParam(b)
	case stateDcsIntermediate:
		return p.dcsIntermediate(b)
	case stateDcsPassthrough:
		return p.dcsPassthrough(b)
	case stateDcsIgnore:
		return p.dcsIgnore(b)
	case stateOscString:
		return p.oscStringState(b)
	case stateSosPmApcString:
		return p.sosPmApcString(b)
	}
	return action{}, false
}

func (p *parser) clear() {
	p.params = p.params[:0]
	p.currentParam = 0
	p.intermediates = p.intermediates[:0]
	p.oscString.Reset()
}

func (p *parser) collectParam() {
	p.params = append(p.params, p.currentParam)
	p.currentParam = 0
}

func (p *parser) collectDigit(b byte) {
	// saturating accumulate; hostile inputs like ESC[99999999999m must not wrap
	v := uint32(p.currentParam)*10 + uint32(b-'0')
	if v > 0xFFFF {
		v = 0xFFFF
	}
	p.currentParam = uint16(v)
}

func (p *parser) csiDispatch(final byte) (action, bool) {
	p.collectParam()
	p.state = stateGround
	return action{
		kind:          actionCsiDispatch,
		params:        append([]uint16(nil), p.params...),
		intermediates: append([]byte(nil), p.intermediates...),
		final:         final,
	}, true
}

func (p *parser) escDispatch(final byte) (action, bool) {
	p.state = stateGround
	return action{
		kind:          actionEscDispatch,
		intermediates: append([]byte(nil), p.intermediates...),
		final:         final,
	}, true
}

func (p *parser) dcsHook(final byte) (action, bool) {
	p.collectParam()
	p.state = stateDcsPassthrough
	return action{
		kind:          actionDcsHook,
		params:        append([]uint16(nil), p.params...),
		intermediates: append([]byte(nil), p.intermediates...),
		final:         final,
	}, true
}

func (p *parser) oscDispatch() action {
	return action{kind: actionOscDispatch, oscParams: strings.Split(p.oscString.String(), ";")}
}

func isExecute(b byte) bool {
	return b <= 0x17 || b == 0x19 || (b >= 0x1C && b <= 0x1F)
}

func (p *parser) ground(b byte) (action, bool) {
	switch {
	case isExecute(b):
		return action{kind: actionExecute, b: b}, true
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	case b >= 0x20 && b <= 0x7F:
		return action{kind: actionPrint, r: rune(b)}, true
	case b == 0x90:
		p.state = stateDcsEntry
		p.clear()
	case b == 0x9B:
		p.state = stateCsiEntry
		p.clear()
	case b == 0x9D:
		p.state = stateOscString
		p.clear()
	case b == 0x98 || b == 0x9E || b == 0x9F:
		p.state = stateSosPmApcString
	case b == 0x9C:
		// ST with nothing to terminate
	case b >= 0x80 && b <= 0x9A:
		// remaining C1 controls execute directly
		return action{kind: actionExecute, b: b}, true
	case b >= 0xA0:
		return action{kind: actionPrint, r: rune(b)}, true
	}
	return action{}, false
}

func (p *parser) escape(b byte) (action, bool) {
	switch {
	case isExecute(b):
		return action{kind: actionExecute, b: b}, true
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
		p.state = stateEscapeIntermediate
	case b == 0x50:
		p.state = stateDcsEntry
		p.clear()
	case b == 0x58 || b == 0x5E || b == 0x5F:
		p.state = stateSosPmApcString
	case b == 0x5B:
		p.state = stateCsiEntry
		p.clear()
	case b == 0x5D:
		p.state = stateOscString
		p.clear()
	case b >= 0x30 && b <= 0x7E:
		// includes the remaining 0x30-0x4F, 0x51-0x57, 0x59, 0x5A, 0x5C, 0x60-0x7E finals
		return p.escDispatch(b)
	case b == 0x7F:
		// ignore
	case b == 0x1B:
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) escapeIntermediate(b byte) (action, bool) {
	switch {
	case isExecute(b):
		return action{kind: actionExecute, b: b}, true
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
	case b >= 0x30 && b <= 0x7E:
		return p.escDispatch(b)
	case b == 0x7F:
		// ignore
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) csiEntry(b byte) (action, bool) {
	switch {
	case isExecute(b):
		return action{kind: actionExecute, b: b}, true
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
		p.state = stateCsiIntermediate
	case b >= 0x30 && b <= 0x39:
		p.currentParam = uint16(b - '0')
		p.state = stateCsiParam
	case b == 0x3A:
		p.state = stateCsiIgnore
	case b == 0x3B:
		p.collectParam()
		p.state = stateCsiParam
	case b >= 0x3C && b <= 0x3F:
		p.intermediates = append(p.intermediates, b)
		p.state = stateCsiParam
	case b >= 0x40 && b <= 0x7E:
		return p.csiDispatch(b)
	case b == 0x7F:
		// ignore
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) csiParam(b byte) (action, bool) {
	switch {
	case isExecute(b):
		return action{kind: actionExecute, b: b}, true
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
		p.state = stateCsiIntermediate
	case b >= 0x30 && b <= 0x39:
		p.collectDigit(b)
	case b == 0x3A:
		p.state = stateCsiIgnore
	case b == 0x3B:
		p.collectParam()
	case b >= 0x3C && b <= 0x3F:
		p.state = stateCsiIgnore
	case b >= 0x40 && b <= 0x7E:
		return p.csiDispatch(b)
	case b == 0x7F:
		// ignore
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) csiIntermediate(b byte) (action, bool) {
	switch {
	case isExecute(b):
		return action{kind: actionExecute, b: b}, true
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
	case b >= 0x30 && b <= 0x3F:
		p.state = stateCsiIgnore
	case b >= 0x40 && b <= 0x7E:
		return p.csiDispatch(b)
	case b == 0x7F:
		// ignore
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) csiIgnore(b byte) (action, bool) {
	switch {
	case isExecute(b):
		return action{kind: actionExecute, b: b}, true
	case b >= 0x20 && b <= 0x3F, b == 0x7F:
		// swallow
	case b >= 0x40 && b <= 0x7E:
		p.state = stateGround
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) dcsEntry(b byte) (action, bool) {
	switch {
	case isExecute(b) || b == 0x7F:
		// ignore
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
		p.state = stateDcsIntermediate
	case b >= 0x30 && b <= 0x39:
		p.currentParam = uint16(b - '0')
		p.state = stateDcsParam
	case b == 0x3A:
		p.state = stateDcsIgnore
	case b == 0x3B:
		p.collectParam()
		p.state = stateDcsParam
	case b >= 0x3C && b <= 0x3F:
		p.intermediates = append(p.intermediates, b)
		p.state = stateDcsParam
	case b >= 0x40 && b <= 0x7E:
		return p.dcsHook(b)
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) dcsParam(b byte) (action, bool) {
	switch {
	case isExecute(b) || b == 0x7F:
		// ignore
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
		p.state = stateDcsIntermediate
	case b >= 0x30 && b <= 0x39:
		p.collectDigit(b)
	case b == 0x3A, b >= 0x3C && b <= 0x3F:
		p.state = stateDcsIgnore
	case b == 0x3B:
		p.collectParam()
	case b >= 0x40 && b <= 0x7E:
		return p.dcsHook(b)
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) dcsIntermediate(b byte) (action, bool) {
	switch {
	case isExecute(b) || b == 0x7F:
		// ignore
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
	case b >= 0x30 && b <= 0x3F:
		p.state = stateDcsIgnore
	case b >= 0x40 && b <= 0x7E:
		return p.dcsHook(b)
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) dcsPassthrough(b byte) (action, bool) {
	switch {
	case isExecute(b) || (b >= 0x20 && b <= 0x7E):
		return action{kind: actionDcsPut, b: b}, true
	case b == 0x7F:
		// ignore
	case b == 0x9C:
		p.state = stateGround
		return action{kind: actionDcsUnhook}, true
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
		return action{kind: actionDcsUnhook}, true
	default:
		p.state = stateGround
		return action{kind: actionDcsUnhook}, true
	}
	return action{}, false
}

func (p *parser) dcsIgnore(b byte) (action, bool) {
	switch {
	case isExecute(b) || (b >= 0x20 && b <= 0x7F):
		// swallow
	case b == 0x9C:
		p.state = stateGround
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		p.state = stateGround
	}
	return action{}, false
}

func (p *parser) oscStringState(b byte) (action, bool) {
	switch {
	case b <= 0x06 || (b >= 0x08 && b <= 0x17) || b == 0x19 || (b >= 0x1C && b <= 0x1F):
		// control bytes other than the terminators are dropped
	case b == 0x07 || b == 0x9C:
		p.state = stateGround
		return p.oscDispatch(), true
	case b == 0x1B:
		// ESC aborts the string but still delivers what accumulated,
		// matching BEL-less "ESC ] ... ESC \" termination
		p.state = stateEscape
		a := p.oscDispatch()
		p.clear()
		return a, true
	default:
		p.oscString.WriteByte(b)
	}
	return action{}, false
}

func (p *parser) sosPmApcString(b byte) (action, bool) {
	switch {
	case b == 0x9C:
		p.state = stateGround
	case b == 0x1B:
		p.state = stateEscape
		p.clear()
	default:
		// SOS/PM/APC bodies are consumed and discarded
	}
	return action{}, false
}
