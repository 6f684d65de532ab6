package dnswire

import "fmt"

// Message is a decoded DNS message: header, questions, and answers. The
// flow inspector never needs authority or additional records, so they are
// not decoded — walking past them would cost work for information nothing
// downstream consumes.
type Message struct {
	Header    Header
	Questions []Question
	Answers   []Record
}

// Marshal serializes a message to wire format. NSCount/ARCount are always
// zero since Message never carries those sections.
func (m Message) Marshal() ([]byte, error) {
	h := Header{
		ID:      m.Header.ID,
		Flags:   m.Header.Flags,
		QDCount: uint16(len(m.Questions)),
		ANCount: uint16(len(m.Answers)),
	}
	hb, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderSize+len(m.Questions)*32+len(m.Answers)*64)
	out = append(out, hb...)
	for _, q := range m.Questions {
		qb, err := q.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, qb...)
	}
	for _, rr := range m.Answers {
		rb, err := rr.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, rb...)
	}
	return out, nil
}

// ParseMessage decodes a DNS message's header, questions, and answers.
// Any structural error (short buffer, bad compression, count mismatch)
// fails the whole parse — there is no such thing as a partial Message.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) > MaxMessageSize {
		return Message{}, fmt.Errorf("%w: message too large (%d bytes)", ErrDNSError, len(msg))
	}

	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		return Message{}, err
	}
	if int(h.QDCount) > MaxQuestions {
		return Message{}, fmt.Errorf("%w: too many questions (%d)", ErrDNSError, h.QDCount)
	}
	if int(h.ANCount) > MaxRRPerSection {
		return Message{}, fmt.Errorf("%w: too many answer records (%d)", ErrDNSError, h.ANCount)
	}

	m := Message{Header: h}
	m.Questions = make([]Question, 0, h.QDCount)
	for range h.QDCount {
		q, err := ParseQuestion(msg, &off)
		if err != nil {
			return Message{}, err
		}
		m.Questions = append(m.Questions, q)
	}
	m.Answers = make([]Record, 0, h.ANCount)
	for range h.ANCount {
		rr, err := ParseRecord(msg, &off)
		if err != nil {
			return Message{}, err
		}
		m.Answers = append(m.Answers, rr)
	}
	return m, nil
}
