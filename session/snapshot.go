package session

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/axgrid/broker/encoding"
)

// encodeSnapshot serializes sessions to the on-disk snapshot layout: a u16
// count, then per entry a u16 client-id length + bytes and a session blob
// (active byte, expiry u32, u16 subscription count + filter/options pairs,
// u16 queue count + length-prefixed PUBLISH frames, and an optional
// will-message).
func encodeSnapshot(sessions []*Session) ([]byte, error) {
	var buf bytes.Buffer

	if len(sessions) > 0xFFFF {
		return nil, errors.Newf("session: snapshot holds %d sessions, exceeds u16 count", len(sessions))
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(sessions))); err != nil {
		return nil, errors.Wrap(err, "session: write count")
	}

	for _, s := range sessions {
		if err := encodeSessionEntry(&buf, s); err != nil {
			return nil, errors.Wrapf(err, "session: encode entry for %q", s.ClientID())
		}
	}

	return buf.Bytes(), nil
}

func encodeSessionEntry(buf *bytes.Buffer, s *Session) error {
	id := s.ClientID()
	if len(id) > 0xFFFF {
		return errors.New("session: client id too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(id))); err != nil {
		return err
	}
	buf.WriteString(id)

	var active byte
	if s.Active() {
		active = 1
	}
	buf.WriteByte(active)

	if err := binary.Write(buf, binary.BigEndian, s.ExpiryInterval()); err != nil {
		return err
	}

	subs := s.Subscriptions()
	if len(subs) > 0xFFFF {
		return errors.New("session: too many subscriptions")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(subs))); err != nil {
		return err
	}
	for _, f := range subs {
		if err := binary.Write(buf, binary.BigEndian, uint16(len(f))); err != nil {
			return err
		}
		buf.WriteString(f)
		buf.WriteByte(0) // subscription-options byte, reserved
	}

	frames := make([][]byte, 0)
	for _, m := range s.queueSnapshot() {
		frame, err := encodeQueuedMessage(m)
		if err != nil {
			return err
		}
		frames = append(frames, frame)
	}
	if len(frames) > 0xFFFF {
		return errors.New("session: too many queued messages")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(frames))); err != nil {
		return err
	}
	for _, frame := range frames {
		if err := binary.Write(buf, binary.BigEndian, uint32(len(frame))); err != nil {
			return err
		}
		buf.Write(frame)
	}

	will := s.Will()
	if will == nil {
		buf.WriteByte(0)
		return nil
	}
	buf.WriteByte(1)
	if err := binary.Write(buf, binary.BigEndian, uint16(len(will.Topic))); err != nil {
		return err
	}
	buf.WriteString(will.Topic)
	if err := binary.Write(buf, binary.BigEndian, uint32(len(will.Payload))); err != nil {
		return err
	}
	buf.Write(will.Payload)
	buf.WriteByte(will.QoS)
	var retain byte
	if will.Retain {
		retain = 1
	}
	buf.WriteByte(retain)

	return nil
}

// encodeQueuedMessage reuses the wire codec's PUBLISH encoder so a queued
// message's on-disk shape matches what actually goes out on reconnection.
func encodeQueuedMessage(m QueuedMessage) ([]byte, error) {
	pkt := &encoding.PublishPacket{
		FixedHeader: encoding.FixedHeader{
			QoS:    encoding.QoS(m.QoS),
			Retain: m.Retain,
		},
		TopicName:     m.Topic,
		PacketID:      1,
		Payload:       m.Payload,
		IsWillMessage: m.IsWillMessage,
	}
	var buf bytes.Buffer
	if err := pkt.Encode(&buf); err != nil {
		return nil, errors.Wrap(err, "session: encode queued PUBLISH")
	}
	return buf.Bytes(), nil
}

func decodeQueuedMessage(frame []byte) (QueuedMessage, error) {
	r := bytes.NewReader(frame)
	fh, err := encoding.ParseFixedHeader(r)
	if err != nil {
		return QueuedMessage{}, errors.Wrap(err, "session: parse queued frame header")
	}
	pkt, err := encoding.ParsePublishPacket(r, fh)
	if err != nil {
		return QueuedMessage{}, errors.Wrap(err, "session: parse queued PUBLISH")
	}
	return QueuedMessage{
		Topic:         pkt.TopicName,
		Payload:       pkt.Payload,
		QoS:           byte(fh.QoS),
		Retain:        fh.Retain,
		IsWillMessage: pkt.IsWillMessage,
		QueuedAt:      time.Now(),
	}, nil
}

// decodeSnapshot is the inverse of encodeSnapshot.
func decodeSnapshot(data []byte) ([]*Session, error) {
	r := bytes.NewReader(data)

	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "session: read count")
	}

	sessions := make([]*Session, 0, count)
	for i := uint16(0); i < count; i++ {
		s, err := decodeSessionEntry(r)
		if err != nil {
			return nil, errors.Wrapf(err, "session: decode entry %d", i)
		}
		sessions = append(sessions, s)
	}

	return sessions, nil
}

func decodeSessionEntry(r *bytes.Reader) (*Session, error) {
	var idLen uint16
	if err := binary.Read(r, binary.BigEndian, &idLen); err != nil {
		return nil, err
	}
	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return nil, err
	}

	activeByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	var expiry uint32
	if err := binary.Read(r, binary.BigEndian, &expiry); err != nil {
		return nil, err
	}

	s := New(string(idBytes), expiry)
	s.SetActive(activeByte != 0)

	var subCount uint16
	if err := binary.Read(r, binary.BigEndian, &subCount); err != nil {
		return nil, err
	}
	for i := uint16(0); i < subCount; i++ {
		var fLen uint16
		if err := binary.Read(r, binary.BigEndian, &fLen); err != nil {
			return nil, err
		}
		fBytes := make([]byte, fLen)
		if _, err := io.ReadFull(r, fBytes); err != nil {
			return nil, err
		}
		if _, err := r.ReadByte(); err != nil { // options byte, reserved
			return nil, err
		}
		s.AddSubscription(string(fBytes))
	}

	var queueCount uint16
	if err := binary.Read(r, binary.BigEndian, &queueCount); err != nil {
		return nil, err
	}
	for i := uint16(0); i < queueCount; i++ {
		var frameLen uint32
		if err := binary.Read(r, binary.BigEndian, &frameLen); err != nil {
			return nil, err
		}
		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, err
		}
		msg, err := decodeQueuedMessage(frame)
		if err != nil {
			return nil, err
		}
		s.Enqueue(msg)
	}

	willPresent, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if willPresent != 0 {
		var topicLen uint16
		if err := binary.Read(r, binary.BigEndian, &topicLen); err != nil {
			return nil, err
		}
		topicBytes := make([]byte, topicLen)
		if _, err := io.ReadFull(r, topicBytes); err != nil {
			return nil, err
		}
		var payloadLen uint32
		if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
			return nil, err
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		qos, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		retainByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		s.SetWill(&WillMessage{
			Topic:   string(topicBytes),
			Payload: payload,
			QoS:     qos,
			Retain:  retainByte != 0,
		})
	}

	return s, nil
}
