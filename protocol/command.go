package protocol

import (
	"bytes"
	"strconv"
)

// Command is one logical request. Every command has exactly one wire
// encoding, produced by Encode. Which fields are meaningful depends on the
// command family: store commands use Key, Flags, Expire, Value and
// optionally Cas; fetch commands use Keys; arithmetic uses Key and Delta.
type Command struct {
	Name    string
	Key     string
	Keys    []string // fetch family and stats arguments
	Flags   uint16
	Expire  int32 // expiry in seconds; reused as the delay for flush_all
	Delta   uint64
	Cas     string // cas command only
	Value   []byte
	NoReply bool
}

// Encode produces the wire form of the command. Keys are validated here,
// so an invalid request fails client-side before anything is sent.
func (c *Command) Encode() ([]byte, error) {
	var buf bytes.Buffer

	switch c.Name {
	case CmdSet, CmdAdd, CmdReplace, CmdAppend, CmdPrepend, CmdCas:
		if err := ValidateKey(c.Key); err != nil {
			return nil, err
		}
		buf.WriteString(c.Name)
		buf.WriteByte(' ')
		buf.WriteString(c.Key)
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatUint(uint64(c.Flags), 10))
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(int64(c.Expire), 10))
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(len(c.Value)))
		if c.Name == CmdCas {
			buf.WriteByte(' ')
			buf.WriteString(c.Cas)
		}
		c.writeNoReply(&buf)
		buf.WriteString(CRLF)
		buf.Write(c.Value)
		buf.WriteString(CRLF)

	case CmdGet, CmdGets:
		if len(c.Keys) == 0 {
			return nil, NewError(KindClientError, "no keys")
		}
		buf.WriteString(c.Name)
		for _, key := range c.Keys {
			if err := ValidateKey(key); err != nil {
				return nil, err
			}
			buf.WriteByte(' ')
			buf.WriteString(key)
		}
		buf.WriteString(CRLF)

	case CmdDelete:
		if err := ValidateKey(c.Key); err != nil {
			return nil, err
		}
		buf.WriteString(c.Name)
		buf.WriteByte(' ')
		buf.WriteString(c.Key)
		c.writeNoReply(&buf)
		buf.WriteString(CRLF)

	case CmdIncr, CmdDecr:
		if err := ValidateKey(c.Key); err != nil {
			return nil, err
		}
		buf.WriteString(c.Name)
		buf.WriteByte(' ')
		buf.WriteString(c.Key)
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatUint(c.Delta, 10))
		c.writeNoReply(&buf)
		buf.WriteString(CRLF)

	case CmdTouch:
		if err := ValidateKey(c.Key); err != nil {
			return nil, err
		}
		buf.WriteString(c.Name)
		buf.WriteByte(' ')
		buf.WriteString(c.Key)
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(int64(c.Expire), 10))
		c.writeNoReply(&buf)
		buf.WriteString(CRLF)

	case CmdFlushAll:
		buf.WriteString(c.Name)
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(int64(c.Expire), 10))
		c.writeNoReply(&buf)
		buf.WriteString(CRLF)

	case CmdStats:
		buf.WriteString(c.Name)
		for _, arg := range c.Keys {
			buf.WriteByte(' ')
			buf.WriteString(arg)
		}
		buf.WriteString(CRLF)

	case CmdVersion, CmdQuit:
		buf.WriteString(c.Name)
		buf.WriteString(CRLF)

	default:
		return nil, NewError(KindClientError, "unknown command "+c.Name)
	}

	return buf.Bytes(), nil
}

func (c *Command) writeNoReply(buf *bytes.Buffer) {
	if c.NoReply {
		buf.WriteString(" noreply")
	}
}
