package protocol

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"
)

var (
	errorLineBytes   = []byte(tokenError)
	clientErrorBytes = []byte(tokenClientError)
	serverErrorBytes = []byte(tokenServerError)
	valuePrefix      = []byte(TokenValue + " ")
	endLineBytes     = []byte(TokenEnd)
)

// storeResults is the closed set of valid outcome tokens per store command.
var storeResults = map[string][]string{
	CmdSet:     {TokenStored},
	CmdAdd:     {TokenStored, TokenNotStored},
	CmdReplace: {TokenStored, TokenNotStored},
	CmdAppend:  {TokenStored, TokenNotStored},
	CmdPrepend: {TokenStored, TokenNotStored},
	CmdCas:     {TokenStored, TokenExists, TokenNotFound},
}

// Excerpt returns at most excerptLen bytes of line for diagnostics.
func Excerpt(line []byte) string {
	if len(line) > excerptLen {
		line = line[:excerptLen]
	}
	return string(line)
}

// ClassifyErrorLine reports whether line is one of the protocol's error
// responses, in priority order ERROR, CLIENT_ERROR, SERVER_ERROR. It
// returns nil for any other line. cmdName names the command the error is
// attributed to.
func ClassifyErrorLine(line []byte, cmdName string) error {
	if bytes.HasPrefix(line, errorLineBytes) {
		return NewError(KindUnknownCommand, cmdName)
	}
	if bytes.HasPrefix(line, clientErrorBytes) {
		return NewError(KindClientError, errorDetail(line))
	}
	if bytes.HasPrefix(line, serverErrorBytes) {
		return NewError(KindServerError, errorDetail(line))
	}
	return nil
}

// errorDetail is the remainder of an error line after the first space, or
// the whole line when there is none.
func errorDetail(line []byte) string {
	if idx := bytes.IndexByte(line, ' '); idx >= 0 {
		return string(line[idx+1:])
	}
	return string(line)
}

// ClassifyStoreReply maps a store-family response line to its outcome
// token. Any line outside the command's valid outcome set is an
// unknown-response error carrying a bounded excerpt of the line.
func ClassifyStoreReply(cmdName string, line []byte) (string, error) {
	if err := ClassifyErrorLine(line, cmdName); err != nil {
		return "", err
	}
	for _, token := range storeResults[cmdName] {
		if string(line) == token {
			return token, nil
		}
	}
	slog.Debug("memcache: unexpected store reply", "command", cmdName, "line", Excerpt(line))
	return "", NewError(KindUnknownResponse, Excerpt(line))
}

// ValueHeader is a parsed "VALUE <key> <flags> <size> [<cas>]" line.
type ValueHeader struct {
	Key   string
	Flags uint16
	Size  int
	Cas   string
}

// parseValueHeader parses a VALUE line. withCas selects the gets form.
func parseValueHeader(line []byte, withCas bool) (ValueHeader, error) {
	fields := strings.Fields(string(line))
	want := 4
	if withCas {
		want = 5
	}
	if len(fields) != want || fields[0] != TokenValue {
		return ValueHeader{}, NewError(KindUnknownResponse, Excerpt(line))
	}

	flags, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return ValueHeader{}, NewError(KindUnknownResponse, Excerpt(line))
	}
	size, err := strconv.Atoi(fields[3])
	if err != nil || size < 0 {
		return ValueHeader{}, NewError(KindUnknownResponse, Excerpt(line))
	}

	header := ValueHeader{
		Key:   fields[1],
		Flags: uint16(flags),
		Size:  size,
	}
	if withCas {
		header.Cas = fields[4]
	}
	return header, nil
}

// Value is one returned entry of a fetch reply.
type Value struct {
	ValueHeader
	Data []byte
}

// ReadValues reads a complete fetch reply: zero or more VALUE headers each
// followed by its data block, terminated by END. Keys the server did not
// return are simply absent from the result.
func ReadValues(r *Reader, cmdName string, withCas bool) ([]Value, error) {
	var values []Value
	for {
		line, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		if err := ClassifyErrorLine(line, cmdName); err != nil {
			return nil, err
		}
		if bytes.Equal(line, endLineBytes) {
			return values, nil
		}
		if !bytes.HasPrefix(line, valuePrefix) {
			slog.Debug("memcache: unexpected fetch reply", "command", cmdName, "line", Excerpt(line))
			return nil, NewError(KindUnknownResponse, Excerpt(line))
		}

		header, err := parseValueHeader(line, withCas)
		if err != nil {
			return nil, err
		}
		data, err := r.ReadValue(header.Size)
		if err != nil {
			return nil, err
		}
		values = append(values, Value{ValueHeader: header, Data: data})
	}
}

// ReadStats reads a stats reply: "STAT <name> <value>" lines up to END.
func ReadStats(r *Reader, cmdName string) (map[string]string, error) {
	stats := make(map[string]string)
	for {
		line, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		if err := ClassifyErrorLine(line, cmdName); err != nil {
			return nil, err
		}
		if bytes.Equal(line, endLineBytes) {
			return stats, nil
		}

		text, ok := strings.CutPrefix(string(line), TokenStat+" ")
		if !ok {
			return nil, NewError(KindUnknownResponse, Excerpt(line))
		}
		name, value, ok := strings.Cut(text, " ")
		if !ok {
			return nil, NewError(KindUnknownResponse, Excerpt(line))
		}
		stats[name] = value
	}
}
