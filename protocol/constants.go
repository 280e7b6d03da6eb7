// Package protocol implements the classic memcached text wire protocol:
// incremental line/value framing over a byte stream, command encoding, and
// response classification. It knows nothing about sockets; the client
// package owns the connection.
package protocol

// Command names of the classic memcached text protocol.
const (
	CmdSet     = "set"
	CmdAdd     = "add"
	CmdReplace = "replace"
	CmdAppend  = "append"
	CmdPrepend = "prepend"
	CmdCas     = "cas"

	CmdGet  = "get"
	CmdGets = "gets"

	CmdDelete   = "delete"
	CmdIncr     = "incr"
	CmdDecr     = "decr"
	CmdTouch    = "touch"
	CmdFlushAll = "flush_all"
	CmdStats    = "stats"
	CmdVersion  = "version"
	CmdQuit     = "quit"
)

// Response tokens.
const (
	TokenStored    = "STORED"
	TokenNotStored = "NOT_STORED"
	TokenExists    = "EXISTS"
	TokenNotFound  = "NOT_FOUND"
	TokenDeleted   = "DELETED"
	TokenOK        = "OK"
	TokenEnd       = "END"
	TokenValue     = "VALUE"
	TokenStat      = "STAT"
	TokenVersion   = "VERSION"

	tokenError       = "ERROR"
	tokenClientError = "CLIENT_ERROR"
	tokenServerError = "SERVER_ERROR"
)

// CRLF terminates every protocol line and every data block.
const CRLF = "\r\n"

// MaxKeyLength is the protocol limit on key size in bytes.
const MaxKeyLength = 250

// excerptLen bounds how much of an unrecognized response line is carried
// in the resulting error message.
const excerptLen = 32
