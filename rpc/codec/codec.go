package codec

import (
	"encoding/binary"
	"github.com/ValentinKolb/twinkle/rpc/common"
)

// Fixed offsets of the request layout:
//
//	[0]          command
//	[1:17]       token
//	[17:19]      key length (uint16, big endian)
//	[19:19+len]  key
//	[19+len:]    value
const (
	cmdOffset    = 0
	tokenOffset  = 1
	keyLenOffset = tokenOffset + common.TokenLen
	keyOffset    = keyLenOffset + 2

	// pingSize is the only valid size without a key length prefix
	pingSize = tokenOffset + common.TokenLen

	// responseHeaderSize is status byte plus token
	responseHeaderSize = 1 + common.TokenLen
)

// --------------------------------------------------------------------------
// Server Side
// --------------------------------------------------------------------------

// Decode turns a received packet into an instruction bound to the packet source.
func Decode(pkt *common.RawPacket) (common.Instruction, error) {
	req, token, err := DecodeRequest(pkt.Body, pkt.Amt)
	if err != nil {
		return common.Instruction{}, err
	}
	return common.Instruction{
		Req:    req,
		Token:  token,
		Source: pkt.Source,
	}, nil
}

// DecodeRequest parses the first amt bytes of body.
//
// Key and value are copied, the returned request never aliases body.
// Trailing value bytes on get and unset are accepted and ignored.
func DecodeRequest(body []byte, amt int) (common.Request, common.Token, error) {
	var token common.Token

	if amt > len(body) {
		return common.Request{}, token, common.NewError(common.ErrCParse, "amt %d exceeds buffer of %d bytes", amt, len(body))
	}

	switch {
	case amt < pingSize:
		return common.Request{}, token, common.NewError(common.ErrCParse, "datagram too short (%d bytes)", amt)

	case amt == pingSize:
		if common.Command(body[cmdOffset]) != common.CmdPing {
			return common.Request{}, token, common.NewError(common.ErrCParse, "command %s requires a key", common.Command(body[cmdOffset]))
		}
		copy(token[:], body[tokenOffset:keyLenOffset])
		return common.NewPingRequest(), token, nil

	case amt == pingSize+1:
		return common.Request{}, token, common.NewError(common.ErrCParse, "incomplete key length")
	}

	cmd := common.Command(body[cmdOffset])
	copy(token[:], body[tokenOffset:keyLenOffset])

	keyLen := int(binary.BigEndian.Uint16(body[keyLenOffset:keyOffset]))
	keyEnd := keyOffset + keyLen
	if keyEnd > amt {
		return common.Request{}, token, common.NewError(common.ErrCParse, "key length %d exceeds datagram of %d bytes", keyLen, amt)
	}

	key := make([]byte, keyLen)
	copy(key, body[keyOffset:keyEnd])

	switch cmd {
	case common.CmdGet:
		return common.NewGetRequest(key), token, nil
	case common.CmdSet:
		value := make([]byte, amt-keyEnd)
		copy(value, body[keyEnd:amt])
		return common.NewSetRequest(key, value), token, nil
	case common.CmdUnset:
		return common.NewUnsetRequest(key), token, nil
	default:
		return common.Request{}, token, common.NewError(common.ErrCParse, "unknown command %s", cmd)
	}
}

// EncodeResponse builds the reply datagram: status, token and for a get hit the value.
func EncodeResponse(resp common.Response, token common.Token) []byte {
	buf := make([]byte, responseHeaderSize+len(resp.Value))
	buf[0] = byte(resp.Status)
	copy(buf[1:responseHeaderSize], token[:])
	copy(buf[responseHeaderSize:], resp.Value)
	return buf
}

// --------------------------------------------------------------------------
// Client Side
// --------------------------------------------------------------------------

// EncodeRequest builds the request datagram for req.
// A ping is encoded without key length, every other command always carries one.
func EncodeRequest(req common.Request, token common.Token) ([]byte, error) {
	if req.Cmd == common.CmdPing {
		buf := make([]byte, pingSize)
		buf[cmdOffset] = byte(common.CmdPing)
		copy(buf[tokenOffset:], token[:])
		return buf, nil
	}

	switch req.Cmd {
	case common.CmdGet, common.CmdSet, common.CmdUnset:
	default:
		return nil, common.NewError(common.ErrCSomethingWrong, "cannot encode command %s", req.Cmd)
	}

	if len(req.Key) > common.MaxKeyLen {
		return nil, common.NewError(common.ErrCParse, "key of %d bytes exceeds %d", len(req.Key), common.MaxKeyLen)
	}

	// only set carries a value
	var value []byte
	if req.Cmd == common.CmdSet {
		value = req.Value
	}

	size := keyOffset + len(req.Key) + len(value)
	if size > common.MaxDatagramSize {
		return nil, common.NewError(common.ErrCParse, "request of %d bytes exceeds datagram size %d", size, common.MaxDatagramSize)
	}

	buf := make([]byte, size)
	buf[cmdOffset] = byte(req.Cmd)
	copy(buf[tokenOffset:keyLenOffset], token[:])
	binary.BigEndian.PutUint16(buf[keyLenOffset:keyOffset], uint16(len(req.Key)))
	copy(buf[keyOffset:], req.Key)
	copy(buf[keyOffset+len(req.Key):], value)
	return buf, nil
}

// DecodeResponse parses a reply datagram. The value is copied.
func DecodeResponse(data []byte) (common.Response, common.Token, error) {
	var token common.Token

	if len(data) < responseHeaderSize {
		return common.Response{}, token, common.NewError(common.ErrCParse, "response too short (%d bytes)", len(data))
	}

	status := common.Status(data[0])
	copy(token[:], data[1:responseHeaderSize])

	switch status {
	case common.StatusOK:
		var value []byte
		if len(data) > responseHeaderSize {
			value = make([]byte, len(data)-responseHeaderSize)
			copy(value, data[responseHeaderSize:])
		}
		return common.NewOKResponse(value), token, nil
	case common.StatusNotFound:
		return common.NewNotFoundResponse(), token, nil
	default:
		return common.Response{}, token, common.NewError(common.ErrCParse, "unknown status %s", status)
	}
}

// ResponseToken extracts the token of a reply datagram without decoding it.
func ResponseToken(data []byte) (common.Token, bool) {
	var token common.Token
	if len(data) < responseHeaderSize {
		return token, false
	}
	copy(token[:], data[1:responseHeaderSize])
	return token, true
}
