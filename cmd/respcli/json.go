package main

import (
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/kynetiq/resp"
)

// dynamicReplyJSON flattens a decoded DynamicReply tree into JSON, building
// it incrementally with sjson (one SetRawBytes call per element/field,
// mirroring how the teacher pack's gjson/sjson user builds up its byte
// store) rather than walking the tree with encoding/json.
func dynamicReplyJSON(d resp.DynamicReply) ([]byte, error) {
	switch d.Kind {
	case resp.ReplyNil:
		return []byte("null"), nil
	case resp.ReplyBool:
		return scalarJSON(d.Bool)
	case resp.ReplyNumber:
		return scalarJSON(d.Number)
	case resp.ReplyDouble:
		return scalarJSON(d.Double)
	case resp.ReplyBigNumber:
		return scalarJSON(string(d.BigNumber))
	case resp.ReplyString:
		return scalarJSON(string(d.Str))
	case resp.ReplyList:
		return sequenceJSON(d.List)
	case resp.ReplySet:
		return sequenceJSON(d.Set)
	case resp.ReplyMap:
		buf := []byte("[]")
		var err error
		for i, kv := range d.Map {
			pair := []byte("[]")
			k, err := dynamicReplyJSON(kv.Key)
			if err != nil {
				return nil, err
			}
			if pair, err = sjson.SetRawBytes(pair, "0", k); err != nil {
				return nil, err
			}
			v, err := dynamicReplyJSON(kv.Value)
			if err != nil {
				return nil, err
			}
			if pair, err = sjson.SetRawBytes(pair, "1", v); err != nil {
				return nil, err
			}
			if buf, err = sjson.SetRawBytes(buf, strconv.Itoa(i), pair); err != nil {
				return nil, err
			}
		}
		return buf, err
	case resp.ReplyErr:
		buf, err := sjson.SetBytes(nil, "error.code", d.ErrCode)
		if err != nil {
			return nil, err
		}
		return sjson.SetBytes(buf, "error.message", d.ErrMsg)
	default:
		return []byte("null"), nil
	}
}

func sequenceJSON(elems []resp.DynamicReply) ([]byte, error) {
	buf := []byte("[]")
	for i, e := range elems {
		raw, err := dynamicReplyJSON(e)
		if err != nil {
			return nil, err
		}
		buf, err = sjson.SetRawBytes(buf, strconv.Itoa(i), raw)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// scalarJSON encodes a single Go scalar as JSON by setting it at a
// throwaway key and reading the raw value back out with gjson, so that a
// caller's --query flag (also resolved with gjson, see main.go) is the only
// place this binary parses JSON paths.
func scalarJSON(v any) ([]byte, error) {
	buf, err := sjson.SetBytes(nil, "v", v)
	if err != nil {
		return nil, err
	}
	return []byte(gjson.GetBytes(buf, "v").Raw), nil
}
