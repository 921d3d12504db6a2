package protocol

import "fmt"

// EventType 事件类型
//
// 数值即线上编码，必须保持稳定。
type EventType uint32

const (
	WriteReq        EventType = 0
	ReadReq         EventType = 1
	ReadRelReq      EventType = 2
	CreateStreamReq EventType = 3
	CloseStreamReq  EventType = 4
	PingReq         EventType = 5
	ResetReq        EventType = 6

	WriteResp        EventType = 8
	ReadResp         EventType = 9
	ReadRelResp      EventType = 10
	CreateStreamResp EventType = 11
	CloseStreamResp  EventType = 12
	PingResp         EventType = 13
	ResetResp        EventType = 14
)

// typeInfo 事件类型元数据
type typeInfo struct {
	name    string
	request bool
	// paired 请求的响应类型，或响应的请求类型
	paired EventType
}

var typeTable = map[EventType]typeInfo{
	WriteReq:         {"WRITE_REQ", true, WriteResp},
	ReadReq:          {"READ_REQ", true, ReadResp},
	ReadRelReq:       {"READ_REL_REQ", true, ReadRelResp},
	CreateStreamReq:  {"CREATE_STREAM_REQ", true, CreateStreamResp},
	CloseStreamReq:   {"CLOSE_STREAM_REQ", true, CloseStreamResp},
	PingReq:          {"PING_REQ", true, PingResp},
	ResetReq:         {"RESET_REQ", true, ResetResp},
	WriteResp:        {"WRITE_RESP", false, WriteReq},
	ReadResp:         {"READ_RESP", false, ReadReq},
	ReadRelResp:      {"READ_REL_RESP", false, ReadRelReq},
	CreateStreamResp: {"CREATE_STREAM_RESP", false, CreateStreamReq},
	CloseStreamResp:  {"CLOSE_STREAM_RESP", false, CloseStreamReq},
	PingResp:         {"PING_RESP", false, PingReq},
	ResetResp:        {"RESET_RESP", false, ResetReq},
}

// Valid 是否为已知事件类型
func (t EventType) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// IsRequest 是否为请求类型
func (t EventType) IsRequest() bool {
	return typeTable[t].request
}

// IsResponse 是否为响应类型
func (t EventType) IsResponse() bool {
	info, ok := typeTable[t]
	return ok && !info.request
}

// Response 返回请求对应的响应类型
func (t EventType) Response() (EventType, bool) {
	info, ok := typeTable[t]
	if !ok || !info.request {
		return 0, false
	}
	return info.paired, true
}

// Request 返回响应对应的请求类型
func (t EventType) Request() (EventType, bool) {
	info, ok := typeTable[t]
	if !ok || info.request {
		return 0, false
	}
	return info.paired, true
}

// String 返回事件类型名称
func (t EventType) String() string {
	if info, ok := typeTable[t]; ok {
		return info.name
	}
	return fmt.Sprintf("EventType(%d)", uint32(t))
}
