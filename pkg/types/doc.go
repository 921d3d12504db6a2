// Package types 定义 devlink 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 devlink 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - ids.go     - LinkID, StreamID 以及跨链路流标识的组合/拆分
//   - enums.go   - LinkState, Origin
//   - stream.go  - Packet, StreamInfo
//   - stats.go   - Profile（读写吞吐统计）
//   - errors.go  - 公共错误定义
//
// # 跨链路流标识
//
// 对外暴露的流标识把链路 ID 放在最高字节：
//
//	combined := types.CombineIDs(linkID, streamID) // link<<24 | stream
//	link, stream := types.SplitIDs(combined)
package types
