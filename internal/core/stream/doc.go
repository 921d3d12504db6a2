// Package stream 实现链路内的流注册表
//
// # 核心功能
//
// 1. 流表 (Registry)
//   - 按名称分配流，或查找已有流
//   - 读写容量各自至多设置一次，拒绝扩大已提交的容量
//   - 流 ID 在链路内唯一，全部方向关闭后可复用
//
// 2. 逐流互斥
//   - FindByID / FindByName 返回已加锁的流，调用方必须 Release
//   - 不同流可以并发修改，注册表本身只在增删槽位时加锁
//
// 3. 包环形缓冲 (packet ring)
//   - 容量固定为 MaxPacketsPerStream
//   - AddPacket 追加收到的包，TakePacket 交付最早的未交付包
//   - ReleasePacket 释放最早的已交付包，本地填充量精确减去该包长度
//
// # 使用示例
//
//	reg := stream.NewRegistry(8, 64)
//	id := reg.Allocate("telemetry", 1024, 0, types.InvalidStreamID)
//
//	s := reg.FindByID(id)
//	if s == nil {
//	    return ErrNoSuchStream
//	}
//	defer reg.Release(s)
//	s.RemoteFill += 512
package stream
