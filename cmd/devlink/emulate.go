package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-devlink"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/types"
)

// runEmulate 运行设备模拟器
//
// 每接受一条连接就以设备角色接管，打开配置的流并回显收到的每个包。
func runEmulate(args []string) error {
	fs := flag.NewFlagSet("emulate", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	listen := fs.String("listen", "127.0.0.1:7000", "监听地址")
	streams := fs.String("streams", "telemetry", "打开的流名称（逗号分隔）")
	size := fs.Uint("size", 64*1024, "每条流向主机申请的写容量（字节）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	names := splitAndTrim(*streams, ",")
	if len(names) == 0 {
		return errors.New("至少需要一个流名称")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := devlink.Start(ctx, devlink.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = host.Close() }()

	addr := cfg.Channel.Scheme + "://" + *listen
	ln, err := host.Listen(addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	fmt.Printf("设备模拟器已启动: %s，流: %v，按 Ctrl+C 退出\n", addr, names)

	for {
		handle, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\n正在关闭设备模拟器...")
				return nil
			}
			return fmt.Errorf("接受连接失败: %w", err)
		}
		go serveDevice(ctx, host, handle, names, uint32(*size))
	}
}

// serveDevice 接管一条连接并为每条流启动回显
func serveDevice(ctx context.Context, host *devlink.Host, handle channel.Handle, names []string, size uint32) {
	id, err := host.Attach(handle)
	if err != nil {
		cmdLogger.Warn("接管连接失败", "channel", handle.String(), "error", err)
		_ = handle.Reset()
		return
	}

	for _, name := range names {
		go func(name string) {
			// 流 ID 由接收创建请求的一端分配，主机先建流，设备再申请回写容量
			if err := waitStream(ctx, host, id, name); err != nil {
				cmdLogger.Debug("等待流失败", "link", id, "stream", name, "error", err)
				return
			}
			sid, err := host.OpenStream(ctx, id, name, size)
			if err != nil {
				cmdLogger.Warn("打开流失败", "link", id, "stream", name, "error", err)
				return
			}
			echo(host, id, name, sid)
		}(name)
	}
}

// waitStream 等待主机创建名为 name 的流，链路终止时返回错误
func waitStream(ctx context.Context, host *devlink.Host, id types.LinkID, name string) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		_, err := host.OpenStream(ctx, id, name, 0)
		if err == nil {
			return nil
		}
		if !errors.Is(err, devlink.ErrNoSuchStream) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// echo 将收到的每个包原样写回，链路终止后退出
func echo(host *devlink.Host, id types.LinkID, name string, sid types.StreamID) {
	var packets, bytes uint64
	defer func() {
		cmdLogger.Info("回显结束", "link", id, "stream", name, "packets", packets, "bytes", bytes)
	}()

	for {
		pkt, err := host.ReadData(sid)
		if err != nil {
			return
		}
		// 写回完成前包仍由调度器持有
		if err := host.WriteData(sid, pkt.Data); err != nil {
			return
		}
		if err := host.ReleaseData(sid); err != nil {
			return
		}
		packets++
		bytes += uint64(pkt.Length)
	}
}
