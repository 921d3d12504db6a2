package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"time"

	"github.com/dep2p/go-devlink"
)

// runProbe 连接设备，在一条流上收发 count 个包并打印吞吐
func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	addr := fs.String("addr", "127.0.0.1:7000", "设备地址")
	device := fs.String("device", "", "设备名（由字节通道解释）")
	name := fs.String("stream", "telemetry", "流名称")
	size := fs.Uint("size", 4096, "每个包的字节数")
	count := fs.Int("count", 100, "收发的包数")
	timeout := fs.Duration("timeout", 10*time.Second, "建链与打开流的超时")
	reset := fs.Bool("reset", false, "结束时复位设备")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	host, err := devlink.Start(ctx, devlink.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = host.Close() }()

	target := cfg.Channel.Scheme + "://" + *addr
	id, err := host.Connect(ctx, target, *device)
	if err != nil {
		return fmt.Errorf("连接 %s 失败 (%s): %w", target, devlink.StatusOf(err), err)
	}
	fmt.Printf("链路已建立: %s\n", id)

	sid, err := host.OpenStream(ctx, id, *name, uint32(*size))
	if err != nil {
		return fmt.Errorf("打开流 %s 失败 (%s): %w", *name, devlink.StatusOf(err), err)
	}

	payload := make([]byte, *size)
	if _, err := rand.Read(payload); err != nil {
		return err
	}

	host.ProfStart()
	for i := 0; i < *count; i++ {
		if err := host.WriteData(sid, payload); err != nil {
			return fmt.Errorf("第 %d 个包写入失败 (%s): %w", i, devlink.StatusOf(err), err)
		}
		pkt, err := host.ReadData(sid)
		if err != nil {
			return fmt.Errorf("第 %d 个包读取失败 (%s): %w", i, devlink.StatusOf(err), err)
		}
		if !bytes.Equal(pkt.Data, payload) {
			return fmt.Errorf("第 %d 个包回显内容不一致", i)
		}
		if err := host.ReleaseData(sid); err != nil {
			return fmt.Errorf("第 %d 个包释放失败 (%s): %w", i, devlink.StatusOf(err), err)
		}
	}
	host.ProfStop()

	fmt.Print(host.Profile().String())
	totals := host.Totals()
	fmt.Printf("total sent: %d bytes, total received: %d bytes\n", totals.TotalOut, totals.TotalIn)

	if *reset {
		resetCtx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		if err := host.ResetRemote(resetCtx, id); err != nil {
			return fmt.Errorf("复位设备失败: %w", err)
		}
		fmt.Println("设备已复位")
	}
	return nil
}
