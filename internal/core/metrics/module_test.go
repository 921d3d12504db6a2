package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-devlink/config"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Load 测试模块加载
func TestModule_Load(t *testing.T) {
	var reporter Reporter

	app := fxtest.New(t,
		Module,
		fx.Populate(&reporter),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, reporter)
	_, ok := reporter.(*PromReporter)
	assert.True(t, ok, "默认配置应启用 Prometheus")

	reporter.BytesSent(100)
	reporter.BytesReceived(200)

	stats := reporter.Totals()
	assert.Equal(t, int64(100), stats.TotalOut)
	assert.Equal(t, int64(200), stats.TotalIn)
}

// TestModule_Disabled 测试关闭指标时返回 NopReporter
func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = false

	var reporter Reporter
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&reporter),
	)
	defer app.RequireStart().RequireStop()

	assert.IsType(t, NopReporter{}, reporter)
	reporter.BytesSent(10)
	assert.Equal(t, Stats{}, reporter.Totals())
}

// TestModule_Registerer 测试使用外部 Registerer
func TestModule_Registerer(t *testing.T) {
	reg := prometheus.NewRegistry()

	var reporter Reporter
	app := fxtest.New(t,
		fx.Provide(func() prometheus.Registerer { return reg }),
		Module,
		fx.Populate(&reporter),
	)
	defer app.RequireStart().RequireStop()

	reporter.EventProcessed("local", "PING_REQ")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "devlink_events_processed_total")
}
