package pool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BobKerns/better-future/internal/testutil"
	"github.com/BobKerns/better-future/pkg/future"
	"github.com/BobKerns/better-future/pkg/metrics"
	"github.com/BobKerns/better-future/pkg/pool"
)

func TestMetricsPoolCountsTasks(t *testing.T) {
	promReg := prometheus.NewRegistry()
	p := pool.NewWithConfigAndMetrics(
		pool.Config{Size: 2, Name: "instrumented"},
		metrics.Config{Enabled: true, Registry: promReg},
	)

	members := make([]*future.Future[int], 3)
	for i := range members {
		i := i
		members[i] = pool.AddFunc(p, func(c *future.Context[int]) (int, error) {
			return i, nil
		})
	}
	for _, m := range members {
		_, err := m.Wait(context.Background())
		testutil.AssertNoError(t, err, "pooled task should complete")
	}

	families, err := promReg.Gather()
	testutil.AssertNoError(t, err, "gathering metrics should succeed")
	if len(families) == 0 {
		t.Fatal("instrumented pool should have registered metrics")
	}

	testutil.Eventually(t, time.Second, func() bool {
		n, err := promtestutil.GatherAndCount(promReg, "betterfuture_pool_tasks_completed_total")
		return err == nil && n > 0
	}, "completions should be recorded")
}

func TestMetricsPoolStateLabels(t *testing.T) {
	promReg := prometheus.NewRegistry()
	p := pool.NewWithConfigAndMetrics(
		pool.Config{Size: 1, Name: "labeled"},
		metrics.Config{Enabled: true, Registry: promReg},
	)

	ok := pool.AddFunc(p, func(c *future.Context[int]) (int, error) {
		return 1, nil
	})
	_, err := ok.Wait(context.Background())
	testutil.AssertNoError(t, err, "task should fulfill")

	blocked := future.Never[int]()
	p.Add(blocked.AsTask())
	blocked.ForceCancel("done with it")
	<-blocked.Done()

	testutil.Eventually(t, time.Second, func() bool {
		n, err := promtestutil.GatherAndCount(promReg, "betterfuture_pool_tasks_completed_total")
		return err == nil && n == 2
	}, "fulfilled and cancelled tasks should be counted under separate state labels")
}

func TestMetricsDisabledPassesThrough(t *testing.T) {
	p := pool.NewWithConfigAndMetrics(
		pool.Config{Size: 1, Name: "plain"},
		metrics.Config{Enabled: false},
	)

	if _, ok := p.(*pool.MetricsPool); ok {
		t.Error("disabled metrics should return the unwrapped pool")
	}

	f := pool.AddFunc(p, func(c *future.Context[int]) (int, error) { return 1, nil })
	v, err := f.Wait(context.Background())
	testutil.AssertNoError(t, err, "pool still works without instrumentation")
	testutil.AssertEqual(t, 1, v, "value comes through")
}

func TestMetricsToggle(t *testing.T) {
	p := pool.NewWithMetrics(1, "toggle")
	mp, ok := p.(*pool.MetricsPool)
	if !ok {
		t.Fatalf("NewWithMetrics should return a *MetricsPool, got %T", p)
	}

	testutil.AssertEqual(t, true, mp.MetricsEnabled(), "metrics start enabled")
	mp.DisableMetrics()
	testutil.AssertEqual(t, false, mp.MetricsEnabled(), "DisableMetrics turns collection off")

	err := mp.EnableMetrics(metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()})
	testutil.AssertNoError(t, err, "EnableMetrics should succeed")
	testutil.AssertEqual(t, true, mp.MetricsEnabled(), "metrics can be re-enabled")
}

func TestMetricsToggleConcurrentWithUse(t *testing.T) {
	p := pool.NewWithMetrics(2, "contended")
	mp := p.(*pool.MetricsPool)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			mp.DisableMetrics()
			_ = mp.EnableMetrics(metrics.Config{Enabled: true})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = mp.Running()
			_ = mp.Queued()
			_ = mp.MetricsEnabled()
		}
	}()
	wg.Wait()

	testutil.AssertEqual(t, true, mp.MetricsEnabled(), "toggle should finish enabled")
}
