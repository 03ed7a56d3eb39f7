package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/ocpool/internal/api"
	"github.com/imamik/ocpool/internal/metrics"
	"github.com/imamik/ocpool/internal/mgmtenv"
	"github.com/imamik/ocpool/internal/pool"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/cluster"
	"github.com/imamik/ocpool/internal/provisioning/stack"
	"github.com/imamik/ocpool/internal/registry"
	ocptesting "github.com/imamik/ocpool/internal/testing"
	"github.com/imamik/ocpool/internal/util/retry"
)

type world struct {
	fakes     *ocptesting.Fakes
	workspace string
	stacks    *stack.Orchestrator
	clusters  *cluster.Orchestrator
	store     registry.Store
	reg       *prometheus.Registry
	manager   *pool.Manager
}

func ginkgoLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		GinkgoWriter.Println(prefix, args)
	}, funcr.Options{Verbosity: 1})
}

func newWorld(ctx context.Context, store func(workspace string) registry.Store) *world {
	f := ocptesting.NewFakes()
	workspace := GinkgoT().TempDir()
	observer := provisioning.NewLogObserver(ginkgoLogger())

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	Expect(err).NotTo(HaveOccurred())

	stacks := stack.NewOrchestrator(f.StackDeps(), ocptesting.StackSettings(workspace),
		stack.WithObserver(observer),
		stack.WithMetrics(rec),
		stack.WithSleeper(retry.NoSleep),
	)
	cfg := ocptesting.NewConfigBuilder(workspace).Build()
	clusters := cluster.NewOrchestrator(stacks, f.Runner, cluster.SettingsFromConfig(cfg),
		cluster.WithObserver(observer),
		cluster.WithMetrics(rec),
	)

	s := store(workspace)
	DeferCleanup(s.Close)
	manager := pool.NewManager(clusters, s, pool.WithObserver(observer), pool.WithMetrics(rec))
	Expect(manager.Reload(ctx)).To(Succeed())

	return &world{
		fakes:     f,
		workspace: workspace,
		stacks:    stacks,
		clusters:  clusters,
		store:     s,
		reg:       reg,
		manager:   manager,
	}
}

func fileStore(workspace string) registry.Store {
	return registry.NewFileStore(filepath.Join(workspace, "pool.yaml"))
}

func sqliteStore(workspace string) registry.Store {
	s, err := registry.NewSQLiteStore(context.Background(), filepath.Join(workspace, "pool.db"))
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Demo pool", func() {
	var ctx context.Context

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		DeferCleanup(cancel)
	})

	DescribeTable("runs the full lifecycle",
		func(store func(string) registry.Store) {
			w := newWorld(ctx, store)

			By("deploying the demo cluster")
			cl, err := w.manager.CreateCluster(ctx, "demo", "3.7", ocptesting.DemoTopology())
			Expect(err).NotTo(HaveOccurred())
			Expect(cl.Name()).To(Equal("demo"))
			Expect(cl.Deployer().Instance.FQDN).To(Equal("ocp-master-0.demo.example.com"))
			Expect(cl.TypeCounts()).To(Equal(map[provisioning.NodeType]int{
				provisioning.NodeTypeMaster:  1,
				provisioning.NodeTypeInfra:   1,
				provisioning.NodeTypeCompute: 2,
			}))
			Expect(cl.Metadata().Phase).To(Equal(cluster.PhaseReady))
			Expect(cl.Metadata().Version).To(Equal("3.7"))

			By("running the phases in order")
			Expect(w.fakes.Log.Filter("backend.create", "dns.", "keys.", "runner.")).To(Equal([]string{
				"backend.create demo",
				"dns.register",
				"keys.exchange",
				"runner.pre_install",
				"runner.install",
			}))
			for _, host := range []string{
				"ocp-master-0.demo.example.com",
				"ocp-infra-0.demo.example.com",
				"ocp-compute-0.demo.example.com",
				"ocp-compute-1.demo.example.com",
			} {
				Expect(w.fakes.DNS.Resolves(host)).To(BeTrue(), host)
			}

			By("persisting the registry")
			Expect(w.store.Load(ctx)).To(Equal([]string{"demo"}))
			Expect(gaugeValue(w.reg, "ocpool_pool_clusters")).To(Equal(1.0))

			By("reloading a fresh manager from the registry")
			other := pool.NewManager(w.clusters, w.store)
			Expect(other.Reload(ctx)).To(Succeed())
			reloaded, ok := other.Get("demo")
			Expect(ok).To(BeTrue())
			Expect(reloaded.Metadata().Phase).To(Equal(cluster.PhaseReady))
			Expect(reloaded.Nodes()).To(HaveLen(4))

			By("serving the pool")
			srv := httptest.NewServer(api.New(other, api.WithGatherer(w.reg)).Handler())
			DeferCleanup(srv.Close)
			resp, err := http.Get(srv.URL + "/clusters")
			Expect(err).NotTo(HaveOccurred())
			var views []api.ClusterView
			Expect(json.NewDecoder(resp.Body).Decode(&views)).To(Succeed())
			Expect(resp.Body.Close()).To(Succeed())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Status).To(Equal(string(provisioning.StatusCreateComplete)))

			By("refusing a second cluster with the same name")
			_, err = w.manager.CreateCluster(ctx, "demo", "3.7", ocptesting.DemoTopology())
			Expect(err).To(MatchError(provisioning.ErrStackAlreadyExists))

			By("deleting the cluster")
			Expect(w.manager.DeleteCluster(ctx, cl)).To(Succeed())
			Expect(w.manager.Names()).To(BeEmpty())
			Expect(w.store.Load(ctx)).To(BeEmpty())
			Expect(mgmtenv.New(w.workspace, "demo").Exists()).To(BeFalse())
			Expect(w.fakes.DNS.Resolves("ocp-master-0.demo.example.com")).To(BeFalse())
			Expect(w.stacks.IsStack(ctx, "demo")).To(BeFalse())
		},
		Entry("with a YAML registry", fileStore),
		Entry("with a SQLite registry", sqliteStore),
	)

	It("keeps a failed install out of the pool but inspectable", func() {
		w := newWorld(ctx, fileStore)
		w.fakes.Runner.ExitCodes["install"] = 2

		_, err := w.manager.CreateCluster(ctx, "demo", "3.7", ocptesting.DemoTopology())
		var phaseErr *provisioning.PhaseError
		Expect(errors.As(err, &phaseErr)).To(BeTrue())
		Expect(phaseErr.Phase).To(Equal("install"))
		Expect(phaseErr.ExitCode).To(Equal(2))
		Expect(provisioning.KindOf(err)).To(Equal(provisioning.KindRemoteExecution))
		Expect(w.manager.Names()).To(BeEmpty())

		cl, err := w.clusters.Get(ctx, "demo")
		Expect(err).NotTo(HaveOccurred())
		Expect(cl.Metadata().Phase).To(Equal(cluster.PhaseFailed))
	})

	It("stops after a failed pre_install", func() {
		w := newWorld(ctx, fileStore)
		w.fakes.Runner.ExitCodes["pre_install"] = 1

		_, err := w.manager.CreateCluster(ctx, "demo", "3.7", ocptesting.DemoTopology())
		Expect(err).To(MatchError(provisioning.ErrPhaseFailed))
		Expect(w.fakes.Log.Count("runner.install")).To(BeZero())
	})

	It("times out when DNS never propagates", func() {
		w := newWorld(ctx, fileStore)
		w.fakes.DNS.Frozen = true

		_, err := w.manager.CreateCluster(ctx, "demo", "3.7", ocptesting.DemoTopology())
		Expect(err).To(MatchError(provisioning.ErrNameServerUpdate))
		Expect(w.fakes.Runner.Calls()).To(BeEmpty())
	})
})

func gaugeValue(g prometheus.Gatherer, name string) float64 {
	families, err := g.Gather()
	Expect(err).NotTo(HaveOccurred())
	for _, mf := range families {
		if mf.GetName() == name {
			Expect(mf.GetMetric()).To(HaveLen(1))
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	Fail("metric not gathered: " + name)
	return 0
}
