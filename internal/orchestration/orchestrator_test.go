package orchestration_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/metrics"
	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/platform/aws"
	"github.com/imamik/searchstack/internal/platform/fake"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/provisioning/compute"
	"github.com/imamik/searchstack/internal/provisioning/infrastructure"
	"github.com/imamik/searchstack/internal/provisioning/storage"
	"github.com/imamik/searchstack/internal/reconcile"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/state"
	testutil "github.com/imamik/searchstack/internal/testing"
)

var _ = Describe("Orchestrator", func() {
	var (
		ctx      context.Context
		provider *fake.Provider
		store    *state.FileStore
		recorder *metrics.Recorder
		cfg      *config.Config
	)

	newOrchestrator := func(c *config.Config) *orchestration.Orchestrator {
		return orchestration.New(c, orchestration.Dependencies{
			Provider: provider,
			Store:    store,
			Observer: provisioning.NewLogObserver(zerolog.Nop()),
			Metrics:  recorder,
		})
	}

	deletedNames := func() []string {
		var names []string
		for _, c := range provider.CallsOf(fake.OpDelete) {
			names = append(names, c.Name)
		}
		return names
	}

	BeforeEach(func() {
		ctx = context.Background()
		provider = fake.New()
		var err error
		store, err = state.NewFileStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		recorder = metrics.NewRecorder("test")
		cfg = testutil.MinimalConfig()
	})

	Describe("deploying the reference scenario", func() {
		var result *orchestration.Result

		BeforeEach(func() {
			var err error
			result, err = newOrchestrator(cfg).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("exposes both endpoints", func() {
			lb, ok := provider.Lookup(infrastructure.NodeLoadBalancer)
			Expect(ok).To(BeTrue())
			Expect(result.Endpoints.Internal).To(Equal("http://" + lb.Outputs.String(resource.OutputDNSName) + "/"))
			Expect(result.Endpoints.External).To(Equal("https://search.example.com/"))
		})

		It("persists the endpoints as stack outputs", func() {
			ep, err := newOrchestrator(cfg).Outputs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ep).To(Equal(result.Endpoints))
		})

		It("passes through every stage in order", func() {
			Expect(result.Stages).To(Equal([]orchestration.Stage{
				orchestration.StagePending,
				orchestration.StageNetworkReady,
				orchestration.StageStorageReady,
				orchestration.StageBalancerReady,
				orchestration.StageComputeReady,
				orchestration.StageDNSReady,
				orchestration.StageComplete,
			}))
			Expect(result.Stage).To(Equal(orchestration.StageComplete))
		})

		It("creates every declared resource once", func() {
			Expect(result.Summary.Failed()).To(BeEmpty())
			Expect(result.Summary.Count(reconcile.OpCreate)).To(Equal(len(result.Summary.Steps)))
			Expect(provider.Objects(resource.KindService)).To(HaveLen(1))
			Expect(provider.Objects(resource.KindDNSRecord)).To(HaveLen(1))
		})

		It("declares exactly three firewall rules", func() {
			rules := provider.Objects(resource.KindSecurityGroupRule)
			Expect(rules).To(HaveLen(3))
			var names []string
			for _, r := range rules {
				names = append(names, r.Name)
			}
			Expect(names).To(ConsistOf(
				infrastructure.NodeListenerIngress, infrastructure.NodeNFSIngress, infrastructure.NodeEgress))
		})

		It("records the stage metric", func() {
			path := filepath.Join(GinkgoT().TempDir(), "searchstack.prom")
			Expect(recorder.WriteToTextfile(path)).To(Succeed())
			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`searchstack_stack_stage{stack="test"} 6`))
		})

		It("changes nothing on a second run", func() {
			provider.ResetCalls()
			again, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Summary.Changes()).To(BeZero())
			Expect(provider.Count(fake.OpCreate)).To(BeZero())
			Expect(provider.Count(fake.OpDelete)).To(BeZero())
			Expect(again.Endpoints).To(Equal(result.Endpoints))
		})

		It("previews a change without applying it", func() {
			provider.ResetCalls()
			changed := testutil.NewConfigBuilder().WithImage("typesense/typesense:28.0").Build()
			preview, err := newOrchestrator(changed).Preview(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(preview.Summary.DryRun).To(BeTrue())

			step, ok := preview.Summary.Step("task-definition")
			Expect(ok).To(BeTrue())
			Expect(step.Status).To(Equal(reconcile.StatusPlanned))
			Expect(step.ChangedKeys).To(ContainElement("image"))
			Expect(provider.Count(fake.OpCreate) + provider.Count(fake.OpUpdate)).To(BeZero())
		})

		It("destroys everything and clears the outputs", func() {
			destroyed, err := newOrchestrator(cfg).Destroy(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(destroyed.Summary.Count(reconcile.OpDelete)).To(Equal(len(result.Summary.Steps)))
			Expect(provider.Objects(resource.KindVpc)).To(BeEmpty())

			_, err = newOrchestrator(cfg).Outputs(ctx)
			Expect(errors.Is(err, orchestration.ErrNotDeployed)).To(BeTrue())
		})
	})

	Describe("the declared graph", func() {
		It("assigns every node to exactly one component", func() {
			result, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())

			owner := map[string]provisioning.Component{}
			for component, names := range result.Components {
				for _, name := range names {
					Expect(owner).NotTo(HaveKey(name), "%s declared twice", name)
					owner[name] = component
				}
			}
			for _, st := range result.Summary.Steps {
				Expect(owner).To(HaveKey(st.Name))
			}
			Expect(owner).To(HaveLen(len(result.Summary.Steps)))
		})
	})

	Describe("volume ordering", func() {
		It("creates the access point after every mount target", func() {
			cfg = testutil.NewConfigBuilder().WithZones("us-east-1a", "us-east-1b", "us-east-1c").Build()
			_, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())

			ap := provider.Seq(fake.OpCreate, storage.NodeAccessPoint)
			for _, zone := range cfg.Network.AvailabilityZones {
				Expect(provider.Seq(fake.OpCreate, storage.MountTargetNode(zone))).To(BeNumerically("<", ap), zone)
			}
		})

		It("skips the access point when a mount target fails", func() {
			provider.FailOn(fake.OpCreate, storage.MountTargetNode("us-east-1b"), errors.New("subnet full"))
			result, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).To(HaveOccurred())
			Expect(provider.Seq(fake.OpCreate, storage.NodeAccessPoint)).To(Equal(-1))

			var runErr *reconcile.RunError
			Expect(errors.As(err, &runErr)).To(BeTrue())
			Expect(runErr.Node).To(Equal(storage.MountTargetNode("us-east-1b")))

			Expect(result.Stage).To(Equal(orchestration.StageFailed))
			Expect(result.Stages).NotTo(ContainElement(orchestration.StageStorageReady))
			Expect(result.Endpoints).To(BeZero())
		})
	})

	Describe("removing an availability zone", func() {
		It("removes exactly that zone's subnet and mount target", func() {
			three := testutil.NewConfigBuilder().WithZones("us-east-1a", "us-east-1b", "us-east-1c").Build()
			_, err := newOrchestrator(three).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())
			fs, _ := provider.Lookup(storage.NodeFileSystem)

			provider.ResetCalls()
			two := testutil.NewConfigBuilder().WithZones("us-east-1a", "us-east-1c").Build()
			result, err := newOrchestrator(two).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(deletedNames()).To(ConsistOf(
				infrastructure.SubnetNode("us-east-1b"),
				infrastructure.RouteAssociationNode("us-east-1b"),
				storage.MountTargetNode("us-east-1b"),
			))
			step, ok := result.Summary.Step(storage.NodeAccessPoint)
			Expect(ok).To(BeTrue())
			Expect(step.Op).To(Equal(reconcile.OpSame))

			after, ok := provider.Lookup(storage.NodeFileSystem)
			Expect(ok).To(BeTrue())
			Expect(after.ID).To(Equal(fs.ID))
		})
	})

	Describe("replica count", func() {
		It("rejects anything but one instance before touching the provider", func() {
			cfg = testutil.NewConfigBuilder().WithDesiredCount(2).Build()
			result, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("desiredCount"))
			Expect(provider.Calls()).To(BeEmpty())
			Expect(result.Stage).To(Equal(orchestration.StageFailed))
		})
	})

	Describe("an empty load balancer hostname", func() {
		BeforeEach(func() {
			provider.WithOutputs(resource.KindLoadBalancer, func(*fake.Object) resource.Properties {
				return resource.Properties{resource.OutputDNSName: ""}
			})
		})

		It("never publishes an external endpoint", func() {
			result, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("hostname is empty"))
			Expect(provider.Objects(resource.KindDNSRecord)).To(BeEmpty())
			Expect(result.Endpoints.External).To(BeEmpty())
			Expect(result.Stages).NotTo(ContainElement(orchestration.StageDNSReady))

			_, err = newOrchestrator(cfg).Outputs(ctx)
			Expect(errors.Is(err, orchestration.ErrNotDeployed)).To(BeTrue())
		})
	})

	Describe("changing the listener port", func() {
		BeforeEach(func() {
			provider.SetReplaceOnChange(resource.KindTargetGroup, (&aws.TargetGroupHandler{}).ReplaceOnChange()...)
			provider.SetReplaceOnChange(resource.KindListener, (&aws.ListenerHandler{}).ReplaceOnChange()...)
			provider.SetReplaceOnChange(resource.KindService, (&aws.ServiceHandler{}).ReplaceOnChange()...)
			provider.SetDeleteBeforeReplace(resource.KindService)
			provider.RequireUniqueNames(resource.KindTargetGroup, resource.KindService)
		})

		It("replaces the target group and service without name clashes", func() {
			_, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())
			oldTG, ok := provider.Lookup(infrastructure.NodeTargetGroup)
			Expect(ok).To(BeTrue())
			oldSvc, ok := provider.Lookup(compute.NodeService)
			Expect(ok).To(BeTrue())

			provider.ResetCalls()
			cfg.LoadBalancer.ListenerPort = 8108
			cfg.Workload.ContainerPort = 8108
			result, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stage).To(Equal(orchestration.StageComplete))

			for _, node := range []string{infrastructure.NodeTargetGroup, infrastructure.NodeListener, compute.NodeService} {
				step, ok := result.Summary.Step(node)
				Expect(ok).To(BeTrue())
				Expect(step.Op).To(Equal(reconcile.OpReplace), node)
			}

			groups := provider.Objects(resource.KindTargetGroup)
			Expect(groups).To(HaveLen(1))
			Expect(groups[0].ID).NotTo(Equal(oldTG.ID))
			Expect(groups[0].Inputs.String("name")).NotTo(Equal(oldTG.Inputs.String("name")))
			Expect(groups[0].Inputs["port"]).To(BeEquivalentTo(8108))

			services := provider.Objects(resource.KindService)
			Expect(services).To(HaveLen(1))
			Expect(services[0].ID).NotTo(Equal(oldSvc.ID))
			Expect(services[0].Inputs.String("name")).To(Equal(oldSvc.Inputs.String("name")))
			Expect(provider.Seq(fake.OpDelete, compute.NodeService)).To(BeNumerically("<", provider.Seq(fake.OpCreate, compute.NodeService)))
		})
	})

	Describe("an interrupted deployment", func() {
		It("resumes without recreating finished resources", func() {
			provider.FailOn(fake.OpCreate, "service", errors.New("capacity"))
			_, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).To(HaveOccurred())

			provider.ClearFailures()
			provider.ResetCalls()
			result, err := newOrchestrator(cfg).Deploy(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stage).To(Equal(orchestration.StageComplete))

			// The record may or may not have been created before the halt.
			var created []string
			for _, c := range provider.CallsOf(fake.OpCreate) {
				created = append(created, c.Name)
			}
			Expect(created).To(ContainElement("service"))
			Expect(created).To(HaveEach(BeElementOf("service", "dns-record")))
		})
	})
})
