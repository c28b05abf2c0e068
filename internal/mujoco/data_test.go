package mujoco_test

import (
	"runtime"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mjsim/internal/mujoco"
	"github.com/san-kum/mjsim/internal/mujoco/mjtest"
)

var _ = Describe("Data", func() {
	var (
		eng   *mjtest.Engine
		model *mujoco.Model
	)

	BeforeEach(func() {
		eng = installEngine()
		model = compile(rrrXML)
		DeferCleanup(func() {
			Expect(model.Close()).To(Succeed())
		})
	})

	It("sizes every buffer from the model", func() {
		data := openData(model)
		defer data.Close()

		for _, f := range mujoco.FloatFields() {
			Expect(data.Buffer(f)).To(HaveLen(f.Len(model.Sizes())), f.String())
		}
		Expect(data.Cdof()).To(HaveLen(6 * model.Nv()))
		Expect(data.Xaxis()).To(HaveLen(3 * model.NumJoints()))
		Expect(data.Ctrl()).To(HaveLen(model.Nu()))
		Expect(data.Buffer(mujoco.FloatField(-1))).To(BeNil())
	})

	It("reports an engine allocation failure as ErrAllocationFailed", func() {
		eng.FailMakeData = true
		_, err := mujoco.NewData(model)
		Expect(err).To(MatchError(mujoco.ErrAllocationFailed))
		Expect(model.OpenData()).To(BeZero())
		Expect(eng.Acquired(mujoco.KindData)).To(BeZero())
	})

	It("advances time by the model timestep", func() {
		data := openData(model)
		defer data.Close()

		for range 10 {
			Expect(data.Step()).To(Succeed())
		}
		Expect(data.Time()).To(BeNumerically("~", 0.1, 1e-12))

		Expect(data.Reset()).To(Succeed())
		Expect(data.Time()).To(BeZero())
	})

	It("recomputes derived quantities on Forward", func() {
		baseline := openData(model)
		defer baseline.Close()
		data := openData(model)
		defer data.Close()

		Expect(baseline.Forward()).To(Succeed())
		Expect(baseline.QfrcBias()[0]).To(BeZero())

		data.Qpos()[0] = 0.5
		data.Ctrl()[0] = 1
		Expect(data.Forward()).To(Succeed())
		Expect(data.QfrcBias()[0]).NotTo(Equal(baseline.QfrcBias()[0]))
		Expect(data.QfrcActuator()[0]).To(Equal(2.0))
		Expect(baseline.QfrcActuator()[0]).To(BeZero())
		Expect(data.Time()).To(BeZero())
	})

	It("diverges from an unmutated instance after Step", func() {
		baseline := openData(model)
		defer baseline.Close()
		data := openData(model)
		defer data.Close()

		data.Qvel()[0] = 1
		Expect(baseline.Step()).To(Succeed())
		Expect(data.Step()).To(Succeed())
		Expect(data.Time()).To(Equal(baseline.Time()))
		Expect(data.Qpos()[0]).NotTo(Equal(baseline.Qpos()[0]))
		Expect(baseline.Qpos()[0]).To(BeZero())
	})

	It("writes through buffer slices", func() {
		data := openData(model)
		defer data.Close()

		data.Qvel()[1] = 3
		Expect(data.Buffer(mujoco.Qvel)[1]).To(Equal(3.0))
		Expect(data.Step()).To(Succeed())
		Expect(data.Qpos()[1]).NotTo(BeZero())
	})

	Describe("Clone", func() {
		It("copies state and then diverges", func() {
			data := openData(model)
			defer data.Close()
			data.Qpos()[2] = 0.25
			Expect(data.Step()).To(Succeed())

			clone, err := data.Clone()
			Expect(err).NotTo(HaveOccurred())
			defer clone.Close()

			Expect(clone.Model()).To(BeIdenticalTo(model))
			Expect(clone.Time()).To(Equal(data.Time()))
			Expect(clone.Qpos()).To(Equal(data.Qpos()))

			clone.Qpos()[2] = -1
			Expect(data.Qpos()[2]).NotTo(Equal(-1.0))
			Expect(clone.Step()).To(Succeed())
			Expect(clone.Time()).To(BeNumerically(">", data.Time()))
		})

		It("keeps qpos independent in both directions", func() {
			data := openData(model)
			defer data.Close()
			clone, err := data.Clone()
			Expect(err).NotTo(HaveOccurred())
			defer clone.Close()

			clone.Qpos()[0] = 0.7
			Expect(data.Qpos()[0]).To(BeZero())

			data.Qpos()[0] = -0.3
			Expect(clone.Qpos()[0]).To(Equal(0.7))
		})

		It("reports an engine copy failure as ErrAllocationFailed", func() {
			data := openData(model)
			defer data.Close()

			eng.FailCopyData = true
			_, err := data.Clone()
			Expect(err).To(MatchError(mujoco.ErrAllocationFailed))
			Expect(model.OpenData()).To(Equal(1))
		})
	})

	Describe("Close", func() {
		It("is released by the collector when dropped unclosed", func() {
			leak := func() {
				data := openData(model)
				Expect(data.Step()).To(Succeed())
			}
			leak()

			Eventually(func() int {
				runtime.GC()
				return model.OpenData()
			}).WithTimeout(2 * time.Second).WithPolling(10 * time.Millisecond).Should(BeZero())
			Expect(eng.Live(mujoco.KindData)).To(BeZero())
			Expect(eng.Released(mujoco.KindData)).To(Equal(1))
			Expect(model.Close()).To(Succeed())
			Expect(eng.Live(mujoco.KindModel)).To(BeZero())
		})

		It("releases exactly once and disables the instance", func() {
			data := openData(model)
			Expect(data.Close()).To(Succeed())
			Expect(data.Close()).To(Succeed())
			Expect(eng.Released(mujoco.KindData)).To(Equal(1))

			Expect(data.Step()).To(MatchError(mujoco.ErrClosed))
			Expect(data.Forward()).To(MatchError(mujoco.ErrClosed))
			Expect(data.Reset()).To(MatchError(mujoco.ErrClosed))
			_, err := data.Clone()
			Expect(err).To(MatchError(mujoco.ErrClosed))
			Expect(data.Qpos()).To(BeNil())
			Expect(data.Time()).To(BeZero())
			_, ok := data.Joint(0)
			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("handle observer", func() {
	It("sees every acquisition and release", func() {
		installEngine()
		obs := &countingObserver{counts: map[mujoco.HandleKind]int{}}
		mujoco.SetObserver(obs)
		DeferCleanup(func() { mujoco.SetObserver(nil) })

		model := compile(rrrXML)
		data := openData(model)
		Expect(data.Close()).To(Succeed())
		Expect(model.Close()).To(Succeed())

		obs.mu.Lock()
		defer obs.mu.Unlock()
		Expect(obs.counts).To(Equal(map[mujoco.HandleKind]int{
			mujoco.KindSpec:  0,
			mujoco.KindModel: 0,
			mujoco.KindData:  0,
		}))
		Expect(obs.total).To(BeNumerically(">=", 6))
	})
})

type countingObserver struct {
	mu     sync.Mutex
	counts map[mujoco.HandleKind]int
	total  int
}

func (o *countingObserver) HandleAcquired(kind mujoco.HandleKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[kind]++
	o.total++
}

func (o *countingObserver) HandleReleased(kind mujoco.HandleKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[kind]--
	o.total++
}
