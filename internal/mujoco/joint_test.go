package mujoco_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mjsim/internal/mujoco"
)

var _ = Describe("JointType", func() {
	DescribeTable("degree-of-freedom counts",
		func(typ mujoco.JointType, name string, nq, nv int) {
			Expect(typ.String()).To(Equal(name))
			Expect(typ.PositionCount()).To(Equal(nq))
			Expect(typ.VelocityCount()).To(Equal(nv))
		},
		Entry("free", mujoco.JointFree, "free", 7, 6),
		Entry("ball", mujoco.JointBall, "ball", 4, 3),
		Entry("slide", mujoco.JointSlide, "slide", 1, 1),
		Entry("hinge", mujoco.JointHinge, "hinge", 1, 1),
	)

	It("covers every kind", func() {
		Expect(mujoco.JointTypes).To(HaveLen(4))
		for _, typ := range mujoco.JointTypes {
			Expect(typ.PositionCount()).To(BeNumerically(">=", typ.VelocityCount()))
		}
	})

	It("panics for a value outside the enumeration", func() {
		bogus := mujoco.JointType(9)
		Expect(bogus.String()).To(Equal("JointType(9)"))
		Expect(func() { bogus.PositionCount() }).To(Panic())
		Expect(func() { bogus.VelocityCount() }).To(Panic())
	})
})

var _ = Describe("JointView", func() {
	var (
		model *mujoco.Model
		data  *mujoco.Data
	)

	BeforeEach(func() {
		installEngine()
		model = compile(jointsXML)
		data = openData(model)
		DeferCleanup(func() {
			Expect(data.Close()).To(Succeed())
			Expect(model.Close()).To(Succeed())
		})
	})

	DescribeTable("slices each kind by its counts",
		func(id int, name string, typ mujoco.JointType) {
			view, ok := data.Joint(id)
			Expect(ok).To(BeTrue())
			Expect(view.ID).To(Equal(id))
			Expect(view.Name).To(Equal(name))
			Expect(view.Type).To(Equal(typ))

			nq, nv := typ.PositionCount(), typ.VelocityCount()
			Expect(view.Qpos).To(HaveLen(nq))
			for _, s := range [][]float64{
				view.Qvel, view.Qacc, view.QaccWarmstart, view.QaccSmooth,
				view.QfrcApplied, view.QfrcBias, view.QfrcPassive, view.QfrcActuator,
				view.QfrcSmooth, view.QfrcConstraint, view.QfrcInverse, view.QLDiagInv,
			} {
				Expect(s).To(HaveLen(nv))
				Expect(s).To(HaveCap(nv))
			}
			Expect(view.Cdof).To(HaveLen(6 * nv))
			Expect(view.CdofDot).To(HaveLen(6 * nv))
			Expect(view.Xanchor).To(HaveLen(3))
			Expect(view.Xaxis).To(HaveLen(3))
		},
		Entry("free", 0, "root", mujoco.JointFree),
		Entry("ball", 1, "socket", mujoco.JointBall),
		Entry("slide", 2, "rail", mujoco.JointSlide),
		Entry("hinge", 3, "hinge", mujoco.JointHinge),
	)

	It("starts at the model's default configuration", func() {
		root, _ := data.Joint(0)
		Expect(root.Qpos).To(Equal([]float64{0, 0, 2, 1, 0, 0, 0}))
		socket, _ := data.Joint(1)
		Expect(socket.Qpos).To(Equal([]float64{1, 0, 0, 0}))
	})

	It("aliases the data buffers", func() {
		rail, ok := data.JointByName("rail")
		Expect(ok).To(BeTrue())

		rail.Qpos[0] = 0.75
		Expect(data.Qpos()[11]).To(Equal(0.75))

		data.Qvel()[9] = -2
		Expect(rail.Qvel[0]).To(Equal(-2.0))

		Expect(data.Forward()).To(Succeed())
		Expect(rail.Xanchor).To(Equal([]float64{2.75, 0, 0}))
		Expect(rail.Xaxis).To(Equal([]float64{1, 0, 0}))
	})

	It("does not let appends reach a neighbouring joint", func() {
		socket, _ := data.Joint(1)
		grown := append(socket.Qvel, 42)
		Expect(grown).To(HaveLen(4))
		Expect(data.Qvel()[9]).To(BeZero())
	})

	It("keeps quaternions normalized while stepping", func() {
		socket, _ := data.Joint(1)
		copy(socket.Qvel, []float64{1, -2, 0.5})
		for range 100 {
			Expect(data.Step()).To(Succeed())
		}
		var n float64
		for _, x := range socket.Qpos {
			n += x * x
		}
		Expect(n).To(BeNumerically("~", 1, 1e-9))
	})

	It("reports out-of-range ids as absent", func() {
		for _, id := range []int{-1, 4, 100} {
			_, ok := data.Joint(id)
			Expect(ok).To(BeFalse(), fmt.Sprint(id))
		}
		_, ok := data.JointByName("elbow")
		Expect(ok).To(BeFalse())
	})

	It("iterates every joint in id order", func() {
		var names []string
		for view := range data.Joints() {
			names = append(names, view.Name)
		}
		Expect(names).To(Equal([]string{"root", "socket", "rail", "hinge"}))
	})

	It("stops iterating when the consumer breaks", func() {
		count := 0
		for range data.Joints() {
			count++
			break
		}
		Expect(count).To(Equal(1))
	})
})

var _ = Describe("JointView with corrupt names", func() {
	It("treats the joint as absent", func() {
		eng := installEngine()
		eng.CorruptNames = true
		model := compile(jointsXML)
		data := openData(model)
		defer func() {
			Expect(data.Close()).To(Succeed())
			Expect(model.Close()).To(Succeed())
			Expect(eng.Live(mujoco.KindData)).To(BeZero())
		}()

		_, ok := data.Joint(0)
		Expect(ok).To(BeFalse())
		count := 0
		for range data.Joints() {
			count++
		}
		Expect(count).To(BeZero())
	})
})
