package mujoco_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mjsim/internal/mujoco"
	"github.com/san-kum/mjsim/internal/mujoco/mjtest"
)

var _ = Describe("Model", func() {
	var eng *mjtest.Engine

	BeforeEach(func() {
		eng = installEngine()
	})

	It("exposes the sizes of the compiled arm", func() {
		model := compile(rrrXML)
		defer model.Close()

		Expect(model.Nq()).To(Equal(3))
		Expect(model.Nv()).To(Equal(3))
		Expect(model.Nu()).To(Equal(3))
		Expect(model.NumJoints()).To(Equal(3))
		Expect(model.NumBodies()).To(Equal(4))
		Expect(model.Timestep()).To(Equal(0.01))
		Expect(model.JointNames()).To(Equal([]string{"shoulder", "elbow", "wrist"}))
	})

	It("sums position and velocity counts over every joint kind", func() {
		model := compile(jointsXML)
		defer model.Close()

		Expect(model.Nq()).To(Equal(7 + 4 + 1 + 1))
		Expect(model.Nv()).To(Equal(6 + 3 + 1 + 1))

		kinds := make([]mujoco.JointType, 0, model.NumJoints())
		for id := range model.NumJoints() {
			typ, ok := model.JointType(id)
			Expect(ok).To(BeTrue())
			kinds = append(kinds, typ)
		}
		Expect(kinds).To(Equal(mujoco.JointTypes))
	})

	It("describes joint addresses", func() {
		model := compile(jointsXML)
		defer model.Close()

		desc, ok := model.Joint(2)
		Expect(ok).To(BeTrue())
		Expect(desc.ID).To(Equal(2))
		Expect(desc.Type).To(Equal(mujoco.JointSlide))
		Expect(desc.QposAdr).To(Equal(7 + 4))
		Expect(desc.DofAdr).To(Equal(6 + 3))

		name, ok := model.JointName(2)
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("rail"))
		Expect(string(model.Names()[desc.NameAdr : desc.NameAdr+len(name)])).To(Equal("rail"))
	})

	It("reports out-of-range joint ids as absent", func() {
		model := compile(rrrXML)
		defer model.Close()

		for _, id := range []int{-1, 3, 1 << 20} {
			_, ok := model.Joint(id)
			Expect(ok).To(BeFalse())
			_, ok = model.JointType(id)
			Expect(ok).To(BeFalse())
			_, ok = model.JointName(id)
			Expect(ok).To(BeFalse())
		}
	})

	It("looks up joints and actuators by name", func() {
		model := compile(rrrXML)
		defer model.Close()

		id, ok := model.JointID("elbow")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(1))
		_, ok = model.JointID("ankle")
		Expect(ok).To(BeFalse())

		name, ok := model.ActuatorName(0)
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("m_shoulder"))
		_, ok = model.ActuatorName(3)
		Expect(ok).To(BeFalse())
	})

	It("treats undecodable names as absent", func() {
		eng.CorruptNames = true
		model := compile(rrrXML)
		defer model.Close()

		_, ok := model.JointName(0)
		Expect(ok).To(BeFalse())
		Expect(model.JointNames()).To(Equal([]string{"", "", ""}))
		_, ok = model.Joint(0)
		Expect(ok).To(BeTrue())
	})

	Describe("LoadFile", func() {
		It("parses and compiles in one step", func() {
			path := filepath.Join(GinkgoT().TempDir(), "joints.xml")
			Expect(os.WriteFile(path, []byte(jointsXML), 0644)).To(Succeed())

			model, err := mujoco.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())
			defer model.Close()
			Expect(model.NumJoints()).To(Equal(4))
			Expect(eng.Acquired(mujoco.KindSpec)).To(BeZero())
		})

		It("wraps engine diagnostics in a LoadError", func() {
			path := filepath.Join(GinkgoT().TempDir(), "broken.xml")
			Expect(os.WriteFile(path, []byte("<mujoco><body>"), 0644)).To(Succeed())

			_, err := mujoco.LoadFile(path)
			var lerr *mujoco.LoadError
			Expect(errors.As(err, &lerr)).To(BeTrue())
			Expect(lerr.Path).To(Equal(path))
			var perr *mujoco.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Message).NotTo(BeEmpty())
		})

		It("rejects an empty path", func() {
			_, err := mujoco.LoadFile("")
			Expect(err).To(MatchError(mujoco.ErrInvalidPath))
		})
	})

	Describe("Clone", func() {
		It("produces an independent model", func() {
			model := compile(rrrXML)
			clone, err := model.Clone()
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Live(mujoco.KindModel)).To(Equal(2))

			Expect(clone.Sizes()).To(Equal(model.Sizes()))
			Expect(clone.Names()).To(Equal(model.Names()))
			Expect(&clone.Names()[0]).NotTo(BeIdenticalTo(&model.Names()[0]))

			Expect(model.Close()).To(Succeed())
			Expect(clone.JointNames()).To(Equal([]string{"shoulder", "elbow", "wrist"}))
			Expect(clone.Close()).To(Succeed())
			Expect(eng.Live(mujoco.KindModel)).To(BeZero())
		})

		It("reports an engine copy failure as ErrAllocationFailed", func() {
			model := compile(rrrXML)
			defer model.Close()

			eng.FailCopyModel = true
			_, err := model.Clone()
			Expect(err).To(MatchError(mujoco.ErrAllocationFailed))
			Expect(eng.Live(mujoco.KindModel)).To(Equal(1))
		})

		It("fails on a closed model", func() {
			model := compile(rrrXML)
			Expect(model.Close()).To(Succeed())
			_, err := model.Clone()
			Expect(err).To(MatchError(mujoco.ErrClosed))
		})
	})

	Describe("Close", func() {
		It("releases exactly once", func() {
			model := compile(rrrXML)
			Expect(model.Close()).To(Succeed())
			Expect(model.Close()).To(Succeed())
			Expect(eng.Released(mujoco.KindModel)).To(Equal(1))
			Expect(model.NumJoints()).To(BeZero())
		})

		It("refuses while data is open", func() {
			model := compile(rrrXML)
			data := openData(model)
			clone, err := data.Clone()
			Expect(err).NotTo(HaveOccurred())
			Expect(model.OpenData()).To(Equal(2))

			Expect(model.Close()).To(MatchError(mujoco.ErrModelInUse))
			Expect(data.Close()).To(Succeed())
			Expect(model.Close()).To(MatchError(mujoco.ErrModelInUse))
			Expect(clone.Close()).To(Succeed())

			Expect(model.OpenData()).To(BeZero())
			Expect(model.Close()).To(Succeed())
			Expect(eng.Live(mujoco.KindModel)).To(BeZero())
			Expect(eng.Live(mujoco.KindData)).To(BeZero())
		})

		It("rejects new data once closed", func() {
			model := compile(rrrXML)
			Expect(model.Close()).To(Succeed())
			_, err := mujoco.NewData(model)
			Expect(err).To(MatchError(mujoco.ErrClosed))
		})
	})
})
