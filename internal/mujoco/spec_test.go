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

var _ = Describe("Spec", func() {
	var eng *mjtest.Engine

	BeforeEach(func() {
		eng = installEngine()
	})

	Describe("ParseXML", func() {
		It("parses a well-formed scene", func() {
			spec, err := mujoco.ParseXML(rrrXML)
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Live(mujoco.KindSpec)).To(Equal(1))
			Expect(spec.Close()).To(Succeed())
			Expect(eng.Live(mujoco.KindSpec)).To(BeZero())
		})

		It("reports malformed text as a ParseError", func() {
			_, err := mujoco.ParseXML("<mujoco><worldbody>")
			var perr *mujoco.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Source).To(Equal("<string>"))
			Expect(perr.Message).To(HavePrefix("XML Error"))
			Expect(eng.Acquired(mujoco.KindSpec)).To(BeZero())
		})

		It("reports an unknown joint kind as a ParseError", func() {
			_, err := mujoco.ParseXML(`<mujoco><worldbody><body><joint type="screw"/></body></worldbody></mujoco>`)
			var perr *mujoco.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Message).To(ContainSubstring("screw"))
		})

		It("rejects text with an interior NUL byte without calling the engine", func() {
			_, err := mujoco.ParseXML("<mujoco>\x00</mujoco>")
			var perr *mujoco.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(eng.Acquired(mujoco.KindSpec)).To(BeZero())
		})
	})

	Describe("ParseFile", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("parses a scene file", func() {
			path := filepath.Join(dir, "rrr.xml")
			Expect(os.WriteFile(path, []byte(rrrXML), 0644)).To(Succeed())

			spec, err := mujoco.ParseFile(path)
			Expect(err).NotTo(HaveOccurred())
			model, err := spec.Compile()
			Expect(err).NotTo(HaveOccurred())
			defer model.Close()
			Expect(model.Nq()).To(Equal(3))
		})

		It("reports a missing file as a LoadError", func() {
			_, err := mujoco.ParseFile(filepath.Join(dir, "missing.xml"))
			var lerr *mujoco.LoadError
			Expect(errors.As(err, &lerr)).To(BeTrue())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})

		It("reports a path with a NUL byte as a LoadError", func() {
			_, err := mujoco.ParseFile("bad\x00.xml")
			Expect(err).To(MatchError(mujoco.ErrInvalidPath))
			var lerr *mujoco.LoadError
			Expect(errors.As(err, &lerr)).To(BeTrue())
		})

		It("reports a directory as a LoadError", func() {
			_, err := mujoco.ParseFile(dir)
			var lerr *mujoco.LoadError
			Expect(errors.As(err, &lerr)).To(BeTrue())
			Expect(lerr.Path).To(Equal(dir))
		})

		It("reports malformed file contents as a ParseError naming the file", func() {
			path := filepath.Join(dir, "broken.xml")
			Expect(os.WriteFile(path, []byte("<mujoco>"), 0644)).To(Succeed())

			_, err := mujoco.ParseFile(path)
			var perr *mujoco.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Source).To(Equal(path))
		})
	})

	Describe("Compile", func() {
		It("consumes the specification", func() {
			spec, err := mujoco.ParseXML(rrrXML)
			Expect(err).NotTo(HaveOccurred())

			model, err := spec.Compile()
			Expect(err).NotTo(HaveOccurred())
			defer model.Close()
			Expect(eng.Live(mujoco.KindSpec)).To(BeZero())
			Expect(eng.Released(mujoco.KindSpec)).To(Equal(1))

			_, err = spec.Compile()
			Expect(err).To(MatchError(mujoco.ErrClosed))
			Expect(spec.Close()).To(Succeed())
			Expect(eng.Released(mujoco.KindSpec)).To(Equal(1))
		})

		It("produces identical name tables from the same text", func() {
			a := compile(rrrXML)
			defer a.Close()
			b := compile(rrrXML)
			defer b.Close()

			Expect(a.Names()).To(Equal(b.Names()))
			Expect(a.JointNames()).To(Equal(b.JointNames()))
			Expect(a.Sizes()).To(Equal(b.Sizes()))
		})

		It("reports an engine refusal as a recoverable CompileError", func() {
			spec, err := mujoco.ParseXML(`
<mujoco>
  <worldbody><body><joint name="a"/></body></worldbody>
  <actuator><motor name="m" joint="missing"/></actuator>
</mujoco>`)
			Expect(err).NotTo(HaveOccurred())

			_, err = spec.Compile()
			var cerr *mujoco.CompileError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Message).To(ContainSubstring("missing"))
			Expect(eng.Live(mujoco.KindSpec)).To(BeZero())
			Expect(eng.Acquired(mujoco.KindModel)).To(BeZero())
		})

		It("carries the engine message when compilation is forced to fail", func() {
			eng.FailCompile = true
			eng.CompileMessage = "  mass and inertia of moving bodies must be larger than mjMINVAL  "

			spec, err := mujoco.ParseXML(rrrXML)
			Expect(err).NotTo(HaveOccurred())
			_, err = spec.Compile()
			Expect(err).To(MatchError(&mujoco.CompileError{
				Message: "mass and inertia of moving bodies must be larger than mjMINVAL",
			}))
		})
	})

	Describe("without the native engine", func() {
		It("fails every constructor with ErrEngineUnavailable", func() {
			prev := mujoco.SetEngine(mujoco.AutoSelectEngine())
			DeferCleanup(func() { mujoco.SetEngine(prev) })
			if mujoco.GetEngine().Available() {
				Skip("built with the native engine")
			}

			_, err := mujoco.ParseXML(rrrXML)
			Expect(err).To(MatchError(mujoco.ErrEngineUnavailable))
			_, err = mujoco.ParseFile("scene.xml")
			Expect(err).To(MatchError(mujoco.ErrEngineUnavailable))
			_, err = mujoco.LoadFile("scene.xml")
			Expect(err).To(MatchError(mujoco.ErrEngineUnavailable))
		})
	})
})
