package hooks

// #region imports
import (
	"time"
)

// #endregion

// #region interfaces

// Hooks observes a compiler and a stepper without changing their behavior.
type Hooks interface {
	OnBeforeCompile(src string)
	OnAfterCompile(src, out string, err error)
	OnStep(dt float64, took time.Duration)
}

// Compiler turns source into runnable output.
type Compiler interface {
	Compile(src string) (string, error)
}

// Stepper advances a host by dt seconds.
type Stepper interface {
	Step(dt float64)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(src string) (string, error)

// Compile calls f.
func (f CompilerFunc) Compile(src string) (string, error) { return f(src) }

// StepperFunc adapts a function to Stepper.
type StepperFunc func(dt float64)

// Step calls f.
func (f StepperFunc) Step(dt float64) { f(dt) }

// #endregion

// #region decorators

type hookedCompiler struct {
	base  Compiler
	hooks Hooks
}

// WrapCompiler returns a Compiler that calls h around every base.Compile.
// Output and error from base are returned unchanged.
func WrapCompiler(base Compiler, h Hooks) Compiler {
	return &hookedCompiler{base: base, hooks: h}
}

func (c *hookedCompiler) Compile(src string) (string, error) {
	c.hooks.OnBeforeCompile(src)
	out, err := c.base.Compile(src)
	c.hooks.OnAfterCompile(src, out, err)
	return out, err
}

type hookedStepper struct {
	base  Stepper
	hooks Hooks
	now   func() time.Time
}

// WrapStepper returns a Stepper that times every base.Step and reports it
// to h.OnStep.
func WrapStepper(base Stepper, h Hooks) Stepper {
	return WrapStepperClock(base, h, time.Now)
}

// WrapStepperClock is WrapStepper timed by now, for hosts that run on
// simulated time.
func WrapStepperClock(base Stepper, h Hooks, now func() time.Time) Stepper {
	return &hookedStepper{base: base, hooks: h, now: now}
}

func (s *hookedStepper) Step(dt float64) {
	start := s.now()
	s.base.Step(dt)
	s.hooks.OnStep(dt, s.now().Sub(start))
}

// #endregion
