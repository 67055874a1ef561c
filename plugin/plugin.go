// Package plugin dispatches registered plugins at fixed lifecycle phases.
// Plugins receive the project directory, the spec under construction and
// the dependency-resolution sack, and may mutate the spec freely between
// population and the final write. Registration is explicit; there is no
// filesystem discovery.
package plugin

import (
	"github.com/specbuild/gorpg/rpglog"
	"github.com/specbuild/gorpg/sack"
	"github.com/specbuild/gorpg/spec"
)

// Phase names one point of the spec assembly lifecycle.
type Phase string

const (
	BeforePatchesApplied Phase = "before_patches_applied"
	AfterPatchesApplied  Phase = "after_patches_applied"
	AfterProjectBuild    Phase = "after_project_build"
)

// Plugin is the common surface. A plugin subscribes to a phase by
// implementing the matching capability interface below.
type Plugin interface {
	Name() string
}

// BeforePatcher runs before the Patch list is applied to the project tree.
type BeforePatcher interface {
	Plugin
	BeforePatchesApplied(projectDir string, spc *spec.Spec, sk *sack.Sack) error
}

// AfterPatcher runs on the patched project tree.
type AfterPatcher interface {
	Plugin
	AfterPatchesApplied(projectDir string, spc *spec.Spec, sk *sack.Sack) error
}

// AfterBuilder runs once the package build finished.
type AfterBuilder interface {
	Plugin
	AfterProjectBuild(projectDir string, spc *spec.Spec, sk *sack.Sack) error
}

// Engine holds the registered plugins for one spec run.
type Engine struct {
	spec    *spec.Spec
	sack    *sack.Sack
	plugins []Plugin
}

func NewEngine(spc *spec.Spec, sk *sack.Sack) *Engine {
	return &Engine{spec: spc, sack: sk}
}

// Register appends p. Registration order is execution order.
func (e *Engine) Register(p Plugin) {
	e.plugins = append(e.plugins, p)
}

// ExecutePhase runs every plugin subscribed to phase. A failing plugin is
// logged and skipped; it must not abort the run. An unknown phase is a
// logged no-op.
func (e *Engine) ExecutePhase(phase Phase, projectDir string) {
	switch phase {
	case BeforePatchesApplied, AfterPatchesApplied, AfterProjectBuild:
	default:
		rpglog.L.Warnf("plugin: unknown phase %q", phase)
		return
	}
	rpglog.L.Debugf("plugin phase %s", phase)

	for _, p := range e.plugins {
		var (
			err        error
			subscribed bool
		)
		switch phase {
		case BeforePatchesApplied:
			if h, ok := p.(BeforePatcher); ok {
				subscribed = true
				err = h.BeforePatchesApplied(projectDir, e.spec, e.sack)
			}
		case AfterPatchesApplied:
			if h, ok := p.(AfterPatcher); ok {
				subscribed = true
				err = h.AfterPatchesApplied(projectDir, e.spec, e.sack)
			}
		case AfterProjectBuild:
			if h, ok := p.(AfterBuilder); ok {
				subscribed = true
				err = h.AfterProjectBuild(projectDir, e.spec, e.sack)
			}
		}
		if !subscribed {
			continue
		}
		if err != nil {
			rpglog.L.Errorf("plugin %s failed in %s: %v", p.Name(), phase, err)
			continue
		}
		rpglog.L.Debugf("plugin %s executed", p.Name())
	}
}
