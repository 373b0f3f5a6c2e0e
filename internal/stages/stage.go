// Package stages holds the fixed module workflow of a recruitment process:
// which modules a service type offers, which of them the current stage
// unlocks, and which one is active. Everything here is pure.
package stages

import (
	"fmt"
	"strconv"
	"strings"

	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/sanitize"
)

// ServiceType is the commercial product a process was sold as.
type ServiceType string

const (
	ServiceFullProcess ServiceType = "PC"
	ServiceLongList    ServiceType = "LL"
	ServiceHeadHunting ServiceType = "HH"
	ServiceTestOnly    ServiceType = "TS"
	ServiceEvaluation  ServiceType = "ES"
)

// offered lists the modules beyond modulo-1 each service type includes.
var offered = map[ServiceType][]int{
	ServiceFullProcess: {2, 3, 4, 5},
	ServiceLongList:    {2, 3},
	ServiceHeadHunting: {2, 3},
	ServiceTestOnly:    {4},
	ServiceEvaluation:  {4},
}

// ParseServiceType accepts the two-letter code in any case.
func ParseServiceType(raw string) (ServiceType, error) {
	t := ServiceType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", apperr.Validation(fmt.Sprintf("unknown service type %q", raw))
	}
	return t, nil
}

// Valid reports whether t is a known service type.
func (t ServiceType) Valid() bool {
	_, ok := offered[t]
	return ok
}

// Offers reports whether module n is part of the service. Module 1 is part
// of every service.
func (t ServiceType) Offers(n int) bool {
	if n == 1 {
		return true
	}
	for _, m := range offered[t] {
		if m == n {
			return true
		}
	}
	return false
}

// Stage is the persisted position of a process in the module sequence.
type Stage int

const (
	StageNone Stage = iota
	StageModule1
	StageModule2
	StageModule3
	StageModule4
	StageModule5
)

const noneLabel = "Sin etapa"

var stageLabels = [...]string{
	StageNone:    noneLabel,
	StageModule1: "Módulo 1: Levantamiento de Perfil",
	StageModule2: "Módulo 2: Reclutamiento y Preselección",
	StageModule3: "Módulo 3: Presentación de Candidatos",
	StageModule4: "Módulo 4: Evaluación Psicolaboral",
	StageModule5: "Módulo 5: Contratación y Seguimiento",
}

// Valid reports whether s is one of the six stages.
func (s Stage) Valid() bool {
	return s >= StageNone && s <= StageModule5
}

// Label returns the display label.
func (s Stage) Label() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageLabels[s]
}

// String implements fmt.Stringer.
func (s Stage) String() string { return s.Label() }

// Module returns the module the stage corresponds to. StageNone has none.
func (s Stage) Module() (ModuleID, bool) {
	if s <= StageNone || s > StageModule5 {
		return "", false
	}
	return moduleID(int(s)), true
}

// ParseStage reads a stage from its exact label, its module id
// ("modulo-4") or "Sin etapa". Empty input is StageNone.
func ParseStage(raw string) (Stage, error) {
	key := sanitize.Name(raw)
	if key == "" || strings.EqualFold(key, noneLabel) {
		return StageNone, nil
	}
	for s := StageModule1; s <= StageModule5; s++ {
		if key == stageLabels[s] {
			return s, nil
		}
	}
	if rest, ok := strings.CutPrefix(key, modulePrefix); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 5 {
			return Stage(n), nil
		}
	}
	return StageNone, apperr.Validation(fmt.Sprintf("unknown stage %q", raw))
}

// ModuleID identifies a renderable module of the process page.
type ModuleID string

const modulePrefix = "modulo-"

const (
	Module1        ModuleID = "modulo-1"
	Module2        ModuleID = "modulo-2"
	Module3        ModuleID = "modulo-3"
	Module4        ModuleID = "modulo-4"
	Module5        ModuleID = "modulo-5"
	ModuleTimeline ModuleID = "timeline"
)

func moduleID(n int) ModuleID {
	return ModuleID(modulePrefix + strconv.Itoa(n))
}

// Number returns the module number, or 0 for timeline and unknown ids.
func (m ModuleID) Number() int {
	rest, ok := strings.CutPrefix(string(m), modulePrefix)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > 5 {
		return 0
	}
	return n
}
