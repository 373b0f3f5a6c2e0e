package stages

import (
	"fmt"

	"recruitment_backend/platform/apperr"
)

// Report statuses that count as a finished psychological evaluation.
const (
	ReportRecommended             = "Recomendable"
	ReportNotRecommended          = "No recomendable"
	ReportRecommendedWithComments = "Recomendable con observaciones"
)

// ClassifiedReportStatuses are the report statuses accepted by the module 5 gate.
var ClassifiedReportStatuses = []string{
	ReportRecommended,
	ReportNotRecommended,
	ReportRecommendedWithComments,
}

// IsClassifiedReport reports whether status is a final evaluation verdict.
func IsClassifiedReport(status string) bool {
	for _, s := range ClassifiedReportStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Signals are the live facts the engine needs besides the stage.
type Signals struct {
	// ApprovedWithReport is set when at least one client-approved candidate
	// has a classified evaluation report.
	ApprovedWithReport bool
}

// View is the module layout of a process page.
type View struct {
	ServiceType ServiceType
	Stage       Stage
	Enabled     []ModuleID
	Active      ModuleID
}

// IsEnabled reports whether m can be opened.
func (v View) IsEnabled(m ModuleID) bool {
	for _, e := range v.Enabled {
		if e == m {
			return true
		}
	}
	return false
}

// HighestModule returns the largest enabled module number.
func (v View) HighestModule() int {
	highest := 0
	for _, e := range v.Enabled {
		if n := e.Number(); n > highest {
			highest = n
		}
	}
	return highest
}

// Evaluate computes the enabled modules and the active module. Enabled is
// ordered modulo-1 … modulo-5 followed by timeline.
func Evaluate(t ServiceType, s Stage, sig Signals) View {
	enabled := []ModuleID{Module1}
	for n := 2; n <= 5; n++ {
		if moduleEnabled(t, s, sig, n) {
			enabled = append(enabled, moduleID(n))
		}
	}
	enabled = append(enabled, ModuleTimeline)

	active := Module1
	for n := int(s); n >= 2; n-- {
		if moduleEnabled(t, s, sig, n) {
			active = moduleID(n)
			break
		}
	}

	return View{ServiceType: t, Stage: s, Enabled: enabled, Active: active}
}

func moduleEnabled(t ServiceType, s Stage, sig Signals, n int) bool {
	if !t.Offers(n) {
		return false
	}
	if n == 5 {
		return s == StageModule5 || (s == StageModule4 && sig.ApprovedWithReport)
	}
	return int(s) >= n
}

// ValidateAdvance checks that a process of type t may move from current to
// target. Moving back is allowed to any offered stage.
func ValidateAdvance(t ServiceType, current, target Stage, sig Signals) error {
	if !t.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown service type %q", t))
	}
	if !target.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown stage %d", int(target)))
	}
	if target == StageNone || target == current {
		return nil
	}
	if !t.Offers(int(target)) {
		return apperr.Validation(fmt.Sprintf("service type %s does not include %s", t, target.Label()))
	}
	if target == StageModule5 {
		if current != StageModule4 {
			return apperr.Conflict(target.Label() + " can only be reached from " + StageModule4.Label())
		}
		if !sig.ApprovedWithReport {
			return apperr.Conflict(target.Label() + " requires a client-approved candidate with a classified evaluation report")
		}
	}
	return nil
}
