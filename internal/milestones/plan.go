package milestones

import (
	"strconv"
	"strings"
	"time"

	"recruitment_backend/internal/stages"

	"github.com/google/uuid"
)

// Trigger names the event that anchors a milestone's base date.
type Trigger string

// TriggerProcessStart anchors on the process start date.
const TriggerProcessStart Trigger = "inicio_proceso"

const stageTriggerPrefix = "inicio_modulo_"

// StageTrigger returns the trigger fired when a process enters s. Module 1
// milestones hang off the process start. StageNone fires nothing.
func StageTrigger(s stages.Stage) Trigger {
	switch {
	case s == stages.StageModule1:
		return TriggerProcessStart
	case s > stages.StageModule1 && s <= stages.StageModule5:
		return Trigger(stageTriggerPrefix + strconv.Itoa(int(s)))
	default:
		return ""
	}
}

// Stage returns the stage whose entry fires t.
func (t Trigger) Stage() (stages.Stage, bool) {
	if t == TriggerProcessStart {
		return stages.StageModule1, true
	}
	rest, ok := strings.CutPrefix(string(t), stageTriggerPrefix)
	if !ok {
		return stages.StageNone, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 2 || n > 5 {
		return stages.StageNone, false
	}
	return stages.Stage(n), true
}

// Template is one milestone of a service plan.
type Template struct {
	Name         string
	Trigger      Trigger
	DurationDays int
	WarningDays  int
}

var (
	profileTemplates = []Template{
		{Name: "Levantamiento de perfil", Trigger: TriggerProcessStart, DurationDays: 3, WarningDays: 1},
		{Name: "Publicación de aviso", Trigger: TriggerProcessStart, DurationDays: 5, WarningDays: 2},
	}
	sourcingTemplates = []Template{
		{Name: "Entrega de long list", Trigger: StageTrigger(stages.StageModule2), DurationDays: 10, WarningDays: 3},
		{Name: "Entrega de short list", Trigger: StageTrigger(stages.StageModule3), DurationDays: 7, WarningDays: 2},
	}
	evaluationTemplates = []Template{
		{Name: "Entrega de informes psicolaborales", Trigger: StageTrigger(stages.StageModule4), DurationDays: 7, WarningDays: 2},
	}
	closingTemplates = []Template{
		{Name: "Confirmación de contratación", Trigger: StageTrigger(stages.StageModule5), DurationDays: 5, WarningDays: 2},
		{Name: "Seguimiento de garantía", Trigger: StageTrigger(stages.StageModule5), DurationDays: 90, WarningDays: 10},
	}
	intakeTemplates = []Template{
		{Name: "Recepción de candidatos", Trigger: TriggerProcessStart, DurationDays: 2, WarningDays: 1},
	}
)

// Plan returns the milestone templates of a service type, in timeline order.
// Unknown service types have no plan.
func Plan(t stages.ServiceType) []Template {
	var plan []Template
	switch t {
	case stages.ServiceFullProcess:
		plan = concat(profileTemplates, sourcingTemplates, evaluationTemplates, closingTemplates)
	case stages.ServiceLongList, stages.ServiceHeadHunting:
		plan = concat(profileTemplates, sourcingTemplates)
	case stages.ServiceTestOnly, stages.ServiceEvaluation:
		plan = concat(intakeTemplates, evaluationTemplates)
	}
	return plan
}

func concat(parts ...[]Template) []Template {
	var out []Template
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Seed instantiates the plan of a new process. Milestones anchored on the
// process start get start as their base date; the rest wait for their stage.
func Seed(processID uuid.UUID, t stages.ServiceType, start time.Time) []Milestone {
	plan := Plan(t)
	out := make([]Milestone, 0, len(plan))
	for i, tpl := range plan {
		m := Milestone{
			ID:           uuid.New(),
			ProcessID:    processID,
			Name:         tpl.Name,
			Trigger:      tpl.Trigger,
			DurationDays: tpl.DurationDays,
			WarningDays:  tpl.WarningDays,
			Position:     i,
		}
		if tpl.Trigger == TriggerProcessStart {
			m = Anchor(m, start)
		}
		out = append(out, m)
	}
	return out
}

// Anchor sets the base date of m to base's calendar day and derives its due
// date. Negative durations count as zero.
func Anchor(m Milestone, base time.Time) Milestone {
	b := Date(base)
	days := m.DurationDays
	if days < 0 {
		days = 0
	}
	due := b.AddDate(0, 0, days)
	m.BaseDate = &b
	m.DueDate = &due
	return m
}
