package milestones

import (
	"testing"

	"recruitment_backend/internal/stages"

	"github.com/google/uuid"
)

func TestPlanOnlyUsesOfferedModules(t *testing.T) {
	for _, st := range []stages.ServiceType{
		stages.ServiceFullProcess,
		stages.ServiceLongList,
		stages.ServiceHeadHunting,
		stages.ServiceTestOnly,
		stages.ServiceEvaluation,
	} {
		plan := Plan(st)
		if len(plan) == 0 {
			t.Errorf("%s: empty plan", st)
		}
		for _, tpl := range plan {
			stage, ok := tpl.Trigger.Stage()
			if !ok {
				t.Errorf("%s: template %q has unknown trigger %q", st, tpl.Name, tpl.Trigger)
				continue
			}
			if !st.Offers(int(stage)) {
				t.Errorf("%s: template %q anchors on %s which the service does not offer", st, tpl.Name, stage.Label())
			}
		}
	}

	if plan := Plan(stages.ServiceType("XX")); len(plan) != 0 {
		t.Fatalf("unknown service type should have no plan, got %d templates", len(plan))
	}
}

func TestStageTriggerRoundTrip(t *testing.T) {
	if StageTrigger(stages.StageNone) != "" {
		t.Fatal("no stage fires no trigger")
	}
	for s := stages.StageModule1; s <= stages.StageModule5; s++ {
		got, ok := StageTrigger(s).Stage()
		if !ok || got != s {
			t.Errorf("round trip of %s gave %v, %v", s.Label(), got, ok)
		}
	}
	if _, ok := Trigger("inicio_modulo_9").Stage(); ok {
		t.Fatal("expected unknown trigger")
	}
}

func TestSeedAnchorsProcessStartOnly(t *testing.T) {
	processID := uuid.New()
	start := day("2024-06-03")

	ms := Seed(processID, stages.ServiceFullProcess, start)
	if len(ms) != len(Plan(stages.ServiceFullProcess)) {
		t.Fatalf("expected one milestone per template, got %d", len(ms))
	}

	for i, m := range ms {
		if m.ProcessID != processID || m.Position != i || m.ID == uuid.Nil {
			t.Fatalf("bad identity on %+v", m)
		}
		if m.Trigger == TriggerProcessStart {
			if m.BaseDate == nil || !m.BaseDate.Equal(start) {
				t.Fatalf("%q should be based on the start date", m.Name)
			}
			if m.DueDate.Before(*m.BaseDate) {
				t.Fatalf("%q is due before its base", m.Name)
			}
			continue
		}
		if m.BaseDate != nil || m.DueDate != nil {
			t.Fatalf("%q should wait for its stage", m.Name)
		}
		if got := Classify(m, start); got != StatusPending {
			t.Fatalf("unanchored milestone should be pending, got %s", got)
		}
	}
}

func TestAnchorClampsNegativeDuration(t *testing.T) {
	m := Anchor(Milestone{DurationDays: -4}, day("2024-02-28"))
	if !m.DueDate.Equal(*m.BaseDate) {
		t.Fatalf("expected due == base, got %v and %v", m.BaseDate, m.DueDate)
	}
}
