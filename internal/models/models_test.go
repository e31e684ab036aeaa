package models

import "testing"

func TestTaskMaterialLine_EffectiveQty(t *testing.T) {
	tests := []struct {
		name    string
		planned float64
		used    float64
		want    float64
	}{
		{"used wins", 3, 2.5, 2.5},
		{"planned fallback", 3, 0, 3},
		{"negative used ignored", 3, -1, 3},
		{"nothing positive", 0, 0, 0},
		{"negative planned ignored", -2, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := TaskMaterialLine{QtyPlanned: tt.planned, QtyUsed: tt.used}
			if got := l.EffectiveQty(); got != tt.want {
				t.Errorf("EffectiveQty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTask_Open(t *testing.T) {
	for _, status := range []string{TaskStatusTodo, TaskStatusDoing} {
		task := Task{Status: status}
		if !task.Open() {
			t.Errorf("task with status %q should be open", status)
		}
	}
	done := Task{Status: TaskStatusDone}
	if done.Open() {
		t.Error("done task should not be open")
	}
}

func TestProject_Active(t *testing.T) {
	for _, status := range []string{ProjectStatusInProgress, ProjectStatusDeliveryScheduled} {
		p := Project{Status: status}
		if !p.Active() {
			t.Errorf("project with status %q should be active", status)
		}
	}
	completed := Project{Status: ProjectStatusCompleted}
	if completed.Active() {
		t.Error("completed project should not be active")
	}
}
