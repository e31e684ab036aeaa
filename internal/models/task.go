package models

import "time"

// Task statuses. Todo and doing are collectively "open"; open tasks reserve
// the materials on their lines.
const (
	TaskStatusTodo  = "todo"
	TaskStatusDoing = "doing"
	TaskStatusDone  = "done"
)

// Line debit origins, recorded when a line's quantity is taken out of stock.
const (
	DebitedByTask    = "task"
	DebitedByProject = "project"
)

// Task is a unit of work inside a project. Completing a task debits the
// effective quantity of each of its material lines from stock.
type Task struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID  uint   `gorm:"not null;index"`
	Title      string `gorm:"size:255;not null"`
	Status     string `gorm:"size:16;not null;default:todo;index"`
	DueOn      string `gorm:"size:10"`
	PreparedAt *time.Time
	Version    int `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Lines []TaskMaterialLine `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// Open reports whether the task still reserves its material lines.
func (t *Task) Open() bool {
	return t.Status != TaskStatusDone
}

// TaskMaterialLine links a task to a material requirement. At least one of
// MaterialID / MaterialName is set; lines without a MaterialID refer to
// unregistered materials and are never reserved or debited.
//
// Debited/DebitedBy/DebitedQty record whether (and by which transition) the
// line's quantity has been taken out of stock, so that reverts credit back
// exactly what was debited.
type TaskMaterialLine struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	TaskID       uint    `gorm:"not null;index"`
	MaterialID   *uint   `gorm:"index"`
	MaterialName string  `gorm:"size:128"`
	QtyPlanned   float64 `gorm:"type:decimal(12,3);not null;default:0"`
	QtyUsed      float64 `gorm:"type:decimal(12,3);not null;default:0"`
	Debited      bool    `gorm:"not null;default:false"`
	DebitedBy    string  `gorm:"size:8"`
	DebitedQty   float64 `gorm:"type:decimal(12,3);not null;default:0"`
}

// EffectiveQty is the quantity the ledger charges for this line: QtyUsed if
// positive, else QtyPlanned if positive, else zero.
func (l *TaskMaterialLine) EffectiveQty() float64 {
	if l.QtyUsed > 0 {
		return l.QtyUsed
	}
	if l.QtyPlanned > 0 {
		return l.QtyPlanned
	}
	return 0
}
