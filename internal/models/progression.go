package models

// ModuleAccess describes one module in a student's progression view.
type ModuleAccess struct {
	ModuleID             string `json:"module_id"`
	Title                string `json:"title"`
	Position             int    `json:"position"`
	Unlocked             bool   `json:"unlocked"`
	IsAssignmentBlocking bool   `json:"is_assignment_blocking"`
	CompletedAssignments int    `json:"completed_assignments"`
	TotalAssignments     int    `json:"total_assignments"`
}

// Progression is the per-request computed unlock state for a student in a
// course. Nothing here is persisted; retroactive catalog edits take effect
// on the next read.
type Progression struct {
	CourseID  string         `json:"course_id"`
	StudentID string         `json:"student_id"`
	Modules   []ModuleAccess `json:"modules"`
}

// UnlockedPositions returns the ordered positions of unlocked modules.
func (p *Progression) UnlockedPositions() []int {
	positions := make([]int, 0, len(p.Modules))
	for _, m := range p.Modules {
		if m.Unlocked {
			positions = append(positions, m.Position)
		}
	}
	return positions
}
