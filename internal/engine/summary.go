package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// Summary counts what a scan found
type Summary struct {
	Trees             int            `json:"trees"`
	Calls             int            `json:"calls"`
	Tasks             int            `json:"tasks"`
	Failures          model.Failures `json:"failures,omitempty"`
	ExtraRequirements int            `json:"extra_requirements"`
	Cycles            int            `json:"cycles"`
	MutableTasks      int            `json:"mutable_tasks"`
	LoopErrors        int            `json:"loop_errors"`
}

// Summary computes the counts of the result
func (r *Result) Summary() Summary {
	s := Summary{
		Trees:      len(r.Trees),
		Failures:   model.Failures{},
		LoopErrors: len(r.LoopErrors),
	}
	for _, t := range r.Trees {
		s.Calls += len(t.Calls)
		s.Failures.Merge(t.Telemetry.Failures)
		s.ExtraRequirements += len(t.Telemetry.ExtraRequirements)
		s.Cycles += len(t.Telemetry.Cycles)
		for _, c := range t.TaskCalls() {
			s.Tasks++
			if c.Annotation.HasMutableOptions() {
				s.MutableTasks++
			}
		}
	}
	return s
}

// failureKinds is the print order of unresolved reference kinds
var failureKinds = []string{"module", "role", "taskfile", "playbook"}

// WriteText prints the summary in human readable form
func (s Summary) WriteText(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Trees: %d, calls: %d, tasks: %d\n", s.Trees, s.Calls, s.Tasks)
	fmt.Fprintf(&sb, "   Tasks with mutable options: %d\n", s.MutableTasks)
	if s.ExtraRequirements > 0 {
		fmt.Fprintf(&sb, "   Resolved from knowledge store: %d\n", s.ExtraRequirements)
	}
	if s.Cycles > 0 {
		fmt.Fprintf(&sb, "   Cyclic inclusions cut: %d\n", s.Cycles)
	}
	if s.LoopErrors > 0 {
		fmt.Fprintf(&sb, "   Loops not expanded: %d\n", s.LoopErrors)
	}

	if total := s.Failures.Total(); total > 0 {
		fmt.Fprintf(&sb, "⚠️  Unresolved references: %d\n", total)
		for _, kind := range failureKinds {
			for _, name := range s.Failures.Names(kind) {
				fmt.Fprintf(&sb, "   %s %s (%d)\n", kind, name, s.Failures.Count(kind, name))
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
